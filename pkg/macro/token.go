package macro

import "fmt"

// TokenType identifies the category of a lexed argument token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // counter name
	INTEGER    // integer literal, any base, optional i32 suffix

	// Punctuation
	LPAREN // (
	RPAREN // )
	COMMA  // ,
	MINUS  // -
	BANG   // !
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INTEGER:    "INTEGER",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	COMMA:      "COMMA",
	MINUS:      "MINUS",
	BANG:       "BANG",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Col    int    // 1-based column of the first rune
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  %d:%d", t.Type, t.Lexeme, t.Line, t.Col)
}
