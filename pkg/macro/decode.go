package macro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args is a decoded invocation argument list.
type Args struct {
	Name  string
	Value int32 // only meaningful for set
}

// argError reports a malformed argument at the offending token.
type argError struct {
	tok Token
	msg string
}

func (e *argError) Error() string {
	return e.msg
}

func errAt(tok Token, format string, a ...interface{}) error {
	return &argError{tok: tok, msg: fmt.Sprintf(format, a...)}
}

// decodeName accepts exactly one identifier.
func decodeName(tokens []Token) (Args, error) {
	toks := trimEOF(tokens)
	if len(toks) == 0 {
		return Args{}, errAt(eofOf(tokens), "expected counter name")
	}
	if toks[0].Type != IDENTIFIER {
		return Args{}, errAt(toks[0], "expected counter name, found %s %q", toks[0].Type, toks[0].Lexeme)
	}
	if len(toks) > 1 {
		return Args{}, errAt(toks[1], "unexpected %s %q after counter name", toks[1].Type, toks[1].Lexeme)
	}
	return Args{Name: toks[0].Lexeme}, nil
}

// decodeNameValue accepts `name , [-]int`.
func decodeNameValue(tokens []Token) (Args, error) {
	toks := trimEOF(tokens)
	end := eofOf(tokens)

	at := func(i int) Token {
		if i < len(toks) {
			return toks[i]
		}
		return end
	}

	name := at(0)
	if name.Type != IDENTIFIER {
		return Args{}, errAt(name, "expected counter name, found %s %q", name.Type, name.Lexeme)
	}
	if comma := at(1); comma.Type != COMMA {
		return Args{}, errAt(comma, "expected ',' after counter name, found %s %q", comma.Type, comma.Lexeme)
	}

	i := 2
	negative := false
	if at(i).Type == MINUS {
		negative = true
		i++
	}
	lit := at(i)
	if lit.Type != INTEGER {
		return Args{}, errAt(lit, "expected integer literal, found %s %q", lit.Type, lit.Lexeme)
	}
	v, err := parseInt32(lit.Lexeme, negative)
	if err != nil {
		return Args{}, errAt(lit, "%v", err)
	}
	if i+1 < len(toks) {
		extra := toks[i+1]
		return Args{}, errAt(extra, "unexpected %s %q after value", extra.Type, extra.Lexeme)
	}
	return Args{Name: name.Lexeme, Value: v}, nil
}

// parseInt32 decodes a literal such as 12, 0x_ff, 0b1010 or 7i32. Literals
// with a leading zero are decimal.
func parseInt32(lexeme string, negative bool) (int32, error) {
	digits := strings.TrimSuffix(lexeme, "i32")

	base := 10
	if len(digits) > 2 && digits[0] == '0' {
		switch digits[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			digits = digits[2:]
		}
	}
	digits = strings.ReplaceAll(digits, "_", "")
	if digits == "" {
		return 0, fmt.Errorf("invalid integer literal %q", lexeme)
	}

	mag, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, fmt.Errorf("integer literal %q does not fit in i32", lexeme)
		}
		return 0, fmt.Errorf("invalid integer literal %q", lexeme)
	}

	if negative {
		if mag > -math.MinInt32 {
			return 0, fmt.Errorf("integer literal -%s does not fit in i32", lexeme)
		}
		return int32(-int64(mag)), nil
	}
	if mag > math.MaxInt32 {
		return 0, fmt.Errorf("integer literal %q does not fit in i32", lexeme)
	}
	return int32(mag), nil
}

func trimEOF(tokens []Token) []Token {
	if n := len(tokens); n > 0 && tokens[n-1].Type == EOF {
		return tokens[:n-1]
	}
	return tokens
}

func eofOf(tokens []Token) Token {
	if n := len(tokens); n > 0 {
		return tokens[n-1]
	}
	return Token{Type: EOF}
}
