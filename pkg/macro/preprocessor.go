package macro

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"bumpcount/pkg/counter"
	"bumpcount/pkg/utils"
)

// Preprocess expands every counter macro in src against store and splices
// `#include "file"` directives, resolved relative to baseDir. The first
// failure aborts the whole unit and comes back as a *Diagnostic.
func Preprocess(src string, baseDir string, store *counter.Store) (string, error) {
	cfg := defaultConfig()
	e := newExpander(store, macroTable(cfg.prefix), cfg.log)
	return e.expand(src, "", baseDir, make(map[string]bool))
}

// expander processes one compilation unit: a top-level file plus everything
// it includes. All of them share one store.
type expander struct {
	store  *counter.Store
	macros map[string]Op
	log    zerolog.Logger

	// alreadyProcessed makes each file expand at most once per unit, so an
	// include does not replay its invocations.
	alreadyProcessed map[string]bool
	invocations      int
}

func newExpander(store *counter.Store, macros map[string]Op, log zerolog.Logger) *expander {
	return &expander{
		store:            store,
		macros:           macros,
		log:              log,
		alreadyProcessed: make(map[string]bool),
	}
}

// expandFile reads and expands a top-level file.
func (e *expander) expandFile(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to read %s", path)
	}
	e.alreadyProcessed[absPath] = true
	return e.expand(string(content), path, filepath.Dir(absPath), map[string]bool{absPath: true})
}

func (e *expander) expand(src, file, baseDir string, visitedStack map[string]bool) (string, error) {
	l := newLexer(src)
	var out strings.Builder
	out.Grow(len(src))
	lineStart := true

	for !l.done() {
		ch := l.peek()

		switch {
		case ch == '\n':
			out.WriteRune(l.advance())
			lineStart = true
			continue

		case unicode.IsSpace(ch):
			out.WriteRune(l.advance())
			continue

		case lineStart && ch == '#':
			line, col := l.line, l.col
			directive := l.restOfLine()
			if !strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(directive, "#")), "include") {
				// Not ours; #define and friends pass through untouched.
				out.WriteString(directive)
				break
			}
			included, err := e.include(directive, baseDir, visitedStack)
			if err != nil {
				return "", atPos(err, file, line, col)
			}
			out.WriteString(strings.TrimSuffix(included, "\n"))

		case ch == '"' || ch == '\'':
			l.copyQuoted(&out)

		case ch == '/' && l.peek2() == '/':
			l.copyLineComment(&out)

		case ch == '/' && l.peek2() == '*':
			line, col := l.line, l.col
			if err := l.copyBlockComment(&out); err != nil {
				return "", atPos(err, file, line, col)
			}

		case unicode.IsDigit(ch):
			// Whole literal, so a suffix is never mistaken for a macro name.
			out.WriteString(l.scanInt().Lexeme)

		case isIdentStart(ch):
			name := l.scanIdent()
			op, ok := e.macros[name.Lexeme]
			if !ok {
				out.WriteString(name.Lexeme)
				break
			}
			expansion, invoked, err := e.invoke(l, name, op, file)
			if err != nil {
				return "", err
			}
			if !invoked {
				out.WriteString(name.Lexeme)
				break
			}
			out.WriteString(expansion)

		default:
			out.WriteRune(l.advance())
		}
		lineStart = false
	}
	return out.String(), nil
}

// invoke handles `name!(args)`. When name is not followed by '!' it is a
// plain identifier and invoked is false.
func (e *expander) invoke(l *Lexer, name Token, op Op, file string) (expansion string, invoked bool, err error) {
	save := *l
	l.skipWhitespace()
	if l.peek() != '!' || l.peek2() == '=' {
		*l = save
		return "", false, nil
	}
	l.advance() // !
	l.skipWhitespace()
	if l.peek() != '(' {
		return "", true, e.malformed(name, file, l.line, l.col, "expected '(' after %s!", name.Lexeme)
	}
	l.advance() // (

	argLine, argCol := l.line, l.col
	start := l.pos
	depth := 1
	for !l.done() {
		r := l.peek()
		if r == '(' {
			depth++
		} else if r == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
		l.advance()
	}
	if l.done() {
		return "", true, e.malformed(name, file, name.Line, name.Col, "unterminated argument list")
	}
	argSrc := string(l.src[start:l.pos])
	l.advance() // )

	tokens, err := lexFrom(newLexerAt(argSrc, argLine, argCol))
	if err != nil {
		return "", true, e.malformed(name, file, argLine, argCol, "%v", err)
	}
	args, err := op.decode(tokens)
	if err != nil {
		var ae *argError
		if errors.As(err, &ae) {
			return "", true, e.malformed(name, file, ae.tok.Line, ae.tok.Col, "%s", ae.msg)
		}
		return "", true, e.malformed(name, file, argLine, argCol, "%v", err)
	}

	v, ok, err := op.apply(e.store, args)
	if err != nil {
		return "", true, &Diagnostic{File: file, Line: name.Line, Col: name.Col, Err: err}
	}
	e.invocations++

	ev := e.log.Debug().
		Str("op", op.String()).
		Str("counter", args.Name).
		Str("file", file).
		Int("line", name.Line)
	if ok {
		ev = ev.Int32("value", v)
	} else if op == OpSet {
		ev = ev.Int32("value", args.Value)
	}
	ev.Msg("counter macro expanded")

	return encode(v, ok), true, nil
}

func (e *expander) malformed(name Token, file string, line, col int, format string, a ...interface{}) error {
	return &Diagnostic{
		File: file,
		Line: line,
		Col:  col,
		Err:  &MalformedArgumentsError{Macro: name.Lexeme, Msg: fmt.Sprintf(format, a...)},
	}
}

// include expands the file named by an `#include "file"` directive.
func (e *expander) include(directive, baseDir string, visitedStack map[string]bool) (string, error) {
	parts := strings.SplitN(directive, "\"", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid include directive: %s", strings.TrimSpace(directive))
	}
	filename := parts[1]

	absPath, err := utils.ResolveInclude(baseDir, filename)
	if err != nil {
		return "", err
	}

	if visitedStack[absPath] {
		return "", fmt.Errorf("circular include detected: %s", filename)
	}
	if e.alreadyProcessed[absPath] {
		return "", nil
	}
	e.alreadyProcessed[absPath] = true

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to read included file %s", filename)
	}

	// Copy the stack so diamond includes are not mistaken for cycles.
	newStack := make(map[string]bool, len(visitedStack)+1)
	for k, v := range visitedStack {
		newStack[k] = v
	}
	newStack[absPath] = true

	e.log.Debug().Str("include", absPath).Msg("expanding include")
	return e.expand(string(content), absPath, filepath.Dir(absPath), newStack)
}

// atPos attaches a position unless err already carries one from a nested
// include.
func atPos(err error, file string, line, col int) error {
	var d *Diagnostic
	if errors.As(err, &d) {
		return err
	}
	return &Diagnostic{File: file, Line: line, Col: col, Err: err}
}

// restOfLine consumes up to, not including, the next newline.
func (l *Lexer) restOfLine() string {
	start := l.pos
	for !l.done() && l.peek() != '\n' {
		l.advance()
	}
	return string(l.src[start:l.pos])
}

// copyQuoted copies a string or char literal verbatim. Literals end at the
// matching quote or the end of the line.
func (l *Lexer) copyQuoted(out *strings.Builder) {
	quote := l.advance()
	out.WriteRune(quote)
	for !l.done() && l.peek() != '\n' {
		r := l.advance()
		out.WriteRune(r)
		if r == '\\' {
			if !l.done() && l.peek() != '\n' {
				out.WriteRune(l.advance())
			}
			continue
		}
		if r == quote {
			return
		}
	}
}

func (l *Lexer) copyLineComment(out *strings.Builder) {
	out.WriteString(l.restOfLine())
}

func (l *Lexer) copyBlockComment(out *strings.Builder) error {
	start := l.pos
	l.advance() // /
	l.advance() // *
	err := l.skipBlockComment()
	out.WriteString(string(l.src[start:l.pos]))
	return err
}
