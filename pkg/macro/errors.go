package macro

import (
	"errors"
	"fmt"
)

// ErrMalformedArguments matches every argument decoding failure.
var ErrMalformedArguments = errors.New("malformed macro arguments")

// MalformedArgumentsError describes why an invocation's arguments were
// rejected.
type MalformedArgumentsError struct {
	Macro string
	Msg   string
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("%s!: %s", e.Macro, e.Msg)
}

func (e *MalformedArgumentsError) Is(target error) bool {
	return target == ErrMalformedArguments
}

// Diagnostic pins an expansion failure to a source position. Every
// Diagnostic is fatal for the compilation unit it was raised in.
type Diagnostic struct {
	File string
	Line int
	Col  int
	Err  error
}

func (d *Diagnostic) Error() string {
	file := d.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %v", file, d.Line, d.Col, d.Err)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}
