package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed matches every *MalformedError via errors.Is.
	ErrMalformed = errors.New("malformed metafile")

	// ErrDuplicatePath is returned when a snapshot would contain the same path twice.
	ErrDuplicatePath = errors.New("duplicate path")
)

// MalformedError reports a metafile that violates the line or field grammar.
// Line is the 1-based line number, or 0 when the error is not tied to a line
// (e.g. when parsing a single entry).
type MalformedError struct {
	Line int
	Msg  string
	Err  error
}

func (e *MalformedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed metafile: %s at line %d", e.Msg, e.Line)
	}
	return "malformed metafile: " + e.Msg
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

func (e *MalformedError) Unwrap() error { return e.Err }

// atLine returns a copy of e bound to the given line number.
func (e *MalformedError) atLine(line int) *MalformedError {
	c := *e
	c.Line = line
	return &c
}

// UnsupportedVersionError is returned when the header declares a format
// version this package cannot read. It is never recoverable.
type UnsupportedVersionError struct {
	Version uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported metafile version \"%d\"", e.Version)
}
