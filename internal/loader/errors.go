package loader

import (
	"errors"
	"fmt"
)

// FormatError reports a source file that does not match the expected
// column structure of its table
type FormatError struct {
	Path   string
	Line   int // 0 when the problem is not tied to a line
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error in %s line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("format error in %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ConstraintViolation reports rows rejected by a primary key, unique,
// not-null, check or foreign key constraint of the destination table
type ConstraintViolation struct {
	Table     string
	FirstLine int
	LastLine  int
	Err       error
}

func (e *ConstraintViolation) Error() string {
	if e.FirstLine == 0 {
		return fmt.Sprintf("constraint violation in %s: %v", e.Table, e.Err)
	}
	if e.FirstLine == e.LastLine {
		return fmt.Sprintf("constraint violation in %s (line %d): %v", e.Table, e.FirstLine, e.Err)
	}
	return fmt.Sprintf("constraint violation in %s (lines %d-%d): %v", e.Table, e.FirstLine, e.LastLine, e.Err)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// IsFormatError reports whether err is or wraps a FormatError
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsConstraintViolation reports whether err is or wraps a ConstraintViolation
func IsConstraintViolation(err error) bool {
	var cv *ConstraintViolation
	return errors.As(err, &cv)
}
