package loader

import (
	"fmt"
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (if available).
	Line int
	// Column is the column number where the error occurred (if available).
	Column int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadError is returned when a file exists but cannot be read.
type ReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("reading config file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// SchemaError describes well-formed JSON that does not have the shape of
// a rules and profiles document.
type SchemaError struct {
	// Path is the file path.
	Path string
	// Where locates the offending element, e.g. "rules[2].pattern".
	Where string
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("invalid configuration in %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("invalid configuration in %s: %s: %s", e.Path, e.Where, e.Message)
}

// DuplicateError reports a file reached through more than one search path
// entry. Only the occurrence from FirstEntry is loaded.
type DuplicateError struct {
	Path string
	// Entry is the search path index of the dropped occurrence.
	Entry int
	// FirstEntry is the search path index the file is loaded from.
	FirstEntry int
}

// Error implements the error interface.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s is reached by search path entries %d and %d; only the first is used",
		e.Path, e.FirstEntry, e.Entry)
}
