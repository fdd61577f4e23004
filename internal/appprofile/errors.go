package appprofile

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrRuleNotFound indicates no rule has the given ID.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrProfileNotFound indicates no profile has the given name.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidSourceFile indicates a target file that cannot hold
	// configuration in the current search path.
	ErrInvalidSourceFile = errors.New("invalid source file")

	// ErrInvalidValue indicates a setting value the configuration cannot
	// store.
	ErrInvalidValue = errors.New("invalid setting value")

	// ErrInvalidFeature indicates a rule pattern feature that is not one of
	// procname, dso or true.
	ErrInvalidFeature = errors.New("invalid rule feature")
)

// SourceFileError explains why a file cannot be used as a source file.
type SourceFileError struct {
	// Path is the rejected file.
	Path string
	// Reason completes the sentence "the file is not valid because ...".
	Reason string
}

// Error implements the error interface.
func (e *SourceFileError) Error() string {
	return fmt.Sprintf("the source filename %q is not valid in this configuration because %s", e.Path, e.Reason)
}

// Is implements error matching for SourceFileError.
func (e *SourceFileError) Is(target error) bool {
	return target == ErrInvalidSourceFile
}

// ValueError is returned for JSON values that are not allowed as setting
// values.
type ValueError struct {
	// Type is the JSON type name, e.g. "object".
	Type string
	// Text is the offending input when it did not parse at all, or the
	// number literal when OutOfRange is set.
	Text string
	// OutOfRange is set for numbers that do not fit a 64-bit integer or a
	// finite real.
	OutOfRange bool
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	if e.OutOfRange {
		return fmt.Sprintf("the number %s is out of range", e.Text)
	}
	if e.Type == "" {
		return fmt.Sprintf("the value %q was not understood by the JSON parser", e.Text)
	}
	return fmt.Sprintf("a value of type %q is not allowed in the configuration", e.Type)
}

// Is implements error matching for ValueError.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// LoadError records a file that could not be loaded.
type LoadError struct {
	// Path is the file that failed.
	Path string
	// Err is a *loader.ReadError, *loader.ParseError or *loader.SchemaError.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
