package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptySelection is returned when validating a selection with no fields.
	ErrEmptySelection = errors.New("query: empty selection")
	// ErrNoMutationType is returned when a mutation is validated against a
	// schema without a mutation root.
	ErrNoMutationType = errors.New("query: schema has no mutation type")
	// ErrNotValidated is raised when rendering or decoding with a Validated
	// that did not come from Validate.
	ErrNotValidated = errors.New("query: selection was not validated")
)

// ErrorKind classifies validation failures.
type ErrorKind string

const (
	NoSuchField             ErrorKind = "NoSuchField"
	NoSuchArgument          ErrorKind = "NoSuchArgument"
	InvalidArgumentValue    ErrorKind = "InvalidArgumentValue"
	MissingRequiredArgument ErrorKind = "MissingRequiredArgument"
	SelectionRequired       ErrorKind = "SelectionRequired"
	UnexpectedSelection     ErrorKind = "UnexpectedSelection"
	ReservedResponseKey     ErrorKind = "ReservedResponseKey"
)

// FieldError is one validation failure.
type FieldError struct {
	Kind ErrorKind
	// Path is the dot-joined chain of response keys from the root.
	Path     string
	OnType   string
	Field    string
	Argument string
	Message  string
}

func (e *FieldError) Error() string {
	return e.Path + ": " + e.Message
}

// FieldErrors is a node of the error tree. It corresponds to one field of
// the validated selection; only fields that failed, or that contain failing
// fields, appear.
type FieldErrors struct {
	Key    string
	Path   string
	Errors []*FieldError
	Fields []*FieldErrors
}

func (n *FieldErrors) empty() bool {
	return len(n.Errors) == 0 && len(n.Fields) == 0
}

// ValidationError is the result of a failed validation. Its tree mirrors the
// shape of the selection that was checked.
type ValidationError struct {
	Fields []*FieldErrors
}

func (e *ValidationError) Error() string {
	errs := e.Errors()
	if len(errs) == 1 {
		return "query: " + errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("query: %d validation errors: %s", len(errs), strings.Join(msgs, "; "))
}

// Errors flattens the tree depth-first, left to right. A field's own errors
// come before those of its subfields.
func (e *ValidationError) Errors() []*FieldError {
	var out []*FieldError
	var walk func([]*FieldErrors)
	walk = func(nodes []*FieldErrors) {
		for _, n := range nodes {
			out = append(out, n.Errors...)
			walk(n.Fields)
		}
	}
	walk(e.Fields)
	return out
}

// Paths lists the paths of fields carrying at least one error, in the order
// of Errors.
func (e *ValidationError) Paths() []string {
	var out []string
	var walk func([]*FieldErrors)
	walk = func(nodes []*FieldErrors) {
		for _, n := range nodes {
			if len(n.Errors) > 0 {
				out = append(out, n.Path)
			}
			walk(n.Fields)
		}
	}
	walk(e.Fields)
	return out
}

func (e *ValidationError) Unwrap() []error {
	errs := e.Errors()
	out := make([]error, len(errs))
	for i, err := range errs {
		out[i] = err
	}
	return out
}

// DecodeErrorKind classifies decode failures.
type DecodeErrorKind string

const (
	UnexpectedNull  DecodeErrorKind = "UnexpectedNull"
	TypeMismatch    DecodeErrorKind = "TypeMismatch"
	UnknownTypename DecodeErrorKind = "UnknownTypename"
	MissingField    DecodeErrorKind = "MissingField"
	ScalarDecode    DecodeErrorKind = "ScalarDecode"
)

// DecodeError reports a response that does not match the validated
// selection. Decoding stops at the first one.
type DecodeError struct {
	Kind DecodeErrorKind
	// Path locates the value, e.g. "repository.issues[2].title".
	Path    string
	Type    string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("query: decode %s: %s", e.Path, e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Err }
