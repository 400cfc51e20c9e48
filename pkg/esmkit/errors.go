package esmkit

import (
	"errors"

	"github.com/dyuri/esmkit/internal/binary"
)

// Error codes
const (
	CodeInvalidFormat = "invalid_format"
	CodeDependency    = "dependency"
	CodeDecode        = "decode"
	CodeIO            = "io"
	CodeConfig        = "config"
)

// Common errors, matched by code with errors.Is
var (
	ErrInvalidFormat = &Error{Code: CodeInvalidFormat, Message: "invalid file format"}
	ErrDependency    = &Error{Code: CodeDependency, Message: "required dependency not found"}
	ErrDecode        = &Error{Code: CodeDecode, Message: "decode error"}
	ErrIO            = &Error{Code: CodeIO, Message: "i/o error"}
	ErrConfig        = &Error{Code: CodeConfig, Message: "invalid configuration"}
)

// Error represents an esmkit error
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// wrapError classifies an error coming out of the reader
func wrapError(message string, err error) error {
	var decodeErr *binary.DecodeError

	code := CodeIO
	switch {
	case errors.Is(err, binary.ErrUnknownFormat):
		code = CodeInvalidFormat
	case errors.Is(err, binary.ErrDependencyNotFound):
		code = CodeDependency
	case errors.Is(err, binary.ErrUnknownEncoding):
		code = CodeConfig
	case errors.As(err, &decodeErr):
		code = CodeDecode
	}

	return &Error{Code: code, Message: message, Cause: err}
}
