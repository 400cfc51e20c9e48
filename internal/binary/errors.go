package binary

import (
	"errors"
	"fmt"

	"github.com/dyuri/esmkit/internal/model"
)

// Fatal decode conditions. Each aborts decoding of the current file.
var (
	ErrUnknownFormat           = errors.New("unknown file format")
	ErrReadMoreThanAvailable   = errors.New("read more than available")
	ErrDependencyNotFound      = errors.New("required dependency not found")
	ErrLocalizedStringNotFound = errors.New("localized string not found")
	ErrMalformedSize           = errors.New("malformed size")
	ErrTruncated               = errors.New("unexpected end of data")
	ErrNoGroup                 = errors.New("no open group")
	ErrNotGroup                = errors.New("current header is not a group")
	ErrUnterminatedString      = errors.New("string is not zero terminated")
	ErrContextMidRecord        = errors.New("context requested after record data was read")
	ErrNoCellGrid              = errors.New("cell grid not valid")
	ErrUnknownSubRecord        = errors.New("unknown subrecord")

	// ErrUnknownEncoding rejects Options.Encoding before any data is read
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// DecodeError carries the position of a fatal decode failure
type DecodeError struct {
	File      string
	Record    model.RecordType
	SubRecord model.RecordType
	Offset    int64
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("esm error: %v (file %s, record %s, subrecord %s, offset 0x%x)",
		e.Err, e.File, e.Record, e.SubRecord, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// InflateError is returned when a compressed record survives neither the
// single-shot nor the chunked decompression attempt
type InflateError struct {
	Offset   int64 // stream offset of the record header
	Primary  error
	Fallback error
}

func (e *InflateError) Error() string {
	return fmt.Sprintf("failed to decompress record at 0x%x: %v, %v", e.Offset, e.Primary, e.Fallback)
}

func (e *InflateError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
