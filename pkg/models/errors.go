package models

import (
	"fmt"
	"strings"
)

// ValidationError reports bad input to the store, such as an empty
// title or a malformed hash encoding.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// SchemaMismatchError reports a hash length or vector dimension that
// disagrees with the store-wide constants fixed by the first inserted
// fingerprint.
type SchemaMismatchError struct {
	Field string // "hash bits" or "vector dim"
	Want  int
	Got   int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: %s: want %d, got %d", e.Field, e.Want, e.Got)
}

// NotFoundError reports a reference to a media item or fingerprint id
// that is absent from the store.
type NotFoundError struct {
	Kind string // "media" or "fingerprint"
	IDs  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, strings.Join(e.IDs, ", "))
}

// ExtractionError reports a sampled frame for which the external
// extractor could not produce a fingerprint. The aggregator absorbs it
// as a no-match for that frame.
type ExtractionError struct {
	FrameIndex int
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting frame %d: %v", e.FrameIndex, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
