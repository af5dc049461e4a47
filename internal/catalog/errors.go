package catalog

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, surfaced by the API layer per SPEC_FULL.md §2 /
// spec.md §7.
var (
	ErrInvalidCatalog   = errors.New("invalid catalog")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrNotFound         = errors.New("not found")
	ErrUnsupportedRunner = errors.New("unsupported runner")
)

// FieldError names the offending key path of a validation failure, so the
// API can return a per-key error list (spec.md §7).
type FieldError struct {
	Path string
	Msg  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// ValidationError aggregates one or more FieldErrors under ErrInvalidCatalog.
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Error()
	}
	return fmt.Sprintf("%d validation errors, first: %s", len(e.Fields), e.Fields[0].Error())
}

func (e *ValidationError) Unwrap() error { return ErrInvalidCatalog }

func (e *ValidationError) add(path, format string, args ...interface{}) {
	e.Fields = append(e.Fields, &FieldError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) asError() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
