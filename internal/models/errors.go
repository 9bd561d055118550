package models

import "errors"

// Error kinds shared by every layer. Producers wrap them together with the
// underlying cause, e.g. fmt.Errorf("list branches: %w: %w", ErrNotFound, err),
// so callers can test with errors.Is and still see which operation failed.
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrNotFound          = errors.New("not found")
	ErrNetwork           = errors.New("network error")
	ErrParse             = errors.New("parse error")
	ErrMissingCredential = errors.New("missing credential")
)
