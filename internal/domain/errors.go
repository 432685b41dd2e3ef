package domain

import "errors"

// ErrInvalidParams is returned when engine inputs fail validation.
// Callers wrap it with a message naming the offending field.
var ErrInvalidParams = errors.New("invalid params")
