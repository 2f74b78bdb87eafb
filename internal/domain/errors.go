package domain

import "errors"

// Error taxonomy for the retrieval core. All are recoverable at the
// caller's discretion except ErrCorruptStore, which is fatal to that
// store instance. ErrEmbeddingUnavailable is the only transient
// condition and the only one the engine retries (once).
var (
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrCorruptStore         = errors.New("corrupt case store")
	ErrEmptyIndex           = errors.New("similarity index is empty")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrNotFound             = errors.New("case not found")
)
