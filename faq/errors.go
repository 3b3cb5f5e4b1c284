package faq

import "errors"

// ErrInvalidInput is returned when request input fails validation.
var ErrInvalidInput = errors.New("faq: invalid input")

// ErrContextNotFound is returned when no context matches the slug.
var ErrContextNotFound = errors.New("faq: context not found")

// ErrDuplicateSource is returned when a source with the same URL
// already exists in the context.
var ErrDuplicateSource = errors.New("faq: source with this URL already exists")

// ErrQuotaExceeded is returned when a resource limit is reached.
var ErrQuotaExceeded = errors.New("faq: quota exceeded")
