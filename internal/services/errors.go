package services

// Custom errors surfaced by the service layer. Handlers map these to HTTP
// responses; nothing here is retried automatically.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// StoreError covers read or write failures against persistence.
type StoreError struct{ Message string }

func (e *StoreError) Error() string { return e.Message }

// RateLimitError means the AI provider reported rate limiting (429).
type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// QuotaError means the AI provider reported credit exhaustion (402).
type QuotaError struct{ Message string }

func (e *QuotaError) Error() string { return e.Message }

// ProviderError covers any other AI-call failure. The message is a generic
// retry suggestion; provider-internal error text is never passed through.
type ProviderError struct{ Message string }

func (e *ProviderError) Error() string { return e.Message }
