package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these, so a
// code never changes meaning once shipped.
//
// The middleware layer answers with three more codes of its own:
// rate_limited (429), bad_idempotency_key (400) and internal_error (500
// after a recovered panic).
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Chatbot query length, checked in runes after trimming.
	ErrCodeQueryTooShort = "query_too_short"
	ErrCodeQueryTooLong  = "query_too_long"

	// A finance or task listing could not be read.
	ErrCodeListFailed = "list_failed"
)
