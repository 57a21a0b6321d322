// Package services holds the chatbot pipeline and the record services it
// writes through. This file centralizes service-level error values so that
// handlers can map them to HTTP results with errors.Is.
//
// The chatbot pipeline itself never returns these to users; every outcome of
// ChatbotService.Process is a Reply.
package services

import "errors"

var (
	// ErrInvalidTenant is returned when a tenant id is not positive.
	ErrInvalidTenant = errors.New("tenant id must be positive")

	// ErrEmptyQuery is returned when a chatbot query is blank or shorter
	// than MinQueryRunes.
	ErrEmptyQuery = errors.New("query is too short")

	// ErrQueryTooLong is returned when a chatbot query exceeds the
	// configured maximum length.
	ErrQueryTooLong = errors.New("query too long")

	// ErrMissingAmount is returned when a finance record has no amount.
	ErrMissingAmount = errors.New("finance record needs an amount")

	// ErrMissingTitle is returned when a task has no title.
	ErrMissingTitle = errors.New("task needs a title")
)
