package crawler

import "errors"

var (
	// ErrRetriesExhausted is returned once every fetch attempt for a page failed transiently.
	ErrRetriesExhausted = errors.New("fetch retries exhausted")
	// ErrTransientStatus marks a status code worth retrying (429, 5xx).
	ErrTransientStatus = errors.New("transient http status")
	// ErrUnexpectedStatus marks a non-success status that is neither 404 nor transient.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// ErrParse is returned when a page could not be parsed into a document.
	ErrParse = errors.New("parse page")
	// ErrPersist wraps failures of a batch write.
	ErrPersist = errors.New("persist batch")
)
