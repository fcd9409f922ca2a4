package delivery

import "errors"

// Error taxonomy surfaced to API callers. Handlers map these to HTTP
// statuses and stable error codes.
var (
	ErrNotFound     = errors.New("popup not found")
	ErrNotPublished = errors.New("popup is not published")
	ErrNotVisible   = errors.New("popup is not visible on this page")
	ErrInvalidPopup = errors.New("invalid popup ID")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidEvent = errors.New("invalid event type")
)
