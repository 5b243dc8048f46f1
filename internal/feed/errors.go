package feed

import "errors"

// Every collaborator failure surfaces as one of these, wrapped around the cause.
var (
	ErrUnauthenticated   = errors.New("you must be logged in to post")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrUploadFailed      = errors.New("failed to upload image")
	ErrViewURLResolution = errors.New("failed to resolve image url")
	ErrSendFailed        = errors.New("failed to send")
	ErrFetchFailed       = errors.New("failed to load messages")
	ErrConfigMissing     = errors.New("missing database or collection id")
	ErrSubscribeFailed   = errors.New("failed to subscribe to live updates")
	ErrMalformedEvent    = errors.New("malformed realtime event")
	ErrTornDown          = errors.New("feed is torn down")
	ErrAlreadyStarted    = errors.New("feed already initialized")
)

// Transient reports whether err belongs in a dismissable banner rather than a persistent notice.
func Transient(err error) bool {
	return errors.Is(err, ErrUploadFailed) || errors.Is(err, ErrSendFailed)
}
