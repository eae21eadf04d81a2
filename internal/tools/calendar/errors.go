package calendar

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google calendar: unauthorized (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google calendar: forbidden (insufficient permissions)")

	// ErrNotFound indicates the calendar or event does not exist.
	ErrNotFound = errors.New("google calendar: not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google calendar: rate limit exceeded")
)

// WrapError maps a *googleapi.Error status to one of the sentinel errors. The
// original error stays in the chain.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	var sentinel error
	switch gerr.Code {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		return err
	}
	return errors.Join(sentinel, err)
}
