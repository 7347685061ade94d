// Package apperr defines the error categories shared across the saver.
package apperr

import "errors"

var (
	// ErrNoDialog means no embed dialog was present in the page snapshot.
	ErrNoDialog = errors.New("embed dialog not found")

	// ErrNoPermalink means the post permalink could not be recovered from
	// the embed code. There is no secondary source of truth for it, so the
	// save operation aborts.
	ErrNoPermalink = errors.New("permalink not found in embed code")

	// ErrQuotaExceeded means the storage backend ran out of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnavailable means the storage backend is not reachable.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound means the requested article does not exist.
	ErrNotFound = errors.New("article not found")
)
