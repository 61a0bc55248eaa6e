package models

import "errors"

// Error taxonomy for the video pipeline. Handlers map these to HTTP
// statuses; internal callers branch on them with errors.Is.
var (
	// ErrInvalidInput means the request itself is malformed and the
	// caller can correct it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means an entity exists but is not in a state the
	// operation can act on, including a broken ownership chain.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized means the caller's identity could not be established.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller is not the owning instructor.
	ErrForbidden = errors.New("forbidden")

	// ErrEncodingFailed means every rung of a ladder job failed and no
	// quality map was written.
	ErrEncodingFailed = errors.New("encoding failed")

	// ErrUpstreamFailure means the blob store or remote transcoding
	// service returned an error.
	ErrUpstreamFailure = errors.New("upstream failure")
)
