package client

import "errors"

var (
	// ErrNotLoggedIn is returned by calls that need an access token before login.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrBadPing is returned when the server answers Ping with a non-OK status.
	ErrBadPing = errors.New("server reported unhealthy status")
	// ErrCursorStalled guards against a server repeating the same page cursor.
	ErrCursorStalled = errors.New("listing cursor did not advance")
)
