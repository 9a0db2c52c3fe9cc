package instrument

import "errors"

// Failure taxonomy for session operations. Callers branch with
// errors.Is; everything the session returns wraps one of these.
var (
	// ErrNotConnected is returned by command operations invoked while
	// the session is Disconnected. The transport is never touched.
	ErrNotConnected = errors.New("instrument: not connected")

	// ErrOpen wraps transport open failures reported by Connect.
	ErrOpen = errors.New("instrument: open failed")

	// ErrIO wraps transport read/write failures during an exchange,
	// including a reply that never arrives within the read timeout.
	ErrIO = errors.New("instrument: transport i/o failed")

	// ErrParse wraps reply text that could not be converted.
	ErrParse = errors.New("instrument: parse failed")
)
