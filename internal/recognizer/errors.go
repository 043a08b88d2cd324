package recognizer

import "errors"

var (
	// ErrAlreadyRunning indicates Start was called on a live session.
	ErrAlreadyRunning = errors.New("recognizer session already running")
	// ErrNotRunning indicates Stop was called before any session started.
	ErrNotRunning = errors.New("recognizer session not running")
)
