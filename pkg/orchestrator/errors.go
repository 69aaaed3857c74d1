package orchestrator

import "errors"

var (
	// ErrCaptureClosed is returned when the capture source stops
	// producing full frames.
	ErrCaptureClosed = errors.New("capture source closed")

	// ErrSessionCancelled marks work abandoned because its session was
	// rotated or stopped. Not a failure.
	ErrSessionCancelled = errors.New("session cancelled")

	// ErrTaskStartTimeout is returned when the upstream TTS task does
	// not acknowledge within the start window.
	ErrTaskStartTimeout = errors.New("tts task-started timeout")

	// ErrPlayerStart is returned when the local playback child cannot
	// be launched.
	ErrPlayerStart = errors.New("playback process start failed")
)
