package domain

import "errors"

// Error kinds used across the pipeline. Per-message failures (acquisition,
// transcription) are recovered by skipping the message; the rest are fatal
// for the run.
var (
	// ErrCorruptState indicates the resume ledger backing store exists but
	// cannot be parsed.
	ErrCorruptState = errors.New("resume state is corrupt")

	// ErrConfiguration indicates an invalid filter or run configuration.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAcquisition indicates a per-message media fetch failure.
	ErrAcquisition = errors.New("media acquisition failed")

	// ErrTranscription indicates a per-message transcription failure.
	ErrTranscription = errors.New("transcription failed")
)
