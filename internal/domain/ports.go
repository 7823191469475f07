package domain

import "context"

// MediaFetcher downloads the media attached to a message and returns a local
// file path. Failures are per-message and wrapped with ErrAcquisition.
type MediaFetcher interface {
	Fetch(ctx context.Context, rec MessageRecord) (string, error)
}

// Transcriber converts a local audio file into text. Failures are per-message
// and wrapped with ErrTranscription.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// DocumentSink accumulates rendered entries and finalizes the document once.
// Append must be safe to call more than once for the same message across
// separate runs: a crash between sink append and ledger flush can replay the
// append on resume.
type DocumentSink interface {
	Append(entry RenderedEntry) error

	// Finalize renders and durably writes the document, returning its path.
	// Called exactly once per full run, after the last message.
	Finalize() (string, error)
}

// Ledger is the durable set of processed message ids for one chat+year.
// It is loaded once at pipeline start and owned by a single run at a time.
type Ledger interface {
	IDSet

	// MarkProcessed records a message id; marking a present id is a no-op.
	MarkProcessed(id int64)

	// Flush durably persists current state. A flush either fully lands or
	// has no effect on the next load.
	Flush() error
}
