package domain

import (
	"fmt"
	"time"
)

// RenderedEntry is one processed message headed for the document sink.
// It is derived and ephemeral; the sink consumes it immediately.
type RenderedEntry struct {
	MessageID int64       `json:"message_id"`
	Timestamp time.Time   `json:"timestamp"`
	Sender    string      `json:"sender"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
}

// MessageSummary is a compact message view used in dry-run samples
type MessageSummary struct {
	MessageID int64       `json:"message_id"`
	Timestamp time.Time   `json:"timestamp"`
	Sender    string      `json:"sender"`
	Type      MessageType `json:"type"`
}

// Render formats the summary as a single preview line
func (s MessageSummary) Render() string {
	return fmt.Sprintf("%s – %s (%s)", s.Timestamp.UTC().Format("2006-01-02 15:04"), s.Sender, s.Type)
}

// PreviewReport is the terminal output of a dry run
type PreviewReport struct {
	ChatTitle  string                           `json:"chat_title"`
	Year       int                              `json:"year"`
	Total      int                              `json:"total"`
	TypeCounts map[MessageType]int              `json:"type_counts"`
	Samples    map[MessageType][]MessageSummary `json:"samples"`
}

// RunResult is the summary returned after a full run
type RunResult struct {
	RunID      string              `json:"run_id"`
	ChatTitle  string              `json:"chat_title"`
	Year       int                 `json:"year"`
	TotalSeen  int                 `json:"total_seen"`
	Admitted   int                 `json:"admitted"`
	Processed  int                 `json:"processed"` // newly marked in the ledger
	Skipped    int                 `json:"skipped"`   // per-message failures, eligible next run
	Rejected   int                 `json:"rejected"`  // filtered out or already processed
	TypeCounts map[MessageType]int `json:"type_counts"`
	// DocumentPath references the finalized document; empty when nothing
	// new was processed.
	DocumentPath string `json:"document_path,omitempty"`
}
