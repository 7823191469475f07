package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the archive state of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunMode distinguishes dry runs from full runs
type RunMode string

const (
	ModeDryRun RunMode = "dry-run"
	ModeFull   RunMode = "full"
)

// RunRecord is the archived summary of one pipeline run
type RunRecord struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	ChatSlug     string     `json:"chat_slug" gorm:"not null;index"`
	ChatTitle    string     `json:"chat_title"`
	Year         int        `json:"year" gorm:"not null;index"`
	Mode         RunMode    `json:"mode" gorm:"not null"`
	Status       RunStatus  `json:"status" gorm:"not null;index"`
	TotalSeen    int        `json:"total_seen"`
	Admitted     int        `json:"admitted"`
	Processed    int        `json:"processed"`
	Skipped      int        `json:"skipped"`
	Rejected     int        `json:"rejected"`
	TypeCounts   string     `json:"type_counts,omitempty" gorm:"type:text"` // JSON per-type counters
	DocumentPath string     `json:"document_path,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// NewRunRecord creates an archive record for a starting run
func NewRunRecord(chatSlug, chatTitle string, year int, mode RunMode) *RunRecord {
	return &RunRecord{
		ID:        uuid.New().String(),
		ChatSlug:  chatSlug,
		ChatTitle: chatTitle,
		Year:      year,
		Mode:      mode,
		Status:    RunRunning,
		StartedAt: time.Now(),
	}
}

// MarkCompleted marks the run as finished successfully
func (r *RunRecord) MarkCompleted() {
	r.Status = RunCompleted
	now := time.Now()
	r.FinishedAt = &now
}

// MarkFailed marks the run as aborted
func (r *RunRecord) MarkFailed(err error) {
	r.Status = RunFailed
	r.ErrorMessage = err.Error()
	now := time.Now()
	r.FinishedAt = &now
}

// RunRepository defines the interface for run archive persistence
type RunRepository interface {
	// Create creates a new run record
	Create(run *RunRecord) error

	// Update updates an existing run record
	Update(run *RunRecord) error

	// FindByID finds a run by ID
	FindByID(id string) (*RunRecord, error)

	// FindRecent returns the most recent runs, newest first
	FindRecent(limit int) ([]*RunRecord, error)

	// FindByChat returns runs for a chat slug, newest first
	FindByChat(chatSlug string) ([]*RunRecord, error)

	// GetStats returns archive statistics
	GetStats() (*RunStats, error)
}

// RunStats represents run archive statistics
type RunStats struct {
	Total             int64 `json:"total"`
	Running           int64 `json:"running"`
	Completed         int64 `json:"completed"`
	Failed            int64 `json:"failed"`
	MessagesProcessed int64 `json:"messages_processed"`
}
