package app

import (
	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// PreviewAccumulator collects per-type counts and a bounded sample of
// admitted messages during a dry run. Purely in-memory, no side effects.
type PreviewAccumulator struct {
	chatTitle  string
	year       int
	sampleSize int
	total      int
	counts     map[domain.MessageType]int
	samples    map[domain.MessageType][]domain.MessageSummary
}

// NewPreviewAccumulator creates a preview accumulator with the given
// per-type sample cap
func NewPreviewAccumulator(chatTitle string, year, sampleSize int) *PreviewAccumulator {
	if sampleSize <= 0 {
		sampleSize = 5
	}
	return &PreviewAccumulator{
		chatTitle:  chatTitle,
		year:       year,
		sampleSize: sampleSize,
		counts:     make(map[domain.MessageType]int),
		samples:    make(map[domain.MessageType][]domain.MessageSummary),
	}
}

// Add records one admitted message
func (p *PreviewAccumulator) Add(rec domain.MessageRecord) {
	p.total++
	p.counts[rec.Type]++
	if len(p.samples[rec.Type]) < p.sampleSize {
		p.samples[rec.Type] = append(p.samples[rec.Type], domain.MessageSummary{
			MessageID: rec.ID,
			Timestamp: rec.Timestamp,
			Sender:    rec.SenderDisplay,
			Type:      rec.Type,
		})
	}
}

// Report returns the accumulated preview report
func (p *PreviewAccumulator) Report() *domain.PreviewReport {
	return &domain.PreviewReport{
		ChatTitle:  p.chatTitle,
		Year:       p.year,
		Total:      p.total,
		TypeCounts: p.counts,
		Samples:    p.samples,
	}
}
