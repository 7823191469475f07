package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// emptyTranscription is rendered when the engine succeeds but returns only
// whitespace for an audio message.
const emptyTranscription = "[empty transcription]"

// PipelineOptions carries the per-run parameters that are not filter rules
type PipelineOptions struct {
	ChatSlug  string
	ChatTitle string
	Year      int
	// OwnerID is the chat owner's identifier, learned during authentication
	// and supplied by the caller. 0 when unknown.
	OwnerID int64
	// SampleSize caps the per-type dry-run samples.
	SampleSize int
	// PrefetchConcurrency bounds media downloads running ahead of the
	// sequential processing order. Values below 2 disable prefetching.
	PrefetchConcurrency int
}

// Pipeline orchestrates one export run: it consumes an ordered message
// sequence, applies the filter rules, performs download/transcription side
// effects exactly once per message, and tracks progress in the resume
// ledger so interrupted runs resume without duplication.
//
// All ledger mutation and sink appends happen sequentially in message-id
// order; only media acquisition may run ahead (see mediaPrefetcher).
type Pipeline struct {
	filter      domain.FilterConfig
	opts        PipelineOptions
	ledger      domain.Ledger
	fetcher     domain.MediaFetcher
	transcriber domain.Transcriber
	sink        domain.DocumentSink
	runs        domain.RunRepository
	logger      *zap.Logger
}

// NewPipeline creates a pipeline. The run repository may be nil when no
// archive is configured.
func NewPipeline(
	filter domain.FilterConfig,
	opts PipelineOptions,
	ledger domain.Ledger,
	fetcher domain.MediaFetcher,
	transcriber domain.Transcriber,
	sink domain.DocumentSink,
	runs domain.RunRepository,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		filter:      filter,
		opts:        opts,
		ledger:      ledger,
		fetcher:     fetcher,
		transcriber: transcriber,
		sink:        sink,
		runs:        runs,
		logger:      logger,
	}
}

// Preview performs a dry run: counts and samples of all messages matching
// the type, year and self-exclusion rules. It consults neither the sender
// allow-set nor the ledger, so the report reflects total matching volume.
func (p *Pipeline) Preview(ctx context.Context, records []domain.MessageRecord) (*domain.PreviewReport, error) {
	if err := p.filter.Validate(); err != nil {
		return nil, err
	}

	run := p.archiveStart(domain.ModeDryRun)
	acc := NewPreviewAccumulator(p.opts.ChatTitle, p.opts.Year, p.opts.SampleSize)

	for _, rec := range sortByID(records) {
		if err := ctx.Err(); err != nil {
			p.archiveFinish(run, nil, err)
			return nil, err
		}
		if !p.filter.AdmitPreview(rec, p.opts.OwnerID) {
			continue
		}
		p.logger.Debug("Previewing message",
			zap.Int64("id", rec.ID),
			zap.String("type", string(rec.Type)))
		acc.Add(rec)
	}

	report := acc.Report()
	if run != nil {
		run.TotalSeen = len(records)
		run.Admitted = report.Total
		run.TypeCounts = encodeTypeCounts(report.TypeCounts)
	}
	p.archiveFinish(run, nil, nil)
	return report, nil
}

// Run performs a full run: for every admitted, not-yet-processed message it
// acquires media, transcribes audio, appends a rendered entry to the sink,
// and marks the message processed. A per-message failure skips that message
// and never aborts the run.
func (p *Pipeline) Run(ctx context.Context, records []domain.MessageRecord) (*domain.RunResult, error) {
	if err := p.validateFullRun(); err != nil {
		return nil, err
	}

	run := p.archiveStart(domain.ModeFull)
	result := &domain.RunResult{
		ChatTitle:  p.opts.ChatTitle,
		Year:       p.opts.Year,
		TypeCounts: make(map[domain.MessageType]int),
	}
	if run != nil {
		result.RunID = run.ID
	}

	ordered := sortByID(records)
	result.TotalSeen = len(ordered)

	prefetch := p.startPrefetch(ctx, ordered)

	for _, rec := range ordered {
		// Cancellation stops the loop at a message boundary; everything
		// already marked stays flushed, nothing is left half-done.
		if err := ctx.Err(); err != nil {
			p.archiveFinish(run, result, err)
			return result, err
		}

		if !p.filter.Admit(rec, p.opts.OwnerID, p.ledger) {
			result.Rejected++
			continue
		}
		result.Admitted++

		p.logger.Info("Processing message",
			zap.Int64("id", rec.ID),
			zap.String("type", string(rec.Type)),
			zap.Time("timestamp", rec.Timestamp))

		content, err := p.buildContent(ctx, rec, prefetch)
		if err != nil {
			// Per-message failure: skip, leave unprocessed for a future run.
			result.Skipped++
			p.logger.Warn("Skipping message",
				zap.Int64("id", rec.ID),
				zap.String("type", string(rec.Type)),
				zap.Error(err))
			continue
		}

		entry := domain.RenderedEntry{
			MessageID: rec.ID,
			Timestamp: rec.Timestamp,
			Sender:    rec.SenderDisplay,
			Type:      rec.Type,
			Content:   content,
		}

		// The entry must be durably recorded downstream before the message
		// counts as done; the ledger flush comes last.
		if err := p.sink.Append(entry); err != nil {
			err = fmt.Errorf("sink append for message %d: %w", rec.ID, err)
			p.archiveFinish(run, result, err)
			return result, err
		}
		p.ledger.MarkProcessed(rec.ID)
		if err := p.ledger.Flush(); err != nil {
			err = fmt.Errorf("ledger flush after message %d: %w", rec.ID, err)
			p.archiveFinish(run, result, err)
			return result, err
		}

		result.Processed++
		result.TypeCounts[rec.Type]++
	}

	docPath, err := p.sink.Finalize()
	if err != nil {
		err = fmt.Errorf("finalize document: %w", err)
		p.archiveFinish(run, result, err)
		return result, err
	}
	result.DocumentPath = docPath

	p.logger.Info("Run complete",
		zap.Int("total", result.TotalSeen),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("rejected", result.Rejected),
		zap.String("document", docPath))

	p.archiveFinish(run, result, nil)
	return result, nil
}

// validateFullRun checks configuration and collaborators before any side
// effect happens
func (p *Pipeline) validateFullRun() error {
	if err := p.filter.Validate(); err != nil {
		return err
	}
	if p.ledger == nil {
		return fmt.Errorf("%w: no resume ledger", domain.ErrConfiguration)
	}
	if p.sink == nil {
		return fmt.Errorf("%w: no document sink", domain.ErrConfiguration)
	}
	for t := range p.filter.AllowedTypes {
		if t.IsMedia() {
			if p.fetcher == nil {
				return fmt.Errorf("%w: media types allowed but no fetcher", domain.ErrConfiguration)
			}
			if p.transcriber == nil {
				return fmt.Errorf("%w: media types allowed but no transcriber", domain.ErrConfiguration)
			}
			break
		}
	}
	return nil
}

// buildContent produces the entry body: message text for text messages,
// a transcript for media messages
func (p *Pipeline) buildContent(ctx context.Context, rec domain.MessageRecord, prefetch *mediaPrefetcher) (string, error) {
	if rec.Type == domain.TypeText {
		if strings.TrimSpace(rec.Text) == "" {
			return "", fmt.Errorf("text message %d has no content", rec.ID)
		}
		return rec.Text, nil
	}

	var audioPath string
	var err error
	if prefetch != nil {
		audioPath, err = prefetch.wait(rec.ID)
	} else {
		audioPath, err = p.fetcher.Fetch(ctx, rec)
	}
	if err != nil {
		return "", err
	}

	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return emptyTranscription, nil
	}
	return strings.TrimSpace(transcript), nil
}

// startPrefetch launches the media prefetcher for all admitted media
// messages, or returns nil when prefetching is disabled
func (p *Pipeline) startPrefetch(ctx context.Context, ordered []domain.MessageRecord) *mediaPrefetcher {
	if p.fetcher == nil || p.opts.PrefetchConcurrency < 2 {
		return nil
	}
	var media []domain.MessageRecord
	for _, rec := range ordered {
		if rec.Type.IsMedia() && p.filter.Admit(rec, p.opts.OwnerID, p.ledger) {
			media = append(media, rec)
		}
	}
	if len(media) == 0 {
		return nil
	}
	return newMediaPrefetcher(ctx, p.fetcher, media, p.opts.PrefetchConcurrency)
}

func (p *Pipeline) archiveStart(mode domain.RunMode) *domain.RunRecord {
	if p.runs == nil {
		return nil
	}
	run := domain.NewRunRecord(p.opts.ChatSlug, p.opts.ChatTitle, p.opts.Year, mode)
	if err := p.runs.Create(run); err != nil {
		p.logger.Warn("Failed to archive run start", zap.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) archiveFinish(run *domain.RunRecord, result *domain.RunResult, runErr error) {
	if run == nil || p.runs == nil {
		return
	}
	if result != nil {
		run.TotalSeen = result.TotalSeen
		run.Admitted = result.Admitted
		run.Processed = result.Processed
		run.Skipped = result.Skipped
		run.Rejected = result.Rejected
		run.TypeCounts = encodeTypeCounts(result.TypeCounts)
		run.DocumentPath = result.DocumentPath
	}
	if runErr != nil {
		run.MarkFailed(runErr)
	} else {
		run.MarkCompleted()
	}
	if err := p.runs.Update(run); err != nil {
		p.logger.Warn("Failed to archive run result", zap.Error(err))
	}
}

// sortByID returns a copy of the records in strictly increasing message-id
// order. Output entries and ledger marks depend on this ordering.
func sortByID(records []domain.MessageRecord) []domain.MessageRecord {
	ordered := make([]domain.MessageRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return ordered
}

// fetchResult is a completed media acquisition
type fetchResult struct {
	path string
	err  error
}

// mediaPrefetcher downloads media for upcoming messages ahead of the
// sequential processing order. Completions are buffered per message id and
// consumed strictly in order by the pipeline loop; they are never applied
// out of order.
type mediaPrefetcher struct {
	results map[int64]chan fetchResult
}

func newMediaPrefetcher(ctx context.Context, fetcher domain.MediaFetcher, media []domain.MessageRecord, concurrency int) *mediaPrefetcher {
	p := &mediaPrefetcher{results: make(map[int64]chan fetchResult, len(media))}
	for _, rec := range media {
		p.results[rec.ID] = make(chan fetchResult, 1)
	}

	sem := make(chan struct{}, concurrency)
	go func() {
		for _, rec := range media {
			rec := rec
			select {
			case <-ctx.Done():
				p.results[rec.ID] <- fetchResult{err: ctx.Err()}
				continue
			case sem <- struct{}{}:
			}
			go func() {
				defer func() { <-sem }()
				path, err := fetcher.Fetch(ctx, rec)
				p.results[rec.ID] <- fetchResult{path: path, err: err}
			}()
		}
	}()

	return p
}

// wait blocks until the fetch for the given message id has completed
func (p *mediaPrefetcher) wait(id int64) (string, error) {
	ch, ok := p.results[id]
	if !ok {
		return "", fmt.Errorf("%w: message %d was not scheduled for prefetch", domain.ErrAcquisition, id)
	}
	res := <-ch
	return res.path, res.err
}

func encodeTypeCounts(counts map[domain.MessageType]int) string {
	if len(counts) == 0 {
		return ""
	}
	data, _ := json.Marshal(counts)
	return string(data)
}
