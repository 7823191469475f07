package infrastructure

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// MarkdownSinkOptions configures a MarkdownSink
type MarkdownSinkOptions struct {
	JournalPath       string
	OutputPath        string
	ChatTitle         string
	Year              int
	IncludeMessageIDs bool
	Timezone          string // IANA identifier used to localize timestamps
}

// MarkdownSink implements domain.DocumentSink.
//
// Append writes each entry as one JSON line to a durable journal keyed by
// chat+year; Finalize reads the journal back, drops duplicate message ids
// (an append may be replayed when a crash lands between sink append and
// ledger flush), renders the entries as a day-grouped Markdown document and
// writes it atomically.
type MarkdownSink struct {
	opts     MarkdownSinkOptions
	location *time.Location
	journal  *os.File
}

// NewMarkdownSink creates a markdown document sink
func NewMarkdownSink(opts MarkdownSinkOptions) (*MarkdownSink, error) {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
	}
	return &MarkdownSink{opts: opts, location: loc}, nil
}

// Append durably records one rendered entry in the journal
func (s *MarkdownSink) Append(entry domain.RenderedEntry) error {
	if s.journal == nil {
		if err := os.MkdirAll(filepath.Dir(s.opts.JournalPath), 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
		f, err := os.OpenFile(s.opts.JournalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		s.journal = f
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if _, err := s.journal.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	// The pipeline marks the message processed right after this returns;
	// the entry has to hit disk first.
	if err := s.journal.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	return nil
}

// Finalize renders the journal into the output document and returns its path
func (s *MarkdownSink) Finalize() (string, error) {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			return "", fmt.Errorf("failed to close journal: %w", err)
		}
		s.journal = nil
	}

	entries, err := s.readJournal()
	if err != nil {
		return "", err
	}

	document := s.render(entries)

	if err := os.MkdirAll(filepath.Dir(s.opts.OutputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	tmpPath := s.opts.OutputPath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(document), 0644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmpPath, s.opts.OutputPath); err != nil {
		return "", fmt.Errorf("failed to replace document: %w", err)
	}
	return s.opts.OutputPath, nil
}

// readJournal loads all journal entries, dropping duplicate message ids
func (s *MarkdownSink) readJournal() ([]domain.RenderedEntry, error) {
	f, err := os.Open(s.opts.JournalPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var entries []domain.RenderedEntry
	seen := make(map[int64]struct{})

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry domain.RenderedEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse journal entry: %w", err)
		}
		if _, ok := seen[entry.MessageID]; ok {
			continue
		}
		seen[entry.MessageID] = struct{}{}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// render produces the day-grouped Markdown document
func (s *MarkdownSink) render(entries []domain.RenderedEntry) string {
	sort.Slice(entries, func(i, j int) bool { return entries[i].MessageID < entries[j].MessageID })

	var b strings.Builder
	fmt.Fprintf(&b, "# Transcript – %s (%d)\n", s.opts.ChatTitle, s.opts.Year)

	currentDay := ""
	for _, entry := range entries {
		localized := entry.Timestamp.In(s.location)
		day := localized.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintf(&b, "\n## %s\n", day)
			currentDay = day
		}

		suffix := ""
		if entry.Type != domain.TypeText {
			suffix = fmt.Sprintf(" (%s)", entry.Type)
		}
		idSuffix := ""
		if s.opts.IncludeMessageIDs {
			idSuffix = fmt.Sprintf(" [#ID: %d]", entry.MessageID)
		}
		fmt.Fprintf(&b, "%s – %s: %s%s%s\n",
			localized.Format("15:04"), entry.Sender, strings.TrimSpace(entry.Content), suffix, idSuffix)
	}

	return b.String()
}
