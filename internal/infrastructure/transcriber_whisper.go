package infrastructure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// WhisperTranscriber implements domain.Transcriber on top of a whisper.cpp
// style command-line binary that writes a .txt transcript next to its output
// base path.
type WhisperTranscriber struct {
	config *domain.WhisperConfig
	logger *zap.Logger
}

// NewWhisperTranscriber creates a new whisper CLI transcriber
func NewWhisperTranscriber(config *domain.WhisperConfig, logger *zap.Logger) (*WhisperTranscriber, error) {
	if _, err := os.Stat(config.Model); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", config.Model, err)
	}
	return &WhisperTranscriber{config: config, logger: logger}, nil
}

// Transcribe runs the whisper binary on an audio file and returns the text
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	outFile := outBase + ".txt"
	defer os.Remove(outFile)

	args := []string{
		"-m", t.config.Model,
		"-l", t.config.Language,
		"-f", audioPath,
		"-otxt",
		"-of", outBase,
		"--no-prints",
	}

	t.logger.Debug("Transcribing audio",
		zap.String("file", audioPath),
		zap.String("model", t.config.Model))

	cmd := exec.CommandContext(ctx, t.config.Binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s on %s: %v: %s",
			domain.ErrTranscription, t.config.Binary, audioPath, err, strings.TrimSpace(string(output)))
	}

	text, err := os.ReadFile(outFile)
	if err != nil {
		return "", fmt.Errorf("%w: transcript file missing for %s: %v", domain.ErrTranscription, audioPath, err)
	}
	return strings.TrimSpace(string(text)), nil
}

// LazyTranscriber defers construction of the underlying transcriber until
// the first Transcribe call. Runs without unprocessed audio (and dry runs,
// which never transcribe) skip engine and model initialization entirely.
type LazyTranscriber struct {
	build func() (domain.Transcriber, error)
	once  sync.Once
	inner domain.Transcriber
	err   error
}

// NewLazyTranscriber wraps a transcriber constructor
func NewLazyTranscriber(build func() (domain.Transcriber, error)) *LazyTranscriber {
	return &LazyTranscriber{build: build}
}

// Transcribe constructs the inner transcriber on first use, then delegates
func (l *LazyTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	l.once.Do(func() {
		l.inner, l.err = l.build()
	})
	if l.err != nil {
		return "", fmt.Errorf("%w: transcriber init: %v", domain.ErrTranscription, l.err)
	}
	return l.inner.Transcribe(ctx, audioPath)
}
