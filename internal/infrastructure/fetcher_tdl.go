package infrastructure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// TDLMediaFetcher implements domain.MediaFetcher by shelling out to tdl.
// Downloads land in a deterministic per-year/month cache layout keyed by
// message id, so a re-fetch after an interrupted run is a cheap cache hit.
type TDLMediaFetcher struct {
	config   *domain.TelegramConfig
	cacheDir string
	logger   *zap.Logger
}

// NewTDLMediaFetcher creates a new tdl-backed media fetcher
func NewTDLMediaFetcher(config *domain.TelegramConfig, cacheDir string, logger *zap.Logger) *TDLMediaFetcher {
	return &TDLMediaFetcher{config: config, cacheDir: cacheDir, logger: logger}
}

// Fetch downloads the media attached to a message and returns its local path
func (f *TDLMediaFetcher) Fetch(ctx context.Context, rec domain.MessageRecord) (string, error) {
	if rec.MediaRef == "" {
		return "", fmt.Errorf("%w: message %d has no media reference", domain.ErrAcquisition, rec.ID)
	}

	targetDir := filepath.Join(f.cacheDir,
		fmt.Sprintf("%d", rec.Timestamp.UTC().Year()),
		fmt.Sprintf("%02d", int(rec.Timestamp.UTC().Month())))
	targetPath := filepath.Join(targetDir, fmt.Sprintf("%d%s", rec.ID, defaultExtension(rec.Type)))

	if _, err := os.Stat(targetPath); err == nil {
		f.logger.Debug("Media cache hit",
			zap.Int64("id", rec.ID),
			zap.String("path", targetPath))
		return targetPath, nil
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create cache directory: %v", domain.ErrAcquisition, err)
	}

	tempDir := filepath.Join(f.cacheDir, fmt.Sprintf("temp_%d", rec.ID))
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create temp directory: %v", domain.ErrAcquisition, err)
	}
	defer os.RemoveAll(tempDir)

	args := []string{
		"-n", f.config.Profile,
		"--storage", fmt.Sprintf("type=%s,path=%s", f.config.StorageType, f.config.StoragePath),
		"dl",
		"-u", rec.MediaRef,
		"-d", tempDir,
		"--rewrite-ext",
	}
	if f.config.ExtraParams != "" {
		args = append(args, strings.Fields(f.config.ExtraParams)...)
	}

	f.logger.Debug("Downloading media",
		zap.Int64("id", rec.ID),
		zap.String("url", rec.MediaRef))

	cmd := exec.CommandContext(ctx, f.config.TDLBinary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: tdl dl failed for message %d: %v: %s",
			domain.ErrAcquisition, rec.ID, err, strings.TrimSpace(string(output)))
	}

	downloaded, err := firstFile(tempDir)
	if err != nil {
		return "", fmt.Errorf("%w: message %d: %v", domain.ErrAcquisition, rec.ID, err)
	}

	// Keep the downloaded extension when tdl rewrote it.
	if ext := filepath.Ext(downloaded); ext != "" {
		targetPath = filepath.Join(targetDir, fmt.Sprintf("%d%s", rec.ID, ext))
	}
	if err := os.Rename(downloaded, targetPath); err != nil {
		return "", fmt.Errorf("%w: failed to move media into cache: %v", domain.ErrAcquisition, err)
	}
	return targetPath, nil
}

// firstFile returns the first regular file found under dir
func firstFile(dir string) (string, error) {
	var found string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !info.IsDir() {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no file downloaded")
	}
	return found, nil
}

// defaultExtension maps a media type to its usual container extension
func defaultExtension(t domain.MessageType) string {
	switch t {
	case domain.TypeVoice:
		return ".ogg"
	case domain.TypeAudio:
		return ".mp3"
	case domain.TypeVideoNote:
		return ".mp4"
	}
	return ".bin"
}
