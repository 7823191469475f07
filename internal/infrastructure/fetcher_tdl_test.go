package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

func newTestFetcher(t *testing.T) (*TDLMediaFetcher, string) {
	cacheDir := t.TempDir()
	config := &domain.TelegramConfig{
		TDLBinary:   "tdl",
		Profile:     "test",
		StorageType: "bolt",
		StoragePath: "/tmp/storage",
	}
	return NewTDLMediaFetcher(config, cacheDir, zap.NewNop()), cacheDir
}

func TestTDLMediaFetcher_MissingMediaRef(t *testing.T) {
	fetcher, _ := newTestFetcher(t)

	rec := domain.MessageRecord{ID: 1, Type: domain.TypeVoice, Timestamp: time.Now()}
	_, err := fetcher.Fetch(context.Background(), rec)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAcquisition))
}

func TestTDLMediaFetcher_CacheHitSkipsDownload(t *testing.T) {
	fetcher, cacheDir := newTestFetcher(t)

	rec := domain.MessageRecord{
		ID:        42,
		Type:      domain.TypeVoice,
		Timestamp: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
		MediaRef:  "https://t.me/familychat/42",
	}

	cached := filepath.Join(cacheDir, "2024", "03", "42.ogg")
	require.NoError(t, os.MkdirAll(filepath.Dir(cached), 0755))
	require.NoError(t, os.WriteFile(cached, []byte("audio"), 0644))

	// The binary is never invoked on a cache hit, so a missing tdl is fine.
	path, err := fetcher.Fetch(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, cached, path)
}

func TestDefaultExtension(t *testing.T) {
	assert.Equal(t, ".ogg", defaultExtension(domain.TypeVoice))
	assert.Equal(t, ".mp3", defaultExtension(domain.TypeAudio))
	assert.Equal(t, ".mp4", defaultExtension(domain.TypeVideoNote))
	assert.Equal(t, ".bin", defaultExtension(domain.TypeOther))
}

func TestFirstFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "media.opus"), []byte("x"), 0644))

	found, err := firstFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "media.opus"), found)
}

func TestFirstFile_Empty(t *testing.T) {
	_, err := firstFile(t.TempDir())
	assert.Error(t, err)
}
