package infrastructure

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

func newTestSink(t *testing.T, includeIDs bool) (*MarkdownSink, MarkdownSinkOptions) {
	dir := t.TempDir()
	opts := MarkdownSinkOptions{
		JournalPath:       filepath.Join(dir, "state", "entries.jsonl"),
		OutputPath:        filepath.Join(dir, "output", "family-chat-2024.md"),
		ChatTitle:         "Family Chat",
		Year:              2024,
		IncludeMessageIDs: includeIDs,
		Timezone:          "UTC",
	}
	sink, err := NewMarkdownSink(opts)
	require.NoError(t, err)
	return sink, opts
}

func entry(id int64, ts time.Time, sender string, msgType domain.MessageType, content string) domain.RenderedEntry {
	return domain.RenderedEntry{
		MessageID: id,
		Timestamp: ts,
		Sender:    sender,
		Type:      msgType,
		Content:   content,
	}
}

func TestMarkdownSink_InvalidTimezone(t *testing.T) {
	_, err := NewMarkdownSink(MarkdownSinkOptions{Timezone: "Nowhere/Invalid"})
	assert.Error(t, err)
}

func TestMarkdownSink_RenderDayGroups(t *testing.T) {
	sink, opts := newTestSink(t, true)

	require.NoError(t, sink.Append(entry(1, time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC), "alice", domain.TypeVoice, "guten morgen")))
	require.NoError(t, sink.Append(entry(2, time.Date(2024, 3, 15, 9, 10, 0, 0, time.UTC), "bob", domain.TypeText, "hello")))
	require.NoError(t, sink.Append(entry(3, time.Date(2024, 3, 16, 18, 0, 0, 0, time.UTC), "alice", domain.TypeAudio, "ein lied")))

	path, err := sink.Finalize()
	require.NoError(t, err)
	assert.Equal(t, opts.OutputPath, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := "# Transcript – Family Chat (2024)\n" +
		"\n## 2024-03-15\n" +
		"09:05 – alice: guten morgen (voice) [#ID: 1]\n" +
		"09:10 – bob: hello [#ID: 2]\n" +
		"\n## 2024-03-16\n" +
		"18:00 – alice: ein lied (audio) [#ID: 3]\n"
	assert.Equal(t, expected, string(data))
}

func TestMarkdownSink_NoMessageIDs(t *testing.T) {
	sink, _ := newTestSink(t, false)

	require.NoError(t, sink.Append(entry(1, time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC), "alice", domain.TypeVoice, "hallo")))

	path, err := sink.Finalize()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "09:05 – alice: hallo (voice)\n")
	assert.NotContains(t, string(data), "#ID")
}

func TestMarkdownSink_LocalizesTimestamps(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewMarkdownSink(MarkdownSinkOptions{
		JournalPath: filepath.Join(dir, "entries.jsonl"),
		OutputPath:  filepath.Join(dir, "doc.md"),
		ChatTitle:   "Family Chat",
		Year:        2024,
		Timezone:    "Europe/Vienna",
	})
	require.NoError(t, err)

	// 23:30 UTC on Jun 1 is 01:30 on Jun 2 in Vienna (CEST).
	require.NoError(t, sink.Append(entry(1, time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC), "alice", domain.TypeText, "late")))

	path, err := sink.Finalize()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## 2024-06-02")
	assert.Contains(t, string(data), "01:30 – alice: late")
}

func TestMarkdownSink_DeduplicatesReplayedEntries(t *testing.T) {
	sink, opts := newTestSink(t, false)

	ts := time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC)
	require.NoError(t, sink.Append(entry(1, ts, "alice", domain.TypeVoice, "first copy")))
	_, err := sink.Finalize()
	require.NoError(t, err)

	// A replayed append after a crash-resume produces a duplicate journal
	// line; the first occurrence wins.
	resumed, err := NewMarkdownSink(opts)
	require.NoError(t, err)
	require.NoError(t, resumed.Append(entry(1, ts, "alice", domain.TypeVoice, "second copy")))
	require.NoError(t, resumed.Append(entry(2, ts.Add(time.Minute), "bob", domain.TypeText, "new")))

	path, err := resumed.Finalize()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first copy")
	assert.NotContains(t, string(data), "second copy")
	assert.Contains(t, string(data), "new")
}

func TestMarkdownSink_FinalizeWithoutAppends(t *testing.T) {
	sink, opts := newTestSink(t, false)

	path, err := sink.Finalize()
	require.NoError(t, err)
	assert.Equal(t, opts.OutputPath, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Transcript – Family Chat (2024)\n", string(data))
}

func TestMarkdownSink_SortsByMessageID(t *testing.T) {
	sink, _ := newTestSink(t, false)

	ts := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Append(entry(5, ts.Add(5*time.Minute), "bob", domain.TypeText, "later")))
	require.NoError(t, sink.Append(entry(2, ts, "alice", domain.TypeText, "earlier")))

	path, err := sink.Finalize()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, bytes.Index(data, []byte("earlier")), bytes.Index(data, []byte("later")))
}
