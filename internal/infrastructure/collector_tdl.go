package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// tdlExportData represents the structure of tdl chat export JSON
type tdlExportData struct {
	ID       int64            `json:"id"`
	Messages []tdlMessageData `json:"messages"`
}

// tdlMessageData represents a single message in the export
type tdlMessageData struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	File     string `json:"file"`
	Date     int64  `json:"date"`
	Text     string `json:"text"`
	SenderID int64  `json:"sender_id"`
	Sender   string `json:"sender"`
}

// CollectionResult is the output of one collection pass
type CollectionResult struct {
	ChatTitle string
	Records   []domain.MessageRecord
}

// TDLCollector retrieves the message records for a chat by shelling out to
// tdl chat export. It applies the coarse stage-1 window (date range) and
// returns records ordered by message id; the fine-grained filter rules run
// inside the pipeline.
type TDLCollector struct {
	config  *domain.TelegramConfig
	workDir string
	logger  *zap.Logger
}

// NewTDLCollector creates a new tdl-backed collector
func NewTDLCollector(config *domain.TelegramConfig, workDir string, logger *zap.Logger) *TDLCollector {
	return &TDLCollector{config: config, workDir: workDir, logger: logger}
}

// Collect exports the chat messages within [since, until)
func (c *TDLCollector) Collect(ctx context.Context, chat string, since, until time.Time) (*CollectionResult, error) {
	if err := os.MkdirAll(c.workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	exportFile := filepath.Join(c.workDir, fmt.Sprintf("export_%s_%d.json", domain.SlugifyChatName(chat), since.Year()))
	defer os.Remove(exportFile)

	args := []string{
		"-n", c.config.Profile,
		"--storage", fmt.Sprintf("type=%s,path=%s", c.config.StorageType, c.config.StoragePath),
		"chat", "export",
		"-c", chat,
		"-T", "time",
		"-i", fmt.Sprintf("%d,%d", since.Unix(), until.Unix()-1),
		"--with-content",
		"--all",
		"-o", exportFile,
	}
	if c.config.ExtraParams != "" {
		args = append(args, strings.Fields(c.config.ExtraParams)...)
	}

	c.logger.Debug("Running chat export",
		zap.String("binary", c.config.TDLBinary),
		zap.String("chat", chat),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, c.config.TDLBinary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("tdl chat export failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(exportFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	return parseExport(chat, data)
}

// parseExport converts tdl export JSON into ordered message records
func parseExport(chat string, data []byte) (*CollectionResult, error) {
	var export tdlExportData
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse export data: %w", err)
	}

	records := make([]domain.MessageRecord, 0, len(export.Messages))
	for _, msg := range export.Messages {
		msgType := classifyMessage(msg)
		if msgType == domain.TypeText && strings.TrimSpace(msg.Text) == "" {
			continue
		}

		sender := msg.Sender
		if sender == "" {
			if msg.SenderID != 0 {
				sender = fmt.Sprintf("%d", msg.SenderID)
			} else {
				sender = "unknown"
			}
		}

		rec := domain.MessageRecord{
			ID:            msg.ID,
			SenderID:      msg.SenderID,
			SenderDisplay: sender,
			Timestamp:     time.Unix(msg.Date, 0).UTC(),
			Type:          msgType,
			Text:          msg.Text,
		}
		if msgType.IsMedia() {
			rec.MediaRef = mediaURL(chat, msg.ID)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return &CollectionResult{
		ChatTitle: strings.TrimPrefix(chat, "@"),
		Records:   records,
	}, nil
}

// classifyMessage infers the message type from the export entry
func classifyMessage(msg tdlMessageData) domain.MessageType {
	switch strings.ToLower(msg.Type) {
	case "voice":
		return domain.TypeVoice
	case "audio":
		return domain.TypeAudio
	case "video_note", "round":
		return domain.TypeVideoNote
	case "text", "message", "":
		// Some exports tag everything "message"; fall through to the file
		// extension when media is attached.
	default:
		return domain.TypeOther
	}

	switch strings.ToLower(filepath.Ext(msg.File)) {
	case ".ogg", ".oga", ".opus":
		return domain.TypeVoice
	case ".mp3", ".m4a", ".flac", ".wav":
		return domain.TypeAudio
	case ".mp4":
		return domain.TypeVideoNote
	}

	if msg.File != "" {
		return domain.TypeOther
	}
	return domain.TypeText
}

// mediaURL builds the t.me link tdl accepts for a single message download
func mediaURL(chat string, messageID int64) string {
	return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(chat, "@"), messageID)
}
