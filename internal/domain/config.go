package domain

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Export   ExportConfig   `mapstructure:"export"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Whisper  WhisperConfig  `mapstructure:"whisper"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ExportConfig contains export pipeline configuration
type ExportConfig struct {
	DataDir             string `mapstructure:"data_dir"`
	Timezone            string `mapstructure:"timezone"`
	IncludeMessageIDs   bool   `mapstructure:"include_message_ids"`
	SampleSize          int    `mapstructure:"sample_size"`
	PrefetchConcurrency int    `mapstructure:"prefetch_concurrency"`
}

// TelegramConfig contains tdl-specific configuration
type TelegramConfig struct {
	TDLBinary   string `mapstructure:"tdl_binary"`
	Profile     string `mapstructure:"profile"`
	StorageType string `mapstructure:"storage_type"`
	StoragePath string `mapstructure:"storage_path"`
	ExtraParams string `mapstructure:"extra_params"`
}

// WhisperConfig contains transcription engine configuration
type WhisperConfig struct {
	Binary   string `mapstructure:"binary"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

// ArchiveConfig contains run archive configuration
type ArchiveConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Export: ExportConfig{
			DataDir:             "$HOME/.tg-scribe/data",
			Timezone:            "Europe/Vienna",
			IncludeMessageIDs:   true,
			SampleSize:          5,
			PrefetchConcurrency: 2,
		},
		Telegram: TelegramConfig{
			TDLBinary:   "tdl",
			Profile:     "default",
			StorageType: "bolt",
			StoragePath: "$HOME/.tg-scribe/tdl",
			ExtraParams: "",
		},
		Whisper: WhisperConfig{
			Binary:   "whisper-cli",
			Model:    "$HOME/.tg-scribe/models/ggml-small.bin",
			Language: "de",
		},
		Archive: ArchiveConfig{
			DatabasePath: "$HOME/.tg-scribe/runs.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

// ChatPaths groups the per-chat+year working locations
type ChatPaths struct {
	CacheDir    string // downloaded media
	OutputPath  string // finalized document
	JournalPath string // sink entries journal
	LedgerPath  string // resume ledger state
}

// ComputePaths lays out the working tree for one chat and year
func ComputePaths(baseDir, chatSlug string, year int) ChatPaths {
	yearDir := filepath.Join(baseDir, chatSlug, strconv.Itoa(year))
	return ChatPaths{
		CacheDir:    filepath.Join(yearDir, "cache"),
		OutputPath:  filepath.Join(yearDir, "output", chatSlug+"-"+strconv.Itoa(year)+".md"),
		JournalPath: filepath.Join(yearDir, "state", "entries.jsonl"),
		LedgerPath:  filepath.Join(yearDir, "state", "ledger.json"),
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// SlugifyChatName turns a chat title or @username into a filesystem slug
func SlugifyChatName(name string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return "chat"
	}
	return slug
}

// YearRange returns the UTC window [since, until) covering a year.
// The collector applies it as the coarse stage-1 date filter.
func YearRange(year int) (since, until time.Time) {
	since = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	until = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return since, until
}
