package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/internal/app"
	"github.com/yourusername/tg-scribe-go/internal/domain"
	"github.com/yourusername/tg-scribe-go/internal/infrastructure"
	"github.com/yourusername/tg-scribe-go/pkg/logger"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "tg-scribe",
		Short: "tg-scribe - Telegram chat transcript exporter",
		Long:  `Exports a year of a Telegram chat into a transcript document, transcribing voice and audio messages locally.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)

	for _, cmd := range []*cobra.Command{exportCmd, previewCmd} {
		cmd.Flags().IntP("year", "y", 0, "Target year (required)")
		cmd.Flags().StringSliceP("type", "t", []string{string(domain.TypeVoice)}, "Message types to include (text, voice, audio, video_note)")
		cmd.Flags().Int64Slice("sender", nil, "Restrict to these sender ids (full run only)")
		cmd.Flags().Bool("include-self", false, "Include your own messages")
		cmd.Flags().Int64("self-id", 0, "Your own Telegram user id, for self-exclusion")
		cmd.Flags().IntP("limit", "l", 0, "Only consider the last N collected messages")
		cmd.MarkFlagRequired("year")
	}

	statusCmd.Flags().StringP("chat", "c", "", "Filter by chat slug")
	statusCmd.Flags().IntP("limit", "l", 20, "Number of runs to show")

	resetCmd.Flags().IntP("year", "y", 0, "Target year (required)")
	resetCmd.MarkFlagRequired("year")
}

// runContext returns a context cancelled on SIGINT/SIGTERM so an interrupted
// run still flushes its partial result.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func setup(cmd *cobra.Command) (*domain.Config, *zap.Logger, domain.FilterConfig, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, nil, domain.FilterConfig{}, err
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, nil, domain.FilterConfig{}, fmt.Errorf("failed to initialize logger: %w", err)
	}

	filter, err := buildFilter(cmd)
	if err != nil {
		return nil, nil, domain.FilterConfig{}, err
	}

	return config, log, filter, nil
}

func buildFilter(cmd *cobra.Command) (domain.FilterConfig, error) {
	year, _ := cmd.Flags().GetInt("year")
	typeNames, _ := cmd.Flags().GetStringSlice("type")
	senders, _ := cmd.Flags().GetInt64Slice("sender")
	includeSelf, _ := cmd.Flags().GetBool("include-self")

	types, err := domain.ParseMessageTypes(typeNames)
	if err != nil {
		return domain.FilterConfig{}, err
	}

	filter := domain.FilterConfig{
		AllowedTypes: types,
		TargetYear:   year,
		IncludeSelf:  includeSelf,
	}
	if len(senders) > 0 {
		filter.AllowedSenders = make(map[int64]struct{}, len(senders))
		for _, id := range senders {
			filter.AllowedSenders[id] = struct{}{}
		}
	}

	return filter, filter.Validate()
}

// limitRecords keeps only the last n collected records. The collector
// returns them ordered by message id, so this is the tail of the chat.
func limitRecords(cmd *cobra.Command, records []domain.MessageRecord) []domain.MessageRecord {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 && len(records) > limit {
		return records[len(records)-limit:]
	}
	return records
}

func openArchive(config *domain.Config, log *zap.Logger) domain.RunRepository {
	repo, err := infrastructure.NewSQLiteRunRepository(config.Archive.DatabasePath)
	if err != nil {
		log.Warn("Run archive unavailable, continuing without it", zap.Error(err))
		return nil
	}
	return repo
}

var previewCmd = &cobra.Command{
	Use:   "preview [chat]",
	Short: "Dry run: count and sample matching messages without processing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, filter, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		chat := args[0]
		ownerID, _ := cmd.Flags().GetInt64("self-id")

		ctx, stop := runContext()
		defer stop()

		collector := infrastructure.NewTDLCollector(&config.Telegram, os.TempDir(), log)
		since, until := domain.YearRange(filter.TargetYear)
		collection, err := collector.Collect(ctx, chat, since, until)
		if err != nil {
			return err
		}

		pipeline := app.NewPipeline(filter, app.PipelineOptions{
			ChatSlug:   domain.SlugifyChatName(chat),
			ChatTitle:  collection.ChatTitle,
			Year:       filter.TargetYear,
			OwnerID:    ownerID,
			SampleSize: config.Export.SampleSize,
		}, nil, nil, nil, nil, openArchive(config, log), log)

		report, err := pipeline.Preview(ctx, limitRecords(cmd, collection.Records))
		if err != nil {
			return err
		}

		printPreview(report)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [chat]",
	Short: "Export a year of a chat into a transcript document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, log, filter, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		chat := args[0]
		ownerID, _ := cmd.Flags().GetInt64("self-id")
		slug := domain.SlugifyChatName(chat)
		paths := domain.ComputePaths(config.Export.DataDir, slug, filter.TargetYear)

		if err := os.MkdirAll(paths.CacheDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", paths.CacheDir, err)
		}

		ctx, stop := runContext()
		defer stop()

		collector := infrastructure.NewTDLCollector(&config.Telegram, os.TempDir(), log)
		since, until := domain.YearRange(filter.TargetYear)
		collection, err := collector.Collect(ctx, chat, since, until)
		if err != nil {
			return err
		}

		ledger, err := infrastructure.NewFileLedger(paths.LedgerPath)
		if err != nil {
			return err
		}

		sink, err := infrastructure.NewMarkdownSink(infrastructure.MarkdownSinkOptions{
			JournalPath:       paths.JournalPath,
			OutputPath:        paths.OutputPath,
			ChatTitle:         collection.ChatTitle,
			Year:              filter.TargetYear,
			IncludeMessageIDs: config.Export.IncludeMessageIDs,
			Timezone:          config.Export.Timezone,
		})
		if err != nil {
			return err
		}

		fetcher := infrastructure.NewTDLMediaFetcher(&config.Telegram, paths.CacheDir, log)

		// The whisper model stats lazily so text-only runs never touch it.
		transcriber := infrastructure.NewLazyTranscriber(func() (domain.Transcriber, error) {
			return infrastructure.NewWhisperTranscriber(&config.Whisper, log)
		})

		pipeline := app.NewPipeline(filter, app.PipelineOptions{
			ChatSlug:            slug,
			ChatTitle:           collection.ChatTitle,
			Year:                filter.TargetYear,
			OwnerID:             ownerID,
			SampleSize:          config.Export.SampleSize,
			PrefetchConcurrency: config.Export.PrefetchConcurrency,
		}, ledger, fetcher, transcriber, sink, openArchive(config, log), log)

		result, err := pipeline.Run(ctx, limitRecords(cmd, collection.Records))
		if err != nil {
			return err
		}

		printResult(result)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archived run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		repo, err := infrastructure.NewSQLiteRunRepository(config.Archive.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()

		chat, _ := cmd.Flags().GetString("chat")
		limit, _ := cmd.Flags().GetInt("limit")

		var runs []*domain.RunRecord
		if chat != "" {
			runs, err = repo.FindByChat(chat)
		} else {
			runs, err = repo.FindRecent(limit)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHAT\tYEAR\tMODE\tSTATUS\tPROCESSED\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
				truncate(r.ID, 8),
				truncate(r.ChatSlug, 24),
				r.Year,
				r.Mode,
				r.Status,
				r.Processed,
				r.StartedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()

		stats, err := repo.GetStats()
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("Total runs: %d (completed %d, failed %d, running %d), messages processed: %d\n",
			stats.Total, stats.Completed, stats.Failed, stats.Running, stats.MessagesProcessed)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset [chat]",
	Short: "Discard resume state for a chat and year",
	Long:  `Removes the resume ledger and the entries journal so the next export reprocesses the year from scratch. Cached media downloads are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		year, _ := cmd.Flags().GetInt("year")
		slug := domain.SlugifyChatName(args[0])
		paths := domain.ComputePaths(config.Export.DataDir, slug, year)

		ledger, err := infrastructure.NewFileLedger(paths.LedgerPath)
		if err != nil {
			// A corrupt ledger is exactly what reset is for.
			ledger = nil
		}
		if ledger != nil {
			if err := ledger.Reset(); err != nil {
				return err
			}
		} else if err := os.Remove(paths.LedgerPath); err != nil && !os.IsNotExist(err) {
			return err
		}

		if err := os.Remove(paths.JournalPath); err != nil && !os.IsNotExist(err) {
			return err
		}

		fmt.Printf("Resume state cleared for %s (%d)\n", slug, year)
		return nil
	},
}

func printPreview(report *domain.PreviewReport) {
	fmt.Printf("Preview for %s (%d)\n", report.ChatTitle, report.Year)
	fmt.Printf("Matching messages: %d\n", report.Total)

	types := make([]domain.MessageType, 0, len(report.TypeCounts))
	for t := range report.TypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		fmt.Printf("\n  %s: %d\n", t, report.TypeCounts[t])
		for _, sample := range report.Samples[t] {
			fmt.Printf("    %s\n", sample.Render())
		}
	}
}

func printResult(result *domain.RunResult) {
	fmt.Printf("Export finished for %s (%d)\n", result.ChatTitle, result.Year)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Seen:\t%d\n", result.TotalSeen)
	fmt.Fprintf(w, "  Admitted:\t%d\n", result.Admitted)
	fmt.Fprintf(w, "  Processed:\t%d\n", result.Processed)
	fmt.Fprintf(w, "  Skipped:\t%d\n", result.Skipped)
	fmt.Fprintf(w, "  Rejected:\t%d\n", result.Rejected)
	w.Flush()

	if len(result.TypeCounts) > 0 {
		parts := make([]string, 0, len(result.TypeCounts))
		types := make([]domain.MessageType, 0, len(result.TypeCounts))
		for t := range result.TypeCounts {
			types = append(types, t)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		for _, t := range types {
			parts = append(parts, string(t)+"="+strconv.Itoa(result.TypeCounts[t]))
		}
		fmt.Printf("  By type: %v\n", parts)
	}

	if result.DocumentPath != "" {
		fmt.Printf("Document: %s\n", result.DocumentPath)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
