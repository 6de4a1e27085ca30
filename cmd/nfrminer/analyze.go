package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/corpus"
	"github.com/IshaanNene/nfrminer/internal/nfr"
	"github.com/IshaanNene/nfrminer/internal/observability"
	"github.com/IshaanNene/nfrminer/internal/storage"
	"github.com/IshaanNene/nfrminer/internal/topic"
	"github.com/IshaanNene/nfrminer/internal/types"
)

var (
	analyzeMethod     string
	analyzeTopics     int
	analyzeTopWords   int
	analyzeNoFilter   bool
	analyzeShowTopics bool
	analyzeReport     string
	analyzeWordlists  string
)

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file.xml>...",
		Short: "Model topics of scraped issues and classify them into NFR categories",
		Long: `Load issues from one or more XML files written by "scrape", keep the
issues with above-average discussion, fit a topic model on each issue's
title, description and attachments, and match the topic keywords against
the NFR word lists.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzeMethod, "method", "m", "", "topic model: lda or nmf (default from config)")
	cmd.Flags().IntVarP(&analyzeTopics, "topics", "k", 0, "number of topics per issue (default from config)")
	cmd.Flags().IntVarP(&analyzeTopWords, "top-words", "w", 0, "keywords taken from each topic (default from config)")
	cmd.Flags().BoolVar(&analyzeNoFilter, "no-filter", false, "skip the above-average activity filter")
	cmd.Flags().BoolVar(&analyzeShowTopics, "show-topics", false, "log every topic of every issue")
	cmd.Flags().StringVarP(&analyzeReport, "report", "r", "", "write the classification report as XML to this path")
	cmd.Flags().StringVar(&analyzeWordlists, "wordlists", "", "directory of <category>.txt word lists (default built-in)")

	return cmd
}

// applyAnalyzeOverrides applies command-line flag values to the config.
func applyAnalyzeOverrides(cfg *config.Config) {
	if analyzeMethod != "" {
		cfg.Topics.Method = strings.ToLower(analyzeMethod)
	}
	if analyzeTopics > 0 {
		cfg.Topics.NumTopics = analyzeTopics
	}
	if analyzeTopWords > 0 {
		cfg.Topics.TopWords = analyzeTopWords
	}
	if analyzeNoFilter {
		cfg.Filter.Enabled = false
	}
	if analyzeWordlists != "" {
		cfg.Classify.WordlistDir = analyzeWordlists
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	var issues []*types.Issue
	for _, path := range args {
		system, loaded, err := storage.LoadXML(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		logger.Info("issues loaded", "path", path, "system", system, "issues", len(loaded))
		issues = append(issues, loaded...)
	}

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := analyze(ctx, cfg, issues, analyzeShowTopics, metrics, logger)
	if err != nil {
		return err
	}

	renderClassifications(cmd.OutOrStdout(), rows)
	if analyzeReport != "" {
		if err := storage.SaveReport(analyzeReport, rows); err != nil {
			return err
		}
		logger.Info("report written", "path", analyzeReport, "issues", len(rows))
	}
	metrics.LogSummary("analyze stats")
	return nil
}

// analyze runs filter, corpus, topic modeling and classification over
// issues. Rows follow the order of the input issues.
func analyze(ctx context.Context, cfg *config.Config, issues []*types.Issue, showTopics bool, metrics *observability.Metrics, logger *slog.Logger) ([]storage.Classification, error) {
	if cfg.Filter.Enabled {
		active, err := corpus.FilterActive(issues, cfg.Filter.CommentOffset, cfg.Filter.CommenterOffset)
		if err != nil {
			return nil, err
		}
		logger.Info("activity filter applied", "issues", len(issues), "kept", len(active))
		metrics.IssuesFiltered.Add(int64(len(active)))
		issues = active
	}

	opts, err := topic.OptionsFromConfig(cfg.Topics)
	if err != nil {
		return nil, err
	}
	opts.LogTopics = showTopics
	modeler, err := topic.NewModeler(opts, metrics, logger)
	if err != nil {
		return nil, err
	}
	topics, err := modeler.ModelTopics(ctx, corpus.ToCorpus(issues))
	if err != nil {
		return nil, err
	}

	lex := nfr.BuiltinLexicon()
	if cfg.Classify.WordlistDir != "" {
		lex = nfr.DirLexicon(cfg.Classify.WordlistDir)
	}
	categories, err := nfr.NewClassifier(lex, metrics, logger).ClassifyAll(topics)
	if err != nil {
		return nil, err
	}

	rows := make([]storage.Classification, 0, len(topics))
	for _, id := range corpus.IDs(issues) {
		words, ok := topics[id]
		if !ok {
			continue
		}
		rows = append(rows, storage.Classification{
			ID:       id,
			Category: categories[id].String(),
			Keywords: words,
		})
	}
	return rows, nil
}

func renderClassifications(w io.Writer, rows []storage.Classification) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Issue", "Category", "Keywords"})

	counts := make(map[string]int)
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.Category, strings.Join(r.Keywords, " ")})
		counts[r.Category]++
	}

	var summary []string
	for _, c := range append(append([]nfr.Category{}, nfr.Categories...), nfr.None) {
		if n := counts[c.String()]; n > 0 {
			summary = append(summary, fmt.Sprintf("%s=%d", c, n))
		}
	}
	t.AppendFooter(table.Row{len(rows), strings.Join(summary, " "), ""})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
