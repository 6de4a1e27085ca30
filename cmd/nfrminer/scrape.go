package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/engine"
	"github.com/IshaanNene/nfrminer/internal/extract"
	"github.com/IshaanNene/nfrminer/internal/fetcher"
	"github.com/IshaanNene/nfrminer/internal/observability"
	"github.com/IshaanNene/nfrminer/internal/pipeline"
	"github.com/IshaanNene/nfrminer/internal/storage"
	"github.com/IshaanNene/nfrminer/internal/tracker"
	"github.com/IshaanNene/nfrminer/internal/types"
)

var scrapeFilepath string

// scrapeArgs are the positional arguments of the scrape command.
type scrapeArgs struct {
	system  string
	span    engine.IDRange
	workers int
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <system> <from-id> <to-id> <num-processes>",
		Short: "Scrape enhancement issues from a tracker into an XML file",
		Long: fmt.Sprintf(`Fetch every issue in the closed id range [from-id, to-id], keep the
enhancement requests with enough discussion, and write them as XML.

The range is split into num-processes contiguous sub-ranges scraped in
parallel. An interrupted scrape saves its progress next to the output file;
running the same command again resumes it. Supported systems: %v.`, tracker.Names()),
		Args: cobra.ExactArgs(4),
		RunE: runScrape,
	}

	cmd.Flags().StringVarP(&scrapeFilepath, "filepath", "o", "", "output XML path (default <output_dir>/<system>-<from-id>-<to-id>.xml)")
	return cmd
}

func parseScrapeArgs(args []string) (scrapeArgs, error) {
	from, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return scrapeArgs{}, fmt.Errorf("%w: from-id %q: %v", types.ErrInvalidRange, args[1], err)
	}
	to, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return scrapeArgs{}, fmt.Errorf("%w: to-id %q: %v", types.ErrInvalidRange, args[2], err)
	}
	workers, err := strconv.Atoi(args[3])
	if err != nil {
		return scrapeArgs{}, fmt.Errorf("num-processes %q: %w", args[3], err)
	}
	return scrapeArgs{
		system:  args[0],
		span:    engine.IDRange{From: from, To: to},
		workers: workers,
	}, nil
}

// defaultOutputPath returns <dir>/<system>-<from>-<to>.xml.
func defaultOutputPath(dir string, a scrapeArgs) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%d-%d.xml", a.system, a.span.From, a.span.To))
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	sa, err := parseScrapeArgs(args)
	if err != nil {
		return err
	}
	// Reject a bad range before a browser or metrics server starts.
	workers := engine.ClampWorkers(sa.span, sa.workers)
	if _, err := engine.SplitRange(sa.span, workers); err != nil {
		return err
	}
	tr, err := tracker.Lookup(sa.system)
	if err != nil {
		return err
	}
	if err := tr.Validate(); err != nil {
		return err
	}
	cfg.Scrape.Workers = workers
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	outPath := scrapeFilepath
	if outPath == "" {
		outPath = defaultOutputPath(cfg.Scrape.OutputDir, sa)
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	eng := engine.New(cfg, f, extract.New(cfg.Extract, logger), pipeline.Default(logger), metrics, logger)
	if cfg.Scrape.CheckpointInterval > 0 {
		eng.UseCheckpoint(engine.NewCheckpoint(outPath+".checkpoint.json", logger))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	issues, err := eng.ScrapeParallel(ctx, tr, sa.span, sa.workers)
	if err != nil {
		return err
	}

	store, err := storage.NewXMLStorage(outPath, tr.Name, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := store.Store(issues); err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	metrics.LogSummary("scrape stats")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nScrape complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "   Tracker:   %s %s\n", tr.Name, sa.span)
	fmt.Fprintf(out, "   Requests:  %d sent, %d failed\n", metrics.PagesRequested.Load(), metrics.PagesFailed.Load())
	fmt.Fprintf(out, "   Issues:    %d kept\n", len(issues))
	fmt.Fprintf(out, "   Output:    %s\n", outPath)
	return nil
}
