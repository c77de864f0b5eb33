package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"condo-watch/internal/config"
	"condo-watch/internal/parser"
	"condo-watch/internal/retry"
	"condo-watch/internal/scrape"
	"condo-watch/internal/store"
)

func main() {
	// Parse command line flags
	site := flag.String("site", "", "Source site to scrape: suumo, homes, athome, rehouse, nomu")
	area := flag.String("area", "", "Area code to scrape")
	maxPages := flag.Int("pages", 0, "Maximum list pages (0 = configured default)")
	maxProperties := flag.Int("max-properties", 0, "Stop collecting after this many listings (0 = unlimited)")
	force := flag.Bool("force", false, "Fetch every detail page regardless of freshness")
	ignoreHistory := flag.Bool("ignore-history", false, "Bypass the persistent error history")
	resume := flag.Bool("resume", false, "Continue the last interrupted run of this site/area")
	flag.Parse()

	godotenv.Load()
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *site == "" || *area == "" {
		fmt.Fprintln(os.Stderr, "both -site and -area are required")
		flag.Usage()
		os.Exit(2)
	}

	p, err := parser.New(*site)
	if err != nil {
		log.Error("unknown site", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	fetcher, err := parser.NewFetcher(*site, cfg.HTTPTimeout)
	if err != nil {
		log.Error("failed to create fetcher", "error", err)
		os.Exit(1)
	}
	if c, ok := fetcher.(interface{ Close() }); ok {
		defer c.Close()
	}

	gate, err := retry.NewGate(st, *ignoreHistory, cfg.PriceMismatchRetryDays)
	if err != nil {
		log.Error("failed to create retry gate", "error", err)
		os.Exit(1)
	}

	var resumeState *scrape.Resume
	if *resume {
		job, err := st.GetResumableJob(*site, *area)
		if err != nil {
			log.Error("failed to look up resumable run", "error", err)
			os.Exit(1)
		}
		if job == nil || !job.ResumeJSON.Valid {
			log.Warn("no interrupted run to resume, starting fresh")
		} else if resumeState, err = scrape.UnmarshalResume(job.ResumeJSON.String); err != nil {
			log.Error("bad resume state", "job_id", job.ID, "error", err)
			os.Exit(1)
		}
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	control := scrape.NewControl()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received interrupt signal, stopping at next checkpoint")
		control.Cancel()
		cancel()
	}()

	task := scrape.NewTask(scrape.Params{
		TaskID:             uuid.NewString(),
		SourceSite:         *site,
		AreaCode:           *area,
		MaxPages:           *maxPages,
		MaxProperties:      *maxProperties,
		ForceDetailFetch:   *force,
		IgnoreErrorHistory: *ignoreHistory,
		Resume:             resumeState,
	}, cfg, st, p, fetcher, gate, log, control, nil)

	log.Info("starting scrape", "site", *site, "area", *area)
	startTime := time.Now()

	if err := task.Run(ctx); err != nil {
		log.Error("run did not complete", "error", err, "elapsed", time.Since(startTime))
		os.Exit(1)
	}

	stats := task.Stats()
	log.Info("scrape completed",
		"elapsed", time.Since(startTime),
		"found", stats.PropertiesFound,
		"processed", stats.PropertiesProcessed,
		"new", stats.New,
		"price_updated", stats.PriceUpdated,
		"other_updates", stats.OtherUpdates,
		"unchanged", stats.RefetchedUnchanged,
		"skipped", stats.DetailSkipped,
		"delisted", stats.Delisted,
		"errors", stats.Errors)
}
