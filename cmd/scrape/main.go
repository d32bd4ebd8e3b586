package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/timmy/hotelrank/internal/app"
	"github.com/timmy/hotelrank/internal/config"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
	"github.com/timmy/hotelrank/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "hotelrank-scrape",
	})
	logger.SetDefaultLogger(appLogger)

	sites := flag.String("sites", "", "Comma-separated platforms to scrape (default: all)")
	hotels := flag.String("hotels", "", "Comma-separated hotel keys to scrape (default: all)")
	consolidateOnly := flag.Bool("consolidate", false, "Only consolidate the latest persisted reports")
	status := flag.Bool("status", false, "Print configured platforms and hotels, then exit")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	// The CLI never serves HTTP, so the API key is irrelevant here.
	cfg.Auth.Enabled = false
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	platforms := parsePlatforms(*sites)

	switch {
	case *status:
		printStatus(ctx, application)
	case *consolidateOnly:
		result, err := application.Consolidation.ConsolidateLatest(ctx, platforms)
		if errors.Is(err, domain.ErrNoReports) {
			appLogger.Warn("No persisted reports to consolidate")
			os.Exit(1)
		}
		if err != nil {
			appLogger.WithError(err).Fatal("Consolidation failed")
		}
		printConsolidated(result)
	default:
		job, err := application.Scrape.RunJob(ctx, service.ScrapeRequest{
			Platforms: platforms,
			Hotels:    splitList(*hotels),
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Scrape failed")
		}
		printJob(job)
		if job.State != domain.JobStateCompleted {
			os.Exit(2)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

func parsePlatforms(s string) []domain.Platform {
	var out []domain.Platform
	for _, p := range splitList(s) {
		out = append(out, domain.Platform(p))
	}
	return out
}

func printStatus(ctx context.Context, a *app.App) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tHOTELS")
	for _, p := range a.Registry.Platforms() {
		fmt.Fprintf(w, "%s\t%d\n", p, a.Catalog.CountFor(p))
	}
	w.Flush()

	fmt.Printf("\n%d hotels configured\n", len(a.Catalog.Hotels()))
	for _, h := range a.Catalog.Hotels() {
		fmt.Printf("  %-24s %s\n", h.Key, h.DisplayName)
	}

	latest, err := a.Reports.LatestConsolidated(ctx)
	switch {
	case errors.Is(err, domain.ErrNoReports):
		fmt.Println("\nno consolidation yet")
	case err != nil:
		fmt.Printf("\nlatest consolidation unavailable: %v\n", err)
	default:
		fmt.Printf("\nlatest consolidation: %s (%d hotels)\n",
			latest.Metadata.GeneratedAt.Format("2006-01-02 15:04:05Z"), latest.Metadata.TotalHotels)
	}
}

func printJob(job *domain.Job) {
	fmt.Printf("job %s: %s\n\n", job.ID, job.State)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tSTATUS\tHOTELS\tAVG RATING\tREVIEWS\tSTRATEGIES")
	for _, p := range job.Platforms {
		report, ok := job.Reports[p]
		if !ok {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t%s\n", p, job.PlatformStatus[p], job.PlatformErrors[p])
			continue
		}
		s := report.Metadata.Summary
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%d\t%v\n",
			p, job.PlatformStatus[p], report.Metadata.TotalHotels, s.AverageRating, s.TotalReviews, s.Strategies)
	}
	w.Flush()

	if len(job.Consolidated) > 0 {
		fmt.Println()
		printRecords(job.Consolidated)
	}
}

func printConsolidated(result *service.ConsolidationResult) {
	fmt.Printf("consolidated %d hotels from %v into %s\n\n",
		result.Report.Metadata.TotalHotels, result.Report.Metadata.PlatformsIncluded, result.Location)
	printRecords(result.Report.Hotels)
}

func printRecords(records []domain.ConsolidatedRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOTEL\tPLATFORM\tRATING\tREVIEWS\tSOURCE")
	for _, rec := range records {
		for _, p := range domain.AllPlatforms {
			r, ok := rec.Platforms[p]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f/%.0f\t%d\t%s\n", rec.DisplayName, p, r.Rating, r.ScaleMax, r.ReviewCount, r.SourceStrategy)
		}
	}
	w.Flush()
}
