package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"

	"flight_tracker/internal/api"
	"flight_tracker/internal/config"
	"flight_tracker/internal/logger"
	"flight_tracker/internal/mapview"
	"flight_tracker/internal/pipeline"
	"flight_tracker/internal/summary"
)

func runIngest(ctx context.Context, cfg *config.Config, args []string) error {
	now := time.Now().UTC()
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	from := fs.String("from", now.Format(dateLayout), "First day of the daily summary (YYYY-MM-DD)")
	to := fs.String("to", now.Format(dateLayout), "Last day of the daily summary, inclusive (YYYY-MM-DD)")
	hour := fs.Int("hour", now.Hour(), "Hour of day for the hourly summary (0-23)")
	_ = fs.Parse(args)

	w, err := window(*from, *to, *hour)
	if err != nil {
		return err
	}
	return runPipeline(ctx, cfg, w)
}

func runPipeline(ctx context.Context, cfg *config.Config, w pipeline.Window) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.driver.Run(ctx, w)
	if err != nil {
		return err
	}
	printReport(rep)
	return nil
}

func printReport(rep pipeline.Report) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	color.New(color.Bold).Printf("Run %s\n", rep.RunID)
	for _, r := range rep.Airports {
		if r.OK {
			fmt.Printf("  %s  %s  %s flights\n", r.Airport, ok("stored"), humanize.Comma(int64(r.Stored)))
		} else {
			fmt.Printf("  %s  %s\n", r.Airport, bad("no data"))
		}
	}
	fmt.Printf("Airports: %d of %d stored, %s flights in total\n",
		rep.Succeeded(), len(rep.Airports), humanize.Comma(int64(rep.FlightsStored)))
	fmt.Printf("Summary rows: %s daily, %s hourly\n",
		humanize.Comma(int64(len(rep.DailyRows))), humanize.Comma(int64(len(rep.HourlyRows))))
}

func runMap(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("map", flag.ExitOnError)
	output := fs.String("output", cfg.MapOutput, "GeoJSON output file")
	kmlPath := fs.String("kml", "", "Optional KML output file")
	csvPath := fs.String("csv", "", "Optional routes CSV output file")
	missingPath := fs.String("missing", cfg.MissingOutput, "File listing airports without coordinates")
	_ = fs.Parse(args)

	return buildMap(ctx, cfg, *output, *kmlPath, *csvPath, *missingPath)
}

func buildMap(ctx context.Context, cfg *config.Config, output, kmlPath, csvPath, missingPath string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.driver.BuildMap(ctx)
	if err != nil {
		return err
	}

	data, err := mapview.GeoJSON(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	color.Green("Map saved to %s (%d routes, %d airports)", output, len(m.Routes), len(m.Markers))

	if kmlPath != "" {
		data, err := mapview.KML(m)
		if err != nil {
			return err
		}
		if err := os.WriteFile(kmlPath, data, 0o644); err != nil {
			return fmt.Errorf("write kml: %w", err)
		}
		fmt.Printf("KML saved to %s\n", kmlPath)
	}

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		if err := mapview.WriteRoutesCSV(f, m); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Routes saved to %s\n", csvPath)
	}

	if len(m.Missing) > 0 {
		logger.Warn("missing coordinates for airports", "airports", strings.Join(m.Missing, ", "))
		if err := mapview.WriteMissing(missingPath, m.Missing); err != nil {
			return err
		}
		color.Yellow("%d airports without coordinates, listed in %s", len(m.Missing), missingPath)
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.HTTPAddr, "HTTP listen address")
	_ = fs.Parse(args)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.driver, a.store, api.Config{
		Addr:     *addr,
		Airports: cfg.Airports,
		APIKeys:  cfg.APIKeys,
	})
	return server.Run(ctx)
}

func runReport(ctx context.Context, cfg *config.Config, args []string) error {
	now := time.Now().UTC()
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	from := fs.String("from", now.AddDate(0, 0, -7).Format(dateLayout), "First day (YYYY-MM-DD)")
	to := fs.String("to", now.Format(dateLayout), "Last day, inclusive (YYYY-MM-DD)")
	_ = fs.Parse(args)

	w, err := window(*from, *to, 0)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	daily, err := a.store.DailySummary(ctx, cfg.Airports, w.From, w.To)
	if err != nil {
		return err
	}
	printDaily(daily)

	perHour := make([]float64, 24)
	for h := 0; h < 24; h++ {
		rows, err := a.store.HourlySummary(ctx, cfg.Airports, h)
		if err != nil {
			return err
		}
		for _, r := range rows {
			perHour[h] += float64(r.TotalFlights)
		}
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(perHour,
		asciigraph.Height(10),
		asciigraph.Caption("Arrivals by hour of day (UTC), all stored flights"),
	))

	if a.archive != nil {
		counts, err := a.archive.CountByDestination(ctx)
		if err != nil {
			logger.Warn("archive query failed", "error", err)
			return nil
		}
		printArchive(counts)
	}
	return nil
}

func printDaily(rows []summary.Row) {
	color.New(color.Bold).Println("Daily arrivals")
	if len(rows) == 0 {
		fmt.Println("  no data")
		return
	}
	var total int64
	fmt.Printf("  %-10s  %-30s  %-30s  %8s\n", "Day", "Airline", "Aircraft", "Flights")
	for _, r := range rows {
		fmt.Printf("  %-10s  %-30s  %-30s  %8s\n", r.Bucket.Format(dateLayout),
			truncate(r.Airline, 30), truncate(r.AircraftModel, 30), humanize.Comma(r.TotalFlights))
		total += r.TotalFlights
	}
	fmt.Printf("  %s flights in %d groups\n", humanize.Comma(total), len(rows))
}

func printArchive(counts map[string]uint64) {
	codes := make([]string, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return counts[codes[i]] > counts[codes[j]] })

	fmt.Println()
	color.New(color.Bold).Println("Archived arrivals by airport")
	for _, c := range codes {
		fmt.Printf("  %s  %s\n", c, humanize.Comma(int64(counts[c])))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
