// Command flight_tracker collects scheduled arrivals for a fixed set of
// airports, rolls them up per day and per hour, and draws the route map.
//
// Usage:
//
//	flight_tracker                      interactive menu
//	flight_tracker ingest -from 2024-05-01 -to 2024-05-07 -hour 14
//	flight_tracker map -output flights_map.geojson -kml flights_map.kml
//	flight_tracker serve -addr :8081
//	flight_tracker report -from 2024-05-01 -to 2024-05-07
//
// Settings come from the environment or a .env file, see internal/config.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"flight_tracker/internal/config"
	"flight_tracker/internal/logger"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "flight_tracker - commands:")
	fmt.Fprintln(w, "  ingest  - fetch arrivals for every airport, then build daily and hourly summaries")
	fmt.Fprintln(w, "  map     - build the route map from recent flights")
	fmt.Fprintln(w, "  serve   - run the HTTP API")
	fmt.Fprintln(w, "  report  - print stored summaries")
	fmt.Fprintln(w, "  menu    - interactive prompt (default)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  flight_tracker ingest [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-hour 0-23]")
	fmt.Fprintln(w, "  flight_tracker map [-output map.geojson] [-kml map.kml] [-csv routes.csv] [-missing missing_airports.txt]")
	fmt.Fprintln(w, "  flight_tracker serve [-addr :8081]")
	fmt.Fprintln(w, "  flight_tracker report [-from YYYY-MM-DD] [-to YYYY-MM-DD]")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	closer, err := logger.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "menu"
	var args []string
	if len(os.Args) > 1 {
		cmd = strings.ToLower(os.Args[1])
		args = os.Args[2:]
	}

	switch cmd {
	case "ingest":
		err = runIngest(ctx, cfg, args)
	case "map":
		err = runMap(ctx, cfg, args)
	case "serve":
		err = runServe(ctx, cfg, args)
	case "report":
		err = runReport(ctx, cfg, args)
	case "menu":
		err = runMenu(ctx, cfg, os.Stdin, os.Stdout)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}
