package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"flight_tracker/internal/config"
	"flight_tracker/internal/pipeline"
)

// runMenu asks what to do and, for ingestion, the dates and hour.
func runMenu(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	choice, w, err := promptMenu(in, out)
	if err != nil {
		return err
	}
	switch choice {
	case "1":
		return runPipeline(ctx, cfg, w)
	case "2":
		return buildMap(ctx, cfg, cfg.MapOutput, "", "", cfg.MissingOutput)
	}
	return nil
}

// promptMenu reads the user's choice. For "1" it also reads and validates the
// ingestion window. An unknown choice prints a message and returns it as is.
func promptMenu(in io.Reader, out io.Writer) (string, pipeline.Window, error) {
	title := color.New(color.FgCyan, color.Bold)
	r := bufio.NewReader(in)

	fmt.Fprintln(out)
	title.Fprintln(out, "Choose an action:")
	fmt.Fprintln(out, "1. Run the flight parser")
	fmt.Fprintln(out, "2. Build the route map")
	choice := ask(r, out, "Enter action number: ")

	switch choice {
	case "1":
		from := ask(r, out, "Start date (YYYY-MM-DD): ")
		to := ask(r, out, "End date (YYYY-MM-DD): ")
		hourStr := ask(r, out, "Hour (0-23): ")

		hour, err := strconv.Atoi(hourStr)
		if err != nil {
			return choice, pipeline.Window{}, fmt.Errorf("invalid hour %q", hourStr)
		}
		w, err := window(from, to, hour)
		if err != nil {
			return choice, pipeline.Window{}, err
		}
		return choice, w, nil
	case "2":
		return choice, pipeline.Window{}, nil
	}

	color.New(color.FgRed).Fprintln(out, "Invalid choice")
	return choice, pipeline.Window{}, nil
}

func ask(r *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
