package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/unklstewy/telex-livemap/internal/logging"
	"github.com/unklstewy/telex-livemap/internal/marker"
	"github.com/unklstewy/telex-livemap/internal/popup"
	"github.com/unklstewy/telex-livemap/pkg/config"
	"github.com/unklstewy/telex-livemap/pkg/coordinates"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	id         = flag.String("id", "", "Print a single connection by id")
	limit      = flag.Int("limit", 10, "Maximum number of connections to print (0 for all)")
	basic      = flag.Bool("basic", false, "Use the generic icon for every aircraft")
)

// snapshotOptions selects what run prints.
type snapshotOptions struct {
	ID    string
	Limit int
	Basic bool
}

// main prints a one-off snapshot of the TELEX connections as the map would
// draw them: marker, position relative to the map centre and popup text.
func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Logging, os.Stderr)

	opts := snapshotOptions{ID: *id, Limit: *limit, Basic: *basic}
	err = run(context.Background(), cfg, opts, os.Stdout, logger)
	closer.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Snapshot failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts snapshotOptions, out io.Writer, logger zerolog.Logger) error {
	client := telex.NewClient(telex.Config{
		BaseURL:           cfg.Telex.BaseURL,
		PageSize:          cfg.Telex.PageSize,
		Timeout:           time.Duration(cfg.Telex.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Telex.RequestsPerSecond,
	})
	defer client.Close()

	retryCfg := telex.DefaultRetryConfig()
	retryCfg.MaxRetries = cfg.Telex.MaxRetries
	retryCfg.Logger = logger

	var conns []telex.Connection
	if opts.ID != "" {
		conn, err := telex.RetryWithBackoffResult(ctx, retryCfg, func() (*telex.Connection, error) {
			return client.GetConnection(ctx, opts.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to fetch connection %s: %w", opts.ID, err)
		}
		conns = []telex.Connection{*conn}
	} else {
		var err error
		conns, err = telex.RetryWithBackoffResult(ctx, retryCfg, func() ([]telex.Connection, error) {
			return client.FetchAllConnections(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to fetch connections: %w", err)
		}
	}

	printSnapshot(out, cfg, opts, conns)
	logger.Debug().Int("connections", len(conns)).Msg("snapshot complete")
	return nil
}

func printSnapshot(out io.Writer, cfg *config.Config, opts snapshotOptions, conns []telex.Connection) {
	center := coordinates.Geographic{
		Latitude:  cfg.Map.CenterLatitude,
		Longitude: cfg.Map.CenterLongitude,
	}
	renderer := popup.NewRenderer(cfg.Map.Locale, nil)

	fmt.Fprintf(out, "Found %d connections\n", len(conns))
	fmt.Fprintln(out, "=====================================")

	for i, c := range conns {
		if opts.Limit > 0 && i >= opts.Limit {
			fmt.Fprintf(out, "\n... and %d more connections\n", len(conns)-opts.Limit)
			break
		}

		v := marker.Project(c.Heading, c.ID, c.AircraftType)
		if opts.Basic {
			v = marker.ProjectGeneric(c.Heading, c.ID)
		}

		dist, bearing := coordinates.Offset(center, coordinates.Geographic{
			Latitude:  c.Latitude(),
			Longitude: c.Longitude(),
		})

		fmt.Fprintf(out, "\n%c %s  [%s]\n", v.Glyph(), c.ID, v.Family)
		fmt.Fprintf(out, "  Icon:     %s (%dpx)\n", v.IconURL, v.Size)
		fmt.Fprintf(out, "  Position: %.4f, %.4f (%.0f nm %s of centre)\n",
			c.Latitude(), c.Longitude(), dist, azimuthToCardinal(bearing))
		if !c.LastContact.IsZero() {
			fmt.Fprintf(out, "  Last contact: %s (%.0fs ago)\n",
				c.LastContact.Format("15:04:05"), time.Since(c.LastContact).Seconds())
		}
		for _, line := range renderer.Build(c).Lines() {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

// azimuthToCardinal converts azimuth in degrees to cardinal direction.
func azimuthToCardinal(azimuth float64) string {
	directions := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	index := int((azimuth + 11.25) / 22.5)
	return directions[index%16]
}
