package commands

import (
	"fmt"

	"github.com/intendproject/ingraph/internal/events"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream upload progress events",
	Long: `Stream progress events published by ingraph commands and ingraph-server.

Events are read from the Redis channel configured by events.redis_url (or
--events-redis) and events.namespace.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  ingraph watch --events-redis redis://localhost:6379
  ingraph watch --output=json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Events.RedisURL == "" {
		return printer.Error(
			"no event bus configured",
			"There is nothing to watch without a Redis URL.",
			[]string{
				"Pass one:\n  ingraph watch --events-redis redis://localhost:6379",
				"Or set events.redis_url in ingraph.yml",
			},
		)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	bus, err := events.NewBus(cfg.Events.RedisURL, cfg.Events.Namespace, newLogger(cfg))
	if err != nil {
		return printer.Error("invalid event bus settings", err.Error(), nil)
	}
	defer bus.Close()

	if err := bus.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Events.RedisURL),
			nil,
			[]string{"Check that Redis is running and the URL is correct"},
		)
	}

	sub, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	if format == watch.OutputFormatDefault {
		printer.Info("Watching %s (Ctrl+C to stop)\n", events.Channel(cfg.Events.Namespace))
	}
	return watch.StreamEvents(ctx, sub, format, printer.Stdout())
}
