package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/intendproject/ingraph/internal/config"
	"github.com/intendproject/ingraph/internal/events"
	"github.com/intendproject/ingraph/internal/logging"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/proxyclient"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/things"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Persistent flags
var (
	configPath  string
	envFile     string
	graphDBURL  string
	proxyURL    string
	eventsRedis string
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ingraph",
	Short: "ingraph - GraphDB operator toolkit for INTEND knowledge graphs",
	Long: `ingraph loads JSON-LD knowledge graphs into GraphDB and manages the
repositories they live in.

It normalizes loosely shaped JSON-LD into a {"@context", "@graph"} envelope,
creates repositories on demand, uploads and confirms triple counts, runs
SPARQL queries and updates, and diagnoses uploads GraphDB rejects.

Commands talk to GraphDB directly, or to an ingraph-server facade when
--proxy-url is set.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to ingraph.yml (optional)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	flags.StringVar(&graphDBURL, "graphdb-url", "", "GraphDB base URL (overrides config and GRAPHDB_BASE_URL)")
	flags.StringVar(&proxyURL, "proxy-url", "", "Use an ingraph-server facade at this URL instead of GraphDB")
	flags.StringVar(&eventsRedis, "events-redis", "", "Publish progress events to this Redis URL")
	flags.StringVar(&logLevel, "log-level", "", "Log level for structured logs (debug, info, warn, error)")
}

// loadConfig resolves configuration: env file, then ingraph.yml (or
// defaults), then environment, then flags.
func loadConfig() (*config.Config, error) {
	envRequired := rootCmd.PersistentFlags().Changed("env-file")
	if err := config.LoadEnvFile(envFile, envRequired); err != nil {
		return nil, printer.Error(
			"failed to load env file",
			err.Error(),
			[]string{fmt.Sprintf("Check that %s exists and contains KEY=VALUE lines", envFile)},
		)
	}

	var (
		cfg *config.Config
		err error
	)
	if rootCmd.PersistentFlags().Changed("config") {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(configPath)
	}
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or remove it to use defaults", configPath)},
		)
	}

	cfg.ApplyEnv()
	if graphDBURL != "" {
		cfg.GraphDB.URL = graphDBURL
	}
	if proxyURL != "" {
		cfg.Proxy.URL = proxyURL
	}
	if eventsRedis != "" {
		cfg.Events.RedisURL = eventsRedis
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}
	return cfg, nil
}

// backend is what commands need from GraphDB or the facade.
type backend interface {
	orchestrator.Store
	ActiveRepositories(ctx context.Context) ([]graphstore.Repository, error)
	Query(ctx context.Context, repoID, query string, format graphstore.Format) (*graphstore.RawResponse, error)
	Select(ctx context.Context, repoID, query string) (*graphstore.QueryResult, error)
	Update(ctx context.Context, repoID, update string) error
	Size(ctx context.Context, repoID string) (int64, error)
	RepositoryInfo(ctx context.Context, repoID string) (*graphstore.RepositoryInfo, error)
}

// newBackend returns a facade client when a proxy URL is configured and a
// GraphDB client otherwise, with a label for messages.
func newBackend(cfg *config.Config) (backend, string, error) {
	if cfg.Proxy.URL != "" {
		c, err := proxyclient.New(cfg.Proxy.URL, cfg.GraphDB.Timeout)
		if err != nil {
			return nil, "", err
		}
		return c, cfg.Proxy.URL, nil
	}
	c, err := newGraphStore(cfg)
	if err != nil {
		return nil, "", err
	}
	return c, cfg.GraphDB.URL, nil
}

func newGraphStore(cfg *config.Config) (*graphstore.Client, error) {
	c, err := graphstore.NewClient(cfg.GraphStore())
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphDB client: %w", err)
	}
	return c, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Logging.Level)
	lc.JSON = cfg.Logging.JSON
	return logging.New(lc)
}

// newOrchestrator wires the backend, terminal progress, the optional event
// bus and the optional things API. The returned cleanup closes the bus.
func newOrchestrator(ctx context.Context, cfg *config.Config, store orchestrator.Store, withThings bool) (*orchestrator.Orchestrator, func(), error) {
	reporters := []orchestrator.Reporter{newProgressReporter()}
	cleanup := func() {}

	if cfg.Events.RedisURL != "" {
		bus, err := events.NewBus(cfg.Events.RedisURL, cfg.Events.Namespace, newLogger(cfg))
		if err != nil {
			return nil, nil, err
		}
		if err := bus.Ping(ctx); err != nil {
			bus.Close()
			return nil, nil, printer.ErrorWithContext(
				"event bus unreachable",
				"Progress events cannot be published.",
				map[string]string{"Redis": cfg.Events.RedisURL},
				[]string{"Start Redis or drop --events-redis / INGRAPH_EVENTS_REDIS"},
			)
		}
		reporters = append(reporters, bus)
		cleanup = func() { bus.Close() }
	}

	opts := orchestrator.Options{
		HealthTimeout: cfg.GraphDB.HealthTimeout,
		ReplaceDelay:  cfg.Things.ReplaceDelay,
		Reporter:      orchestrator.MultiReporter(reporters...),
	}
	if withThings {
		tc, err := things.NewClient(cfg.ThingsClient())
		if err != nil {
			cleanup()
			return nil, nil, printer.Error(
				"things API not configured",
				err.Error(),
				[]string{"Set INGRAPH_THINGS_API_KEY (or things.api_key in ingraph.yml)"},
			)
		}
		opts.Things = tc
	}

	return orchestrator.New(store, opts), cleanup, nil
}

// commandContext is cancelled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// repositoryOr returns flagValue when set, otherwise the configured repository.
func repositoryOr(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Repository.ID
}
