package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/intendproject/ingraph/internal/config"
	"github.com/intendproject/ingraph/internal/container"
	"github.com/intendproject/ingraph/internal/printer"
	"github.com/intendproject/ingraph/internal/render"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/spf13/cobra"
)

var (
	graphdbPort   int
	graphdbWait   time.Duration
	graphdbNoWait bool
	graphdbJSON   bool
)

var graphdbCmd = &cobra.Command{
	Use:   "graphdb",
	Short: "Manage a local GraphDB container",
	Long: `Run GraphDB locally in Docker for development.

The container image, name and heap come from the container section of
ingraph.yml. The host port is picked from 7200-7299 unless set.`,
}

var graphdbUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the local GraphDB container and wait until it answers",
	Long: `Start the local GraphDB container, creating it if needed, then wait until
the GraphDB API answers.

Examples:
  ingraph graphdb up
  ingraph graphdb up --port 7201 --wait 5m`,
	Args: cobra.NoArgs,
	RunE: runGraphDBUp,
}

var graphdbDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the local GraphDB container",
	Args:  cobra.NoArgs,
	RunE:  runGraphDBDown,
}

var graphdbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local GraphDB container",
	Args:  cobra.NoArgs,
	RunE:  runGraphDBStatus,
}

func init() {
	graphdbUpCmd.Flags().IntVar(&graphdbPort, "port", 0, "Host port (default from config, or first free in 7200-7299)")
	graphdbUpCmd.Flags().DurationVar(&graphdbWait, "wait", 3*time.Minute, "How long to wait for GraphDB to answer")
	graphdbUpCmd.Flags().BoolVar(&graphdbNoWait, "no-wait", false, "Return as soon as the container is started")
	graphdbStatusCmd.Flags().BoolVar(&graphdbJSON, "json", false, "Print as JSON")

	graphdbCmd.AddCommand(graphdbUpCmd)
	graphdbCmd.AddCommand(graphdbDownCmd)
	graphdbCmd.AddCommand(graphdbStatusCmd)
	rootCmd.AddCommand(graphdbCmd)
}

func newContainerManager(cmd *cobra.Command, cfg *config.Config) (*container.Manager, func(), error) {
	ctx := cmd.Context()
	cli, err := container.NewClient(ctx)
	if err != nil {
		return nil, nil, printer.Error("Docker is not available", err.Error(), nil)
	}

	opts := container.Options{
		Image:  cfg.Container.Image,
		Name:   cfg.Container.Name,
		Port:   cfg.Container.Port,
		Heap:   cfg.Container.Heap,
		Notify: printer.Step,
	}
	if graphdbPort != 0 {
		opts.Port = graphdbPort
	}
	return container.NewManager(cli, opts), func() { cli.Close() }, nil
}

func runGraphDBUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	mgr, closeClient, err := newContainerManager(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	info, err := mgr.Up(ctx)
	if err != nil {
		return printer.ErrorWithContext(
			"failed to start GraphDB",
			err.Error(),
			map[string]string{"Image": cfg.Container.Image, "Container": cfg.Container.Name},
			[]string{fmt.Sprintf("Check the container logs:\n  docker logs %s", cfg.Container.Name)},
		)
	}

	if !graphdbNoWait {
		gcfg := cfg.GraphStore()
		gcfg.BaseURL = info.URL
		store, err := graphstore.NewClient(gcfg)
		if err != nil {
			return err
		}

		printer.Step("Waiting for GraphDB at %s...\n", info.URL)
		if err := container.WaitHealthy(ctx, store.Health, 2*time.Second, graphdbWait); err != nil {
			return printer.ErrorWithContext(
				"GraphDB did not become ready",
				err.Error(),
				map[string]string{"URL": info.URL},
				[]string{
					fmt.Sprintf("Check the container logs:\n  docker logs %s", info.Name),
					"Wait longer:\n  ingraph graphdb up --wait 10m",
				},
			)
		}
	}

	printer.Success("GraphDB is running at %s\n", info.URL)
	if info.URL != cfg.GraphDB.URL {
		printer.Detail("Use it with: --graphdb-url %s (or GRAPHDB_BASE_URL)\n", info.URL)
	}
	return nil
}

func runGraphDBDown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	mgr, closeClient, err := newContainerManager(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	if err := mgr.Down(ctx); err != nil {
		if errors.Is(err, container.ErrNotFound) {
			printer.Info("No GraphDB container named '%s'\n", cfg.Container.Name)
			return nil
		}
		return printer.Error("failed to remove GraphDB", err.Error(), nil)
	}
	printer.Success("GraphDB container '%s' removed\n", cfg.Container.Name)
	return nil
}

func runGraphDBStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	mgr, closeClient, err := newContainerManager(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	info, err := mgr.Status(ctx)
	if err != nil && !errors.Is(err, container.ErrNotFound) {
		return printer.Error("failed to inspect GraphDB container", err.Error(), nil)
	}

	if graphdbJSON {
		return render.FormatSingleJSON(printer.Stdout(), info)
	}
	render.FormatContainer(printer.Stdout(), info)
	return nil
}
