package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/internal/logging"
	"github.com/randalmurphal/stategraph/internal/workflows"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
)

// app holds what the commands share. Settings resolve in order: defaults,
// config file, environment (including .env), then explicit flags.
type app struct {
	configPaths []string
	flags       config.Settings

	settings   config.Settings
	logger     *slog.Logger
	catalog    *workflows.Catalog
	serializer *checkpoint.Serializer
	store      checkpoint.Store
	metrics    *metricsServer
}

// Execute runs the command line in args.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, stdout io.Writer) error {
	a := &app{logger: logging.NewNop()}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stategraph",
		Short: "Run state graph workflows with checkpointing and human-in-the-loop resume",
		Long: `stategraph runs the built-in workflows on a checkpoint store.

Interrupted runs are saved under their thread ID and continue with
"stategraph resume". Use a persistent store (sqlite, postgres, redis) to
resume across invocations.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringArrayVar(&a.configPaths, "config", nil, "YAML or JSON config file; repeat to layer overrides")
	flags.StringVar(&a.flags.Store, "store", config.StoreMemory, "checkpoint store: memory, sqlite, postgres or redis")
	flags.StringVar(&a.flags.DSN, "dsn", "", "store location: sqlite path, postgres DSN or redis URL")
	flags.StringVar(&a.flags.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&a.flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	root.AddCommand(
		a.workflowsCmd(),
		a.graphCmd(),
		a.runCmd(),
		a.resumeCmd(),
		a.stateCmd(),
		a.threadsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	settings, err := a.resolveSettings(cmd)
	if err != nil {
		return err
	}
	level, _ := settings.Level()
	a.settings = settings
	a.logger = logging.New(level)

	codec, err := checkpoint.ParseCodec(settings.Codec)
	if err != nil {
		return err
	}
	compression, err := checkpoint.ParseCompression(settings.Compression)
	if err != nil {
		return err
	}
	a.serializer = checkpoint.NewSerializer(codec, compression)

	a.catalog, err = workflows.NewCatalog(workflows.Deps{})
	if err != nil {
		return fmt.Errorf("build workflows: %w", err)
	}

	if settings.MetricsAddr != "" {
		a.metrics, err = serveMetrics(settings.MetricsAddr, a.logger)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	settings := config.DefaultSettings()
	if len(a.configPaths) > 0 {
		cfg, err := config.Load(a.configPaths...)
		if err != nil {
			return settings, err
		}
		settings = config.SettingsFrom(cfg)
	}

	settings, err := settings.ApplyEnv(os.LookupEnv)
	if err != nil {
		return settings, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		settings.Store = a.flags.Store
	}
	if flags.Changed("dsn") {
		settings.DSN = a.flags.DSN
	}
	if flags.Changed("log-level") {
		settings.LogLevel = a.flags.LogLevel
	}
	if flags.Changed("metrics-addr") {
		settings.MetricsAddr = a.flags.MetricsAddr
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// checkpoints opens the configured store on first use.
func (a *app) checkpoints(ctx context.Context) (checkpoint.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := openStore(ctx, a.settings)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("checkpoint store opened", "store", a.settings.Store)
	a.store = store
	return store, nil
}

func (a *app) workflow(name string) (workflows.Workflow, error) {
	wf, err := a.catalog.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("unknown workflow %q (see \"stategraph workflows\")", name)
	}
	return wf, nil
}

func (a *app) close() {
	if a.metrics != nil {
		if err := a.metrics.Shutdown(context.Background()); err != nil {
			a.logger.Warn("stop metrics server", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close checkpoint store", "error", err)
		}
	}
}
