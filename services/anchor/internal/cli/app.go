// Package cli implements the anchor command line: catalog management and
// data operations against registered data sources.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-anchor/pkg/logger"
	"github.com/redbco/redb-anchor/services/anchor/internal/config"
	"github.com/redbco/redb-anchor/services/anchor/internal/engine"
)

// ErrOperationFailed is returned after a failed envelope has been printed.
var ErrOperationFailed = errors.New("operation failed")

// EngineFactory builds the engine a command runs against.
type EngineFactory func(cfg *config.Config, log *logger.Logger) *engine.Engine

// App holds the global flags and the I/O of one CLI invocation.
type App struct {
	Version   string
	GitCommit string
	BuildTime string

	configPath string
	output     string
	logLevel   string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	newEngine    EngineFactory
	readPassword func(prompt string) (string, error)
}

// Option configures an App.
type Option func(*App)

// WithIO replaces the standard streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithEngineFactory replaces how the engine is built.
func WithEngineFactory(f EngineFactory) Option {
	return func(a *App) {
		a.newEngine = f
	}
}

// WithPasswordReader replaces the terminal password prompt.
func WithPasswordReader(f func(prompt string) (string, error)) Option {
	return func(a *App) {
		a.readPassword = f
	}
}

// New creates the CLI application.
func New(version string, opts ...Option) *App {
	a := &App{
		Version: version,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		newEngine: func(cfg *config.Config, log *logger.Logger) *engine.Engine {
			return engine.New(cfg, log)
		},
	}
	a.readPassword = a.promptPassword
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "anchor",
		Short: "Manage and query data sources",
		Long: "anchor keeps a catalog of named database connections (MySQL, PostgreSQL, " +
			"MongoDB and Redis) and runs queries, schema inspection, pagination and exports against them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validOutput(a.output)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultConfigPath(), "Path to config file")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", OutputTable, "Output format: table, json or yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		a.sourcesCommand(),
		a.queryCommand(),
		a.schemasCommand(),
		a.tablesCommand(),
		a.structureCommand(),
		a.rowsCommand(),
		a.exportCommand(),
		a.healthCommand(),
		a.versionCommand(),
	)
	return root
}

// Run executes the CLI with args and returns the process exit code.
func (a *App) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.Command()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrOperationFailed) {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *App) printer() *printer {
	return &printer{format: a.output, w: a.stdout}
}

func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	return cfg, nil
}

// withEngine starts an engine, runs fn and stops the engine again, which
// disconnects every data source fn connected.
func (a *App) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) error) (err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("anchor", a.Version)
	if lerr := log.SetLevel(cfg.Log.Level); lerr != nil {
		return lerr
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e := a.newEngine(cfg, log)
	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if stopErr := e.Stop(context.Background()); stopErr != nil {
			log.Warnf("Shutdown: %v", stopErr)
		}
	}()

	return fn(ctx, e)
}
