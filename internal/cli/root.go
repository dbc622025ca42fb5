package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"operaflow/internal/config"
	"operaflow/internal/events"
	"operaflow/internal/format"
	"operaflow/internal/log"
	"operaflow/internal/store"
)

type App struct {
	ConfigPath string
	DBPath     string
	Format     string
	PrettyJSON bool
	LogLevel   string

	cfg    config.Config
	logger *log.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "operaflow",
		Short:        "OperaFlow : planning Gantt des affaires (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the interactive board
  operaflow

  # Board of one affaire, against a remote API
  operaflow board --affaire AFF-2024-01 --remote http://planning:8080

  # Scriptable commands
  operaflow tasks list --format table
  operaflow tasks set-dates 12 --start 2024-01-01 --end 2024-01-10

  # Direct task lookup (shortcut for: operaflow tasks show <id>)
  operaflow 12
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if len(args) == 0 {
				return runBoard(cmd, app, boardOptions{})
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("OPERAFLOW_CONFIG", ""), "Path to config.json (default: user config dir)")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Path to the SQLite database (overrides config and OPERAFLOW_DB)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("OPERAFLOW_FORMAT", "json"), "Output format (json|table)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTokenCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newAffairesCmd(app))
	cmd.AddCommand(newLotsCmd(app))
	cmd.AddCommand(newResourcesCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// load resolves the configuration: file, then env, then flags.
func (app *App) load(cmd *cobra.Command) error {
	if app.ConfigPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.ConfigPath = p
	}
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.DBPath != "" {
		cfg.DBPath = app.DBPath
	}
	if app.LogLevel != "" {
		cfg.LogLevel = app.LogLevel
	}
	app.cfg = cfg
	app.logger = log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: log.ParseFormat(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

// openStore opens the configured database with an event bus attached.
func openStore(app *App) (*store.Store, *events.Bus, error) {
	path := app.cfg.DBPath
	if path != ":memory:" {
		if err := config.EnsureDir(path); err != nil {
			return nil, nil, err
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	bus := events.NewBus()
	return store.NewStore(db, store.WithEvents(bus)), bus, nil
}

// fileLogger logs to path, or nowhere when path is empty: the terminal
// belongs to the board.
func (app *App) fileLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		path = app.cfg.LogFile
	}
	if path == "" {
		return log.Discard(), func() {}, nil
	}
	if err := config.EnsureDir(path); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(log.Config{
		Level:  log.ParseLevel(app.cfg.LogLevel),
		Format: log.ParseFormat(app.cfg.LogFormat),
		Output: f,
	})
	return logger, func() { _ = f.Close() }, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return id, nil
}

// writeOut prints v inside a {"data": ...} envelope, or as a table when
// --format table is set and v supports it.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	if app.Format == "table" {
		if t, ok := v.(format.Tabular); ok {
			return format.WriteTable(cmd.OutOrStdout(), t)
		}
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

// writeOne prints a single record as an object, or as a one-row table.
func writeOne(cmd *cobra.Command, app *App, v any, row format.Tabular) error {
	if app.Format == "table" {
		return format.WriteTable(cmd.OutOrStdout(), row)
	}
	return writeOut(cmd, app, v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
