package cli

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"operaflow/internal/board"
	"operaflow/internal/client"
	"operaflow/internal/events"
	"operaflow/internal/log"
	"operaflow/internal/metrics"
	"operaflow/internal/model"
	"operaflow/internal/store"
	"operaflow/internal/tui"
	"operaflow/internal/web"
)

type boardOptions struct {
	affaire string
	remote  string
	zoom    float64
	logFile string
	serve   string
}

func newBoardCmd(app *App) *cobra.Command {
	var opts boardOptions
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive Gantt board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, app, opts)
		},
	}
	cmd.Flags().StringVar(&opts.affaire, "affaire", "", "Only show tasks of this affaire code")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "Edit through the HTTP API at this URL instead of the local database")
	cmd.Flags().Float64Var(&opts.zoom, "zoom", 0, "Initial zoom (0.25 to 4)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	cmd.Flags().StringVar(&opts.serve, "serve", "", "Also serve the HTTP API on this address while the board is open")
	return cmd
}

// boardSource is where the board reads and writes tasks.
type boardSource struct {
	updater board.Updater
	load    tui.LoadFunc
	events  <-chan events.Event
	title   string
	close   func()
}

func runBoard(cmd *cobra.Command, app *App, opts boardOptions) error {
	logger, closeLog, err := app.fileLogger(opts.logFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	reg, m := metrics.NewRegistry()

	remote := strings.TrimSpace(opts.remote)
	if remote == "" {
		remote = app.cfg.RemoteURL
	}
	var src boardSource
	if remote != "" {
		src, err = remoteSource(ctx, app, remote, opts.affaire)
	} else {
		src, err = localSource(ctx, app, opts, logger, m, reg)
	}
	if err != nil {
		return writeErr(cmd, err)
	}
	defer src.close()

	tasks, err := src.load(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	zoom := opts.zoom
	if zoom == 0 {
		zoom = app.cfg.DefaultZoom
	}
	notices := tui.NewNotices()
	sess := board.NewSession(board.Options{
		Updater:          src.updater,
		Tasks:            tasks,
		Zoom:             zoom,
		HistoryLimit:     app.cfg.HistoryLimit,
		AutosaveInterval: app.cfg.AutosaveInterval(),
		Logger:           logger,
		Metrics:          m,
		Notify:           notices.Push,
	})
	logger.Info("board opened", "tasks", len(tasks), "remote", remote != "")

	err = tui.Run(ctx, tui.Options{
		Session: sess,
		Notices: notices,
		Events:  src.events,
		Load:    src.load,
		Title:   src.title,
		Logger:  logger,
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func localSource(ctx context.Context, app *App, opts boardOptions, logger *log.Logger, m *metrics.Metrics, reg prometheus.Gatherer) (boardSource, error) {
	st, bus, err := openStore(app)
	if err != nil {
		return boardSource{}, err
	}
	src := boardSource{updater: st, title: "Toutes les affaires"}
	var f store.Filter
	if code := strings.TrimSpace(opts.affaire); code != "" {
		a, err := st.FindAffaireByCode(ctx, code)
		if err != nil {
			_ = st.Close()
			return boardSource{}, lookupAffaireErr(err, code)
		}
		f.AffaireID = &a.ID
		src.title = strings.TrimSpace(a.Code + " " + a.Name)
	}
	src.load = func(ctx context.Context) ([]model.Task, error) { return st.ListTasks(ctx, f) }

	sub, unsubscribe := bus.Subscribe(events.TaskCreated, events.TaskUpdated, events.TaskDeleted, events.TasksImported, events.TasksSaved)
	src.events = sub

	serveCtx, stopServe := context.WithCancel(ctx)
	if addr := strings.TrimSpace(opts.serve); addr != "" {
		srv, err := web.NewServer(st, web.Config{
			Addr:      addr,
			JWTSecret: app.cfg.JWTSecret,
			Logger:    logger,
			Metrics:   m,
			Gatherer:  reg,
			Bus:       bus,
		})
		if err != nil {
			stopServe()
			unsubscribe()
			_ = st.Close()
			return boardSource{}, err
		}
		go func() {
			if err := srv.ListenAndServe(serveCtx); err != nil {
				logger.WithError(err).Error("api server stopped")
			}
		}()
	}
	src.close = func() {
		stopServe()
		unsubscribe()
		_ = st.Close()
	}
	return src, nil
}

func remoteSource(ctx context.Context, app *App, baseURL, affaire string) (boardSource, error) {
	var opts []client.Option
	if app.cfg.APIToken != "" {
		opts = append(opts, client.WithToken(app.cfg.APIToken))
	}
	c, err := client.New(baseURL, opts...)
	if err != nil {
		return boardSource{}, err
	}
	src := boardSource{updater: c, title: baseURL, close: func() {}}
	var q client.TaskQuery
	if code := strings.TrimSpace(affaire); code != "" {
		affaires, err := c.ListAffaires(ctx)
		if err != nil {
			return boardSource{}, err
		}
		found := false
		for _, a := range affaires {
			if strings.EqualFold(a.Code, code) {
				id := a.ID
				q.AffaireID = &id
				src.title = strings.TrimSpace(a.Code + " " + a.Name)
				found = true
				break
			}
		}
		if !found {
			return boardSource{}, errNotFound("affaire", code)
		}
	}
	src.load = func(ctx context.Context) ([]model.Task, error) { return c.ListTasks(ctx, q) }
	return src, nil
}
