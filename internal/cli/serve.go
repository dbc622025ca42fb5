package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"operaflow/internal/metrics"
	"operaflow/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr    string
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, bus, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if strings.TrimSpace(addr) == "" {
				addr = app.cfg.WebAddr
			}
			reg, m := metrics.NewRegistry()
			srv, err := web.NewServer(st, web.Config{
				Addr:         addr,
				JWTSecret:    app.cfg.JWTSecret,
				AllowOrigins: origins,
				Logger:       app.logger,
				Metrics:      m,
				Gatherer:     reg,
				Bus:          bus,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.cfg.JWTSecret == "" {
				app.logger.Warn("OPERAFLOW_JWT_SECRET is not set; the API is unauthenticated")
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: config web_addr)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS allowed origin (repeatable)")
	return cmd
}

func newTokenCmd(app *App) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API (needs OPERAFLOW_JWT_SECRET)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(subject) == "" {
				return writeErr(cmd, errMissingFlag("subject"))
			}
			tok, err := web.IssueToken(app.cfg.JWTSecret, subject, ttl)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"token":      tok,
				"subject":    subject,
				"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (user name)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
