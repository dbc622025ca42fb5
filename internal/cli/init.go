package cli

import (
	"os"

	"github.com/spf13/cobra"

	"operaflow/internal/config"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			created := false
			if _, err := os.Stat(app.ConfigPath); os.IsNotExist(err) {
				if err := config.Save(app.ConfigPath, app.cfg); err != nil {
					return writeErr(cmd, err)
				}
				created = true
			}
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			return writeOut(cmd, app, map[string]any{
				"config":         app.ConfigPath,
				"config_created": created,
				"db":             app.cfg.DBPath,
			})
		},
	}
}
