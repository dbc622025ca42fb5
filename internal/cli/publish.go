package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"operaflow/internal/publish"
	"operaflow/internal/store"
)

func newTasksPublishCmd(app *App) *cobra.Command {
	var (
		affaire   string
		toDir     string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write a markdown planning report",
		Example: strings.TrimSpace(`
  operaflow tasks publish --to ./rapports
  operaflow tasks publish --affaire AFF-2024-01 --to ./rapports --overwrite
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(toDir) == "" {
				return writeErr(cmd, errMissingFlag("to"))
			}
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := commandContext(cmd)
			var (
				f     store.Filter
				name  string
				title = "toutes affaires"
			)
			if code := strings.TrimSpace(affaire); code != "" {
				a, err := st.FindAffaireByCode(ctx, code)
				if err != nil {
					return writeErr(cmd, lookupAffaireErr(err, code))
				}
				f.AffaireID = &a.ID
				name = a.Code
				title = a.Code
				if a.Name != "" {
					title += " · " + a.Name
				}
			}
			tasks, err := st.ListTasks(ctx, f)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.WritePlanning(tasks, toDir, name, publish.WriteOptions{
				Title:     title,
				Today:     time.Now(),
				Overwrite: overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&affaire, "affaire", "", "Affaire code (default: all tasks)")
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing report")
	return cmd
}
