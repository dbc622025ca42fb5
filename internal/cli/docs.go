package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"operaflow/internal/docs"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show the user guide (board, csv, api, config)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"topics": docs.Topics()})
			}
			md, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown topic %q (available: %s)", args[0], strings.Join(docs.Topics(), ", ")))
			}
			if !raw {
				r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("notty"), glamour.WithWordWrap(80))
				if err == nil {
					if out, err := r.Render(md); err == nil {
						md = out
					}
				}
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")
	return cmd
}
