package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"operaflow/internal/format"
	"operaflow/internal/model"
)

func newAffairesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "affaires",
		Short: "Affaires (projects)",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List affaires",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			as, err := st.ListAffaires(commandContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Affaires(as))
		},
	}

	var a model.Affaire
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an affaire",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(a.Code) == "" {
				return writeErr(cmd, errMissingFlag("code"))
			}
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			created, err := st.CreateAffaire(commandContext(cmd), a)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOne(cmd, app, created, format.Affaires{created})
		},
	}
	createCmd.Flags().StringVar(&a.Code, "code", "", "Affaire code (required, unique)")
	createCmd.Flags().StringVar(&a.Name, "name", "", "Name")
	createCmd.Flags().StringVar(&a.Client, "client", "", "Client")
	createCmd.Flags().StringVar(&a.Site, "site", "", "Site")

	cmd.AddCommand(listCmd, createCmd)
	return cmd
}

func newLotsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lots",
		Short: "Work packages of an affaire",
	}

	var listAffaire string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List lots",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			ctx := commandContext(cmd)
			var affaireID int64
			if code := strings.TrimSpace(listAffaire); code != "" {
				a, err := st.FindAffaireByCode(ctx, code)
				if err != nil {
					return writeErr(cmd, lookupAffaireErr(err, code))
				}
				affaireID = a.ID
			}
			lots, err := st.ListLots(ctx, affaireID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Lots(lots))
		},
	}
	listCmd.Flags().StringVar(&listAffaire, "affaire", "", "Affaire code")

	var (
		createAffaire string
		l             model.Lot
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lot",
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(createAffaire)
			if code == "" {
				return writeErr(cmd, errMissingFlag("affaire"))
			}
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			ctx := commandContext(cmd)
			a, err := st.FindAffaireByCode(ctx, code)
			if err != nil {
				return writeErr(cmd, lookupAffaireErr(err, code))
			}
			l.AffaireID = a.ID
			created, err := st.CreateLot(ctx, l)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOne(cmd, app, created, format.Lots{created})
		},
	}
	createCmd.Flags().StringVar(&createAffaire, "affaire", "", "Affaire code (required)")
	createCmd.Flags().StringVar(&l.Code, "code", "", "Lot code")
	createCmd.Flags().StringVar(&l.Name, "name", "", "Name")

	cmd.AddCommand(listCmd, createCmd)
	return cmd
}

func newResourcesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resources",
		Aliases: []string{"ressources"},
		Short:   "People and equipment assignable to tasks",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			rs, err := st.ListResources(commandContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Resources(rs))
		},
	}

	var r model.Resource
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			created, err := st.CreateResource(commandContext(cmd), r)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOne(cmd, app, created, format.Resources{created})
		},
	}
	createCmd.Flags().StringVar(&r.Name, "name", "", "Name (required)")
	createCmd.Flags().StringVar(&r.Kind, "type", "", "Kind (personne, engin, ...)")

	cmd.AddCommand(listCmd, createCmd)
	return cmd
}
