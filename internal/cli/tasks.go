package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"operaflow/internal/csvio"
	"operaflow/internal/format"
	"operaflow/internal/model"
	"operaflow/internal/store"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "taches"},
		Short:   "Planning tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksSetDatesCmd(app))
	cmd.AddCommand(newTasksSetProgressCmd(app))
	cmd.AddCommand(newTasksSetStatusCmd(app))
	cmd.AddCommand(newTasksAssignCmd(app))
	cmd.AddCommand(newTasksEventsCmd(app))
	cmd.AddCommand(newTasksExportCmd(app))
	cmd.AddCommand(newTasksImportCmd(app))
	cmd.AddCommand(newTasksPublishCmd(app))
	return cmd
}

type taskFilterFlags struct {
	affaire string
	status  string
	from    string
	to      string
	query   string
}

func (f *taskFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.affaire, "affaire", "", "Affaire code")
	cmd.Flags().StringVar(&f.status, "status", "", "Status (non_demarre|en_cours|termine|bloque|reporte)")
	cmd.Flags().StringVar(&f.from, "from", "", "Tasks ending on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Tasks starting on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.query, "q", "", "Search in labels")
}

func (f taskFilterFlags) resolve(cmd *cobra.Command, st *store.Store) (store.Filter, error) {
	out := store.Filter{From: f.from, To: f.to, Query: f.query}
	if strings.TrimSpace(f.status) != "" {
		s, err := model.ParseStatus(f.status)
		if err != nil {
			return store.Filter{}, err
		}
		out.Status = s
	}
	if code := strings.TrimSpace(f.affaire); code != "" {
		a, err := st.FindAffaireByCode(commandContext(cmd), code)
		if err != nil {
			return store.Filter{}, lookupAffaireErr(err, code)
		}
		out.AffaireID = &a.ID
	}
	return out, nil
}

func newTasksListCmd(app *App) *cobra.Command {
	var filter taskFilterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (planned start order)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			f, err := filter.resolve(cmd, st)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.ListTasks(commandContext(cmd), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Tasks(tasks))
		},
	}
	filter.register(cmd)
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				return st.GetTask(commandContext(cmd), id)
			})
		},
	}
}

// withTask opens the store, parses the task id argument and prints what fn
// returns.
func withTask(cmd *cobra.Command, app *App, arg string, fn func(st *store.Store, id int64) (any, error)) error {
	id, err := parseID("task", arg)
	if err != nil {
		return writeErr(cmd, err)
	}
	st, _, err := openStore(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer st.Close()
	out, err := fn(st, id)
	if err != nil {
		return writeErr(cmd, lookupErr(err, "tâche", id))
	}
	if t, ok := out.(model.Task); ok {
		return writeOne(cmd, app, t, format.Tasks{t})
	}
	return writeOut(cmd, app, out)
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		t         model.Task
		status    string
		lotID     int64
		resources []int64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(t.Label) == "" {
				return writeErr(cmd, errMissingFlag("label"))
			}
			s, err := model.ParseStatus(status)
			if err != nil {
				return writeErr(cmd, err)
			}
			t.Status = s
			if lotID > 0 {
				t.LotID = &lotID
			}
			t.ResourceIDs = resources
			if err := model.CheckRange(t.Start, t.End); t.Start != "" && t.End != "" && err != nil {
				return writeErr(cmd, err)
			}

			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			created, err := st.CreateTask(commandContext(cmd), t)
			if err != nil {
				if t.AffaireCode != "" {
					err = lookupAffaireErr(err, t.AffaireCode)
				}
				return writeErr(cmd, err)
			}
			return writeOne(cmd, app, created, format.Tasks{created})
		},
	}
	cmd.Flags().StringVar(&t.Label, "label", "", "Task label (required)")
	cmd.Flags().StringVar(&t.AffaireCode, "affaire", "", "Affaire code")
	cmd.Flags().Int64Var(&lotID, "lot", 0, "Lot id")
	cmd.Flags().StringVar(&t.Site, "site", "", "Site")
	cmd.Flags().StringVar(&t.Type, "type", "", "Task type")
	cmd.Flags().StringVar(&t.Start, "start", "", "Planned start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&t.End, "end", "", "Planned end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&t.Progress, "progress", 0, "Progress percent (0-100)")
	cmd.Flags().StringVar(&status, "status", "", "Status (default non_demarre)")
	cmd.Flags().Int64SliceVar(&resources, "resource", nil, "Resource id (repeatable)")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				if err := st.DeleteTask(commandContext(cmd), id); err != nil {
					return nil, err
				}
				return map[string]any{"id": id, "deleted": true}, nil
			})
		},
	}
}

func newTasksSetDatesCmd(app *App) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "set-dates <task-id>",
		Short: "Set the planned start and end dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				ctx := commandContext(cmd)
				cur, err := st.GetTask(ctx, id)
				if err != nil {
					return nil, err
				}
				u := model.DateUpdate{TaskID: id, Start: cur.Start, End: cur.End}
				if cmd.Flags().Changed("start") {
					u.Start = start
				}
				if cmd.Flags().Changed("end") {
					u.End = end
				}
				return st.UpdateDates(ctx, u)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Planned start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Planned end (YYYY-MM-DD)")
	return cmd
}

func newTasksSetProgressCmd(app *App) *cobra.Command {
	var progress int
	cmd := &cobra.Command{
		Use:   "set-progress <task-id>",
		Short: "Set the progress percentage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("progress") {
				return writeErr(cmd, errMissingFlag("progress"))
			}
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				return st.UpdateProgress(commandContext(cmd), model.ProgressUpdate{TaskID: id, Progress: progress})
			})
		},
	}
	cmd.Flags().IntVar(&progress, "progress", 0, "Progress percent (0-100)")
	return cmd
}

func newTasksSetStatusCmd(app *App) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <task-id>",
		Short: "Set the status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(status) == "" {
				return writeErr(cmd, errMissingFlag("status"))
			}
			s, err := model.ParseStatus(status)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				return st.UpdateTaskStatus(commandContext(cmd), id, s)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Status (non_demarre|en_cours|termine|bloque|reporte)")
	return cmd
}

func newTasksAssignCmd(app *App) *cobra.Command {
	var resources []int64
	cmd := &cobra.Command{
		Use:   "assign <task-id>",
		Short: "Replace the resources assigned to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				return st.AssignResources(commandContext(cmd), id, resources)
			})
		},
	}
	cmd.Flags().Int64SliceVar(&resources, "resource", nil, "Resource id (repeatable; none clears)")
	return cmd
}

func newTasksEventsCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <task-id>",
		Short: "Show the change log of a task (newest first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, app, args[0], func(st *store.Store, id int64) (any, error) {
				ctx := commandContext(cmd)
				if _, err := st.GetTask(ctx, id); err != nil {
					return nil, err
				}
				evs, err := st.ListTaskEvents(ctx, id, limit)
				if err != nil {
					return nil, err
				}
				return format.TaskEvents(evs), nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultEventLimit, "Max events to return")
	return cmd
}

func newTasksExportCmd(app *App) *cobra.Command {
	var (
		filter taskFilterFlags
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()
			f, err := filter.resolve(cmd, st)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.ListTasks(commandContext(cmd), f)
			if err != nil {
				return writeErr(cmd, err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return writeErr(cmd, err)
				}
				defer file.Close()
				w = file
			}
			if err := csvio.Export(w, tasks); err != nil {
				return writeErr(cmd, err)
			}
			if w != cmd.OutOrStdout() {
				return writeOut(cmd, app, map[string]any{"file": out, "exported": len(tasks)})
			}
			return nil
		},
	}
	filter.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
	return cmd
}

func newTasksImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import tasks from CSV (header row required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				defer f.Close()
				r = f
			}
			st, _, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			res, err := csvio.Import(commandContext(cmd), r, st)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("import %s: %w", args[0], err))
			}
			return writeOut(cmd, app, res)
		},
	}
}
