package main

import (
	"os"
	"strconv"
	"strings"

	"operaflow/internal/cli"
)

func isTaskID(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.ParseInt(s, 10, 64)
	return err == nil && id > 0
}

// rewriteDirectTaskLookupArgs makes `operaflow 12` work like
// `operaflow tasks show 12`. Cobra treats the first positional token as a
// subcommand, so argv is rewritten before parsing; persistent flags may
// come first.
func rewriteDirectTaskLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	// Unknown flags are skipped without their value so a task id is never
	// consumed as one.
	valueFlags := map[string]bool{
		"--config":    true,
		"--db":        true,
		"--format":    true,
		"--log-level": true,
	}

	insert := func(at int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:at]...)
		out = append(out, "tasks", "show")
		return append(out, argv[at:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isTaskID(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		case isTaskID(a):
			return insert(i)
		default:
			return argv
		}
	}
	return argv
}

func main() {
	os.Args = rewriteDirectTaskLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
