// Package tui is the interactive terminal Gantt board.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the board until the user leaves. The session's autosave loop
// runs for the lifetime of the program and the session is closed on exit.
func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer opts.Session.Close()
	go opts.Session.Run(ctx)

	m := newBoardModel(ctx, opts)
	_, err := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	).Run()
	return err
}
