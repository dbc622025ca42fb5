package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	MoveLeft    key.Binding
	MoveRight   key.Binding
	EndEarlier  key.Binding
	EndLater    key.Binding
	StartEarly  key.Binding
	StartLater  key.Binding
	ProgressUp  key.Binding
	ProgressDn  key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	Undo        key.Binding
	Redo        key.Binding
	Save        key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
	ModalToggle key.Binding
	ModalAccept key.Binding
	ModalCancel key.Binding
	ModalSave   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "haut")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "bas")),
		MoveLeft:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-1 j")),
		MoveRight:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+1 j")),
		EndEarlier:  key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "fin -1 j")),
		EndLater:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "fin +1 j")),
		StartEarly:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "début -1 j")),
		StartLater:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "début +1 j")),
		ProgressUp:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "avancement +10")),
		ProgressDn:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "avancement -10")),
		ZoomIn:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom +")),
		ZoomOut:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom -")),
		Undo:        key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "annuler")),
		Redo:        key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "rétablir")),
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sauver")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recharger")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "aide")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quitter")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
		ModalToggle: key.NewBinding(key.WithKeys("tab", "shift+tab", "left", "right")),
		ModalAccept: key.NewBinding(key.WithKeys("enter")),
		ModalCancel: key.NewBinding(key.WithKeys("esc", "ctrl+g")),
		ModalSave:   key.NewBinding(key.WithKeys("s")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MoveRight, k.EndLater, k.ProgressUp, k.Undo, k.Redo, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.MoveLeft, k.MoveRight},
		{k.EndEarlier, k.EndLater, k.StartEarly, k.StartLater},
		{k.ProgressUp, k.ProgressDn, k.ZoomIn, k.ZoomOut},
		{k.Undo, k.Redo, k.Save, k.Reload, k.Help, k.Quit},
	}
}
