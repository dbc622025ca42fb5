package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"operaflow/internal/docs"
)

func helpMarkdown() string {
	if md, ok := docs.Get("board"); ok {
		return md
	}
	return "# Planning OperaFlow\n\nAide indisponible."
}

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. WithAutoStyle may block on terminal
	// queries, so a fixed style is resolved up front.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("OPERAFLOW_TUI_MD_STYLE"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	}
	if dark, ok := themeIsDark(); ok {
		if dark {
			return "dark"
		}
		return "light"
	}
	return "dark"
}
