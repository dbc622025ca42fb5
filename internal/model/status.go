package model

import (
	"fmt"
	"strings"
)

var statusLabels = map[Status]string{
	StatusNotStarted: "Non démarré",
	StatusInProgress: "En cours",
	StatusDone:       "Terminé",
	StatusBlocked:    "Bloqué",
	StatusPostponed:  "Reporté",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the French display label.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts a status id, its French label or a few English aliases.
// An empty string maps to StatusNotStarted.
func ParseStatus(v string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	if key == "" {
		return StatusNotStarted, nil
	}
	if st := Status(key); st.Valid() {
		return st, nil
	}
	for st, label := range statusLabels {
		if strings.EqualFold(label, key) {
			return st, nil
		}
	}
	switch strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key) {
	case "notstarted", "todo", "nondemarre":
		return StatusNotStarted, nil
	case "inprogress", "doing", "encours":
		return StatusInProgress, nil
	case "done", "termine", "complete", "completed":
		return StatusDone, nil
	case "blocked", "bloque":
		return StatusBlocked, nil
	case "postponed", "reporte":
		return StatusPostponed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}
