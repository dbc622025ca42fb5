package board

import (
	"fmt"
	"time"
)

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient user-facing message.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
	At      time.Time
}

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s : %v", n.Message, n.Err)
	}
	return n.Message
}

const (
	MsgDatesUpdated    = "Dates mises à jour"
	MsgProgressUpdated = "Avancement mis à jour"
	MsgUpdateFailed    = "Échec de la mise à jour"
	MsgAutosaved       = "Sauvegarde automatique effectuée"
	MsgSaved           = "Planning sauvegardé"
	MsgSaveFailed      = "Échec de la sauvegarde"
	MsgUndone          = "Modification annulée"
	MsgRedone          = "Modification rétablie"
	MsgNothingToUndo   = "Rien à annuler"
	MsgNothingToRedo   = "Rien à rétablir"
	MsgReloaded        = "Planning rechargé"
	MsgReloadFailed    = "Échec du rechargement"
	// MsgReversedSkipped takes the number of tasks left out of a save.
	MsgReversedSkipped = "%d tâche(s) aux dates inversées non sauvegardée(s)"
)
