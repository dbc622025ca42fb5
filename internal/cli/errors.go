package cli

import (
	"errors"
	"fmt"
	"strconv"

	"operaflow/internal/store"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s introuvable : %s", e.kind, e.id)
}

func (e notFoundError) Unwrap() error { return store.ErrNotFound }

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// lookupErr names what was looked up when err is a store miss.
func lookupErr(err error, kind string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound(kind, strconv.FormatInt(id, 10))
	}
	return err
}

func lookupAffaireErr(err error, code string) error {
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound("affaire", code)
	}
	return err
}

func errMissingFlag(name string) error {
	return fmt.Errorf("missing --%s", name)
}
