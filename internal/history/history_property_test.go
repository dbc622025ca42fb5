package history

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func genList() *rapid.Generator[[]row] {
	return rapid.Custom(func(t *rapid.T) []row {
		ids := rapid.SliceOfN(rapid.IntRange(0, 1000), 0, 8).Draw(t, "ids")
		return list(ids...)
	})
}

// N pushes followed by N undos land on the first snapshot; redos replay the
// exact same contents in order.
func TestHistory_UndoRedoRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, DefaultLimit).Draw(t, "n")
		h := New[row]()
		pushed := make([][]row, 0, n)
		for i := 0; i < n; i++ {
			l := genList().Draw(t, "list")
			h.Push(l, Explicit())
			pushed = append(pushed, l)
		}

		for i := 0; i < n; i++ {
			h.Undo()
		}
		if !reflect.DeepEqual(normalize(h.Current()), normalize(pushed[0])) {
			t.Fatalf("after %d undos expected initial snapshot %v, got %v", n, pushed[0], h.Current())
		}

		for i := 1; i < n; i++ {
			got, ok := h.Redo()
			if !ok {
				t.Fatalf("redo %d failed", i)
			}
			if !reflect.DeepEqual(normalize(got), normalize(pushed[i])) {
				t.Fatalf("redo %d: expected %v, got %v", i, pushed[i], got)
			}
		}
		if _, ok := h.Redo(); ok {
			t.Fatalf("redo past the newest snapshot must fail")
		}
	})
}

// The sequence never exceeds its limit and the cursor always points at the
// newest snapshot after an explicit push.
func TestHistory_BoundedAndCursorOnNewest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 10).Draw(t, "limit")
		h := New[row](WithLimit(limit))
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "action") {
			case 0:
				l := genList().Draw(t, "list")
				h.Push(l, Explicit())
				if h.Cursor() != h.Len()-1 {
					t.Fatalf("cursor %d not on newest (len %d)", h.Cursor(), h.Len())
				}
				if !reflect.DeepEqual(normalize(h.Current()), normalize(l)) {
					t.Fatalf("current %v != pushed %v", h.Current(), l)
				}
			case 1:
				h.Undo()
			case 2:
				h.Redo()
			}
			if h.Len() > limit {
				t.Fatalf("len %d exceeds limit %d", h.Len(), limit)
			}
		}
	})
}

func normalize(l []row) []row {
	if len(l) == 0 {
		return nil
	}
	return l
}
