package layout

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
)

func TestPlacementDrawSequencing(t *testing.T) {
	pl := NewPlacement(newLineBackend(3, 10, 10))
	if err := pl.Draw(nil, matrix.Identity); !errors.Is(err, ErrNoPlacement) {
		t.Fatalf("Draw before Place: err = %v", err)
	}
	if _, _, err := pl.Place(R(0, 0, 10, 20)); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := pl.Draw(nil, matrix.Identity); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := pl.Draw(nil, matrix.Identity); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("second Draw: err = %v", err)
	}
	pl.Reset()
	if err := pl.Draw(nil, matrix.Identity); !errors.Is(err, ErrNoPlacement) {
		t.Fatalf("Draw after Reset: err = %v", err)
	}
}

func TestPlacementRejectsDegenerateRect(t *testing.T) {
	b := newLineBackend(3, 10, 10)
	pl := NewPlacement(b)
	if _, _, err := pl.Place(R(0, 0, 10, 10)); err != nil {
		t.Fatalf("Place: %v", err)
	}
	more, _, err := pl.Place(R(0, 0, 0, 10))
	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want *GeometryError", err)
	}
	if !more || b.next != 1 {
		t.Fatalf("cursor moved on a rejected rect: more=%v next=%d", more, b.next)
	}
}

func TestPlacementConsumesAllContentOnce(t *testing.T) {
	pl := NewPlacement(newLineBackend(10, 10, 1))
	var ids []string
	var rounds int
	for {
		rounds++
		more, filled, err := pl.Place(R(0, 0, 20, 3))
		if err != nil {
			t.Fatalf("Place: %v", err)
		}
		if filled.Y1 > 3 {
			t.Fatalf("filled %+v exceeds the region", filled)
		}
		for _, p := range pl.Positions() {
			ids = append(ids, p.ID)
		}
		if !more {
			break
		}
	}
	want := []string{"l0", "l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("placed ids (-want +got):\n%s", diff)
	}
	if rounds != 4 || !pl.Done() {
		t.Fatalf("rounds = %d, done = %v", rounds, pl.Done())
	}
}

func TestPlacementResetIsIdempotent(t *testing.T) {
	pl := NewPlacement(newLineBackend(7, 10, 4))
	regions := []Rect{R(0, 0, 10, 9), R(0, 0, 10, 13), R(5, 5, 15, 30)}
	type out struct {
		More      bool
		Filled    Rect
		Positions []Position
	}
	run := func() []out {
		pl.Reset()
		var res []out
		for _, r := range regions {
			more, filled, err := pl.Place(r)
			if err != nil {
				t.Fatalf("Place: %v", err)
			}
			res = append(res, out{more, filled, pl.Positions()})
		}
		return res
	}
	first := run()
	second := run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}
