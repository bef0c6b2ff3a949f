package state

import (
	"errors"
	"testing"
)

func TestRunCommitClearsUndos(t *testing.T) {
	j := NewJournal()
	x := 0

	err := j.Run(func() error {
		x = 1
		j.Append(func() { x = 0 })
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != 1 {
		t.Fatalf("mutation lost on commit: x=%d", x)
	}
	if j.Len() != 0 {
		t.Fatalf("undo stack not cleared after outermost commit: %d", j.Len())
	}
}

func TestRunRevertsInReverseOrder(t *testing.T) {
	j := NewJournal()
	var order []int
	errBoom := errors.New("boom")

	err := j.Run(func() error {
		j.Append(func() { order = append(order, 1) })
		j.Append(func() { order = append(order, 2) })
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("undos not applied in reverse order: %v", order)
	}
}

func TestNestedInnerFailureKeepsOuter(t *testing.T) {
	j := NewJournal()
	outer, inner := 0, 0

	err := j.Run(func() error {
		outer = 1
		j.Append(func() { outer = 0 })

		if err := j.Run(func() error {
			inner = 1
			j.Append(func() { inner = 0 })
			return errors.New("inner failed")
		}); err == nil {
			t.Fatalf("expected inner error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner != 0 {
		t.Fatalf("inner mutation not reverted")
	}
	if outer != 1 {
		t.Fatalf("outer mutation wrongly reverted")
	}
}

func TestNestedOuterFailureUnwindsCommittedInner(t *testing.T) {
	j := NewJournal()
	inner := 0

	err := j.Run(func() error {
		if err := j.Run(func() error {
			inner = 1
			j.Append(func() { inner = 0 })
			return nil
		}); err != nil {
			t.Fatalf("inner frame failed: %v", err)
		}
		return errors.New("outer failed")
	})
	if err == nil {
		t.Fatalf("expected outer error")
	}
	if inner != 0 {
		t.Fatalf("committed inner frame not unwound by outer failure")
	}
}
