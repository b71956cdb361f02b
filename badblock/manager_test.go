package badblock

import (
	"testing"

	"nandctl/nanderr"
)

func TestMarkAndIsBad(t *testing.T) {
	m := New(8)
	if err := m.MarkBad(3); err != nil {
		t.Fatalf("MarkBad: %v", err)
	}
	bad, err := m.IsBad(3)
	if err != nil || !bad {
		t.Fatalf("IsBad(3) = %v, %v; want true, nil", bad, err)
	}
	bad, err = m.IsBad(4)
	if err != nil || bad {
		t.Fatalf("IsBad(4) = %v, %v; want false, nil", bad, err)
	}
}

func TestNextGoodWraps(t *testing.T) {
	m := New(4)
	if err := m.MarkBad(2); err != nil {
		t.Fatalf("MarkBad: %v", err)
	}
	if err := m.MarkBad(3); err != nil {
		t.Fatalf("MarkBad: %v", err)
	}
	got, err := m.NextGood(2)
	if err != nil {
		t.Fatalf("NextGood: %v", err)
	}
	if got != 0 {
		t.Fatalf("NextGood(2) = %d, want 0 (wrap)", got)
	}
}

func TestNextGoodNoneLeft(t *testing.T) {
	m := New(2)
	m.MarkBad(0)
	m.MarkBad(1)
	_, err := m.NextGood(0)
	if !nanderr.Is(err, nanderr.NoGoodBlocks) {
		t.Fatalf("expected NoGoodBlocks, got %v", err)
	}
}

func TestOutOfRange(t *testing.T) {
	m := New(4)
	if _, err := m.IsBad(4); !nanderr.Is(err, nanderr.OutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}
