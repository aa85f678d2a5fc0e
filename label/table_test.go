package label

import (
	"sync"
	"testing"
)

func TestTrySetFirstWriterWins(t *testing.T) {
	tbl := New(1)
	if !tbl.TrySet(0, 5, 42, 1, 3) {
		t.Fatal("first TrySet should succeed on an unlabeled slot")
	}
	if tbl.TrySet(0, 9, 99, 2, 7) {
		t.Fatal("second TrySet on an already-labeled slot should fail")
	}

	got := tbl.Get(0)
	if got.Value() != 5 || got.PrevNode != 42 || got.PrevWorker != 1 || got.PrevLocal != 3 {
		t.Fatalf("label = %+v, want the first writer's values", got)
	}
}

func TestTrySetConcurrentOnlyOneWinner(t *testing.T) {
	tbl := New(1)
	const n = 64
	var wg sync.WaitGroup
	wins := make([]bool, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			wins[i] = tbl.TrySet(0, int64(i+1), uint64(i), i, uint32(i))
		}(i)
	}
	wg.Wait()

	winCount := 0
	for _, w := range wins {
		if w {
			winCount++
		}
	}
	if winCount != 1 {
		t.Fatalf("winCount = %d, want exactly 1", winCount)
	}
}

func TestReset(t *testing.T) {
	tbl := New(4)
	for i := uint32(0); i < 4; i++ {
		tbl.TrySet(i, 1, 0, 0, 0)
	}
	tbl.Reset(2)
	for i := uint32(0); i < 4; i++ {
		if tbl.Get(i).Value() != 0 {
			t.Fatalf("slot %d not cleared by Reset", i)
		}
	}
	// A cleared slot should accept a fresh label.
	if !tbl.TrySet(0, 7, 0, 0, 0) {
		t.Fatal("slot should be writable again after Reset")
	}
}

func TestLen(t *testing.T) {
	tbl := New(9)
	if tbl.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", tbl.Len())
	}
}
