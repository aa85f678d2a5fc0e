package queue

import (
	"sync"
	"testing"
)

func TestPushPop(t *testing.T) {
	q := New()
	if !q.IsEmpty() {
		t.Fatal("new queue should be empty")
	}
	q.Push(Entry{LocalVertex: 1})
	q.Push(Entry{LocalVertex: 2})
	if q.IsEmpty() {
		t.Fatal("queue with entries reports empty")
	}

	e, ok := q.Pop()
	if !ok || e.LocalVertex != 1 {
		t.Fatalf("Pop() = %+v, %v, want LocalVertex 1", e, ok)
	}
	e, ok = q.Pop()
	if !ok || e.LocalVertex != 2 {
		t.Fatalf("Pop() = %+v, %v, want LocalVertex 2", e, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() on drained queue returned ok")
	}
}

func TestFragmentMergeInto(t *testing.T) {
	q := New()
	var frag Fragment
	if !frag.Empty() {
		t.Fatal("new fragment should be empty")
	}
	frag.Append(Entry{LocalVertex: 10})
	frag.Append(Entry{LocalVertex: 11})
	frag.Append(Entry{LocalVertex: 12})

	q.MergeInto(&frag)
	if !frag.Empty() {
		t.Fatal("fragment should be empty after merge")
	}

	var got []uint32
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, e.LocalVertex)
	}
	want := []uint32{10, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMergeEmptyFragmentIsNoOp(t *testing.T) {
	q := New()
	q.Push(Entry{LocalVertex: 1})
	var frag Fragment
	q.MergeInto(&frag)
	e, ok := q.Pop()
	if !ok || e.LocalVertex != 1 {
		t.Fatalf("merging an empty fragment disturbed the queue: %+v, %v", e, ok)
	}
}

func TestReset(t *testing.T) {
	q := New()
	q.Push(Entry{LocalVertex: 1})
	q.Push(Entry{LocalVertex: 2})
	q.Reset()
	if !q.IsEmpty() {
		t.Fatal("queue should be empty after Reset")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() after Reset returned ok")
	}
}

func TestConcurrentPushPop(t *testing.T) {
	q := New()
	const n = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(Entry{LocalVertex: uint32(i)})
		}
	}()

	popped := 0
	go func() {
		defer wg.Done()
		for popped < n {
			if _, ok := q.Pop(); ok {
				popped++
			}
		}
	}()
	wg.Wait()
	if popped != n {
		t.Fatalf("popped %d entries, want %d", popped, n)
	}
}
