package queue

import (
	"sync"
	"testing"

	"github.com/trainworks/relink/pkg/core"
)

func TestQueue_New(t *testing.T) {
	q := New[core.ReplacementOrder]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[core.ReplacementOrder]()

	q.Push(core.ReplacementOrder{Unit: 1, TargetType: "loco-mk1-linked"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(core.ReplacementOrder{Unit: 2}, core.ReplacementOrder{Unit: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Pop(t *testing.T) {
	q := New[core.ReplacementOrder]()

	// Pop from empty queue reports no item
	if _, ok := q.Pop(); ok {
		t.Error("expected no item from empty queue")
	}

	q.Push(
		core.ReplacementOrder{Unit: 1, TargetType: "a"},
		core.ReplacementOrder{Unit: 2, TargetType: "b"},
	)
	first, ok := q.Pop()
	if !ok {
		t.Fatal("expected item")
	}
	if first.Unit != 1 || first.TargetType != "a" {
		t.Errorf("expected {1, a}, got %+v", first)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := New[core.TrainID]()
	q.Push(10, 20, 30)

	for _, want := range []core.TrainID{10, 20, 30} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("expected %d, got %d (ok=%v)", want, got, ok)
		}
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[core.TrainID]()
	q.Push(1, 2, 3)

	q.Clear()

	if !q.Empty() {
		t.Error("expected empty queue after clear")
	}
}

func TestQueue_ItemsRestore(t *testing.T) {
	q := New[core.ReplacementOrder]()
	q.Push(
		core.ReplacementOrder{Unit: 1, TargetType: "a"},
		core.ReplacementOrder{Unit: 2, TargetType: "b"},
	)

	saved := q.Items()
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved items, got %d", len(saved))
	}

	// Items returns a copy: mutating it must not affect the queue
	saved[0].Unit = 99
	head, _ := q.Pop()
	if head.Unit != 1 {
		t.Errorf("queue head mutated through Items copy: %+v", head)
	}

	restored := New[core.ReplacementOrder]()
	restored.Restore(saved)
	if restored.Len() != 2 {
		t.Errorf("expected 2 items after restore, got %d", restored.Len())
	}

	// Restoring nil yields an empty queue, not an error
	restored.Restore(nil)
	if !restored.Empty() {
		t.Error("expected empty queue after nil restore")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[core.TrainID]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(core.TrainID(id))
		}(i)
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}
