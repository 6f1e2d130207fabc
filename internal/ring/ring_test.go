package ring

import (
	"sync"
	"testing"
)

func TestPushDrainOrder(t *testing.T) {
	r := New[int](8)
	for i := 1; i <= 5; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d dropped unexpectedly", i)
		}
	}
	if r.Len() != 5 {
		t.Fatalf("len = %d, want 5", r.Len())
	}

	batch := r.Drain(3)
	if len(batch) != 3 {
		t.Fatalf("drained %d, want 3", len(batch))
	}
	for i, v := range batch {
		if v != i+1 {
			t.Errorf("batch[%d] = %d, want %d", i, v, i+1)
		}
	}

	batch = r.Drain(10)
	if len(batch) != 2 || batch[0] != 4 || batch[1] != 5 {
		t.Errorf("second drain = %v, want [4 5]", batch)
	}
	if r.Drain(10) != nil {
		t.Error("expected nil drain on empty ring")
	}
}

func TestBoundedCapacity(t *testing.T) {
	r := New[int](4)
	accepted := 0
	for i := 0; i < 1000; i++ {
		if r.TryPush(i) {
			accepted++
		}
	}
	if accepted != 4 {
		t.Errorf("accepted %d pushes, want 4", accepted)
	}
	if r.Len() != 4 {
		t.Errorf("len = %d, want 4", r.Len())
	}
}

func TestMinimumCapacity(t *testing.T) {
	r := New[int](0)
	if r.Capacity() != 1 {
		t.Errorf("capacity = %d, want 1", r.Capacity())
	}
}

func TestConcurrentProducersStayBounded(t *testing.T) {
	r := New[int](16)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.TryPush(i)
			}
		}()
	}
	wg.Wait()
	if r.Len() > 16 {
		t.Errorf("len = %d exceeds capacity 16", r.Len())
	}
}
