package jobgraph

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunExecutesInDependencyOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func(*atomic.Bool) {
		return func(*atomic.Bool) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	g := New()
	g.Add(&Job{Name: "a", Fn: record("a")})
	g.Add(&Job{Name: "b", DependsOn: []string{"a"}, Fn: record("b")})
	g.Add(&Job{Name: "c", DependsOn: []string{"a"}, Fn: record("c")})
	g.Add(&Job{Name: "d", DependsOn: []string{"b", "c"}, Fn: record("d")})

	g.Run(4)

	if len(order) != 4 {
		t.Fatalf("expected 4 jobs to run, got %d: %v", len(order), order)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos["a"] > pos["b"] || pos["a"] > pos["c"] {
		t.Errorf("a must run before b and c: %v", order)
	}
	if pos["b"] > pos["d"] || pos["c"] > pos["d"] {
		t.Errorf("d must run after b and c: %v", order)
	}
}

func TestRunAllIndependentJobs(t *testing.T) {
	var count int32
	g := New()
	for i := 0; i < 10; i++ {
		name := string(rune('a' + i))
		g.Add(&Job{Name: name, Fn: func(*atomic.Bool) { atomic.AddInt32(&count, 1) }})
	}
	g.Run(3)
	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
}

func TestCancelStopsFutureJobs(t *testing.T) {
	g := New()
	var ran int32
	g.Add(&Job{Name: "a", Fn: func(cancel *atomic.Bool) {
		cancel.Store(true)
		atomic.AddInt32(&ran, 1)
	}})
	g.Add(&Job{Name: "b", DependsOn: []string{"a"}, Fn: func(cancel *atomic.Bool) {
		if cancel.Load() {
			return
		}
		atomic.AddInt32(&ran, 1)
	}})
	g.Run(1)
	if !g.Cancelled() {
		t.Fatal("graph should report cancelled")
	}
	if ran != 1 {
		t.Fatalf("ran = %d, want 1 (b should observe cancellation and skip work)", ran)
	}
}

func TestRunEmptyGraph(t *testing.T) {
	g := New()
	g.Run(2) // must not hang or panic
}

func TestNewWithCancelSharesExternalFlag(t *testing.T) {
	var shared atomic.Bool
	shared.Store(true)

	var ran int32
	g := NewWithCancel(&shared)
	g.Add(&Job{Name: "a", Fn: func(*atomic.Bool) { atomic.AddInt32(&ran, 1) }})
	g.Run(1)

	if ran != 0 {
		t.Fatalf("job ran despite externally pre-cancelled flag")
	}
	if !g.Cancelled() {
		t.Fatal("graph should report the externally-set cancellation")
	}
}
