// Package jobgraph implements spec §5's worker pool: a DAG of independent
// jobs (per-source reflection simulations, per-probe path baking) run
// across a caller-sized pool, with cooperative cancellation via a shared
// atomic flag. It generalizes the teacher's single-writer,
// caller-synchronized method-call posture (piano.Piano never spawns its
// own goroutines; callers own concurrency) into an explicit small pool,
// since no pack dependency supplies a job-DAG scheduler.
package jobgraph

import (
	"sync"
	"sync/atomic"
)

// Job is one unit of work in the graph. Fn receives a pointer to the
// graph's cancellation flag so long loops can poll it at loop-carried
// points (spec §5 "Suspension points").
type Job struct {
	Name      string
	DependsOn []string
	Fn        func(cancel *atomic.Bool)

	deps    int32
	blocks  []*Job
	started atomic.Bool
}

// Graph is a DAG of Jobs, resolved by name, run by a fixed-size worker
// pool. Jobs with no pending dependency are immediately runnable; as each
// job finishes it decrements its dependents' counters.
type Graph struct {
	jobs   map[string]*Job
	order  []*Job
	cancel *atomic.Bool

	ownCancel atomic.Bool
}

// New builds an empty job graph with its own private cancellation flag.
func New() *Graph {
	g := &Graph{jobs: make(map[string]*Job)}
	g.cancel = &g.ownCancel
	return g
}

// NewWithCancel builds an empty job graph sharing an externally-owned
// cancellation flag, so a caller holding the flag (e.g. a façade running
// several graphs over time) can cancel whichever graph is currently
// in-flight without keeping a reference to it (spec §5 "Cancellation").
func NewWithCancel(cancel *atomic.Bool) *Graph {
	return &Graph{jobs: make(map[string]*Job), cancel: cancel}
}

// Add registers a job. DependsOn names must already be registered.
func (g *Graph) Add(j *Job) {
	g.jobs[j.Name] = j
	g.order = append(g.order, j)
}

// resolve wires each job's dependency count and each dependency's
// forward edge list, after every Add call has happened.
func (g *Graph) resolve() {
	for _, j := range g.order {
		j.deps = int32(len(j.DependsOn))
		j.blocks = nil
		j.started.Store(false)
	}
	for _, j := range g.order {
		for _, dep := range j.DependsOn {
			if d, ok := g.jobs[dep]; ok {
				d.blocks = append(d.blocks, j)
			}
		}
	}
}

// Cancel raises the shared cooperative-cancellation flag; jobs already
// running are expected to poll it and return early (spec §5
// "Cancellation is cooperative").
func (g *Graph) Cancel() {
	g.cancel.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (g *Graph) Cancelled() bool {
	return g.cancel.Load()
}

// Run executes every job across a pool of `workers` goroutines, honoring
// dependency order, and blocks until every runnable job has completed or
// the pool has drained after cancellation (spec §5 "the pool drains
// current jobs then returns").
func (g *Graph) Run(workers int) {
	if workers < 1 {
		workers = 1
	}
	g.resolve()

	ready := make(chan *Job, len(g.order))
	var mu sync.Mutex

	enqueueIfReady := func(j *Job) {
		mu.Lock()
		defer mu.Unlock()
		if j.deps == 0 && j.started.CompareAndSwap(false, true) {
			ready <- j
		}
	}

	for _, j := range g.order {
		if j.deps == 0 {
			enqueueIfReady(j)
		}
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	totalRemaining := int32(len(g.order))

	worker := func() {
		for {
			select {
			case j, ok := <-ready:
				if !ok {
					return
				}
				if !g.cancel.Load() {
					j.Fn(g.cancel)
				}
				mu.Lock()
				for _, dep := range j.blocks {
					dep.deps--
					if dep.deps == 0 && dep.started.CompareAndSwap(false, true) {
						ready <- dep
					}
				}
				remaining := atomic.AddInt32(&totalRemaining, -1)
				mu.Unlock()
				if remaining == 0 {
					close(done)
				}
			case <-done:
				return
			}
		}
	}

	if len(g.order) == 0 {
		return
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker()
		}()
	}
	<-done
	close(ready)
	wg.Wait()
}
