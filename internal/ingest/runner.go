package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"sailperf/internal/source"
)

// Runner runs one worker per source concurrently against a shared pipeline.
type Runner struct {
	mu      sync.Mutex
	workers []*Worker

	// OnError, if set, is called as soon as a source fails to open.
	OnError func(source string, err error)
}

func NewRunner(p *Pipeline, sources []source.Source, opts ...WorkerOption) *Runner {
	r := &Runner{}
	for _, src := range sources {
		r.workers = append(r.workers, NewWorker(src, p, opts...))
	}
	return r
}

// Add registers w. Workers added after Run has started are not run.
func (r *Runner) Add(w *Worker) {
	r.mu.Lock()
	r.workers = append(r.workers, w)
	r.mu.Unlock()
}

func (r *Runner) Workers() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Worker(nil), r.workers...)
}

// Run blocks until every worker has stopped. It returns the first source
// acquisition error; a failing source never stops the others.
func (r *Runner) Run(ctx context.Context) error {
	workers := r.Workers()
	if len(workers) == 0 {
		return source.ErrNoSources
	}
	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			err := w.Run(ctx)
			if err != nil && r.OnError != nil {
				r.OnError(w.Name(), err)
			}
			return err
		})
	}
	return g.Wait()
}

// Started counts the workers whose source was acquired.
func (r *Runner) Started() int {
	n := 0
	for _, w := range r.Workers() {
		if w.Opened() {
			n++
		}
	}
	return n
}

// Snapshots reports every worker in registration order.
func (r *Runner) Snapshots() []WorkerSnapshot {
	workers := r.Workers()
	out := make([]WorkerSnapshot, 0, len(workers))
	for _, w := range workers {
		out = append(out, w.Snapshot())
	}
	return out
}
