package datasource

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SourceStatus is the per-source outcome of a joined load.
type SourceStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report collects the outcome of every source of a joined load.
type Report struct {
	mu      sync.Mutex
	sources map[string]SourceStatus
}

func (r *Report) record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sources == nil {
		r.sources = make(map[string]SourceStatus)
	}
	if err != nil {
		r.sources[name] = SourceStatus{OK: false, Error: err.Error()}
		return
	}
	r.sources[name] = SourceStatus{OK: true}
}

// Sources returns a copy of the per-source status map.
func (r *Report) Sources() map[string]SourceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]SourceStatus, len(r.sources))
	for k, v := range r.sources {
		out[k] = v
	}
	return out
}

// Complete reports whether every source loaded.
func (r *Report) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sources {
		if !s.OK {
			return false
		}
	}
	return true
}

// Task loads one source. It must leave its destination usable (empty) on error.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Load runs every task concurrently and waits for all of them. A failing source
// does not cancel the others; it is only recorded in the report.
func Load(ctx context.Context, tasks ...Task) *Report {
	report := &Report{sources: make(map[string]SourceStatus, len(tasks))}
	var eg errgroup.Group
	for _, task := range tasks {
		task := task
		eg.Go(func() error {
			report.record(task.Name, task.Run(ctx))
			return nil
		})
	}
	_ = eg.Wait()
	return report
}

// Into builds a Task that stores the fetched collection in dst.
func Into[T any](src Source, dst *[]T, fetch func(context.Context) ([]T, error)) Task {
	return Task{
		Name: src.Name,
		Run: func(ctx context.Context) error {
			items, err := fetch(ctx)
			if items == nil {
				items = []T{}
			}
			*dst = items
			return err
		},
	}
}
