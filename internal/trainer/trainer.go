// Package trainer runs SOM training sessions in the background and keeps a
// registry of them for the HTTP and MCP surfaces.
package trainer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sanonone/kektorsom/pkg/config"
	"github.com/sanonone/kektorsom/pkg/metrics"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Trainer tracks all training runs.
type Trainer struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	runs map[string]*Run
	mu   sync.RWMutex
	wg   sync.WaitGroup
}

// New creates a trainer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Trainer{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		runs:   make(map[string]*Run),
	}
}

// Start validates cfg, registers a new run and trains it in the background.
// The run lives as long as the trainer unless cancelled.
func (t *Trainer) Start(cfg config.Config) (*Run, error) {
	run, err := newRun(uuid.New().String(), cfg, t.logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(t.ctx)
	run.cancel = cancel

	t.mu.Lock()
	t.runs[run.ID] = run
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer cancel()
		run.train(ctx)
	}()
	return run, nil
}

// TrainSync trains a run to completion on the calling goroutine. The run is
// registered so it can be inspected while it trains.
func (t *Trainer) TrainSync(ctx context.Context, cfg config.Config) (*Run, error) {
	run, err := newRun(uuid.New().String(), cfg, t.logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	run.cancel = cancel

	t.mu.Lock()
	t.runs[run.ID] = run
	t.mu.Unlock()

	run.train(ctx)
	return run, run.Err()
}

// Get returns the run with the given ID.
func (t *Trainer) Get(id string) (*Run, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, found := t.runs[id]
	if !found {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// List returns snapshots of all runs, oldest first.
func (t *Trainer) List() []Snapshot {
	t.mu.RLock()
	runs := make([]*Run, 0, len(t.runs))
	for _, r := range t.runs {
		runs = append(runs, r)
	}
	t.mu.RUnlock()

	out := make([]Snapshot, len(runs))
	for i, r := range runs {
		out[i] = r.Snapshot()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Remove cancels the run, waits for it to stop and forgets it.
func (t *Trainer) Remove(ctx context.Context, id string) error {
	t.mu.Lock()
	run, found := t.runs[id]
	if found {
		delete(t.runs, id)
	}
	t.mu.Unlock()

	if !found {
		return ErrRunNotFound
	}

	run.Cancel()
	select {
	case <-run.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	metrics.ForgetRun(id)
	t.logger.Info("run removed", "run", id)
	return nil
}

// Shutdown cancels every background run and waits for them to stop.
func (t *Trainer) Shutdown() {
	t.cancel()
	t.wg.Wait()
}
