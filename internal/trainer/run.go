package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/sanonone/kektorsom/pkg/config"
	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/frames"
	"github.com/sanonone/kektorsom/pkg/metrics"
	"github.com/sanonone/kektorsom/pkg/som"
)

// Status defines the possible states of a run.
type Status string

const (
	StatusStarted   Status = "started"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// ErrDimensionMismatch is returned when a query vector does not match the lattice.
var ErrDimensionMismatch = errors.New("vector dimension does not match the lattice")

// Run is one training session: an engine, its sample set and its frame history.
type Run struct {
	ID string

	cfg      config.Config
	seed     int64
	samples  []som.Node
	rng      *rand.Rand
	recorder *frames.Recorder
	logger   *slog.Logger

	// mu guards the engine and the status fields below.
	mu         sync.RWMutex
	engine     *som.Engine
	status     Status
	progress   string
	err        error
	qe         float64
	startedAt  time.Time
	finishedAt time.Time
	lastFrame  *frames.Frame

	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshot is a point-in-time, serializable view of a run.
type Snapshot struct {
	ID                string       `json:"id"`
	Status            Status       `json:"status"`
	ProgressMessage   string       `json:"progress_message,omitempty"`
	Error             string       `json:"error,omitempty"`
	Seed              int64        `json:"seed"`
	Rows              int          `json:"rows"`
	Cols              int          `json:"cols"`
	Dim               int          `json:"dim"`
	StepsApplied      int          `json:"steps_applied"`
	Iterations        int          `json:"iterations"`
	Radius            float64      `json:"radius"`
	LearningRate      float64      `json:"learning_rate"`
	QuantizationError float64      `json:"quantization_error"`
	Frames            int          `json:"frames"`
	Schedule          som.Schedule `json:"schedule"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"`
}

func newRun(id string, cfg config.Config, logger *slog.Logger) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Training.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// One generator initializes the lattice and then picks samples, so the
	// seed alone reproduces a run.
	rng := rand.New(rand.NewSource(seed))

	eng, err := som.New(cfg.EngineOptions(), rng)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	r := &Run{
		ID:      id,
		cfg:     cfg,
		seed:    seed,
		samples: cfg.SampleNodes(),
		rng:     rng,
		logger:  logger.With("run", id),
		engine:  eng,
		status:  StatusStarted,
		done:    make(chan struct{}),
	}

	if cfg.Frames.Every > 0 {
		precision, _ := distance.ParsePrecision(cfg.Frames.Precision)
		r.recorder = frames.NewRecorder(cfg.Frames.Capacity, precision)
		r.recordFrame(0, eng.Lattice())
	}
	return r, nil
}

// train performs the configured number of steps, checking ctx between steps.
func (r *Run) train(ctx context.Context) {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			r.finish(StatusFailed, fmt.Errorf("training panicked: %v", p))
		}
	}()

	iterations := r.cfg.Training.Iterations
	logEvery := r.cfg.Training.LogEvery
	every := r.cfg.Frames.Every

	r.mu.Lock()
	r.status = StatusRunning
	r.startedAt = time.Now()
	r.mu.Unlock()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	r.logger.Info("training started",
		"rows", r.cfg.Lattice.Rows,
		"cols", r.cfg.Lattice.Cols,
		"iterations", iterations,
		"samples", len(r.samples),
		"seed", r.seed,
	)

	lastLog := time.Now()
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			r.finish(StatusCancelled, ctx.Err())
			return
		default:
		}

		sample := r.samples[r.rng.Intn(len(r.samples))]

		start := time.Now()
		applied, radius, rate, snapshot := r.step(sample, every)
		metrics.UpdateDuration.Observe(time.Since(start).Seconds())

		metrics.TrainingSteps.WithLabelValues(r.ID).Inc()
		metrics.NeighborhoodRadius.WithLabelValues(r.ID).Set(radius)
		metrics.LearningRate.WithLabelValues(r.ID).Set(rate)

		if snapshot != nil {
			r.recordFrame(applied, snapshot)
		}

		if logEvery > 0 && time.Since(lastLog) >= logEvery {
			lastLog = time.Now()
			qe := r.measure()
			r.setProgress(fmt.Sprintf("step %d/%d", applied, iterations))
			r.logger.Info("training progress",
				"step", applied,
				"iterations", iterations,
				"radius", radius,
				"learning_rate", rate,
				"quantization_error", qe,
			)
		}
	}

	if r.recorder != nil {
		if latest, err := r.recorder.Latest(); err != nil || latest.Step != iterations {
			r.recordFrame(iterations, r.Lattice())
		}
	}
	r.finish(StatusCompleted, nil)
}

// step applies one update and returns the step it trained at, the radius and
// rate it used, and a lattice copy when a frame is due.
func (r *Run) step(sample som.Node, every int) (int, float64, float64, *som.Lattice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	radius, rate := r.engine.Radius(), r.engine.LearningRate()
	r.engine.Update(sample)
	applied := r.engine.Step() - 1

	var snapshot *som.Lattice
	if every > 0 && applied%every == 0 {
		snapshot = r.engine.Lattice()
	}
	return applied, radius, rate, snapshot
}

// measure recomputes the quantization error over the sample set.
func (r *Run) measure() float64 {
	r.mu.RLock()
	qe := r.engine.QuantizationError(r.samples)
	r.mu.RUnlock()

	r.mu.Lock()
	r.qe = qe
	r.mu.Unlock()

	metrics.QuantizationError.WithLabelValues(r.ID).Set(qe)
	return qe
}

func (r *Run) recordFrame(step int, l *som.Lattice) {
	f, err := r.recorder.Record(step, l)
	if err != nil {
		r.logger.Warn("failed to record frame", "step", step, "error", err)
		return
	}

	r.mu.Lock()
	prev := r.lastFrame
	r.lastFrame = &f
	r.mu.Unlock()

	if prev == nil {
		return
	}
	drift, err := frames.Drift(*prev, f)
	if err != nil {
		r.logger.Warn("failed to compare frames", "error", err)
		return
	}
	metrics.FrameDrift.WithLabelValues(r.ID).Set(drift)
	r.logger.Debug("frame recorded", "step", step, "drift", drift, "bytes", f.SizeBytes())
}

func (r *Run) finish(status Status, err error) {
	var qe float64
	if status != StatusFailed {
		qe = r.measure()
	}

	r.mu.Lock()
	r.status = status
	r.err = err
	r.finishedAt = time.Now()
	steps := r.engine.Step() - 1
	elapsed := r.finishedAt.Sub(r.startedAt)
	r.progress = fmt.Sprintf("step %d/%d", steps, r.cfg.Training.Iterations)
	r.mu.Unlock()

	switch status {
	case StatusCompleted:
		r.logger.Info("training completed", "steps", steps, "quantization_error", qe, "elapsed", elapsed.String())
	case StatusCancelled:
		r.logger.Warn("training cancelled", "steps", steps, "reason", err)
	default:
		r.logger.Error("training failed", "steps", steps, "error", err)
	}
}

func (r *Run) setProgress(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = message
}

// Config returns the configuration the run was started with.
func (r *Run) Config() config.Config { return r.cfg }

// Status returns the current status.
func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Err returns the error that ended the run, if any.
func (r *Run) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Snapshot returns the current state of the run.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, cols := r.engine.Size()
	s := Snapshot{
		ID:                r.ID,
		Status:            r.status,
		ProgressMessage:   r.progress,
		Seed:              r.seed,
		Rows:              rows,
		Cols:              cols,
		Dim:               r.engine.Dim(),
		StepsApplied:      r.engine.Step() - 1,
		Iterations:        r.cfg.Training.Iterations,
		Radius:            r.engine.Radius(),
		LearningRate:      r.engine.LearningRate(),
		QuantizationError: r.qe,
		Schedule:          r.engine.Schedule(),
		StartedAt:         r.startedAt,
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		s.FinishedAt = &t
	}
	if r.recorder != nil {
		s.Frames = r.recorder.Len()
	}
	return s
}

// Lattice returns a copy of the current weights.
func (r *Run) Lattice() *som.Lattice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine.Lattice()
}

// BMU returns the best-matching unit for vec and its distance, without training.
func (r *Run) BMU(vec []float32) (som.Point, float32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(vec) != r.engine.Dim() {
		return som.Point{}, 0, fmt.Errorf("got %d components, want %d: %w", len(vec), r.engine.Dim(), ErrDimensionMismatch)
	}
	input := som.Node(vec)
	p := r.engine.BMU(input)
	return p, input.Distance(r.engine.Node(p)), nil
}

// Frame returns the latest recorded frame at or before step.
func (r *Run) Frame(step int) (frames.Frame, error) {
	if r.recorder == nil {
		return frames.Frame{}, frames.ErrNoFrame
	}
	return r.recorder.At(step)
}

// FrameSteps lists the steps with a recorded frame.
func (r *Run) FrameSteps() []int {
	if r.recorder == nil {
		return nil
	}
	return r.recorder.Steps()
}

// Cancel stops the run after the step in progress.
func (r *Run) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Done is closed when the run stops.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run stops or ctx is done.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
