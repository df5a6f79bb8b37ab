package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/config"
	"github.com/sanonone/kektorsom/pkg/som"
)

func newTestService(t *testing.T) (*Service, *trainer.Trainer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Lattice.Rows = 6
	cfg.Lattice.Cols = 6
	cfg.Training.Iterations = 150
	cfg.Training.Seed = 9
	cfg.Training.LogEvery = 0
	cfg.Frames.Every = 50

	tr := trainer.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(tr.Shutdown)
	return NewService(tr, cfg), tr
}

func startAndWait(t *testing.T, s *Service, tr *trainer.Trainer) string {
	t.Helper()
	ctx := context.Background()
	_, started, err := s.StartTraining(ctx, nil, StartTrainingArgs{})
	if err != nil {
		t.Fatal(err)
	}
	run, err := tr.Get(started.RunID)
	if err != nil {
		t.Fatal(err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := run.Wait(waitCtx); err != nil {
		t.Fatal(err)
	}
	return started.RunID
}

func TestListAndStatus(t *testing.T) {
	s, tr := newTestService(t)
	ctx := context.Background()

	_, empty, err := s.ListRuns(ctx, nil, ListRunsArgs{})
	if err != nil || len(empty.Runs) != 0 {
		t.Fatalf("ListRuns on empty trainer = %+v, %v", empty, err)
	}

	id := startAndWait(t, s, tr)

	_, list, err := s.ListRuns(ctx, nil, ListRunsArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Runs) != 1 || list.Runs[0].RunID != id {
		t.Errorf("ListRuns = %+v", list)
	}

	_, status, err := s.GetRunStatus(ctx, nil, RunArgs{RunID: id})
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != string(trainer.StatusCompleted) || status.StepsApplied != 150 {
		t.Errorf("status = %+v", status)
	}
	if status.Seed != 9 || status.FinishedAt == "" {
		t.Errorf("seed or finish time missing: %+v", status)
	}

	if _, _, err := s.GetRunStatus(ctx, nil, RunArgs{RunID: "nope"}); !errors.Is(err, trainer.ErrRunNotFound) {
		t.Errorf("unknown run: got %v", err)
	}
}

func TestStartTrainingValidation(t *testing.T) {
	s, _ := newTestService(t)
	if _, _, err := s.StartTraining(context.Background(), nil, StartTrainingArgs{Rows: 2}); !errors.Is(err, som.ErrLatticeTooSmall) {
		t.Errorf("got %v, want ErrLatticeTooSmall", err)
	}
}

func TestFindBMU(t *testing.T) {
	s, tr := newTestService(t)
	ctx := context.Background()
	id := startAndWait(t, s, tr)

	_, res, err := s.FindBMU(ctx, nil, FindBMUArgs{RunID: id, Vector: []float32{0, 1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	run, _ := tr.Get(id)
	p, d, _ := run.BMU([]float32{0, 1, 0})
	if res.Row != p.Row || res.Col != p.Col || res.Distance != d {
		t.Errorf("got %+v, want %v at %v", res, p, d)
	}

	if _, _, err := s.FindBMU(ctx, nil, FindBMUArgs{RunID: id, Vector: []float32{0, 1}}); !errors.Is(err, trainer.ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestLatticeSummary(t *testing.T) {
	s, tr := newTestService(t)
	ctx := context.Background()
	id := startAndWait(t, s, tr)

	_, live, err := s.LatticeSummary(ctx, nil, LatticeSummaryArgs{RunID: id})
	if err != nil {
		t.Fatal(err)
	}
	if live.Step != 150 || live.Rows != 6 || live.Dim != 3 || len(live.Components) != 3 {
		t.Errorf("summary = %+v", live)
	}
	for i, c := range live.Components {
		if c.Min > c.Mean || c.Mean > c.Max || c.StdDev < 0 || math.IsNaN(c.StdDev) {
			t.Errorf("component %d inconsistent: %+v", i, c)
		}
	}
	if !strings.Contains(live.Description, "Corners:") {
		t.Errorf("description = %q", live.Description)
	}

	step := 75
	_, past, err := s.LatticeSummary(ctx, nil, LatticeSummaryArgs{RunID: id, Step: &step})
	if err != nil {
		t.Fatal(err)
	}
	if past.Step != 50 {
		t.Errorf("frame step = %d, want 50", past.Step)
	}
}

func TestSummarize(t *testing.T) {
	l, err := som.FromNodes([][]som.Node{
		{{0, 1}, {2, 1}},
		{{4, 1}, {6, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	stats := summarize(l)
	if stats[0].Min != 0 || stats[0].Max != 6 || stats[0].Mean != 3 {
		t.Errorf("component 0 = %+v", stats[0])
	}
	if stats[1].StdDev != 0 || stats[1].Mean != 1 {
		t.Errorf("component 1 = %+v", stats[1])
	}
}

func TestNewMCPServer(t *testing.T) {
	_, tr := newTestService(t)
	if NewMCPServer(tr, config.DefaultConfig()) == nil {
		t.Fatal("nil server")
	}
}
