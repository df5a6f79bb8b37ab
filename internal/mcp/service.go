package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/config"
	"github.com/sanonone/kektorsom/pkg/render"
	"github.com/sanonone/kektorsom/pkg/som"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Service struct {
	trainer  *trainer.Trainer
	defaults config.Config
}

func NewService(tr *trainer.Trainer, defaults config.Config) *Service {
	return &Service{
		trainer:  tr,
		defaults: defaults,
	}
}

// --- Tool Handlers ---

func (s *Service) ListRuns(ctx context.Context, req *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, ListRunsResult, error) {
	snaps := s.trainer.List()
	out := ListRunsResult{Runs: make([]RunStatus, len(snaps))}
	for i, snap := range snaps {
		out.Runs[i] = toRunStatus(snap)
	}
	return nil, out, nil
}

func (s *Service) StartTraining(ctx context.Context, req *mcp.CallToolRequest, args StartTrainingArgs) (*mcp.CallToolResult, RunStatus, error) {
	cfg := s.defaults
	if args.Rows > 0 {
		cfg.Lattice.Rows = args.Rows
	}
	if args.Cols > 0 {
		cfg.Lattice.Cols = args.Cols
	}
	if args.Iterations > 0 {
		cfg.Training.Iterations = args.Iterations
	}
	if args.LearnRate > 0 {
		cfg.Training.LearnRate = args.LearnRate
	}
	if args.Seed != 0 {
		cfg.Training.Seed = args.Seed
	}

	run, err := s.trainer.Start(cfg)
	if err != nil {
		return nil, RunStatus{}, err
	}
	return nil, toRunStatus(run.Snapshot()), nil
}

func (s *Service) GetRunStatus(ctx context.Context, req *mcp.CallToolRequest, args RunArgs) (*mcp.CallToolResult, RunStatus, error) {
	run, err := s.trainer.Get(args.RunID)
	if err != nil {
		return nil, RunStatus{}, fmt.Errorf("run %q: %w", args.RunID, err)
	}
	return nil, toRunStatus(run.Snapshot()), nil
}

func (s *Service) FindBMU(ctx context.Context, req *mcp.CallToolRequest, args FindBMUArgs) (*mcp.CallToolResult, FindBMUResult, error) {
	run, err := s.trainer.Get(args.RunID)
	if err != nil {
		return nil, FindBMUResult{}, fmt.Errorf("run %q: %w", args.RunID, err)
	}
	p, dist, err := run.BMU(args.Vector)
	if err != nil {
		return nil, FindBMUResult{}, err
	}
	return nil, FindBMUResult{Row: p.Row, Col: p.Col, Distance: dist}, nil
}

func (s *Service) LatticeSummary(ctx context.Context, req *mcp.CallToolRequest, args LatticeSummaryArgs) (*mcp.CallToolResult, LatticeSummaryResult, error) {
	run, err := s.trainer.Get(args.RunID)
	if err != nil {
		return nil, LatticeSummaryResult{}, fmt.Errorf("run %q: %w", args.RunID, err)
	}

	var (
		l    *som.Lattice
		step int
	)
	if args.Step == nil {
		l, step = run.Lattice(), run.Snapshot().StepsApplied
	} else {
		f, err := run.Frame(*args.Step)
		if err != nil {
			return nil, LatticeSummaryResult{}, err
		}
		if l, err = f.Lattice(); err != nil {
			return nil, LatticeSummaryResult{}, err
		}
		step = f.Step
	}

	rows, cols := l.Size()
	res := LatticeSummaryResult{
		RunID:      run.ID,
		Step:       step,
		Rows:       rows,
		Cols:       cols,
		Dim:        l.Dim(),
		Components: summarize(l),
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d lattice of %d-component nodes at step %d.\n", rows, cols, l.Dim(), step)
	corners := []som.Point{{Row: 0, Col: 0}, {Row: 0, Col: cols - 1}, {Row: rows - 1, Col: 0}, {Row: rows - 1, Col: cols - 1}}
	sb.WriteString("Corners:")
	for _, p := range corners {
		fmt.Fprintf(&sb, " %v=%s", p, render.NodeColor(l.At(p.Row, p.Col)).Hex())
	}
	sb.WriteString("\n")
	for i, c := range res.Components {
		fmt.Fprintf(&sb, "Component %d: min %.3f, max %.3f, mean %.3f, std %.3f\n", i, c.Min, c.Max, c.Mean, c.StdDev)
	}
	res.Description = sb.String()

	return nil, res, nil
}

// summarize computes per-component statistics over every node.
func summarize(l *som.Lattice) []ComponentStats {
	dim, n := l.Dim(), l.Len()
	values := l.Values()

	out := make([]ComponentStats, dim)
	column := make([]float64, n)
	for d := 0; d < dim; d++ {
		for i := 0; i < n; i++ {
			column[i] = float64(values[i*dim+d])
		}
		mean, std := stat.MeanStdDev(column, nil)
		out[d] = ComponentStats{
			Min:    floats.Min(column),
			Max:    floats.Max(column),
			Mean:   mean,
			StdDev: std,
		}
	}
	return out
}

func toRunStatus(snap trainer.Snapshot) RunStatus {
	rs := RunStatus{
		RunID:             snap.ID,
		Status:            string(snap.Status),
		Progress:          snap.ProgressMessage,
		Error:             snap.Error,
		Seed:              snap.Seed,
		Rows:              snap.Rows,
		Cols:              snap.Cols,
		Dim:               snap.Dim,
		StepsApplied:      snap.StepsApplied,
		Iterations:        snap.Iterations,
		Radius:            snap.Radius,
		LearningRate:      snap.LearningRate,
		QuantizationError: snap.QuantizationError,
		Frames:            snap.Frames,
	}
	if !snap.StartedAt.IsZero() {
		rs.StartedAt = snap.StartedAt.Format(time.RFC3339)
	}
	if snap.FinishedAt != nil {
		rs.FinishedAt = snap.FinishedAt.Format(time.RFC3339)
	}
	return rs
}
