package server

import (
	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/som"
)

// --- Request Structures ---

// CreateRunRequest is the body of POST /v1/runs. Every section is optional
// and overrides the server defaults field by field.
type CreateRunRequest struct {
	Lattice  *LatticeOverrides  `json:"lattice,omitempty"`
	Training *TrainingOverrides `json:"training,omitempty"`
	Samples  [][]float32        `json:"samples,omitempty"`
	Frames   *FramesOverrides   `json:"frames,omitempty"`
}

type LatticeOverrides struct {
	Rows *int `json:"rows,omitempty"`
	Cols *int `json:"cols,omitempty"`
	Dim  *int `json:"dim,omitempty"`
}

type TrainingOverrides struct {
	LearnRate  *float64 `json:"learn_rate,omitempty"`
	Iterations *int     `json:"iterations,omitempty"`
	Seed       *int64   `json:"seed,omitempty"`
	Workers    *int     `json:"workers,omitempty"`
}

type FramesOverrides struct {
	Every     *int    `json:"every,omitempty"`
	Capacity  *int    `json:"capacity,omitempty"`
	Precision *string `json:"precision,omitempty"`
}

// BMURequest is the body of POST /v1/runs/{id}/bmu.
type BMURequest struct {
	Vector []float32 `json:"vector"`
}

// --- Response Structures ---

type ListRunsResponse struct {
	Runs []trainer.Snapshot `json:"runs"`
}

type LatticeResponse struct {
	RunID     string       `json:"run_id"`
	Step      int          `json:"step"`
	Precision string       `json:"precision"`
	Rows      int          `json:"rows"`
	Cols      int          `json:"cols"`
	Dim       int          `json:"dim"`
	Nodes     [][]som.Node `json:"nodes"`
}

type FramesResponse struct {
	RunID string `json:"run_id"`
	Steps []int  `json:"steps"`
}

type BMUResponse struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Distance float32 `json:"distance"`
}
