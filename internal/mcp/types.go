package mcp

// --- Tool Arguments ---

type ListRunsArgs struct{}

type StartTrainingArgs struct {
	Rows       int     `json:"rows,omitempty" jsonschema:"Lattice rows. Defaults to the server configuration"`
	Cols       int     `json:"cols,omitempty" jsonschema:"Lattice columns. Defaults to the server configuration"`
	Iterations int     `json:"iterations,omitempty" jsonschema:"Number of training steps"`
	LearnRate  float64 `json:"learn_rate,omitempty" jsonschema:"Initial learning rate"`
	Seed       int64   `json:"seed,omitempty" jsonschema:"Random seed. 0 picks a time-based seed that is reported back"`
}

type RunArgs struct {
	RunID string `json:"run_id" jsonschema:"The ID of the training run"`
}

type FindBMUArgs struct {
	RunID  string    `json:"run_id" jsonschema:"The ID of the training run"`
	Vector []float32 `json:"vector" jsonschema:"Query vector with one component per lattice dimension"`
}

type LatticeSummaryArgs struct {
	RunID string `json:"run_id" jsonschema:"The ID of the training run"`
	Step  *int   `json:"step,omitempty" jsonschema:"Summarize the recorded frame at or before this step instead of the live lattice"`
}

// --- Tool Results ---

// RunStatus is the tool view of a run. Timestamps are RFC 3339 strings.
type RunStatus struct {
	RunID             string  `json:"run_id"`
	Status            string  `json:"status"`
	Progress          string  `json:"progress,omitempty"`
	Error             string  `json:"error,omitempty"`
	Seed              int64   `json:"seed"`
	Rows              int     `json:"rows"`
	Cols              int     `json:"cols"`
	Dim               int     `json:"dim"`
	StepsApplied      int     `json:"steps_applied"`
	Iterations        int     `json:"iterations"`
	Radius            float64 `json:"radius"`
	LearningRate      float64 `json:"learning_rate"`
	QuantizationError float64 `json:"quantization_error"`
	Frames            int     `json:"frames"`
	StartedAt         string  `json:"started_at,omitempty"`
	FinishedAt        string  `json:"finished_at,omitempty"`
}

type ListRunsResult struct {
	Runs []RunStatus `json:"runs"`
}

type FindBMUResult struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Distance float32 `json:"distance"`
}

// ComponentStats describes one weight component across every node.
type ComponentStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type LatticeSummaryResult struct {
	RunID      string           `json:"run_id"`
	Step       int              `json:"step"`
	Rows       int              `json:"rows"`
	Cols       int              `json:"cols"`
	Dim        int              `json:"dim"`
	Components []ComponentStats `json:"components"`
	// Description is a short text rendering for the model.
	Description string `json:"description"`
}
