// Package mcp exposes training runs as Model Context Protocol tools.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/config"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

func NewMCPServer(tr *trainer.Trainer, defaults config.Config) *mcp.Server {
	service := NewService(tr, defaults)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "KektorSOM",
		Version: Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_runs",
		Description: "List all training runs with their status, progress and schedule.",
	}, service.ListRuns)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "start_training",
		Description: "Start a new self-organizing map training run in the background and return its initial status.",
	}, service.StartTraining)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_status",
		Description: "Get the status of one training run: steps applied, current radius and learning rate, quantization error.",
	}, service.GetRunStatus)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "find_bmu",
		Description: "Find the best-matching unit (closest lattice cell) for a vector without training.",
	}, service.FindBMU)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "lattice_summary",
		Description: "Summarize the weights of a run's lattice, live or at a recorded step: per-component statistics and the corner colours.",
	}, service.LatticeSummary)

	return s
}
