package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	somcp "github.com/sanonone/kektorsom/internal/mcp"
	"github.com/sanonone/kektorsom/internal/server"
	"github.com/sanonone/kektorsom/internal/trainer"
	"github.com/sanonone/kektorsom/pkg/config"
	"github.com/sanonone/kektorsom/pkg/core/distance"
	"github.com/sanonone/kektorsom/pkg/render"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (defaults are used when empty)")
	rows := flag.Int("rows", 0, "Lattice rows")
	cols := flag.Int("cols", 0, "Lattice columns")
	iters := flag.Int("iters", 0, "Training iterations")
	rate := flag.Float64("rate", 0, "Initial learning rate")
	seed := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	out := flag.String("out", "", "Output PNG path")
	scale := flag.Int("scale", 0, "Pixels per node in the output image")
	httpAddr := flag.String("http-addr", "", "Serve the REST API on this address (e.g. :9093)")
	mcpMode := flag.Bool("mcp", false, "Serve MCP tools over stdio")
	dump := flag.Bool("dump", false, "Print the final lattice weights to stdout")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")

	flag.Parse()

	logger, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	cfg, err := config.Decode(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rows":
			cfg.Lattice.Rows = *rows
		case "cols":
			cfg.Lattice.Cols = *cols
		case "iters":
			cfg.Training.Iterations = *iters
		case "rate":
			cfg.Training.LearnRate = *rate
		case "seed":
			cfg.Training.Seed = *seed
		case "out":
			cfg.Render.Output = *out
		case "scale":
			cfg.Render.Scale = *scale
		case "http-addr":
			cfg.Server.HTTPAddr = *httpAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	distance.LogFeatures(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr := trainer.New(logger)
	defer tr.Shutdown()

	switch {
	case *mcpMode:
		err = serveMCP(ctx, tr, cfg)
	case *httpAddr != "":
		err = serveHTTP(ctx, tr, cfg, logger)
	default:
		err = train(ctx, tr, cfg, *dump, logger)
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		stop()
		tr.Shutdown()
		os.Exit(1)
	}
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	// Logs go to stderr so stdout stays free for -dump and the MCP transport.
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid -log-format %q: want text or json", format)
	}
}

// train runs one session in the foreground and writes the image.
func train(ctx context.Context, tr *trainer.Trainer, cfg config.Config, dump bool, logger *slog.Logger) error {
	run, err := tr.TrainSync(ctx, cfg)
	if run == nil {
		return err
	}
	if err != nil {
		// Interrupted: keep the partially trained map.
		logger.Warn("training interrupted, writing the current lattice", "error", err)
	}

	l := run.Lattice()
	if err := render.SavePNG(cfg.Render.Output, l, render.Options{Scale: cfg.Render.Scale}); err != nil {
		return err
	}
	logger.Info("image written", "path", cfg.Render.Output, "rows", l.Rows(), "cols", l.Cols())

	if dump {
		fmt.Fprint(os.Stdout, l.String())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveHTTP launches the configured run and serves the API until ctx is done.
func serveHTTP(ctx context.Context, tr *trainer.Trainer, cfg config.Config, logger *slog.Logger) error {
	srv := server.NewServer(tr, cfg, logger)

	run, err := tr.Start(cfg)
	if err != nil {
		return err
	}
	logger.Info("initial run started", "run", run.ID)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.Shutdown()
	return <-errCh
}

// serveMCP launches the configured run and serves MCP tools over stdio.
func serveMCP(ctx context.Context, tr *trainer.Trainer, cfg config.Config) error {
	run, err := tr.Start(cfg)
	if err != nil {
		return err
	}
	slog.Info("initial run started", "run", run.ID)

	s := somcp.NewMCPServer(tr, cfg)
	if err := s.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
