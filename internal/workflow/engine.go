// Package workflow runs a function through the external engine and turns
// its telemetry into stored, renderable records. It is consumed by both
// the MCP server and the CLI commands.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/fnreport/internal/config"
	"github.com/deixis/fnreport/internal/payload"
	"github.com/deixis/fnreport/internal/record"
	"github.com/deixis/fnreport/internal/report"
	"github.com/deixis/fnreport/internal/runner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommandRunner executes engine commands.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, cmd runner.Command) (*runner.Result, error)
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config *config.Config
	Runner CommandRunner
	Store  report.Store // nil disables persistence
	Logger *zap.Logger  // nil disables logging
	Now    func() time.Time
}

// RunRequest describes one function run.
type RunRequest struct {
	Argv  []string      // engine command; defaults to the configured one
	Input []byte        // function input payload, written to the engine's stdin
	Codec payload.Codec // payload codec; defaults to the configured one
	Name  string        // overrides the name reported by the engine
}

// Telemetry is what the engine prints on stdout after a run.
type Telemetry struct {
	Name         string  `json:"name"`
	Size         uint64  `json:"size"`
	MemoryUsage  uint64  `json:"memory_usage"`
	Instructions uint64  `json:"instructions"`
	Logs         string  `json:"logs"`
	Output       string  `json:"output"`
	Profile      *string `json:"profile,omitempty"`
	Success      bool    `json:"success"`
}

// Run executes the engine, builds the record from its telemetry, applies
// the configured scale factor and stores the result.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*report.Run, error) {
	argv := req.Argv
	if len(argv) == 0 {
		argv = e.Config.Engine.Command
	}
	if len(argv) == 0 {
		return nil, errors.New("no engine command configured")
	}
	codec, err := e.codec(req.Codec)
	if err != nil {
		return nil, err
	}

	res, err := e.Runner.Run(ctx, runner.Command{Argv: argv, Stdin: req.Input})
	if err != nil {
		return nil, fmt.Errorf("running engine: %w", err)
	}
	// Only stdout carries telemetry; a noisy stderr does not spoil the run.
	if res.StdoutTruncated {
		return nil, fmt.Errorf("engine output exceeded %d bytes", e.Config.MaxOutputBytes())
	}
	if res.StderrTruncated {
		e.logger().Warn("engine stderr truncated", zap.String("run_id", res.RunID))
	}

	var tel Telemetry
	if err := json.Unmarshal(res.Stdout, &tel); err != nil {
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("engine exited with code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		}
		return nil, fmt.Errorf("decoding engine telemetry: %w", err)
	}
	if req.Name != "" {
		tel.Name = req.Name
	}

	rec, err := e.build(tel, req.Input, codec)
	if err != nil {
		return nil, err
	}

	id := res.RunID
	if id == "" {
		id = uuid.New().String()
	}
	run := &report.Run{ID: id, CreatedAt: e.now(), ExitCode: res.ExitCode, Record: rec}

	if e.Store != nil {
		if err := e.Store.Save(run); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
	}
	e.logger().Info("function run recorded",
		zap.String("run_id", run.ID),
		zap.String("name", rec.Name),
		zap.Uint64("instructions", rec.Instructions),
		zap.Bool("success", rec.Success))
	return run, nil
}

func (e *Engine) build(tel Telemetry, input []byte, codec payload.Codec) (*record.Record, error) {
	in, err := payload.New(payload.Input, codec, input)
	if err != nil {
		return nil, err
	}
	out, err := payload.New(payload.Output, codec, []byte(tel.Output))
	if err != nil {
		return nil, err
	}
	return &record.Record{
		Name:         tel.Name,
		Size:         tel.Size,
		MemoryUsage:  tel.MemoryUsage,
		Instructions: tel.Instructions,
		Logs:         tel.Logs,
		Input:        in,
		Output:       out,
		Profile:      tel.Profile,
		ScaleFactor:  e.Config.ScaleFactor(),
		Success:      tel.Success,
	}, nil
}

// Decode parses a serialized record and applies the configured scale
// factor, which is not part of the serialized form.
// Input that is valid JSON but not a record, such as a stored run
// wrapper, is rejected rather than decoded as an empty record.
func (e *Engine) Decode(data []byte) (*record.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	for _, key := range []string{"name", "input", "output"} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("decoding record: missing %q field", key)
		}
	}
	var rec record.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	rec.ScaleFactor = e.Config.ScaleFactor()
	return &rec, nil
}

// Show loads a stored run and applies the configured scale factor.
func (e *Engine) Show(runID string) (*report.Run, error) {
	if e.Store == nil {
		return nil, errors.New("no run store configured")
	}
	run, err := e.Store.Load(runID)
	if err != nil {
		return nil, err
	}
	// Stores may hand out shared values; scale a copy.
	rec := *run.Record
	rec.ScaleFactor = e.Config.ScaleFactor()
	scaled := *run
	scaled.Record = &rec
	return &scaled, nil
}

// List returns recent stored runs when the store supports listing.
func (e *Engine) List(limit int) ([]*report.Run, error) {
	l, ok := e.Store.(report.Lister)
	if !ok {
		return nil, errors.New("run store cannot list runs")
	}
	return l.List(limit)
}

// Render renders rec against the configured defaults, scaled by the
// record's own factor.
func (e *Engine) Render(rec *record.Record, th report.Theme) string {
	return report.RenderScaled(rec, e.Config.Defaults(), th)
}

func (e *Engine) codec(c payload.Codec) (payload.Codec, error) {
	if c != "" {
		return payload.ParseCodec(string(c))
	}
	return payload.ParseCodec(e.Config.Engine.Codec)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
