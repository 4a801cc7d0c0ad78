package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/fnreport/internal/limits"
	"github.com/deixis/fnreport/internal/payload"
	"github.com/deixis/fnreport/internal/report"
	"github.com/deixis/fnreport/internal/units"
	"github.com/deixis/fnreport/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type runParams struct {
	Input string `json:"input" jsonschema:"function input payload, passed to the engine on stdin"`
	Codec string `json:"codec,omitempty" jsonschema:"payload codec: json (default) or raw"`
	Name  string `json:"name,omitempty" jsonschema:"overrides the function name reported by the engine"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	eng, _ := h.current()
	run, err := eng.Run(ctx, workflow.RunRequest{
		Input: []byte(params.Input),
		Codec: payload.Codec(params.Codec),
		Name:  params.Name,
	})
	if err != nil {
		h.logger.Warn("fn_run failed", zap.Error(err))
		return errorResult(err.Error())
	}
	return textResult(fmt.Sprintf("run_id: %s\n\n%s", run.ID, eng.Render(run.Record, h.theme)))
}

type renderParams struct {
	Record      string  `json:"record" jsonschema:"serialized function run record (JSON)"`
	ScaleFactor float64 `json:"scale_factor,omitempty" jsonschema:"limit scale factor; defaults to the configured one"`
}

func (h *handler) renderHandler(ctx context.Context, req *mcp.CallToolRequest, params renderParams) (*mcp.CallToolResult, any, error) {
	eng, _ := h.current()
	rec, err := eng.Decode([]byte(params.Record))
	if err != nil {
		return errorResult(err.Error())
	}
	if params.ScaleFactor > 0 {
		rec.ScaleFactor = params.ScaleFactor
	}
	return textResult(eng.Render(rec, h.theme))
}

type showParams struct {
	RunID string `json:"run_id" jsonschema:"run ID returned by fn_run"`
	JSON  bool   `json:"json,omitempty" jsonschema:"return the serialized record instead of the report"`
}

func (h *handler) showHandler(ctx context.Context, req *mcp.CallToolRequest, params showParams) (*mcp.CallToolResult, any, error) {
	eng, _ := h.current()
	run, err := eng.Show(params.RunID)
	if errors.Is(err, report.ErrNotFound) {
		return errorResult(fmt.Sprintf("no run with ID %q", params.RunID))
	}
	if err != nil {
		return errorResult(err.Error())
	}
	if params.JSON {
		return textResult(run.Record.JSON())
	}
	return textResult(eng.Render(run.Record, h.theme))
}

type runsParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to list (default 20)"`
}

func (h *handler) runsHandler(ctx context.Context, req *mcp.CallToolRequest, params runsParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	eng, _ := h.current()
	runs, err := eng.List(limit)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(runs) == 0 {
		return textResult("No runs recorded.")
	}
	var b strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&b, "%s %s\n", run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), run.Summary())
	}
	return textResult(b.String())
}

type limitsParams struct {
	ScaleFactor float64 `json:"scale_factor,omitempty" jsonschema:"limit scale factor; defaults to the configured one"`
}

func (h *handler) limitsHandler(ctx context.Context, req *mcp.CallToolRequest, params limitsParams) (*mcp.CallToolResult, any, error) {
	eng, _ := h.current()
	factor := params.ScaleFactor
	if factor <= 0 {
		factor = eng.Config.ScaleFactor()
	}
	lim := limits.Scale(eng.Config.Defaults(), factor)

	bytes := units.Formatter{Table: units.Bytes}
	insts := units.Formatter{Table: units.Instructions}
	var b strings.Builder
	fmt.Fprintf(&b, "Scale Factor: %g\n", factor)
	fmt.Fprintln(&b, bytes.Format("Input Size", lim.InputBytes, lim.InputBytes))
	fmt.Fprintln(&b, bytes.Format("Output Size", lim.OutputBytes, lim.OutputBytes))
	fmt.Fprintln(&b, insts.Format("Instructions", lim.Instructions, lim.Instructions))
	return textResult(b.String())
}
