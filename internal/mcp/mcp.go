// Package mcp provides the fnreport MCP server, registering the run,
// render and inspection tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/fnreport"
	"github.com/deixis/fnreport/internal/config"
	"github.com/deixis/fnreport/internal/report"
	"github.com/deixis/fnreport/internal/runner"
	"github.com/deixis/fnreport/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers. The engine
// and workspace are replaced as a unit when the client's roots select
// another repository; tool handlers read them through current.
type handler struct {
	theme  report.Theme
	logger *zap.Logger

	mu         sync.RWMutex
	engine     *workflow.Engine
	workspace  string
	closeStore func() error // store opened on reload; nil until then
}

func (h *handler) current() (*workflow.Engine, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine, h.workspace
}

// NewServer creates an MCP server with all fnreport tools registered.
func NewServer(engine *workflow.Engine, opts ...ServerOption) *mcp.Server {
	so := serverOptions{
		theme:  report.MarkerTheme("**", "**"),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(&so)
	}
	h := &handler{engine: engine, theme: so.theme, logger: so.logger, workspace: so.workspace}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateConfigFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "fnreport", Version: fnreport.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fn_workspace",
		Description: "Show the repository root, engine command, scale factor, effective limits and run store in use.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "fn_run",
		Description: `Run the function through the configured sandbox engine and report its resource usage.

The input payload is passed to the engine on stdin. The report lists input, logs, output,
the scaled resource limits and the measured usage; values over a limit are wrapped in **.
The run is stored; use fn_show with the returned run_id to view it again.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fn_render",
		Description: "Render a serialized function run record (as produced by fn_show with json=true) into a report.",
	}, h.renderHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fn_show",
		Description: "Show a stored function run by run_id, as a report or as JSON.",
	}, h.showHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fn_runs",
		Description: "List recent stored function runs, newest first.",
	}, h.runsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "fn_limits",
		Description: "Show the effective input size, output size and instruction limits for a scale factor.",
	}, h.limitsHandler)

	return s
}

// ServerOption configures the fnreport MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	theme     report.Theme
	logger    *zap.Logger
	workspace string
}

// WithTheme replaces the default marker theme.
func WithTheme(th report.Theme) ServerOption {
	return func(o *serverOptions) {
		o.theme = th
	}
}

// WithWorkspace records the repository root reported by fn_workspace.
func WithWorkspace(dir string) ServerOption {
	return func(o *serverOptions) {
		o.workspace = dir
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// updateConfigFromRoots queries the client for MCP roots and reloads the
// configuration from the first file root. It runs during session
// initialization, before any tool calls.
func (h *handler) updateConfigFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		h.logger.Warn("reloading config from root", zap.String("root", u.Path), zap.Error(err))
		return
	}
	h.switchRoot(loaded)
}

// switchRoot points the engine at a newly loaded repository: its config,
// a runner bound to its root, and its run store.
func (h *handler) switchRoot(loaded *config.LoadResult) {
	cfg := loaded.Config
	store, closeStore, err := workflow.OpenStore(cfg, loaded.RepoRoot)
	if err != nil {
		h.logger.Warn("opening run store for root", zap.String("root", loaded.RepoRoot), zap.Error(err))
		return
	}

	h.mu.Lock()
	eng := *h.engine
	eng.Config = cfg
	eng.Store = store
	if r, ok := eng.Runner.(*runner.Runner); ok {
		nr := *r
		nr.Workspace = loaded.RepoRoot
		nr.Timeout = cfg.Timeout()
		nr.MaxOutput = cfg.MaxOutputBytes()
		eng.Runner = &nr
	}
	prev := h.closeStore
	h.engine = &eng
	h.workspace = loaded.RepoRoot
	h.closeStore = closeStore
	h.mu.Unlock()

	if prev != nil {
		if err := prev(); err != nil {
			h.logger.Warn("closing previous run store", zap.Error(err))
		}
	}
	h.logger.Info("config reloaded from root", zap.String("root", loaded.RepoRoot))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
