package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/fnreport"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *mcp.CallToolRequest, _ workspaceParams) (*mcp.CallToolResult, any, error) {
	eng, workspace := h.current()
	cfg := eng.Config
	var b strings.Builder

	fmt.Fprintf(&b, "fnreport: %s\n", fnreport.Version)
	if workspace != "" {
		fmt.Fprintf(&b, "Directory: %s\n", workspace)
	}
	fmt.Fprintln(&b)

	if len(cfg.Engine.Command) == 0 {
		fmt.Fprintln(&b, "Engine: (not configured; set engine.command in .fnreport)")
	} else {
		fmt.Fprintf(&b, "Engine: %s\n", strings.Join(cfg.Engine.Command, " "))
	}
	codec := cfg.Engine.Codec
	if codec == "" {
		codec = "json"
	}
	fmt.Fprintf(&b, "Codec: %s\n", codec)
	fmt.Fprintf(&b, "Timeout: %s\n", cfg.Timeout())
	fmt.Fprintln(&b)

	lim := cfg.EffectiveLimits()
	fmt.Fprintf(&b, "Scale factor: %g\n", cfg.ScaleFactor())
	fmt.Fprintln(&b, "Limits:")
	fmt.Fprintf(&b, "  input bytes: %d\n", lim.InputBytes)
	fmt.Fprintf(&b, "  output bytes: %d\n", lim.OutputBytes)
	fmt.Fprintf(&b, "  instructions: %d\n", lim.Instructions)
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Store: %s (cache %d)\n", cfg.StoreDriver(), cfg.CacheSize())

	return textResult(b.String())
}
