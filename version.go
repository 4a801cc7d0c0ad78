// Package fnreport reports the resource usage of sandboxed function runs
// against their production limits.
package fnreport

// Version is the fnreport release, reported by the CLI and the MCP server.
const Version = "v0.1.0"
