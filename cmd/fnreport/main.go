// Command fnreport runs sandboxed functions and reports their resource
// usage against production limits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/deixis/fnreport"
	"github.com/deixis/fnreport/internal/config"
	"github.com/deixis/fnreport/internal/limits"
	"github.com/deixis/fnreport/internal/logging"
	fnmcp "github.com/deixis/fnreport/internal/mcp"
	"github.com/deixis/fnreport/internal/payload"
	"github.com/deixis/fnreport/internal/report"
	"github.com/deixis/fnreport/internal/runner"
	"github.com/deixis/fnreport/internal/workflow"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("fnreport: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "render":
		err = renderMain(args)
	case "show":
		err = showMain(args)
	case "list":
		err = listMain(args)
	case "limits":
		err = limitsMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(fnreport.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "fnreport: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: fnreport <command> [flags]

Commands:
  run         Run the function through the engine and print its report
  render      Render a serialized run record (file or stdin)
  show        Show a stored run by ID
  list        List recent stored runs
  limits      Print the effective resource limits
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "fnreport <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	inputFlag := fs.String("input", "-", "input payload file, or - for stdin")
	codecFlag := fs.String("codec", "", "payload codec: json or raw (default from config)")
	nameFlag := fs.String("name", "", "override the function name reported by the engine")
	jsonFlag := fs.Bool("json", false, "print the run record as JSON (input for render)")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 5s)")
	_ = fs.Parse(args)

	input, err := readSource(*inputFlag)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(*timeoutFlag)
	if err != nil {
		return err
	}
	defer app.close()

	// Anything after the flags replaces the configured engine command.
	run, err := app.engine.Run(ctx, workflow.RunRequest{
		Argv:  fs.Args(),
		Input: input,
		Codec: payload.Codec(*codecFlag),
		Name:  *nameFlag,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if *jsonFlag {
		writeRecord(os.Stdout, run)
	} else {
		fmt.Print(app.engine.Render(run.Record, app.theme))
	}
	app.logger.Info("run stored", zap.String("run_id", run.ID))

	if !run.Record.Success {
		app.close()
		os.Exit(1)
	}
	return nil
}

// --- render ---

func renderMain(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	scaleFlag := fs.Float64("scale", 0, "override the configured scale factor")
	_ = fs.Parse(args)

	src := "-"
	if fs.NArg() > 0 {
		src = fs.Arg(0)
	}
	data, err := readSource(src)
	if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}

	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.close()

	rec, err := app.engine.Decode(data)
	if err != nil {
		return err
	}
	if *scaleFlag > 0 {
		rec.ScaleFactor = *scaleFlag
	}
	fmt.Print(app.engine.Render(rec, app.theme))
	return nil
}

// --- show ---

func showMain(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "print the run record as JSON (input for render)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("show: expected exactly one run ID")
	}

	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.close()

	run, err := app.engine.Show(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	if *jsonFlag {
		writeRecord(os.Stdout, run)
		return nil
	}
	fmt.Print(app.engine.Render(run.Record, app.theme))
	return nil
}

// --- list ---

func listMain(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limitFlag := fs.Int("n", 20, "maximum number of runs")
	jsonFlag := fs.Bool("json", false, "print runs as JSON")
	_ = fs.Parse(args)

	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.close()

	runs, err := app.engine.List(*limitFlag)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if *jsonFlag {
		return writeJSON(runs)
	}
	for _, run := range runs {
		fmt.Printf("%s  %s\n", run.CreatedAt.Local().Format(time.DateTime), run.Summary())
	}
	return nil
}

// --- limits ---

func limitsMain(args []string) error {
	fs := flag.NewFlagSet("limits", flag.ExitOnError)
	scaleFlag := fs.Float64("scale", 0, "override the configured scale factor")
	jsonFlag := fs.Bool("json", false, "print limits as JSON")
	_ = fs.Parse(args)

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	factor := cfg.ScaleFactor()
	if *scaleFlag > 0 {
		factor = *scaleFlag
	}
	lim := limits.Scale(cfg.Defaults(), factor)

	if *jsonFlag {
		return writeJSON(lim)
	}
	fmt.Printf("Scale factor:  %g\n", factor)
	fmt.Printf("Input bytes:   %d\n", lim.InputBytes)
	fmt.Printf("Output bytes:  %d\n", lim.OutputBytes)
	fmt.Printf("Instructions:  %d\n", lim.Instructions)
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(fnmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.close()

	server := fnmcp.NewServer(app.engine, fnmcp.WithLogger(app.logger), fnmcp.WithWorkspace(app.root))

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr, app.logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

// app bundles what every command needs once config is loaded.
type app struct {
	engine  *workflow.Engine
	theme   report.Theme
	logger  *zap.Logger
	root    string
	closers []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("closing", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func loadConfig() (*config.Config, string, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return loaded.Config, loaded.RepoRoot, nil
}

func newApp(timeoutOverride time.Duration) (*app, error) {
	cfg, root, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	store, closeStore, err := workflow.OpenStore(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("root", root),
		zap.String("store", cfg.StoreDriver()),
		zap.Float64("scale_factor", cfg.ScaleFactor()))

	return &app{
		engine: &workflow.Engine{
			Config: cfg,
			Runner: &runner.Runner{
				Workspace: root,
				Timeout:   timeout,
				MaxOutput: cfg.MaxOutputBytes(),
				Logger:    logger,
			},
			Store:  store,
			Logger: logger,
		},
		theme:   report.ThemeByName(cfg.Theme, os.Stdout),
		logger:  logger,
		root:    root,
		closers: []func() error{closeStore},
	}, nil
}

// readSource reads a file, or stdin when path is "-".
func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeRecord prints the serialized record of run, the form render reads.
func writeRecord(w io.Writer, run *report.Run) {
	fmt.Fprintln(w, run.Record.JSON())
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
