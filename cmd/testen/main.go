// Command testen runs a project's test command against several Node.js
// versions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/deixis/testen"
	"github.com/deixis/testen/internal/config"
	"github.com/deixis/testen/internal/display"
	"github.com/deixis/testen/internal/matrix"
	testenmcp "github.com/deixis/testen/internal/mcp"
	"github.com/deixis/testen/internal/metrics"
	"github.com/deixis/testen/internal/report"
	"github.com/deixis/testen/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		// ExitErrHandler exits for every error; reaching here means it was bypassed.
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "testen"
	app.Version = testen.Version
	app.Usage = "Run tests against multiple Node.js versions"
	app.UsageText = "testen [options] [-- command...]"
	app.Flags = Flags
	app.Action = run
	app.Before = setupLogging
	app.Commands = []*cli.Command{
		{
			Name:   "mcp",
			Usage:  "Start the MCP server",
			Flags:  MCPFlags,
			Action: serve,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		fmt.Fprintf(c.App.ErrWriter, "%+v\n", err)
		os.Exit(1)
	}
	return app
}

func setupLogging(c *cli.Context) error {
	lvl, err := parseLevel(c.String(LogLevel.Name))
	if err != nil {
		return errors.Wrapf(err, "invalid --%s", LogLevel.Name)
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, display.IsTerminal(os.Stderr))
	log.SetDefault(log.NewLogger(handler))
	return nil
}

// parseLevel accepts the slog level names plus trace and crit.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "crit":
		return log.LevelCrit, nil
	}
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(s))
	return lvl, err
}

func newEngine(c *cli.Context) (*workflow.Engine, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "determining working directory")
	}

	loaded, err := config.Load(dir)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	if c.IsSet(Timeout.Name) {
		loaded.Config.RawTimeout = c.Duration(Timeout.Name).String()
	}
	if c.IsSet(Concurrency.Name) {
		loaded.Config.Concurrency = c.Int(Concurrency.Name)
	}

	eng := workflow.New(loaded, log.Root())
	eng.Recorder = metrics.Recorder{}
	return eng, nil
}

// --- run ---

func run(c *cli.Context) error {
	eng, err := newEngine(c)
	if err != nil {
		return err
	}

	req := workflow.Request{
		Node:     c.StringSlice(Node.Name),
		System:   c.Bool(System.Name),
		Sequence: c.Bool(Sequence.Name),
		Verbose:  c.Bool(Verbose.Name),
		Command:  c.Args().Slice(),
	}

	var (
		disp     display.Display
		renderer matrix.Renderer
	)
	if !c.Bool(JSON.Name) {
		disp = display.New(os.Stdout)
		renderer = disp
	}

	res, err := eng.Run(c.Context, req, renderer)
	if err != nil {
		if disp != nil {
			disp.Clear()
			disp.Stop()
		}
		return err
	}

	if disp != nil {
		disp.Stop()
	} else {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Report); err != nil {
			return errors.Wrap(err, "encoding report")
		}
	}

	if code := res.Outcome.ExitCode; code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

// --- mcp ---

func serve(c *cli.Context) error {
	if c.Bool(Instructions.Name) {
		fmt.Fprint(c.App.Writer, testenmcp.Instructions)
		return nil
	}

	eng, err := newEngine(c)
	if err != nil {
		return err
	}
	store := report.NewLRUStore(5, report.NewDiskStore(""))
	server := testenmcp.NewServer(eng, store, log.Root())

	if addr := c.String(HTTPAddr.Name); addr != "" {
		return serveHTTP(c.Context, server, addr)
	}
	return server.Run(c.Context, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info("Listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server")
	}
	return nil
}
