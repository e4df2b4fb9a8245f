package main

import (
	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "TESTEN"

var (
	System = &cli.BoolFlag{
		Name:  "system",
		Usage: "Also test the node version currently on PATH",
	}
	Node = &cli.StringSliceFlag{
		Name:    "node",
		Aliases: []string{"n"},
		Usage:   "Node.js version to test (repeatable, or comma-separated)",
	}
	Sequence = &cli.BoolFlag{
		Name:    "sequence",
		Aliases: []string{"s"},
		Usage:   "Run versions one at a time instead of in parallel",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"V"},
		Usage:   "Print the output of successful runs too",
	}
	JSON = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the run report as JSON instead of the live table",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		EnvVars: []string{EnvVarPrefix + "_TIMEOUT"},
		Usage:   "Per-version timeout (e.g. '5m'); overrides .testen.yml",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		EnvVars: []string{EnvVarPrefix + "_CONCURRENCY"},
		Usage:   "Maximum parallel runs; 0 is unlimited; overrides .testen.yml",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "warn",
		EnvVars: []string{EnvVarPrefix + "_LOG_LEVEL"},
		Usage:   "Log level (trace, debug, info, warn, error, crit)",
	}

	HTTPAddr = &cli.StringFlag{
		Name:  "http",
		Usage: "Serve MCP over HTTP on this address (e.g. ':9090') with /metrics, instead of stdio",
	}
	Instructions = &cli.BoolFlag{
		Name:  "instructions",
		Usage: "Print model instructions and exit",
	}
)

var Flags = []cli.Flag{
	System,
	Node,
	Sequence,
	Verbose,
	JSON,
	Timeout,
	Concurrency,
	LogLevel,
}

var MCPFlags = []cli.Flag{
	HTTPAddr,
	Instructions,
}
