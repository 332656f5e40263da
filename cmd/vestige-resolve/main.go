// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Vestige-resolve loads a loader graph description and resolves code
// unit or resource names through one of its nodes.
//
// Each name is reported with the node and container that supplied it,
// the entry's provenance URL, its package metadata, any snapshot
// signers, and a vrt: handle that re-opens the entry. Reports are
// written as text, JSON lines, or a CBOR sequence. With --cat the
// entries' bytes are written instead.
//
// Resolution runs as a task on a worker created through a broker, the
// same way an embedding launcher would run it, and the reaper is shut
// down before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/vestige-java/vestige.core/lib/config"
	"github.com/vestige-java/vestige.core/lib/launch"
	"github.com/vestige-java/vestige.core/lib/process"
	"github.com/vestige-java/vestige.core/lib/version"
	"github.com/vestige-java/vestige.core/lib/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		process.Fatal(err)
	}
}

// options are the parsed command line.
type options struct {
	configPath  string
	nodeName    string
	scope       string
	format      string
	logLevel    string
	logFormat   string
	resource    bool
	all         bool
	cat         bool
	showVersion bool
	names       []string
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("vestige-resolve", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "graph config file (default: $VESTIGE_CONFIG)")
	flagSet.StringVarP(&opts.nodeName, "node", "n", "", "node to resolve through (default: the first node)")
	flagSet.StringVar(&opts.scope, "scope", "", "resolve on behalf of this encapsulation scope")
	flagSet.BoolVarP(&opts.resource, "resource", "r", false, "treat names as resource names (a/b/c.txt)")
	flagSet.BoolVar(&opts.all, "all", false, "report every reachable copy of each resource")
	flagSet.BoolVar(&opts.cat, "cat", false, "write entry contents instead of reports")
	flagSet.StringVarP(&opts.format, "format", "f", "text", "report format: text, json, cbor, cbor-diag")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default: from config)")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "log format: text, json (default: from config)")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, `Resolve names through a Vestige loader graph.

Usage:
  vestige-resolve [flags] <name>...

Examples:
  # Resolve a code unit through the first node
  vestige-resolve --config graph.yaml org.example.Widget

  # List every copy of a resource visible from the plugin node
  vestige-resolve --config graph.yaml --node plugin --resource --all META-INF/services/org.example.Spi

  # Print a resource's bytes
  vestige-resolve --config graph.yaml --resource --cat org/example/messages.properties

Flags:
`)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	opts.names = flagSet.Args()

	if opts.showVersion {
		return &opts, nil
	}
	if len(opts.names) == 0 {
		return nil, fmt.Errorf("at least one name is required")
	}
	switch opts.format {
	case "text", "json", "cbor", "cbor-diag":
	default:
		return nil, fmt.Errorf("unknown --format %q: want text, json, cbor or cbor-diag", opts.format)
	}
	if opts.all && !opts.resource {
		return nil, fmt.Errorf("--all applies to resources only; add --resource")
	}
	if opts.all && opts.scope != "" {
		return nil, fmt.Errorf("--all cannot be combined with --scope")
	}
	return &opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		version.Print(stdout, "vestige-resolve")
		return nil
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	logger, err := newLogger(stderr, cfg.Logging)
	if err != nil {
		return err
	}
	build := version.Current()
	logger.Debug("starting",
		"version", build.Version,
		"commit", build.Commit,
		"go", build.Go,
		"platform", build.Platform,
	)

	graph, err := launch.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := graph.Close(); err != nil {
			logger.Warn("closing graph", "error", err)
		}
	}()

	nodeName := opts.nodeName
	if nodeName == "" {
		nodeName = cfg.Nodes[0].Name
	}
	node, err := graph.Node(nodeName)
	if err != nil {
		return err
	}

	reaper := worker.NewReaper(logger)
	defer reaper.Shutdown()

	reports, err := resolveOnWorker(ctx, cfg.Workers, reaper, logger, func() ([]launch.Report, error) {
		return resolveAll(node, opts), nil
	})
	if err != nil {
		return err
	}

	if opts.cat {
		err = writeContents(stdout, reports)
	} else {
		err = writeReports(stdout, opts.format, reports)
	}
	if err != nil {
		return err
	}
	return missing(reports)
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("config defines no nodes")
	}
	return cfg, nil
}

// newLogger builds the stderr logger described by logging and makes it
// the default, so library code logging through slog.Default agrees.
func newLogger(stderr io.Writer, logging config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logging.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logging.Level, err)
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(logging.Format) {
	case "json":
		handler = slog.NewJSONHandler(stderr, handlerOptions)
	case "text", "":
		handler = slog.NewTextHandler(stderr, handlerOptions)
	default:
		return nil, fmt.Errorf("invalid log format %q", logging.Format)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// missError reports how many names could not be resolved, after their
// reports have been written.
type missError struct {
	missed, total int
}

func (e *missError) Error() string {
	return fmt.Sprintf("%d of %d names could not be resolved", e.missed, e.total)
}

func missing(reports []launch.Report) error {
	missed := 0
	for _, report := range reports {
		if !report.Found {
			missed++
		}
	}
	if missed > 0 {
		return &missError{missed: missed, total: len(reports)}
	}
	return nil
}
