// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/vestige-java/vestige.core/lib/codec"
	"github.com/vestige-java/vestige.core/lib/config"
	"github.com/vestige-java/vestige.core/lib/launch"
	"github.com/vestige-java/vestige.core/lib/loader"
	"github.com/vestige-java/vestige.core/lib/worker"
)

// resolveOnWorker runs task on a worker created through a fresh broker
// and returns its result. The worker is interrupted and joined before
// returning.
func resolveOnWorker(ctx context.Context, workers config.WorkersConfig, reaper *worker.Reaper, logger *slog.Logger, task func() ([]launch.Report, error)) ([]launch.Report, error) {
	broker := worker.NewBroker(worker.BrokerOptions{
		Name:   workers.Broker,
		Reaper: reaper,
		Logger: logger,
	})
	defer broker.Close()

	resolver, err := broker.CreateWorker("resolve", workers.Daemon, workers.MaxActions)
	if err != nil {
		return nil, fmt.Errorf("creating resolve worker: %w", err)
	}

	reports, err := worker.Submit(resolver, task).Get(ctx)
	resolver.Interrupt()
	if err != nil {
		return nil, fmt.Errorf("resolving: %w", err)
	}
	if err := broker.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for resolve worker: %w", err)
	}
	return reports, nil
}

// resolveAll resolves every requested name through node.
func resolveAll(node *loader.Node, opts *options) []launch.Report {
	var reports []launch.Report
	for _, name := range opts.names {
		if opts.all {
			reports = append(reports, launch.Reports(node, name, node.ResolveResources(name))...)
			continue
		}

		var (
			located loader.Located
			err     error
		)
		switch {
		case opts.resource && opts.scope != "":
			located, err = node.ResolveResourceFrom(opts.scope, name)
		case opts.resource:
			located, err = node.ResolveResource(name)
		case opts.scope != "":
			located, err = node.ResolveFrom(opts.scope, name)
		default:
			located, err = node.Resolve(name)
		}
		if err != nil && !launch.NotFound(err) {
			slog.Warn("resolution failed", "name", name, "node", node.Name(), "error", err)
		}
		reports = append(reports, launch.NewReport(name, located, err))
	}
	return reports
}

// reportEncoder is satisfied by the JSON, CBOR and CBOR diagnostic
// encoders.
type reportEncoder interface {
	Encode(v any) error
}

func writeReports(w io.Writer, format string, reports []launch.Report) error {
	var encoder reportEncoder
	switch format {
	case "json":
		encoder = json.NewEncoder(w)
	case "cbor":
		encoder = codec.NewEncoder(w)
	case "cbor-diag":
		encoder = codec.NewDiagnosticEncoder(w)
	default:
		return writeText(w, reports)
	}
	for _, report := range reports {
		if err := encoder.Encode(report); err != nil {
			return err
		}
	}
	return nil
}

func writeText(w io.Writer, reports []launch.Report) error {
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, report := range reports {
		if !report.Found {
			fmt.Fprintf(table, "%s\tmissing\t%s\n", report.Name, report.Error)
			continue
		}
		fmt.Fprintf(table, "%s\t%s[%d]\t%s\t%s\n", report.Name, report.Node, report.Container, report.Source, report.Handle)
		if report.Metadata.Sealed {
			fmt.Fprintf(table, "\tsealed\t%s\n", report.Package)
		}
		for _, signer := range report.Signers {
			fmt.Fprintf(table, "\tsigner\t%s:%s\n", signer.Algorithm, signer.Digest)
		}
	}
	return table.Flush()
}

// writeContents copies each found entry to w, re-opening it through
// its handle.
func writeContents(w io.Writer, reports []launch.Report) error {
	for _, report := range reports {
		if !report.Found {
			continue
		}
		reader, err := loader.Dereference(report.Handle)
		if err != nil {
			return fmt.Errorf("opening %s: %w", report.Name, err)
		}
		_, err = io.Copy(w, reader)
		closeErr := reader.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", report.Name, err)
		}
		if closeErr != nil {
			return fmt.Errorf("closing %s: %w", report.Name, closeErr)
		}
	}
	return nil
}
