// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/vestige-java/vestige.core/lib/launch"
)

// writeGraph writes a two-node graph over directory containers and
// returns the config path.
func writeGraph(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"base/org/base/Core.class":     "core bytes",
		"base/org/base/core.txt":       "base text",
		"app/org/app/Main.class":       "main bytes",
		"app/org/base/core.txt":        "app text",
		"app/org/internal/Hidden.class": "hidden",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	graph := `
root: ` + root + `
logging:
  level: error
containers:
  base:
    kind: directory
    path: ${VESTIGE_ROOT}/base
  app:
    kind: directory
    path: ${VESTIGE_ROOT}/app
nodes:
  - name: app
    parent: base
    containers: [app]
    routes:
      - [parent-then-self]
    encapsulation:
      scopes:
        internal: [org.internal]
  - name: base
    containers: [base]
    routes:
      - [self]
`
	path := filepath.Join(root, "graph.yaml")
	if err := os.WriteFile(path, []byte(graph), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestResolveText(t *testing.T) {
	configPath := writeGraph(t)

	stdout, _, err := runCommand(t, "--config", configPath, "org.app.Main", "org.base.Core")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", stdout)
	}
	if !strings.Contains(lines[0], "app[0]") || !strings.Contains(lines[0], "vrt:/") {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "base[0]") {
		t.Errorf("org.base.Core should come from the parent: %q", lines[1])
	}
}

func TestResolveJSONAll(t *testing.T) {
	configPath := writeGraph(t)

	stdout, _, err := runCommand(t, "--config", configPath, "--resource", "--all", "--format", "json", "org/base/core.txt")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var nodes []string
	decoder := json.NewDecoder(strings.NewReader(stdout))
	for decoder.More() {
		var report launch.Report
		if err := decoder.Decode(&report); err != nil {
			t.Fatalf("decoding report: %v", err)
		}
		nodes = append(nodes, report.Node)
	}
	if strings.Join(nodes, ",") != "base,app" {
		t.Errorf("expected reports from base then app, got %v", nodes)
	}
}

func TestResolveCBOR(t *testing.T) {
	configPath := writeGraph(t)

	stdout, _, err := runCommand(t, "--config", configPath, "--format", "cbor", "org.app.Main")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var report launch.Report
	if err := cbor.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decoding CBOR report: %v", err)
	}
	if !report.Found || report.Entry != "org/app/Main.class" || report.Package != "org.app" {
		t.Errorf("unexpected report: %+v", report)
	}

	diagnostic, _, err := runCommand(t, "--config", configPath, "--format", "cbor-diag", "org.app.Main", "org.app.Missing")
	if err == nil {
		t.Fatal("expected an error for the missing name")
	}
	lines := strings.Split(strings.TrimSuffix(diagnostic, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("cbor-diag output = %q, want one line per name", diagnostic)
	}
	want, err := cbor.Diagnose([]byte(stdout))
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if lines[0] != want {
		t.Errorf("cbor-diag line = %s, want %s", lines[0], want)
	}
	if !strings.Contains(lines[1], `"found": false`) {
		t.Errorf("missing report = %s", lines[1])
	}
}

func TestResolveCat(t *testing.T) {
	configPath := writeGraph(t)

	stdout, _, err := runCommand(t, "--config", configPath, "--resource", "--cat", "org/base/core.txt")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout != "base text" {
		t.Errorf("parent-then-self should print the parent's copy, got %q", stdout)
	}
}

func TestResolveScope(t *testing.T) {
	configPath := writeGraph(t)

	_, _, err := runCommand(t, "--config", configPath, "--scope", "internal", "org.internal.Hidden")
	if err != nil {
		t.Fatalf("owning scope should resolve: %v", err)
	}

	stdout, _, err := runCommand(t, "--config", configPath, "--scope", "outsider", "org.internal.Hidden")
	var miss *missError
	if !errors.As(err, &miss) || miss.missed != 1 {
		t.Fatalf("expected one miss, got %v", err)
	}
	if !strings.Contains(stdout, "missing") {
		t.Errorf("expected a missing line, got %q", stdout)
	}
}

func TestResolveMissingCounts(t *testing.T) {
	configPath := writeGraph(t)

	_, _, err := runCommand(t, "--config", configPath, "org.app.Main", "org.none.A", "org.none.B")
	var miss *missError
	if !errors.As(err, &miss) {
		t.Fatalf("expected missError, got %v", err)
	}
	if miss.missed != 2 || miss.total != 3 {
		t.Errorf("missed %d of %d, want 2 of 3", miss.missed, miss.total)
	}
}

func TestResolveNodeSelection(t *testing.T) {
	configPath := writeGraph(t)

	if _, _, err := runCommand(t, "--config", configPath, "--node", "base", "org.app.Main"); err == nil {
		t.Error("base should not see the app's code units")
	}
	if _, _, err := runCommand(t, "--config", configPath, "--node", "ghost", "org.app.Main"); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestResolveWithBudget(t *testing.T) {
	configPath := writeGraph(t)

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	budgeted := filepath.Join(filepath.Dir(configPath), "budget.yaml")
	content := string(data) + "workers:\n  max_actions: 1\n  daemon: true\n"
	if err := os.WriteFile(budgeted, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCommand(t, "--config", budgeted, "org.app.Main"); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestOptionErrors(t *testing.T) {
	configPath := writeGraph(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no names", args: []string{"--config", configPath}, want: "at least one name"},
		{name: "bad format", args: []string{"--config", configPath, "--format", "xml", "a.B"}, want: "unknown --format"},
		{name: "all without resource", args: []string{"--config", configPath, "--all", "a.B"}, want: "--resource"},
		{name: "bad log level", args: []string{"--config", configPath, "--log-level", "loud", "a.B"}, want: "log level"},
		{name: "missing config", args: []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "a.B"}, want: "loading config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCommand(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "vestige-resolve ") || !strings.Contains(stdout, "\n  go: ") {
		t.Errorf("unexpected version output %q", stdout)
	}
}
