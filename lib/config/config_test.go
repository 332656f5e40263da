// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleGraph = `
environment: development
root: /srv/vestige
containers:
  app:
    kind: archive
    path: ${VESTIGE_ROOT}/app.jar
  classes:
    kind: directory
    path: ${VESTIGE_ROOT}/classes
  app-patched:
    kind: patched
    original: app
    patch: classes
classifiers:
  split:
    kind: prefixes
    rules:
      - pattern: "org.shared.*"
        route: 1
    default: 0
nodes:
  - name: platform
    containers: [app]
    routes:
      - [self]
  - name: plugin
    parent: platform
    containers: [app-patched]
    code_units: split
    routes:
      - [parent-then-self]
      - ["delegate:platform"]
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	if cfg.SecureMode != SecureModeLock {
		t.Errorf("expected secure_mode=lock, got %s", cfg.SecureMode)
	}

	if cfg.Workers.Broker != "vestige-broker" {
		t.Errorf("expected broker=vestige-broker, got %s", cfg.Workers.Broker)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresVestigeConfig(t *testing.T) {
	t.Setenv("VESTIGE_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when VESTIGE_CONFIG not set, got nil")
	}

	expectedMsg := "VESTIGE_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithVestigeConfig(t *testing.T) {
	t.Setenv("VESTIGE_CONFIG", writeConfig(t, "graph.yaml", sampleGraph))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(cfg.Nodes))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample graph should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "graph.yaml", sampleGraph))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if got := cfg.Containers["app"].Path; got != "/srv/vestige/app.jar" {
		t.Errorf("expected expanded path /srv/vestige/app.jar, got %s", got)
	}
	if got := cfg.Containers["app-patched"].Original; got != "app" {
		t.Errorf("expected original=app, got %s", got)
	}

	plugin := cfg.Nodes[1]
	if plugin.Parent != "platform" || plugin.CodeUnits != "split" {
		t.Errorf("unexpected plugin node: %+v", plugin)
	}
	if len(plugin.Routes) != 2 || plugin.Routes[1][0] != "delegate:platform" {
		t.Errorf("unexpected routes: %v", plugin.Routes)
	}

	rule := cfg.Classifiers["split"].Rules[0]
	if rule.Pattern != "org.shared.*" || rule.Route != 1 {
		t.Errorf("unexpected prefix rule: %+v", rule)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	content := `{
  // Comments and trailing commas are accepted.
  "root": "/opt/vestige",
  "platform_version": 17,
  "containers": {
    "lib": {"kind": "directory", "path": "${VESTIGE_ROOT}/lib"},
  },
  "nodes": [
    {"name": "only", "containers": ["lib"], "routes": [["self"], null]},
  ],
}`
	cfg, err := LoadFile(writeConfig(t, "graph.jsonc", content))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.PlatformVersion != 17 {
		t.Errorf("expected platform_version=17, got %d", cfg.PlatformVersion)
	}
	if got := cfg.Containers["lib"].Path; got != "/opt/vestige/lib" {
		t.Errorf("expected /opt/vestige/lib, got %s", got)
	}
	routes := cfg.Nodes[0].Routes
	if len(routes) != 2 || routes[1] != nil {
		t.Errorf("expected a null second route, got %v", routes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("jsonc graph should validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	content := `
environment: staging
platform_version: 21
workers:
  broker: base
  max_actions: 10
staging:
  platform_version: 11
  secure_mode: private-map
  workers:
    broker: staged
    daemon: true
  logging:
    level: debug
`
	cfg, err := LoadFile(writeConfig(t, "graph.yaml", content))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.PlatformVersion != 11 {
		t.Errorf("expected platform_version=11 from staging, got %d", cfg.PlatformVersion)
	}
	if cfg.SecureMode != SecureModePrivateMap {
		t.Errorf("expected secure_mode=private-map, got %s", cfg.SecureMode)
	}
	if cfg.Workers.Broker != "staged" || !cfg.Workers.Daemon {
		t.Errorf("unexpected workers: %+v", cfg.Workers)
	}
	if cfg.Workers.MaxActions != 10 {
		t.Errorf("expected max_actions to keep base value 10, got %d", cfg.Workers.MaxActions)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestProductionDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "graph.yaml", "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.SecureMode != SecureModePrivateMap {
		t.Errorf("expected production secure_mode=private-map, got %s", cfg.SecureMode)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/vestige",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/vestige",
		},
		{
			input:    "${VESTIGE_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		input   string
		want    RuleConfig
		wantErr bool
	}{
		{input: "self", want: RuleConfig{Kind: "self"}},
		{input: "parent-then-self", want: RuleConfig{Kind: "self", ParentSearched: true}},
		{input: "parent-only", want: RuleConfig{Kind: "parent-only"}},
		{input: "delegate:api", want: RuleConfig{Kind: "delegate", Target: "api"}},
		{input: "delegate+parent:api", want: RuleConfig{Kind: "delegate", Target: "api", ParentSearched: true}},
		{input: "delegate:", wantErr: true},
		{input: "sideways", wantErr: true},
		{input: "forward:api", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRule(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRule(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRule(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Containers = map[string]ContainerConfig{
			"app":     {Kind: KindArchive, Path: "/app.jar"},
			"classes": {Kind: KindDirectory, Path: "/classes"},
		}
		cfg.Classifiers = map[string]ClassifierConfig{
			"all": {Kind: KindConstant},
		}
		cfg.Nodes = []NodeConfig{
			{Name: "root", Containers: []string{"app"}, CodeUnits: "all", Routes: [][]string{{"self"}}},
		}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.Environment = "invalid" },
			wantErr: "invalid environment",
		},
		{
			name:    "invalid secure mode",
			modify:  func(c *Config) { c.SecureMode = "mlock" },
			wantErr: "secure_mode",
		},
		{
			name: "archive without path",
			modify: func(c *Config) {
				c.Containers["bad"] = ContainerConfig{Kind: KindArchive}
			},
			wantErr: "containers.bad: path is required",
		},
		{
			name: "unknown container kind",
			modify: func(c *Config) {
				c.Containers["bad"] = ContainerConfig{Kind: "tarball", Path: "/x"}
			},
			wantErr: `unknown kind "tarball"`,
		},
		{
			name: "patched cycle",
			modify: func(c *Config) {
				c.Containers["p1"] = ContainerConfig{Kind: KindPatched, Original: "p2", Patch: "app"}
				c.Containers["p2"] = ContainerConfig{Kind: KindPatched, Original: "p1", Patch: "classes"}
			},
			wantErr: "form a cycle",
		},
		{
			name: "patched missing side",
			modify: func(c *Config) {
				c.Containers["p"] = ContainerConfig{Kind: KindPatched, Original: "app", Patch: "absent"}
			},
			wantErr: `patch "absent" is not a container`,
		},
		{
			name: "encapsulation delegating to itself",
			modify: func(c *Config) {
				c.Classifiers["enc"] = ClassifierConfig{Kind: KindEncapsulation, Delegate: "enc"}
			},
			wantErr: "cannot delegate to itself",
		},
		{
			name: "duplicate node",
			modify: func(c *Config) {
				c.Nodes = append(c.Nodes, NodeConfig{Name: "root"})
			},
			wantErr: `duplicate name "root"`,
		},
		{
			name: "unknown parent",
			modify: func(c *Config) {
				c.Nodes[0].Parent = "ghost"
			},
			wantErr: `parent "ghost" is not a node`,
		},
		{
			name: "unknown delegate target",
			modify: func(c *Config) {
				c.Nodes[0].Routes = [][]string{{"delegate:ghost"}}
			},
			wantErr: `delegate target "ghost" is not a node`,
		},
		{
			name: "bad rule",
			modify: func(c *Config) {
				c.Nodes[0].Routes = [][]string{{"upward"}}
			},
			wantErr: `unknown rule "upward"`,
		},
		{
			name: "unknown encapsulation classifier",
			modify: func(c *Config) {
				c.Nodes[0].Encapsulation = &EncapsulationConfig{ScopeClassifier: "ghost"}
			},
			wantErr: `encapsulation classifier "ghost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Environment = "invalid"
	cfg.Logging.Level = "verbose"
	cfg.Nodes = []NodeConfig{{Name: "n", Parent: "ghost"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"invalid environment", "logging.level", "ghost"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}
