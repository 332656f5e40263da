// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Secure snapshot modes accepted by secure_mode.
const (
	SecureModeLock       = "lock"
	SecureModePrivateMap = "private-map"
)

// Container kinds.
const (
	KindDirectory = "directory"
	KindArchive   = "archive"
	KindSecure    = "secure"
	KindPatched   = "patched"
)

// Classifier kinds.
const (
	KindConstant      = "constant"
	KindPattern       = "pattern"
	KindList          = "list"
	KindPrefixes      = "prefixes"
	KindEncapsulation = "encapsulation"
)

// Config describes one loader graph.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment" json:"environment"`

	// Root is the base directory of the installation. It is exposed to
	// path expansion as ${VESTIGE_ROOT}.
	Root string `yaml:"root" json:"root"`

	// PlatformVersion selects multi-release overlay entries. Zero uses
	// the container package default; negative disables overlays.
	PlatformVersion int `yaml:"platform_version" json:"platform_version"`

	// SecureMode is how secure containers pin their snapshot:
	// "lock" or "private-map".
	SecureMode string `yaml:"secure_mode" json:"secure_mode"`

	// Workers configures the broker and the worker resolution runs on.
	Workers WorkersConfig `yaml:"workers" json:"workers"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Containers are named so nodes and patched containers can refer
	// to them.
	Containers map[string]ContainerConfig `yaml:"containers" json:"containers"`

	// Classifiers are named so nodes and encapsulation policies can
	// refer to them.
	Classifiers map[string]ClassifierConfig `yaml:"classifiers" json:"classifiers"`

	// Nodes are built in order; IDs follow list position.
	Nodes []NodeConfig `yaml:"nodes" json:"nodes"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	PlatformVersion *int           `yaml:"platform_version,omitempty" json:"platform_version,omitempty"`
	SecureMode      string         `yaml:"secure_mode,omitempty" json:"secure_mode,omitempty"`
	Workers         *WorkersConfig `yaml:"workers,omitempty" json:"workers,omitempty"`
	Logging         *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// WorkersConfig configures the broker and its resolution worker.
type WorkersConfig struct {
	// Broker names the broker goroutine's profiler label.
	// Default: vestige-broker
	Broker string `yaml:"broker" json:"broker"`

	// Daemon marks the resolution worker as a daemon.
	// Default: false
	Daemon bool `yaml:"daemon" json:"daemon"`

	// MaxActions bounds the tasks the resolution worker runs; zero is
	// unbounded.
	MaxActions int `yaml:"max_actions" json:"max_actions"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text or json. Default: text
	Format string `yaml:"format" json:"format"`
}

// ContainerConfig describes one container.
type ContainerConfig struct {
	// Kind is directory, archive, secure or patched.
	Kind string `yaml:"kind" json:"kind"`

	// Path is the directory or archive file. Not used by patched.
	Path string `yaml:"path" json:"path"`

	// MultiRelease is auto, force or disable. Default: auto
	MultiRelease string `yaml:"multi_release" json:"multi_release"`

	// VersionPrefix overrides the overlay directory of archives.
	VersionPrefix string `yaml:"version_prefix" json:"version_prefix"`

	// Original and Patch name the two sides of a patched container.
	Original string `yaml:"original" json:"original"`
	Patch    string `yaml:"patch" json:"patch"`

	// MetadataFromPatch takes package metadata from the patch side.
	MetadataFromPatch bool `yaml:"metadata_from_patch" json:"metadata_from_patch"`
}

// ClassifierConfig describes one name classifier.
type ClassifierConfig struct {
	// Kind is constant, pattern, list, prefixes or encapsulation.
	Kind string `yaml:"kind" json:"kind"`

	// Route is the code of a constant classifier.
	Route int `yaml:"route" json:"route"`

	// Pattern, Match and Mismatch configure a pattern classifier.
	Pattern string `yaml:"pattern" json:"pattern"`
	Match   int    `yaml:"match" json:"match"`

	// Mismatch is returned by pattern and list classifiers when the
	// name does not match.
	Mismatch int `yaml:"mismatch" json:"mismatch"`

	// Names are the candidates of a list classifier.
	Names []string `yaml:"names" json:"names"`

	// Rules and Default configure a compiled prefix automaton.
	Rules   []PrefixRule `yaml:"rules" json:"rules"`
	Default int          `yaml:"default" json:"default"`

	// Delegate, Packages and Code configure a resource encapsulation
	// override.
	Delegate string   `yaml:"delegate" json:"delegate"`
	Packages []string `yaml:"packages" json:"packages"`
	Code     int      `yaml:"code" json:"code"`
}

// PrefixRule maps an exact name, or a prefix ending in '*', to a route.
type PrefixRule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Route   int    `yaml:"route" json:"route"`
}

// NodeConfig describes one loader node.
type NodeConfig struct {
	Name   string `yaml:"name" json:"name"`
	Parent string `yaml:"parent" json:"parent"`

	// Before containers are searched ahead of Containers.
	Before     []string `yaml:"before" json:"before"`
	Containers []string `yaml:"containers" json:"containers"`

	// CodeUnits and Resources name classifiers. Empty routes every
	// name to route 0.
	CodeUnits string `yaml:"code_units" json:"code_units"`
	Resources string `yaml:"resources" json:"resources"`

	// Routes lists, per route code, the rules to try in order. A null
	// entry is a route that resolves nothing.
	Routes [][]string `yaml:"routes" json:"routes"`

	Encapsulation *EncapsulationConfig `yaml:"encapsulation,omitempty" json:"encapsulation,omitempty"`
}

// EncapsulationConfig describes a node's encapsulation policy.
type EncapsulationConfig struct {
	// Scopes maps each scope to the packages it owns.
	Scopes map[string][]string `yaml:"scopes" json:"scopes"`

	// ScopeClassifier maps a scope name to an index into
	// ContainerClassifiers. Empty lets any container answer.
	ScopeClassifier string `yaml:"scope_classifier" json:"scope_classifier"`

	// ContainerClassifiers map entry names to container indices.
	ContainerClassifiers []string `yaml:"container_classifiers" json:"container_classifiers"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		Root:        filepath.Join(homeDir, ".local", "share", "vestige"),
		SecureMode:  SecureModeLock,
		Workers: WorkersConfig{
			Broker: "vestige-broker",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from VESTIGE_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if VESTIGE_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("VESTIGE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("VESTIGE_CONFIG environment variable not set; " +
			"set it to the path of your graph config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc are read as JSON with comments; anything else is
// read as YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${VESTIGE_ROOT}, ${HOME} and similar variables in paths.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: pin snapshots with a private mapping
		// so a rewritten file cannot change what was verified.
		if overrides == nil {
			overrides = &ConfigOverrides{SecureMode: SecureModePrivateMap}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.PlatformVersion != nil {
		c.PlatformVersion = *overrides.PlatformVersion
	}
	if overrides.SecureMode != "" {
		c.SecureMode = overrides.SecureMode
	}
	if overrides.Workers != nil {
		if overrides.Workers.Broker != "" {
			c.Workers.Broker = overrides.Workers.Broker
		}
		// Daemon is a bool, so we always apply it from overrides.
		c.Workers.Daemon = overrides.Workers.Daemon
		if overrides.Workers.MaxActions != 0 {
			c.Workers.MaxActions = overrides.Workers.MaxActions
		}
	}
	if overrides.Logging != nil {
		if overrides.Logging.Level != "" {
			c.Logging.Level = overrides.Logging.Level
		}
		if overrides.Logging.Format != "" {
			c.Logging.Format = overrides.Logging.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"VESTIGE_ROOT": c.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Root = expandVars(c.Root, vars)
	vars["VESTIGE_ROOT"] = c.Root // Update for dependent paths.

	for name, container := range c.Containers {
		container.Path = expandVars(container.Path, vars)
		c.Containers[name] = container
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Every problem found is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !slices.Contains([]string{SecureModeLock, SecureModePrivateMap}, c.SecureMode) {
		errs = append(errs, fmt.Errorf("secure_mode must be %s or %s, got %q", SecureModeLock, SecureModePrivateMap, c.SecureMode))
	}

	if c.Workers.MaxActions < 0 {
		errs = append(errs, errors.New("workers.max_actions must not be negative"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}
	formats := []string{"text", "json"}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	errs = append(errs, c.validateContainers()...)
	errs = append(errs, c.validateClassifiers()...)
	errs = append(errs, c.validateNodes()...)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Config) validateContainers() []error {
	var errs []error
	for _, name := range sortedKeys(c.Containers) {
		container := c.Containers[name]
		switch container.Kind {
		case KindDirectory, KindArchive, KindSecure:
			if container.Path == "" {
				errs = append(errs, fmt.Errorf("containers.%s: path is required", name))
			}
		case KindPatched:
			for side, reference := range map[string]string{"original": container.Original, "patch": container.Patch} {
				if _, ok := c.Containers[reference]; !ok {
					errs = append(errs, fmt.Errorf("containers.%s: %s %q is not a container", name, side, reference))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("containers.%s: unknown kind %q", name, container.Kind))
		}
		if !slices.Contains([]string{"", "auto", "force", "disable"}, container.MultiRelease) {
			errs = append(errs, fmt.Errorf("containers.%s: multi_release must be auto, force or disable", name))
		}
	}
	if err := c.checkPatchCycles(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// checkPatchCycles rejects patched containers that contain themselves.
func (c *Config) checkPatchCycles() error {
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int)
	var visit func(name string) error
	visit = func(name string) error {
		container, ok := c.Containers[name]
		if !ok || container.Kind != KindPatched {
			return nil
		}
		switch state[name] {
		case visiting:
			return fmt.Errorf("containers.%s: patched containers form a cycle", name)
		case visited:
			return nil
		}
		state[name] = visiting
		for _, side := range []string{container.Original, container.Patch} {
			if err := visit(side); err != nil {
				return err
			}
		}
		state[name] = visited
		return nil
	}
	for _, name := range sortedKeys(c.Containers) {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateClassifiers() []error {
	var errs []error
	for _, name := range sortedKeys(c.Classifiers) {
		classifier := c.Classifiers[name]
		switch classifier.Kind {
		case KindConstant:
		case KindPattern:
			if classifier.Pattern == "" {
				errs = append(errs, fmt.Errorf("classifiers.%s: pattern is required", name))
			}
		case KindList:
			if len(classifier.Names) == 0 {
				errs = append(errs, fmt.Errorf("classifiers.%s: names are required", name))
			}
		case KindPrefixes:
			if len(classifier.Rules) == 0 {
				errs = append(errs, fmt.Errorf("classifiers.%s: rules are required", name))
			}
		case KindEncapsulation:
			if classifier.Delegate == name {
				errs = append(errs, fmt.Errorf("classifiers.%s: cannot delegate to itself", name))
			} else if _, ok := c.Classifiers[classifier.Delegate]; !ok {
				errs = append(errs, fmt.Errorf("classifiers.%s: delegate %q is not a classifier", name, classifier.Delegate))
			} else if c.Classifiers[classifier.Delegate].Kind == KindEncapsulation {
				errs = append(errs, fmt.Errorf("classifiers.%s: delegate %q must not be another encapsulation", name, classifier.Delegate))
			}
		default:
			errs = append(errs, fmt.Errorf("classifiers.%s: unknown kind %q", name, classifier.Kind))
		}
	}
	return errs
}

func (c *Config) validateNodes() []error {
	var errs []error
	names := make(map[string]bool)
	for index, node := range c.Nodes {
		if node.Name == "" {
			errs = append(errs, fmt.Errorf("nodes[%d]: name is required", index))
			continue
		}
		if names[node.Name] {
			errs = append(errs, fmt.Errorf("nodes[%d]: duplicate name %q", index, node.Name))
		}
		names[node.Name] = true
	}

	for _, node := range c.Nodes {
		prefix := "nodes." + node.Name
		if node.Parent != "" && !names[node.Parent] {
			errs = append(errs, fmt.Errorf("%s: parent %q is not a node", prefix, node.Parent))
		}
		for _, reference := range slices.Concat(node.Before, node.Containers) {
			if _, ok := c.Containers[reference]; !ok {
				errs = append(errs, fmt.Errorf("%s: container %q is not defined", prefix, reference))
			}
		}
		for _, reference := range []string{node.CodeUnits, node.Resources} {
			if reference == "" {
				continue
			}
			if _, ok := c.Classifiers[reference]; !ok {
				errs = append(errs, fmt.Errorf("%s: classifier %q is not defined", prefix, reference))
			}
		}
		for code, rules := range node.Routes {
			for _, text := range rules {
				rule, err := ParseRule(text)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: routes[%d]: %w", prefix, code, err))
					continue
				}
				if rule.Target != "" && !names[rule.Target] {
					errs = append(errs, fmt.Errorf("%s: routes[%d]: delegate target %q is not a node", prefix, code, rule.Target))
				}
			}
		}
		if node.Encapsulation != nil {
			references := slices.Clone(node.Encapsulation.ContainerClassifiers)
			if node.Encapsulation.ScopeClassifier != "" {
				references = append(references, node.Encapsulation.ScopeClassifier)
			}
			for _, reference := range references {
				if _, ok := c.Classifiers[reference]; !ok {
					errs = append(errs, fmt.Errorf("%s: encapsulation classifier %q is not defined", prefix, reference))
				}
			}
		}
	}
	return errs
}

// RuleConfig is a parsed route rule.
type RuleConfig struct {
	// Kind is "self", "parent-only" or "delegate".
	Kind string

	// ParentSearched asks the parent chain first.
	ParentSearched bool

	// Target is the delegate node name.
	Target string
}

// ParseRule parses one route rule: "self", "parent-then-self",
// "parent-only", "delegate:<node>" or "delegate+parent:<node>".
func ParseRule(text string) (RuleConfig, error) {
	switch text {
	case "self":
		return RuleConfig{Kind: "self"}, nil
	case "parent-then-self":
		return RuleConfig{Kind: "self", ParentSearched: true}, nil
	case "parent-only":
		return RuleConfig{Kind: "parent-only"}, nil
	}
	kind, target, found := strings.Cut(text, ":")
	if !found || target == "" {
		return RuleConfig{}, fmt.Errorf("unknown rule %q", text)
	}
	switch kind {
	case "delegate":
		return RuleConfig{Kind: "delegate", Target: target}, nil
	case "delegate+parent":
		return RuleConfig{Kind: "delegate", Target: target, ParentSearched: true}, nil
	default:
		return RuleConfig{}, fmt.Errorf("unknown rule %q", text)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
