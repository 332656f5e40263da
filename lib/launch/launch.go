// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vestige-java/vestige.core/lib/classify"
	"github.com/vestige-java/vestige.core/lib/config"
	"github.com/vestige-java/vestige.core/lib/container"
	"github.com/vestige-java/vestige.core/lib/loader"
)

// Launch is an assembled graph and the resources backing it.
type Launch struct {
	Graph *loader.Graph

	token     *loader.Token
	snapshots []io.Closer
	logger    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// assembly carries the named parts while a graph is being built.
type assembly struct {
	cfg         *config.Config
	logger      *slog.Logger
	containers  map[string]container.Container
	classifiers map[string]classify.Classifier
	snapshots   []io.Closer
}

// Build validates cfg and assembles its graph. A nil logger selects
// slog.Default(). On failure every snapshot opened so far is closed.
func Build(cfg *config.Config, logger *slog.Logger) (*Launch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph config: %w", err)
	}

	a := &assembly{
		cfg:         cfg,
		logger:      logger,
		containers:  make(map[string]container.Container),
		classifiers: make(map[string]classify.Classifier),
	}
	graph, err := a.build()
	if err != nil {
		return nil, errors.Join(err, closeAll(a.snapshots))
	}

	token := loader.NewToken()
	for _, node := range graph.Nodes() {
		node.TransferOwner(nil, token)
	}
	logger.Debug("graph assembled",
		"nodes", len(cfg.Nodes),
		"containers", len(a.containers),
		"classifiers", len(a.classifiers),
	)
	return &Launch{Graph: graph, token: token, snapshots: a.snapshots, logger: logger}, nil
}

func (a *assembly) build() (*loader.Graph, error) {
	var builder loader.GraphBuilder
	ids := make(map[string]loader.NodeID, len(a.cfg.Nodes))
	for _, node := range a.cfg.Nodes {
		ids[node.Name] = builder.Reserve()
	}

	for _, node := range a.cfg.Nodes {
		spec, err := a.nodeSpec(node, ids)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name, err)
		}
		if err := builder.Define(ids[node.Name], spec); err != nil {
			return nil, err
		}
	}
	return builder.Build()
}

func (a *assembly) nodeSpec(node config.NodeConfig, ids map[string]loader.NodeID) (loader.NodeSpec, error) {
	spec := loader.NodeSpec{
		Name:   node.Name,
		Parent: ids[node.Parent],
		Logger: a.logger,
	}

	var err error
	if spec.Before, err = a.containerList(node.Before); err != nil {
		return spec, err
	}
	if spec.Containers, err = a.containerList(node.Containers); err != nil {
		return spec, err
	}
	if spec.CodeUnits, err = a.optionalClassifier(node.CodeUnits); err != nil {
		return spec, err
	}
	if spec.Resources, err = a.optionalClassifier(node.Resources); err != nil {
		return spec, err
	}

	spec.Routes = make([][]loader.Rule, len(node.Routes))
	for code, texts := range node.Routes {
		if texts == nil {
			continue
		}
		rules := make([]loader.Rule, 0, len(texts))
		for _, text := range texts {
			parsed, err := config.ParseRule(text)
			if err != nil {
				return spec, fmt.Errorf("route %d: %w", code, err)
			}
			rules = append(rules, toRule(parsed, ids))
		}
		spec.Routes[code] = rules
	}

	if node.Encapsulation != nil {
		if spec.Encapsulation, err = a.policy(node.Encapsulation); err != nil {
			return spec, err
		}
	}
	return spec, nil
}

func toRule(parsed config.RuleConfig, ids map[string]loader.NodeID) loader.Rule {
	switch {
	case parsed.Kind == "parent-only":
		return loader.ParentOnly()
	case parsed.Kind == "delegate":
		return loader.Delegate(ids[parsed.Target], parsed.ParentSearched)
	case parsed.ParentSearched:
		return loader.ParentThenSelf()
	default:
		return loader.Self()
	}
}

func (a *assembly) containerList(names []string) ([]container.Container, error) {
	list := make([]container.Container, 0, len(names))
	for _, name := range names {
		source, err := a.container(name)
		if err != nil {
			return nil, err
		}
		list = append(list, source)
	}
	return list, nil
}

func (a *assembly) optionalClassifier(name string) (classify.Classifier, error) {
	if name == "" {
		return nil, nil
	}
	return a.classifier(name)
}

func (a *assembly) policy(encapsulation *config.EncapsulationConfig) (*loader.Policy, error) {
	owners, err := loader.DeriveOwners(encapsulation.Scopes)
	if err != nil {
		return nil, err
	}
	scopes, err := a.optionalClassifier(encapsulation.ScopeClassifier)
	if err != nil {
		return nil, err
	}
	var containers []classify.Classifier
	for _, name := range encapsulation.ContainerClassifiers {
		classifier, err := a.classifier(name)
		if err != nil {
			return nil, err
		}
		containers = append(containers, classifier)
	}
	return loader.NewPolicy(owners, scopes, containers), nil
}

// Node returns the node with the given name.
func (l *Launch) Node(name string) (*loader.Node, error) {
	node, ok := l.Graph.NodeByName(name)
	if !ok {
		return nil, fmt.Errorf("no node named %q", name)
	}
	return node, nil
}

// Close closes every node, then every secure snapshot. It is
// idempotent and returns the joined errors of the first call.
func (l *Launch) Close() error {
	l.closeOnce.Do(func() {
		var errs []error
		for _, node := range l.Graph.Nodes() {
			if err := node.Close(l.token); err != nil {
				errs = append(errs, fmt.Errorf("closing node %s: %w", node.Name(), err))
			}
		}
		errs = append(errs, closeAll(l.snapshots))
		l.closeErr = errors.Join(errs...)
		l.logger.Debug("graph closed", "error", l.closeErr)
	})
	return l.closeErr
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, closer := range closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
