// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vestige-java/vestige.core/lib/classify"
	"github.com/vestige-java/vestige.core/lib/container"
)

// NodeSpec is the structural configuration of one node.
type NodeSpec struct {
	// Name identifies the node in error messages and logs. Empty
	// selects "node-<id>".
	Name string

	// Parent is the structural parent, or zero for none.
	Parent NodeID

	// Before is searched ahead of Containers. Container indices run
	// across Before followed by Containers.
	Before     []container.Container
	Containers []container.Container

	// CodeUnits and Resources classify code unit names ("a.b.C") and
	// resource names ("a/b/c.txt"). Nil selects classify.Constant(0).
	CodeUnits classify.Classifier
	Resources classify.Classifier

	// Routes maps a route code to its ordered rules. A nil list means
	// the route resolves nothing.
	Routes [][]Rule

	// Encapsulation gates requests made with a scope. Nil disables
	// encapsulation.
	Encapsulation *Policy

	// Logger receives container IO failures. Nil selects
	// slog.Default().
	Logger *slog.Logger
}

// GraphBuilder collects node specs. Nodes may refer to nodes added
// later, so validation happens in Build.
type GraphBuilder struct {
	specs   []NodeSpec
	defined []bool
}

// Reserve allocates an ID whose spec is supplied later with Define.
func (b *GraphBuilder) Reserve() NodeID {
	b.specs = append(b.specs, NodeSpec{})
	b.defined = append(b.defined, false)
	return NodeID(len(b.specs))
}

// Define supplies the spec of a reserved ID.
func (b *GraphBuilder) Define(id NodeID, spec NodeSpec) error {
	if id <= 0 || int(id) > len(b.specs) {
		return fmt.Errorf("node %d was not reserved", id)
	}
	if b.defined[id-1] {
		return fmt.Errorf("node %d is already defined", id)
	}
	b.specs[id-1] = spec
	b.defined[id-1] = true
	return nil
}

// Add reserves and defines a node in one step.
func (b *GraphBuilder) Add(spec NodeSpec) NodeID {
	id := b.Reserve()
	b.specs[id-1] = spec
	b.defined[id-1] = true
	return id
}

// Build validates every reference and returns the immutable graph.
func (b *GraphBuilder) Build() (*Graph, error) {
	var errs []error
	valid := func(id NodeID) bool { return id > 0 && int(id) <= len(b.specs) }

	for index, spec := range b.specs {
		id := NodeID(index + 1)
		if !b.defined[index] {
			errs = append(errs, fmt.Errorf("node %d: reserved but never defined", id))
			continue
		}
		if spec.Parent != 0 && !valid(spec.Parent) {
			errs = append(errs, fmt.Errorf("node %d: parent %d does not exist", id, spec.Parent))
		}
		for route, rules := range spec.Routes {
			for _, rule := range rules {
				switch rule.Kind {
				case RuleLocal, RuleParentOnly:
				case RuleDelegate:
					if !valid(rule.Target) {
						errs = append(errs, fmt.Errorf("node %d route %d: delegate target %d does not exist", id, route, rule.Target))
					}
				default:
					errs = append(errs, fmt.Errorf("node %d route %d: unknown rule kind %d", id, route, rule.Kind))
				}
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Ordinary resolution follows the parent chain, so it must end.
	for index := range b.specs {
		seen := map[NodeID]bool{}
		for id := NodeID(index + 1); id != 0; id = b.specs[id-1].Parent {
			if seen[id] {
				errs = append(errs, fmt.Errorf("node %d: parent chain forms a cycle", index+1))
				break
			}
			seen[id] = true
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	graph := &Graph{nodes: make([]*Node, len(b.specs))}
	for index, spec := range b.specs {
		graph.nodes[index] = newNode(graph, NodeID(index+1), spec)
	}
	return graph, nil
}

// Graph is an immutable arena of nodes.
type Graph struct {
	nodes []*Node
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id <= 0 || int(id) > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

// NodeByName returns the first node with the given diagnostic name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	for _, node := range g.nodes {
		if node.name == name {
			return node, true
		}
	}
	return nil, false
}

// Nodes returns every node in ID order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}
