// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vestige-java/vestige.core/lib/classify"
	"github.com/vestige-java/vestige.core/lib/container"
)

// Node is one isolation scope of a Graph. All methods are safe for
// concurrent use.
type Node struct {
	graph      *Graph
	id         NodeID
	name       string
	parent     NodeID
	containers []container.Container
	codeUnits  classify.Classifier
	resources  classify.Classifier
	routes     [][]Rule
	policy     *Policy
	logger     *slog.Logger

	packagesMu sync.Mutex
	packages   map[string]DefinedPackage

	ownerMu sync.Mutex
	owner   *Token
	payload any
	closed  atomic.Bool

	// Guarded by the handle registry's lock.
	handleSlot    int
	hasHandleSlot bool
}

func newNode(graph *Graph, id NodeID, spec NodeSpec) *Node {
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("node-%d", id)
	}
	codeUnits := spec.CodeUnits
	if codeUnits == nil {
		codeUnits = classify.Constant(0)
	}
	resources := spec.Resources
	if resources == nil {
		resources = classify.Constant(0)
	}
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}
	containers := make([]container.Container, 0, len(spec.Before)+len(spec.Containers))
	containers = append(containers, spec.Before...)
	containers = append(containers, spec.Containers...)

	return &Node{
		graph:      graph,
		id:         id,
		name:       name,
		parent:     spec.Parent,
		containers: containers,
		codeUnits:  codeUnits,
		resources:  resources,
		routes:     spec.Routes,
		policy:     spec.Encapsulation,
		logger:     logger.With("node", name),
		packages:   make(map[string]DefinedPackage),
	}
}

// ID returns the node's ID within its graph.
func (n *Node) ID() NodeID { return n.id }

// Name returns the node's diagnostic name.
func (n *Node) Name() string { return n.name }

func (n *Node) String() string { return n.name }

// Parent returns the structural parent, or nil.
func (n *Node) Parent() *Node { return n.graph.Node(n.parent) }

// Container returns the container at index, or nil.
func (n *Node) Container(index int) container.Container {
	if index < 0 || index >= len(n.containers) {
		return nil
	}
	return n.containers[index]
}

// ContainerCount returns the number of containers, Before included.
func (n *Node) ContainerCount() int { return len(n.containers) }

// Encapsulation returns the node's policy, or nil.
func (n *Node) Encapsulation() *Policy { return n.policy }

// Located is a resolved entry together with where it was found.
type Located struct {
	Entry     container.Entry
	Node      *Node
	Container int
}

// request is one resolution in progress.
type request struct {
	// name is what the classifier sees: dotted for code units.
	name string
	// entry is the container entry name.
	entry    string
	codeUnit bool
	// narrow limits the requesting node's self-search to one
	// container; -1 allows all.
	narrow int
	origin *Node
}

// Resolve finds the code unit with the dotted name (e.g. "a.b.Widget")
// by walking this node's route table.
func (n *Node) Resolve(name string) (Located, error) {
	return n.resolve(n.codeUnitRequest(name))
}

// ResolveResource finds the resource with the slash-separated name.
func (n *Node) ResolveResource(name string) (Located, error) {
	return n.resolve(n.resourceRequest(name))
}

// ResolveFrom resolves a code unit on behalf of a caller in scope. An
// empty scope applies no encapsulation.
func (n *Node) ResolveFrom(scope, name string) (Located, error) {
	req := n.codeUnitRequest(name)
	if !n.gate(scope, &req) {
		return Located{}, n.notFound(name)
	}
	return n.resolve(req)
}

// ResolveResourceFrom resolves a resource on behalf of a caller in
// scope.
func (n *Node) ResolveResourceFrom(scope, name string) (Located, error) {
	req := n.resourceRequest(name)
	if !n.gate(scope, &req) {
		return Located{}, n.notFound(name)
	}
	return n.resolve(req)
}

// ResolveResources returns every entry for name reachable through the
// route, in rule order, without duplicates.
func (n *Node) ResolveResources(name string) []Located {
	req := n.resourceRequest(name)
	rules, ok := n.route(req)
	if !ok {
		return nil
	}
	collector := &collector{seen: make(map[locationKey]bool)}
	for _, rule := range rules {
		switch rule.Kind {
		case RuleParentOnly:
			n.collectParent(req, collector)
		case RuleLocal:
			if rule.ParentSearched {
				n.collectParent(req, collector)
			}
			n.collectSelf(req, collector)
		case RuleDelegate:
			target := n.graph.Node(rule.Target)
			if rule.ParentSearched {
				target.collectParent(req, collector)
			}
			target.collectSelf(req, collector)
		}
	}
	return collector.found
}

func (n *Node) codeUnitRequest(name string) request {
	return request{name: name, entry: classify.EntryNameOfCodeUnit(name), codeUnit: true, narrow: -1, origin: n}
}

func (n *Node) resourceRequest(name string) request {
	return request{name: name, entry: name, narrow: -1, origin: n}
}

// gate applies the encapsulation policy. It reports false when the
// request must fail as not found.
func (n *Node) gate(scope string, req *request) bool {
	if n.policy == nil || scope == "" {
		return true
	}
	location := n.policy.Locate(scope, req.entry)
	switch {
	case location == AnyContainer:
		return true
	case location < 0:
		return false
	default:
		req.narrow = location
		return true
	}
}

func (n *Node) route(req request) ([]Rule, bool) {
	classifier := n.resources
	if req.codeUnit {
		classifier = n.codeUnits
	}
	code := classifier.Classify(req.name)
	if code < 0 || code >= len(n.routes) || n.routes[code] == nil {
		return nil, false
	}
	return n.routes[code], true
}

// resolve walks the route table: the first tier of resolution.
func (n *Node) resolve(req request) (Located, error) {
	rules, ok := n.route(req)
	if !ok {
		return Located{}, n.notFound(req.name)
	}
	for _, rule := range rules {
		var located Located
		var err error
		switch rule.Kind {
		case RuleParentOnly:
			located, err = n.parentOrdinary(req)
		case RuleLocal:
			located, err = n.bounded(req, rule.ParentSearched, false)
		case RuleDelegate:
			located, err = n.graph.Node(rule.Target).bounded(req, rule.ParentSearched, true)
		}
		if err == nil {
			return located, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Located{}, err
		}
	}
	return Located{}, n.notFound(req.name)
}

// bounded is the second tier: optionally the parent's ordinary
// resolution, then a self-search. It never follows a route table's
// rules. A node reached by delegation still refuses resources its own
// resource classifier does not route, so encapsulated resource
// packages stay hidden from delegating nodes. Code units are not
// checked.
func (n *Node) bounded(req request, parentSearched, delegated bool) (Located, error) {
	if parentSearched {
		located, err := n.parentOrdinary(req)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return located, err
		}
	}
	if delegated && !req.codeUnit {
		if _, ok := n.route(req); !ok {
			return Located{}, n.notFound(req.name)
		}
	}
	return n.self(req)
}

func (n *Node) parentOrdinary(req request) (Located, error) {
	parent := n.Parent()
	if parent == nil {
		return Located{}, n.notFound(req.name)
	}
	return parent.bounded(req, true, false)
}

// self searches this node's containers in order.
func (n *Node) self(req request) (Located, error) {
	if n.closed.Load() {
		return Located{}, n.notFound(req.name)
	}
	narrow := -1
	if req.origin == n {
		narrow = req.narrow
	}
	for index, source := range n.containers {
		if narrow >= 0 && index != narrow {
			continue
		}
		entry, ok := n.find(source, req.entry)
		if !ok {
			continue
		}
		if req.codeUnit {
			if err := n.checkPackage(classify.PackageOfCodeUnit(req.name), entry); err != nil {
				return Located{}, err
			}
		}
		return Located{Entry: entry, Node: n, Container: index}, nil
	}
	return Located{}, n.notFound(req.name)
}

// find looks name up in one container. IO failures are logged and
// treated as a miss so other containers stay usable.
func (n *Node) find(source container.Container, name string) (container.Entry, bool) {
	entry, err := source.Find(name)
	if err == nil {
		return entry, true
	}
	if !errors.Is(err, container.ErrEntryNotFound) {
		n.logger.Warn("container lookup failed",
			"container", source.String(),
			"name", name,
			"error", err,
		)
	}
	return nil, false
}

func (n *Node) notFound(name string) error {
	return &NotFoundError{Name: name, Node: n.name}
}

type locationKey struct {
	node      *Node
	container int
}

type collector struct {
	seen  map[locationKey]bool
	found []Located
}

func (c *collector) add(located Located) {
	key := locationKey{node: located.Node, container: located.Container}
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.found = append(c.found, located)
}

func (n *Node) collectParent(req request, c *collector) {
	parent := n.Parent()
	if parent == nil {
		return
	}
	parent.collectParent(req, c)
	parent.collectSelf(req, c)
}

func (n *Node) collectSelf(req request, c *collector) {
	if n.closed.Load() {
		return
	}
	for index, source := range n.containers {
		if entry, ok := n.find(source, req.entry); ok {
			c.add(Located{Entry: entry, Node: n, Container: index})
		}
	}
}
