// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"errors"

	"github.com/vestige-java/vestige.core/lib/classify"
	"github.com/vestige-java/vestige.core/lib/container"
	"github.com/vestige-java/vestige.core/lib/loader"
)

// Report is one resolution outcome as printed by vestige-resolve.
type Report struct {
	// Name is the requested code unit or resource name.
	Name string `json:"name"`

	// Found is false when the name could not be resolved; Error then
	// says why.
	Found bool   `json:"found"`
	Error string `json:"error,omitempty"`

	// Node and Container say where the entry was found. Container is
	// the index across the node's before and main lists.
	Node      string `json:"node,omitempty"`
	Container int    `json:"container"`

	Entry  string `json:"entry,omitempty"`
	Source string `json:"source,omitempty"`
	Size   int64  `json:"size"`

	// Handle re-opens the entry for as long as the node is reachable.
	Handle string `json:"handle,omitempty"`

	Package  string                    `json:"package,omitempty"`
	Metadata container.PackageMetadata `json:"metadata"`
	Signers  []container.Signer        `json:"signers,omitempty"`
}

// NewReport describes the result of resolving name.
func NewReport(name string, located loader.Located, err error) Report {
	report := Report{Name: name, Container: -1, Size: -1}
	if err != nil {
		report.Error = err.Error()
		return report
	}
	entry := located.Entry
	report.Found = true
	report.Node = located.Node.Name()
	report.Container = located.Container
	report.Entry = entry.Name()
	report.Source = entry.Source()
	report.Size = entry.Size()
	report.Handle = located.Address()
	report.Package = classify.PackageOfResource(entry.Name())
	report.Metadata = entry.Package()
	report.Signers = entry.Signers()
	return report
}

// Reports describes every location of name collected from node, or a
// single not-found report when found is empty.
func Reports(node *loader.Node, name string, found []loader.Located) []Report {
	if len(found) == 0 {
		return []Report{NewReport(name, loader.Located{}, &loader.NotFoundError{Name: name, Node: node.Name()})}
	}
	reports := make([]Report, len(found))
	for index, located := range found {
		reports[index] = NewReport(name, located, nil)
	}
	return reports
}

// NotFound reports whether err is an ordinary resolution miss rather
// than an IO or sealing failure.
func NotFound(err error) bool {
	return errors.Is(err, loader.ErrNotFound)
}
