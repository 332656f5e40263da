// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"fmt"

	"github.com/vestige-java/vestige.core/lib/classify"
	"github.com/vestige-java/vestige.core/lib/config"
	"github.com/vestige-java/vestige.core/lib/container"
)

// container returns the named container, creating it on first use so
// a container shared by several nodes or patches is one instance.
func (a *assembly) container(name string) (container.Container, error) {
	if existing, ok := a.containers[name]; ok {
		return existing, nil
	}
	definition, ok := a.cfg.Containers[name]
	if !ok {
		return nil, fmt.Errorf("container %q is not defined", name)
	}

	var (
		source container.Container
		err    error
	)
	switch definition.Kind {
	case config.KindDirectory:
		source = container.Directory(definition.Path)
	case config.KindArchive:
		var options container.ArchiveOptions
		if options, err = a.archiveOptions(definition); err == nil {
			source = container.NewArchive(definition.Path, options)
		}
	case config.KindSecure:
		var options container.ArchiveOptions
		if options, err = a.archiveOptions(definition); err == nil {
			source, err = a.secureArchive(definition.Path, options)
		}
	case config.KindPatched:
		var original, patch container.Container
		if original, err = a.container(definition.Original); err != nil {
			break
		}
		if patch, err = a.container(definition.Patch); err != nil {
			break
		}
		source = container.Patched(original, patch, definition.MetadataFromPatch)
	default:
		err = fmt.Errorf("unknown kind %q", definition.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", name, err)
	}
	a.containers[name] = source
	return source, nil
}

func (a *assembly) archiveOptions(definition config.ContainerConfig) (container.ArchiveOptions, error) {
	options := container.ArchiveOptions{
		PlatformVersion: a.cfg.PlatformVersion,
		VersionPrefix:   definition.VersionPrefix,
	}
	switch definition.MultiRelease {
	case "", "auto":
		options.MultiRelease = container.MultiReleaseAuto
	case "force":
		options.MultiRelease = container.MultiReleaseForce
	case "disable":
		options.MultiRelease = container.MultiReleaseDisable
	default:
		return options, fmt.Errorf("unknown multi_release %q", definition.MultiRelease)
	}
	return options, nil
}

// classifier returns the named classifier, building it on first use.
func (a *assembly) classifier(name string) (classify.Classifier, error) {
	if existing, ok := a.classifiers[name]; ok {
		return existing, nil
	}
	definition, ok := a.cfg.Classifiers[name]
	if !ok {
		return nil, fmt.Errorf("classifier %q is not defined", name)
	}

	var (
		classifier classify.Classifier
		err        error
	)
	switch definition.Kind {
	case config.KindConstant:
		classifier = classify.Constant(definition.Route)
	case config.KindPattern:
		classifier, err = classify.Pattern(definition.Pattern, definition.Match, definition.Mismatch)
	case config.KindList:
		classifier = classify.List(definition.Names, definition.Mismatch)
	case config.KindPrefixes:
		rules := make([]classify.AutomatonRule, len(definition.Rules))
		for index, rule := range definition.Rules {
			rules[index] = classify.AutomatonRule{Pattern: rule.Pattern, Route: rule.Route}
		}
		classifier, err = classify.CompileAutomaton(rules, definition.Default)
	case config.KindEncapsulation:
		if definition.Delegate == name {
			err = fmt.Errorf("cannot delegate to itself")
			break
		}
		var delegate classify.Classifier
		if delegate, err = a.classifier(definition.Delegate); err == nil {
			classifier = classify.ResourceEncapsulation(delegate, definition.Packages, definition.Code)
		}
	default:
		err = fmt.Errorf("unknown kind %q", definition.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", name, err)
	}
	a.classifiers[name] = classifier
	return classifier, nil
}
