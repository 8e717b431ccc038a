/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stage converts a staging repository in Maven layout into a flat
// directory whose files can be attached to a GitHub release as assets.
package stage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/fluxcd/argh/metadata"
)

// StagedAsset is a file of the prepared directory. SourcePath is empty for
// generated files (index descriptors and checksum sidecars).
type StagedAsset struct {
	SourcePath string
	Name       string
}

// Skipped is a descriptor that was found but not relocated.
type Skipped struct {
	Path   string
	Reason error
}

// Result describes the content of a prepared directory.
type Result struct {
	// Assets are all the files written to the destination, sorted by name.
	Assets []StagedAsset
	// Roots are the coordinates of the relocated root modules.
	Roots []metadata.Coordinate
	// Skipped are the descriptors that could not be parsed or have no root.
	Skipped []Skipped
}

type stagedModule struct {
	path        string
	meta        *metadata.Module
	timestamped string
}

type moduleGroup struct {
	root     *stagedModule
	variants []*stagedModule
}

func (g *moduleGroup) modules() []*stagedModule {
	return append([]*stagedModule{g.root}, g.variants...)
}

// Prepare relocates the module descriptors found under stagingDir, together
// with their artifacts and legacy descriptors, into destDir without nesting.
// Relative references in the relocated descriptors are rewritten, an Ivy
// index is generated for each root module, and SHA-256/SHA-512 sidecars are
// written for every descriptor.
//
// All modules are validated before anything is written: an inconsistent
// staging directory fails with a ValidationError listing every problem.
// Descriptors that can't be parsed are skipped and reported in the result.
func Prepare(stagingDir, destDir string, opts ...Option) (*Result, error) {
	o := makeOptions(opts...)
	stagingDir = filepath.Clean(stagingDir)
	destDir = filepath.Clean(destDir)
	log := o.log.WithValues("stagingDir", stagingDir, "destinationDir", destDir)

	modules, skipped, err := discover(stagingDir, destDir, log)
	if err != nil {
		return nil, err
	}
	result := &Result{Skipped: skipped}

	for _, m := range modules {
		if removed := m.meta.RemoveVariants(metadata.IsJavadocVariant); len(removed) > 0 {
			log.V(1).Info("removed documentation variants", "module", filepath.Base(m.path), "variants", removed)
		}
	}

	groups, orphans := groupModules(modules)
	for _, m := range orphans {
		reason := fmt.Errorf("no root module descriptor found for '%s'", m.meta.Coordinate())
		log.Info("skipping module descriptor", "path", m.path, "reason", reason.Error())
		result.Skipped = append(result.Skipped, Skipped{Path: m.path, Reason: reason})
	}
	if len(groups) == 0 {
		log.Info("no module descriptors found")
		return result, nil
	}

	if err := validate(groups); err != nil {
		return nil, err
	}

	r := newRelocator(destDir, log, o)
	if err := r.plan(groups); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := r.checkDestination(); err != nil {
		return nil, err
	}
	if err := r.relocate(groups); err != nil {
		return nil, err
	}
	if err := r.rewrite(groups); err != nil {
		return nil, err
	}
	if err := r.writeIndexes(groups); err != nil {
		return nil, err
	}
	if err := r.writeChecksums(groups); err != nil {
		return nil, err
	}

	for _, g := range groups {
		result.Roots = append(result.Roots, g.root.meta.Coordinate())
	}
	result.Assets = r.assets()
	log.Info("prepared release assets", "modules", len(modules)-len(orphans), "assets", len(result.Assets))
	return result, nil
}

// discover walks stagingDir in lexical order and parses every module
// descriptor. Unparsable descriptors are skipped.
func discover(stagingDir, destDir string, log logr.Logger) ([]*stagedModule, []Skipped, error) {
	destAbs, _ := filepath.Abs(destDir)

	var modules []*stagedModule
	var skipped []Skipped
	err := filepath.WalkDir(stagingDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(p); abs == destAbs && p != stagingDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || filepath.Ext(p) != "."+metadata.FileExtension {
			return nil
		}
		meta, err := metadata.Load(p)
		if err != nil {
			log.Error(err, "skipping module descriptor")
			skipped = append(skipped, Skipped{Path: p, Reason: err})
			return nil
		}
		modules = append(modules, &stagedModule{
			path:        p,
			meta:        meta,
			timestamped: timestampedVersion(p, meta),
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan staging directory '%s': %w", stagingDir, err)
	}
	return modules, skipped, nil
}

// timestampedVersion returns the version embedded in the descriptor file
// name when it differs from the nominal snapshot version. In a Maven layout
// the artifact ID is the name of the grandparent directory.
func timestampedVersion(path string, meta *metadata.Module) string {
	version := meta.Component.Version
	if !metadata.IsPrerelease(version) {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(path), "."+metadata.FileExtension)
	baseVersion := strings.TrimSuffix(version, "-"+metadata.PrereleaseMarker)
	for _, artifactID := range []string{filepath.Base(filepath.Dir(filepath.Dir(path))), meta.Component.Module} {
		v := metadata.EmbeddedVersion(base, artifactID)
		if v != "" && v != version && strings.HasPrefix(v, baseVersion+"-") {
			return v
		}
	}
	return ""
}

// groupModules associates each root module with the variant modules that
// point at it, either by their component URL or by sharing its coordinate.
func groupModules(modules []*stagedModule) ([]*moduleGroup, []*stagedModule) {
	var groups []*moduleGroup
	for _, m := range modules {
		if m.meta.IsRoot() {
			groups = append(groups, &moduleGroup{root: m})
		}
	}

	var orphans []*stagedModule
	for _, m := range modules {
		if m.meta.IsRoot() {
			continue
		}
		var owner *moduleGroup
		for _, g := range groups {
			if m.resolve(m.meta.Component.URL) == g.root.path {
				owner = g
				break
			}
		}
		if owner == nil {
			for _, g := range groups {
				if m.meta.BelongsTo(g.root.meta) {
					owner = g
					break
				}
			}
		}
		if owner == nil {
			orphans = append(orphans, m)
			continue
		}
		owner.variants = append(owner.variants, m)
	}
	return groups, orphans
}

// validate checks that all variants share the group and version of their
// root, and that every file is a sibling of its descriptor.
func validate(groups []*moduleGroup) error {
	var problems []string
	for _, g := range groups {
		root := g.root.meta.Component

		var badGroups, badVersions []string
		for _, v := range g.variants {
			if v.meta.Component.Group != root.Group {
				badGroups = append(badGroups, v.describe())
			}
			if v.meta.Component.Version != root.Version {
				badVersions = append(badVersions, v.describe())
			}
		}
		if len(badGroups) > 0 {
			problems = append(problems, fmt.Sprintf("the group of all variants of '%s' must be '%s', but found: %s",
				g.root.meta.Coordinate(), root.Group, strings.Join(badGroups, ", ")))
		}
		if len(badVersions) > 0 {
			problems = append(problems, fmt.Sprintf("the version of all variants of '%s' must be '%s', but found: %s",
				g.root.meta.Coordinate(), root.Version, strings.Join(badVersions, ", ")))
		}

		for _, m := range g.modules() {
			var misplaced, missing []string
			for _, a := range m.artifacts() {
				rel, _ := filepath.Rel(m.dir(), a)
				if filepath.Dir(a) != m.dir() {
					misplaced = append(misplaced, filepath.ToSlash(rel))
					continue
				}
				if fi, err := os.Stat(a); err != nil || !fi.Mode().IsRegular() {
					missing = append(missing, filepath.ToSlash(rel))
				}
			}
			if len(misplaced) > 0 {
				problems = append(problems, fmt.Sprintf("%s has artifacts in invalid location: [%s]",
					m.describe(), strings.Join(misplaced, ", ")))
			}
			if len(missing) > 0 {
				problems = append(problems, fmt.Sprintf("%s references missing artifacts: [%s]",
					m.describe(), strings.Join(missing, ", ")))
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (m *stagedModule) dir() string {
	return filepath.Dir(m.path)
}

// resolve returns the cleaned path of a descriptor reference.
func (m *stagedModule) resolve(url string) string {
	return filepath.Join(m.dir(), filepath.FromSlash(url))
}

// artifacts returns the sorted, distinct paths of the files attached to the
// module's variants.
func (m *stagedModule) artifacts() []string {
	var paths []string
	seen := make(map[string]struct{})
	for _, f := range m.meta.Files() {
		p := m.resolve(f.URL)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// assetName returns the relocated name of a file of the module.
func (m *stagedModule) assetName(path string) string {
	return metadata.NormalizeSnapshotName(filepath.Base(path), m.timestamped, m.meta.Component.Version)
}

func (m *stagedModule) legacyPath(ext string) string {
	return strings.TrimSuffix(m.path, "."+metadata.FileExtension) + "." + ext
}

func (m *stagedModule) describe() string {
	return fmt.Sprintf("%s (%s)", m.meta.Coordinate(), m.path)
}

func isRegularFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
