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

package release

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	gh "github.com/google/go-github/v82/github"

	"github.com/fluxcd/argh/metadata"
)

// requiredScope is needed to manage the releases of private repositories.
const requiredScope = "repo"

// preflight checks the batch against the platform limits and the state of
// the release before anything is changed.
func (s *Syncer) preflight(ctx context.Context, log logr.Logger, o *options, tag string, rel *Record,
	batch []asset, existing, stale []*gh.ReleaseAsset) error {
	var violations []string

	remaining := len(existing) - len(stale)
	if n := remaining + len(batch); n > MaxAssetsPerRelease {
		violations = append(violations, fmt.Sprintf("release would have %d assets, the limit is %d", n, MaxAssetsPerRelease))
	}

	seen := make(map[string]struct{}, len(batch))
	var descriptors []string
	for _, a := range batch {
		if a.size >= MaxAssetSize {
			violations = append(violations, fmt.Sprintf("asset '%s' is %d bytes, the limit is %d", a.name, a.size, MaxAssetSize))
		}
		key := strings.ToLower(a.name)
		if _, ok := seen[key]; ok {
			violations = append(violations, fmt.Sprintf("asset name '%s' is used more than once", a.name))
		}
		seen[key] = struct{}{}
		if filepath.Ext(a.name) == "."+metadata.FileExtension {
			descriptors = append(descriptors, a.path)
		}
	}

	if v := checkConsistency(descriptors); v != "" {
		violations = append(violations, v)
	}

	if o.scopes != nil {
		if err := o.scopes.CheckScopes(ctx, requiredScope); err != nil {
			violations = append(violations, err.Error())
		}
	}

	if len(violations) > 0 {
		err := &PreflightError{Violations: violations}
		if o.enforce {
			return err
		}
		log.Info("ignoring failed preflight checks", "violations", violations)
	}

	return checkDuplicates(tag, rel, batch, existing, stale)
}

// checkConsistency verifies that all descriptors of the batch share one
// group and one version.
func checkConsistency(paths []string) string {
	groups := make(map[string][]string)
	versions := make(map[string][]string)
	for _, p := range paths {
		m, err := metadata.Load(p)
		if err != nil {
			return err.Error()
		}
		name := filepath.Base(p)
		groups[m.Component.Group] = append(groups[m.Component.Group], name)
		versions[m.Component.Version] = append(versions[m.Component.Version], name)
	}

	var problems []string
	if len(groups) > 1 {
		problems = append(problems, "groups "+describe(groups))
	}
	if len(versions) > 1 {
		problems = append(problems, "versions "+describe(versions))
	}
	if len(problems) == 0 {
		return ""
	}
	return "module descriptors have mixed " + strings.Join(problems, " and ")
}

func describe(values map[string][]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("'%s' (%s)", k, strings.Join(values[k], ", ")))
	}
	return strings.Join(parts, ", ")
}

// checkDuplicates fails when assets of the batch would collide with assets
// that stay on the release.
func checkDuplicates(tag string, rel *Record, batch []asset, existing, stale []*gh.ReleaseAsset) error {
	if rel == nil || len(existing) == 0 {
		return nil
	}
	removed := make(map[int64]struct{}, len(stale))
	for _, a := range stale {
		removed[a.GetID()] = struct{}{}
	}
	kept := make(map[string]struct{})
	for _, a := range existing {
		if _, ok := removed[a.GetID()]; !ok {
			kept[strings.ToLower(a.GetName())] = struct{}{}
		}
	}

	var duplicates []string
	for _, a := range batch {
		if _, ok := kept[strings.ToLower(a.name)]; ok {
			duplicates = append(duplicates, a.name)
		}
	}
	if len(duplicates) == 0 {
		return nil
	}
	return &DuplicateAssetError{
		Tag:       tag,
		Immutable: rel.Immutable != nil && *rel.Immutable,
		Names:     duplicates,
	}
}
