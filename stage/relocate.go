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

package stage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-logr/logr"

	"github.com/fluxcd/argh/checksum"
	"github.com/fluxcd/argh/metadata"
)

type copyOp struct {
	src  string
	name string
}

type claim struct {
	origin string
	asset  StagedAsset
}

// relocator plans and performs the flattening of the staged modules.
// Every destination name is claimed during planning so that collisions are
// detected before the first write.
type relocator struct {
	destDir string
	log     logr.Logger
	opts    *options

	// claimed maps destination names to the file they are produced from.
	claimed map[string]claim
	// renamed maps source paths to their relocated names.
	renamed    map[string]string
	relocated  map[*stagedModule]string
	legacyName map[*stagedModule]string
	copies     map[*stagedModule][]copyOp
}

func newRelocator(destDir string, log logr.Logger, o *options) *relocator {
	return &relocator{
		destDir:    destDir,
		log:        log,
		opts:       o,
		claimed:    make(map[string]claim),
		renamed:    make(map[string]string),
		relocated:  make(map[*stagedModule]string),
		legacyName: make(map[*stagedModule]string),
		copies:     make(map[*stagedModule][]copyOp),
	}
}

func (r *relocator) claim(origin, name string, generated bool) error {
	if prev, ok := r.claimed[name]; ok {
		if prev.origin == origin {
			return nil
		}
		return &CollisionError{Name: name, Source: origin, Claimed: prev.origin}
	}
	asset := StagedAsset{Name: name}
	if !generated {
		asset.SourcePath = origin
	}
	r.claimed[name] = claim{origin: origin, asset: asset}
	return nil
}

func (r *relocator) claimChecksums(name string) error {
	for _, algo := range checksum.Sidecars {
		if err := r.claim("checksum of "+name, checksum.SidecarName(name, algo), true); err != nil {
			return err
		}
	}
	return nil
}

func (r *relocator) plan(groups []*moduleGroup) error {
	for _, g := range groups {
		for _, m := range g.modules() {
			if err := r.planModule(m); err != nil {
				return err
			}
		}
		ivy := metadata.IvyFileName(g.root.meta.Coordinate())
		if err := r.claim("index of "+g.root.path, ivy, true); err != nil {
			return err
		}
		if err := r.claimChecksums(ivy); err != nil {
			return err
		}
	}
	return nil
}

func (r *relocator) planModule(m *stagedModule) error {
	name := m.assetName(m.path)
	if err := r.claim(m.path, name, false); err != nil {
		return err
	}
	r.renamed[m.path] = name
	r.relocated[m] = name
	if err := r.claimChecksums(name); err != nil {
		return err
	}

	for _, a := range m.artifacts() {
		artifact := m.assetName(a)
		if err := r.claim(a, artifact, false); err != nil {
			return err
		}
		r.renamed[a] = artifact
		r.copies[m] = append(r.copies[m], copyOp{src: a, name: artifact})

		for _, ext := range r.opts.artifactMetadataExtensions {
			sidecar := a + "." + ext
			if !isRegularFile(sidecar) {
				continue
			}
			if err := r.claim(sidecar, artifact+"."+ext, false); err != nil {
				return err
			}
			r.copies[m] = append(r.copies[m], copyOp{src: sidecar, name: artifact + "." + ext})
		}
	}

	if r.opts.legacyExtension == "" {
		return nil
	}
	legacy := m.legacyPath(r.opts.legacyExtension)
	if !isRegularFile(legacy) {
		r.log.Info("legacy descriptor not found", "module", m.meta.Coordinate().String(), "path", legacy)
		return nil
	}
	legacyName := m.assetName(legacy)
	if err := r.claim(legacy, legacyName, false); err != nil {
		return err
	}
	r.legacyName[m] = legacyName
	r.copies[m] = append(r.copies[m], copyOp{src: legacy, name: legacyName})
	return r.claimChecksums(legacyName)
}

func (r *relocator) target(name string) (string, error) {
	return securejoin.SecureJoin(r.destDir, name)
}

// checkDestination fails if any planned name already exists in the
// destination directory.
func (r *relocator) checkDestination() error {
	for _, name := range r.sortedNames() {
		p, err := r.target(name)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(p); err == nil {
			return &CollisionError{Name: name, Source: r.claimed[name].origin}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// relocate writes the in-memory descriptors, without the removed variants,
// and copies the artifacts and legacy descriptors.
func (r *relocator) relocate(groups []*moduleGroup) error {
	for _, g := range groups {
		for _, m := range g.modules() {
			data, err := m.meta.Marshal()
			if err != nil {
				return fmt.Errorf("failed to encode module '%s': %w", m.meta.Coordinate(), err)
			}
			if err := r.create(r.relocated[m], m.path, data); err != nil {
				return err
			}
			for _, c := range r.copies[m] {
				if err := r.copy(c); err != nil {
					return err
				}
			}
			r.log.V(1).Info("relocated module", "module", m.meta.Coordinate().String(), "name", r.relocated[m])
		}
	}
	return nil
}

// rewrite reloads every relocated descriptor and points its relative
// references at the relocated siblings.
func (r *relocator) rewrite(groups []*moduleGroup) error {
	for _, g := range groups {
		for _, m := range g.modules() {
			p, err := r.target(r.relocated[m])
			if err != nil {
				return err
			}
			relocated, err := metadata.Load(p)
			if err != nil {
				return fmt.Errorf("failed to reload relocated module: %w", err)
			}
			r.rewriteReferences(m, relocated)
			if err := relocated.Save(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *relocator) rewriteReferences(m *stagedModule, relocated *metadata.Module) {
	relocated.Component.URL = r.rewriteURL(m, relocated.Component.URL)
	for _, v := range relocated.Variants {
		if v.AvailableAt != nil {
			v.AvailableAt.URL = r.rewriteURL(m, v.AvailableAt.URL)
		}
		for _, f := range v.Files {
			url := r.rewriteURL(m, f.URL)
			if f.Name == path.Base(f.URL) {
				f.Name = path.Base(url)
			}
			f.URL = url
		}
	}
}

// rewriteURL maps a reference relative to the staged descriptor to the
// relocated name of its target. Unknown references escaping the descriptor
// directory are reduced to their file name.
func (r *relocator) rewriteURL(m *stagedModule, url string) string {
	if url == "" {
		return url
	}
	if name, ok := r.renamed[m.resolve(url)]; ok {
		return name
	}
	if strings.HasPrefix(url, "../") {
		return path.Base(url)
	}
	return url
}

func (r *relocator) writeIndexes(groups []*moduleGroup) error {
	for _, g := range groups {
		c := g.root.meta.Coordinate()
		if err := r.create(metadata.IvyFileName(c), g.root.path, metadata.IvyIndex(c)); err != nil {
			return err
		}
	}
	return nil
}

func (r *relocator) writeChecksums(groups []*moduleGroup) error {
	var names []string
	for _, g := range groups {
		for _, m := range g.modules() {
			names = append(names, r.relocated[m])
			if legacy, ok := r.legacyName[m]; ok {
				names = append(names, legacy)
			}
		}
		names = append(names, metadata.IvyFileName(g.root.meta.Coordinate()))
	}
	for _, name := range names {
		p, err := r.target(name)
		if err != nil {
			return err
		}
		if _, err := checksum.WriteSidecars(p, checksum.Sidecars...); err != nil {
			return err
		}
	}
	return nil
}

// create writes a new file to the destination, failing if it exists.
func (r *relocator) create(name, source string, data []byte) error {
	p, err := r.target(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &CollisionError{Name: name, Source: source}
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write '%s': %w", p, err)
	}
	return f.Close()
}

func (r *relocator) copy(c copyOp) error {
	in, err := os.Open(c.src)
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := r.target(c.name)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &CollisionError{Name: c.name, Source: c.src}
		}
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy '%s': %w", c.src, err)
	}
	return out.Close()
}

func (r *relocator) sortedNames() []string {
	names := make([]string, 0, len(r.claimed))
	for name := range r.claimed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// assets returns the planned assets sorted by name.
func (r *relocator) assets() []StagedAsset {
	names := r.sortedNames()
	assets := make([]StagedAsset, 0, len(names))
	for _, name := range names {
		assets = append(assets, r.claimed[name].asset)
	}
	return assets
}
