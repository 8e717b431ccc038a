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

package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	// FileExtension is the extension of module descriptor files.
	FileExtension = "module"

	// DefaultFormatVersion is written when a descriptor has no format version.
	DefaultFormatVersion = "1.1"
)

// Module is a Gradle Module Metadata descriptor. A descriptor without a
// component URL is a root descriptor, otherwise it is a variant descriptor
// pointing at its root.
type Module struct {
	FormatVersion string     `json:"formatVersion"`
	Component     Component  `json:"component"`
	CreatedBy     *CreatedBy `json:"createdBy,omitempty"`
	Variants      []*Variant `json:"variants"`
}

// Component identifies the published component.
type Component struct {
	Group      string     `json:"group"`
	Module     string     `json:"module"`
	Version    string     `json:"version"`
	URL        string     `json:"url,omitempty"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// CreatedBy records the tool that produced the descriptor.
type CreatedBy struct {
	Gradle *GradleInfo `json:"gradle,omitempty"`
}

// GradleInfo is the producing Gradle version.
type GradleInfo struct {
	Version string `json:"version"`
	BuildID string `json:"buildId,omitempty"`
}

// Variant is one attribute-tagged variant of a component.
type Variant struct {
	Name                  string                  `json:"name"`
	Attributes            Attributes              `json:"attributes,omitempty"`
	AvailableAt           *AvailableAt            `json:"available-at,omitempty"`
	Dependencies          []*Dependency           `json:"dependencies,omitempty"`
	DependencyConstraints []*DependencyConstraint `json:"dependencyConstraints,omitempty"`
	Files                 []*File                 `json:"files,omitempty"`
	Capabilities          []*Capability           `json:"capabilities,omitempty"`
}

// AvailableAt points a variant at another descriptor.
type AvailableAt struct {
	URL     string `json:"url"`
	Group   string `json:"group"`
	Module  string `json:"module"`
	Version string `json:"version"`
}

// Dependency is a dependency declared by a variant.
type Dependency struct {
	Group                   string                   `json:"group"`
	Module                  string                   `json:"module"`
	Version                 *VersionConstraint       `json:"version,omitempty"`
	Excludes                []*Exclude               `json:"excludes,omitempty"`
	Reason                  string                   `json:"reason,omitempty"`
	Attributes              Attributes               `json:"attributes,omitempty"`
	RequestedCapabilities   []*Capability            `json:"requestedCapabilities,omitempty"`
	EndorseStrictVersions   *bool                    `json:"endorseStrictVersions,omitempty"`
	ThirdPartyCompatibility *ThirdPartyCompatibility `json:"thirdPartyCompatibility,omitempty"`
}

// DependencyConstraint is a version constraint declared by a variant.
type DependencyConstraint struct {
	Group      string             `json:"group"`
	Module     string             `json:"module"`
	Version    *VersionConstraint `json:"version,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Attributes Attributes         `json:"attributes,omitempty"`
}

// VersionConstraint is a rich version declaration.
type VersionConstraint struct {
	Requires string   `json:"requires,omitempty"`
	Prefers  string   `json:"prefers,omitempty"`
	Strictly string   `json:"strictly,omitempty"`
	Rejects  []string `json:"rejects,omitempty"`
}

// Preferred returns the single version closest to a Maven version:
// strictly, then requires, then prefers.
func (vc *VersionConstraint) Preferred() string {
	if vc == nil {
		return ""
	}
	switch {
	case vc.Strictly != "":
		return vc.Strictly
	case vc.Requires != "":
		return vc.Requires
	default:
		return vc.Prefers
	}
}

// Exclude removes a transitive dependency.
type Exclude struct {
	Group  string `json:"group"`
	Module string `json:"module"`
}

// Capability is a capability provided or requested by a variant.
type Capability struct {
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ThirdPartyCompatibility carries the artifact selector of a dependency.
type ThirdPartyCompatibility struct {
	ArtifactSelector *ArtifactSelector `json:"artifactSelector,omitempty"`
}

// ArtifactSelector selects a single artifact of a dependency.
type ArtifactSelector struct {
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	Extension  string `json:"extension,omitempty"`
	Classifier string `json:"classifier,omitempty"`
}

// File is a file attached to a variant. The URL is relative to the
// descriptor file.
type File struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	SHA512 string `json:"sha512,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	SHA1   string `json:"sha1,omitempty"`
	MD5    string `json:"md5,omitempty"`
}

// Load reads and parses the descriptor at path.
func Load(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	m, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}

// Parse decodes a descriptor. Unknown fields are ignored, structurally
// invalid documents are rejected with a ParseError.
func Parse(data []byte) (*Module, error) {
	var m Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Err: err}
	}
	if err := m.validate(); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &m, nil
}

func (m *Module) validate() error {
	var errs []error
	if m.Component.Group == "" {
		errs = append(errs, errors.New("component.group is required"))
	}
	if m.Component.Module == "" {
		errs = append(errs, errors.New("component.module is required"))
	}
	if m.Component.Version == "" {
		errs = append(errs, errors.New("component.version is required"))
	}
	for i, v := range m.Variants {
		if v == nil {
			errs = append(errs, fmt.Errorf("variants[%d] is null", i))
			continue
		}
		if v.Name == "" {
			errs = append(errs, fmt.Errorf("variants[%d].name is required", i))
		}
		if v.AvailableAt != nil && v.AvailableAt.URL == "" {
			errs = append(errs, fmt.Errorf("variant '%s': available-at.url is required", v.Name))
		}
		for j, f := range v.Files {
			if f == nil || f.Name == "" || f.URL == "" {
				errs = append(errs, fmt.Errorf("variant '%s': files[%d] requires a name and url", v.Name, j))
			}
		}
		for j, d := range v.Dependencies {
			if d == nil {
				errs = append(errs, fmt.Errorf("variant '%s': dependencies[%d] is null", v.Name, j))
				continue
			}
			errs = append(errs, nullEntries(fmt.Sprintf("variant '%s': dependencies[%d].excludes", v.Name, j), d.Excludes)...)
			errs = append(errs, nullEntries(fmt.Sprintf("variant '%s': dependencies[%d].requestedCapabilities", v.Name, j), d.RequestedCapabilities)...)
		}
		errs = append(errs, nullEntries(fmt.Sprintf("variant '%s': dependencyConstraints", v.Name), v.DependencyConstraints)...)
		errs = append(errs, nullEntries(fmt.Sprintf("variant '%s': capabilities", v.Name), v.Capabilities)...)
	}
	return errors.Join(errs...)
}

func nullEntries[T any](field string, entries []*T) []error {
	var errs []error
	for i, e := range entries {
		if e == nil {
			errs = append(errs, fmt.Errorf("%s[%d] is null", field, i))
		}
	}
	return errs
}

// Marshal encodes the descriptor as indented JSON terminated by a newline.
// The output is stable for equal descriptors.
func (m *Module) Marshal() ([]byte, error) {
	if m.FormatVersion == "" {
		m.FormatVersion = DefaultFormatVersion
	}
	if m.Variants == nil {
		m.Variants = []*Variant{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the descriptor to path, replacing any existing file.
func (m *Module) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode module '%s': %w", m.Coordinate(), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Coordinate returns the component coordinate.
func (m *Module) Coordinate() Coordinate {
	return Coordinate{
		Group:   m.Component.Group,
		Module:  m.Component.Module,
		Version: m.Component.Version,
	}
}

// IsRoot reports whether the descriptor is a root descriptor.
func (m *Module) IsRoot() bool {
	return m.Component.URL == ""
}

// BelongsTo reports whether m is a variant descriptor of root.
func (m *Module) BelongsTo(root *Module) bool {
	return !m.IsRoot() &&
		m.Component.Group == root.Component.Group &&
		m.Component.Module == root.Component.Module &&
		m.Component.Version == root.Component.Version
}

// RemoveVariants removes the variants matching the predicate and returns
// their names.
func (m *Module) RemoveVariants(remove func(*Variant) bool) []string {
	var removed []string
	kept := m.Variants[:0]
	for _, v := range m.Variants {
		if remove(v) {
			removed = append(removed, v.Name)
			continue
		}
		kept = append(kept, v)
	}
	m.Variants = kept
	return removed
}

// Files returns the files of all variants, in declaration order and without
// duplicate URLs.
func (m *Module) Files() []*File {
	seen := make(map[string]struct{})
	var files []*File
	for _, v := range m.Variants {
		for _, f := range v.Files {
			if _, ok := seen[f.URL]; ok {
				continue
			}
			seen[f.URL] = struct{}{}
			files = append(files, f)
		}
	}
	return files
}

// HasAttributes reports whether the variant carries all the given attributes.
func (v *Variant) HasAttributes(want map[string]AttributeValue) bool {
	return v.Attributes.Contains(want)
}

var javadocAttributes = map[string]AttributeValue{
	"org.gradle.category": String("documentation"),
	"org.gradle.docstype": String("javadoc"),
}

// IsJavadocVariant reports whether the variant is a javadoc documentation
// variant.
func IsJavadocVariant(v *Variant) bool {
	return v.HasAttributes(javadocAttributes)
}
