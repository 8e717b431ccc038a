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

package resolve

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fluxcd/argh/metadata"
)

// DefaultBaseURL is where release assets are downloaded from.
const DefaultBaseURL = "https://github.com/"

// Artifact is a single file of a published component.
type Artifact struct {
	metadata.Coordinate
	Classifier string
	Extension  string
}

// FileName returns the release asset name of the artifact,
// '{module}-{version}(-{classifier}).{ext}'.
func (a Artifact) FileName() string {
	var b strings.Builder
	b.WriteString(a.Module)
	b.WriteString("-")
	b.WriteString(a.Version)
	if a.Classifier != "" {
		b.WriteString("-")
		b.WriteString(a.Classifier)
	}
	b.WriteString(".")
	b.WriteString(a.Extension)
	return b.String()
}

// Layout maps artifacts to release asset URLs. The group of a component
// names the repository hosting its releases: the group 'octo.widgets'
// resolves to the releases of 'github.com/octo/widgets'.
type Layout struct {
	base      *url.URL
	tagPrefix string
}

// NewLayout returns a Layout for assets served below baseURL. Release tags
// are the component version prefixed with tagPrefix.
func NewLayout(baseURL, tagPrefix string) (*Layout, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme in base URL %q", baseURL)
	}
	return &Layout{base: u, tagPrefix: tagPrefix}, nil
}

// Path returns the location of the artifact relative to the base URL.
func (l *Layout) Path(a Artifact) string {
	return l.AssetPath(a.Coordinate, a.FileName())
}

// AssetPath returns the location of the named asset of the release of the
// component, relative to the base URL.
func (l *Layout) AssetPath(c metadata.Coordinate, name string) string {
	return strings.ReplaceAll(c.Group, ".", "/") +
		"/releases/download/" + l.tagPrefix + c.Version + "/" + name
}

// URL returns the download URL of the artifact.
func (l *Layout) URL(a Artifact) string {
	return l.base.JoinPath(l.Path(a)).String()
}

// AssetURL returns the download URL of the named asset.
func (l *Layout) AssetURL(c metadata.Coordinate, name string) string {
	return l.base.JoinPath(l.AssetPath(c, name)).String()
}

// DescriptorArtifact returns the module descriptor artifact of a component.
func DescriptorArtifact(c metadata.Coordinate) Artifact {
	return Artifact{Coordinate: c, Extension: metadata.FileExtension}
}
