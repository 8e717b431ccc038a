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
	"encoding/xml"

	"github.com/fluxcd/argh/metadata"
)

const (
	pomNamespace    = "http://maven.apache.org/POM/4.0.0"
	pomModelVersion = "4.0.0"
	pomPackaging    = "jar"
	compileScope    = "compile"

	usageAttribute      = "org.gradle.usage"
	jvmVersionAttribute = "org.gradle.jvm.version"
)

// POMProject is the subset of a Maven POM synthesized from a module
// descriptor.
type POMProject struct {
	XMLName      xml.Name        `xml:"project"`
	Namespace    string          `xml:"xmlns,attr"`
	ModelVersion string          `xml:"modelVersion"`
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Packaging    string          `xml:"packaging"`
	Name         string          `xml:"name"`
	Dependencies []POMDependency `xml:"dependencies>dependency,omitempty"`
}

// POMDependency is a dependency of a POMProject.
type POMDependency struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version,omitempty"`
	Scope      string         `xml:"scope,omitempty"`
	Exclusions []POMExclusion `xml:"exclusions>exclusion,omitempty"`
}

// POMExclusion excludes a transitive dependency.
type POMExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

// NewPOMProject converts the module descriptor of the component to the POM
// seen by a Java consumer of its runtime variant.
func NewPOMProject(c metadata.Coordinate, m *metadata.Module) *POMProject {
	p := &POMProject{
		Namespace:    pomNamespace,
		ModelVersion: pomModelVersion,
		GroupID:      c.Group,
		ArtifactID:   c.Module,
		Version:      c.Version,
		Packaging:    pomPackaging,
		Name:         c.Group + ":" + c.Module,
	}

	v := selectJavaVariant(m)
	if v == nil {
		return p
	}
	if at := v.AvailableAt; at != nil {
		p.Dependencies = append(p.Dependencies, POMDependency{
			GroupID:    at.Group,
			ArtifactID: at.Module,
			Version:    at.Version,
		})
	}
	for _, d := range v.Dependencies {
		dep := POMDependency{
			GroupID:    d.Group,
			ArtifactID: d.Module,
			Version:    d.Version.Preferred(),
			Scope:      compileScope,
		}
		for _, e := range d.Excludes {
			dep.Exclusions = append(dep.Exclusions, POMExclusion{GroupID: e.Group, ArtifactID: e.Module})
		}
		p.Dependencies = append(p.Dependencies, dep)
	}
	return p
}

// Marshal returns the indented XML document of the POM.
func (p *POMProject) Marshal() ([]byte, error) {
	data, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

// selectJavaVariant returns the first variant used for Java compilation or
// runtime, else the first variant targeting the JVM.
func selectJavaVariant(m *metadata.Module) *metadata.Variant {
	for _, v := range m.Variants {
		usage, ok := v.Attributes[usageAttribute]
		if !ok || usage.Kind() != metadata.StringKind {
			continue
		}
		if s := usage.String(); s == "java-runtime" || s == "java-api" {
			return v
		}
	}
	for _, v := range m.Variants {
		_, usage := v.Attributes[usageAttribute]
		_, jvm := v.Attributes[jvmVersionAttribute]
		if usage || jvm {
			return v
		}
	}
	return nil
}
