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

import "github.com/go-logr/logr"

const (
	// DefaultLegacyDescriptorExtension is the extension of the Maven POM
	// published next to each module descriptor.
	DefaultLegacyDescriptorExtension = "pom"
)

// DefaultArtifactMetadataExtensions are the sidecar extensions copied
// together with an artifact when present, e.g. 'mylib-1.0.0.jar.asc'.
var DefaultArtifactMetadataExtensions = []string{"asc"}

type options struct {
	log                        logr.Logger
	artifactMetadataExtensions []string
	legacyExtension            string
}

// Option configures Prepare.
type Option func(*options)

// WithLogger sets the logger used to report progress and skipped files.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithArtifactMetadataExtensions sets the extensions of the artifact sidecar
// files relocated together with each artifact.
func WithArtifactMetadataExtensions(exts ...string) Option {
	return func(o *options) {
		o.artifactMetadataExtensions = exts
	}
}

// WithLegacyDescriptorExtension sets the extension of the legacy descriptor
// relocated together with each module descriptor.
func WithLegacyDescriptorExtension(ext string) Option {
	return func(o *options) {
		o.legacyExtension = ext
	}
}

func makeOptions(opts ...Option) *options {
	o := &options{
		log:                        logr.Discard(),
		artifactMetadataExtensions: DefaultArtifactMetadataExtensions,
		legacyExtension:            DefaultLegacyDescriptorExtension,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
