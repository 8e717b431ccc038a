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
	"fmt"
	"strings"
)

// PrereleaseMarker is the version suffix of mutable, not yet released versions.
const PrereleaseMarker = "SNAPSHOT"

// Coordinate is the identity of a published component.
type Coordinate struct {
	Group   string `json:"group"`
	Module  string `json:"module"`
	Version string `json:"version"`
}

// ParseCoordinate parses a 'group:module:version' string.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q, expected 'group:module:version'", s)
	}
	return Coordinate{Group: parts[0], Module: parts[1], Version: parts[2]}, nil
}

func (c Coordinate) String() string {
	return c.Group + ":" + c.Module + ":" + c.Version
}

// IsPrerelease reports whether the version carries the pre-release marker.
func IsPrerelease(version string) bool {
	return strings.HasSuffix(version, "-"+PrereleaseMarker)
}

// NormalizeSnapshotName replaces the build-specific timestamp of a snapshot
// file name with the nominal version, e.g. for module 'mylib' and version
// '1.0.0-SNAPSHOT' the name 'mylib-1.0.0-20240101.120000-1-sources.jar'
// becomes 'mylib-1.0.0-SNAPSHOT-sources.jar'.
//
// timestamped is the version embedded in the on-disk descriptor name; names
// are returned unchanged for release versions or when the descriptor is
// already named after the nominal version.
func NormalizeSnapshotName(name, timestamped, version string) string {
	if !IsPrerelease(version) || timestamped == "" || timestamped == version {
		return name
	}
	return strings.Replace(name, "-"+timestamped, "-"+version, 1)
}

// EmbeddedVersion returns the version embedded in a descriptor base name,
// that is the part of '<module>-<version>' following the module name.
func EmbeddedVersion(baseName, module string) string {
	v, ok := strings.CutPrefix(baseName, module+"-")
	if !ok {
		return ""
	}
	return v
}
