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
	"fmt"
	"strings"
)

// ValidationError lists every inconsistency found across the staged
// descriptors. Nothing is written to the destination when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("staged modules are invalid:\n  %s", strings.Join(e.Problems, "\n  "))
}

// CollisionError is returned when two different files would be relocated to
// the same asset name.
type CollisionError struct {
	Name    string
	Source  string
	Claimed string
}

func (e *CollisionError) Error() string {
	if e.Claimed == "" {
		return fmt.Sprintf("asset '%s' from '%s' already exists in the destination directory", e.Name, e.Source)
	}
	return fmt.Sprintf("asset '%s' is claimed by both '%s' and '%s'", e.Name, e.Claimed, e.Source)
}
