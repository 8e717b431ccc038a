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

import "fmt"

// ParseError is returned when a descriptor can't be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

// Error returns Err as a string, prefixed with the descriptor path.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid module descriptor: %s", e.Err)
	}
	return fmt.Sprintf("invalid module descriptor '%s': %s", e.Path, e.Err)
}

// Unwrap returns the underlying Err.
func (e *ParseError) Unwrap() error {
	return e.Err
}
