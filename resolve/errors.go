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
	"errors"
	"fmt"

	"github.com/fluxcd/argh/metadata"
)

// ErrNotFound is returned when the server responds with 404 to a download.
var ErrNotFound = errors.New("file not found")

// ChecksumMismatchError is returned when downloaded content doesn't match its
// published checksum. The content is discarded.
type ChecksumMismatchError struct {
	URL string
	Err error
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("failed to verify '%s': %s", e.URL, e.Err)
}

func (e *ChecksumMismatchError) Unwrap() error {
	return e.Err
}

// CoordinateMismatchError is returned when a descriptor describes another
// component than the requested one.
type CoordinateMismatchError struct {
	Requested metadata.Coordinate
	Found     metadata.Coordinate
}

func (e *CoordinateMismatchError) Error() string {
	return fmt.Sprintf("descriptor of '%s' describes '%s'", e.Requested, e.Found)
}
