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
	"errors"
	"fmt"
	"strings"
)

// ErrReleaseState is matched by the errors reporting a release that can't
// receive the batch. These errors are never retried.
var ErrReleaseState = errors.New("release state error")

// ReleaseMissingError is returned when no release has the tag and creating
// one wasn't permitted.
type ReleaseMissingError struct {
	Repository string
	Tag        string
}

func (e *ReleaseMissingError) Error() string {
	return fmt.Sprintf("release '%s' not found in repository '%s' and creating it is not enabled", e.Tag, e.Repository)
}

func (e *ReleaseMissingError) Is(target error) bool {
	return target == ErrReleaseState
}

// DuplicateAssetError is returned when assets of the batch are already
// attached to a release and won't be replaced, e.g. because the release is
// immutable.
type DuplicateAssetError struct {
	Tag       string
	Immutable bool
	Names     []string
}

func (e *DuplicateAssetError) Error() string {
	kind := "release"
	if e.Immutable {
		kind = "immutable release"
	}
	return fmt.Sprintf("%s '%s' already has assets [%s]", kind, e.Tag, strings.Join(e.Names, ", "))
}

func (e *DuplicateAssetError) Is(target error) bool {
	return target == ErrReleaseState
}

// PreflightError lists the checks failed by a batch.
type PreflightError struct {
	Violations []string
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight checks failed:\n  %s", strings.Join(e.Violations, "\n  "))
}

// AssetOutcome is the result of an operation on a single asset.
type AssetOutcome struct {
	Name string
	ID   int64
	Err  error
}
