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
	"context"
	"fmt"
)

const (
	// MaxAssetsPerRelease is the number of assets GitHub accepts per release.
	MaxAssetsPerRelease = 1000
	// MaxAssetSize is the exclusive upper bound of a release asset size.
	MaxAssetSize int64 = 2 << 30
	// DefaultConcurrency bounds the parallel asset deletions and uploads.
	DefaultConcurrency = 10
)

// UploadFailurePolicy decides what happens to the assets uploaded by a run
// in which some uploads failed.
type UploadFailurePolicy string

const (
	// LeaveOnFailure keeps the partial set of assets on the release.
	LeaveOnFailure UploadFailurePolicy = "leave"
	// RollbackOnFailure deletes the assets uploaded by the failed run.
	RollbackOnFailure UploadFailurePolicy = "rollback"
)

// ParseUploadFailurePolicy validates a policy name.
func ParseUploadFailurePolicy(s string) (UploadFailurePolicy, error) {
	switch p := UploadFailurePolicy(s); p {
	case LeaveOnFailure, RollbackOnFailure:
		return p, nil
	case "":
		return LeaveOnFailure, nil
	default:
		return "", fmt.Errorf("invalid upload failure policy %q, expected '%s' or '%s'", s, LeaveOnFailure, RollbackOnFailure)
	}
}

// ScopeChecker verifies that the API token carries OAuth scopes.
type ScopeChecker interface {
	CheckScopes(ctx context.Context, required ...string) error
}

type options struct {
	createIfMissing bool
	skipUpload      bool
	tagPrefix       string
	concurrency     int
	failurePolicy   UploadFailurePolicy
	enforce         bool
	scopes          ScopeChecker
}

// Option configures a Sync run.
type Option func(*options)

// WithCreateIfMissing permits creating a draft release when none has the tag.
func WithCreateIfMissing(create bool) Option {
	return func(o *options) {
		o.createIfMissing = create
	}
}

// WithSkipUpload stops the run after the preflight checks, without creating
// the release or changing its assets.
func WithSkipUpload(skip bool) Option {
	return func(o *options) {
		o.skipUpload = skip
	}
}

// WithTagPrefix sets the prefix of the release tag, e.g. 'v'.
func WithTagPrefix(prefix string) Option {
	return func(o *options) {
		o.tagPrefix = prefix
	}
}

// WithConcurrency bounds the number of parallel asset operations.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithUploadFailurePolicy sets what happens to the uploaded assets when any
// upload fails.
func WithUploadFailurePolicy(p UploadFailurePolicy) Option {
	return func(o *options) {
		o.failurePolicy = p
	}
}

// WithPreflightEnforcement makes preflight violations fatal. When disabled
// they are logged. Duplicate assets on a release that can't be reconciled
// are always fatal.
func WithPreflightEnforcement(enforce bool) Option {
	return func(o *options) {
		o.enforce = enforce
	}
}

// WithScopeChecker verifies the token scopes during preflight.
func WithScopeChecker(c ScopeChecker) Option {
	return func(o *options) {
		o.scopes = c
	}
}

func makeOptions(opts ...Option) *options {
	o := &options{
		concurrency:   DefaultConcurrency,
		failurePolicy: LeaveOnFailure,
		enforce:       true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}
