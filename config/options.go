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

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fluxcd/argh/auth"
	"github.com/fluxcd/argh/github"
	"github.com/fluxcd/argh/release"
)

// Options contains the configuration of the argh commands.
type Options struct {
	// StagingDir is the local repository the build published to.
	StagingDir string `json:"stagingDir"`

	// DestinationDir is the flat directory of prepared release assets.
	DestinationDir string `json:"destinationDir"`

	// Repository is the 'owner/repo' hosting the releases.
	Repository string `json:"repository"`

	// Version is the version being published. The release tag is the version
	// prefixed with TagPrefix.
	Version string `json:"version"`

	// TagPrefix is prepended to the version to form the release tag.
	TagPrefix string `json:"tagPrefix"`

	// CreateRelease permits creating a draft release when none has the tag.
	CreateRelease bool `json:"createRelease"`

	// SkipUpload stops publishing after the preflight checks.
	SkipUpload bool `json:"skipUpload"`

	// EnforcePreflight makes failed preflight checks fatal.
	EnforcePreflight bool `json:"enforcePreflight"`

	// TokenCacheDir is where the token obtained with the device flow is
	// cached. Defaults to the user cache directory.
	TokenCacheDir string `json:"tokenCacheDir"`

	// TokenSource overrides the cached token, 'EnvVar' or 'File:<path>'.
	TokenSource string `json:"tokenSource"`

	// APIURL is the base URL of the GitHub REST API.
	APIURL string `json:"apiURL"`

	// UploadURL is the base URL for release asset uploads.
	UploadURL string `json:"uploadURL"`

	// Retries is the number of retries of failed API requests.
	Retries int `json:"retries"`

	// Concurrency bounds the parallel asset uploads and deletions.
	Concurrency int `json:"concurrency"`

	// UploadFailurePolicy is 'leave' or 'rollback'.
	UploadFailurePolicy string `json:"uploadFailurePolicy"`

	// DeviceFlowTimeout bounds the device authorization. Zero waits until the
	// device code expires.
	DeviceFlowTimeout time.Duration `json:"deviceFlowTimeout"`

	// RequestTimeout bounds connecting and waiting for response headers.
	RequestTimeout time.Duration `json:"requestTimeout"`
}

// Validate checks the values that don't depend on the command being run.
func (o *Options) Validate() error {
	var errs []error
	if _, err := o.GetTokenSource(); err != nil {
		errs = append(errs, err)
	}
	if _, err := o.GetUploadFailurePolicy(); err != nil {
		errs = append(errs, err)
	}
	if o.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", o.Retries))
	}
	if o.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", o.Concurrency))
	}
	return errors.Join(errs...)
}

// ValidateRelease checks the values required to publish a release.
func (o *Options) ValidateRelease() error {
	var errs []error
	if _, _, err := github.SplitRepository(o.Repository); err != nil {
		errs = append(errs, err)
	}
	if o.Version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	return errors.Join(errs...)
}

// GetTokenSource returns the parsed TokenSource.
func (o *Options) GetTokenSource() (auth.Source, error) {
	return auth.ParseSource(o.TokenSource)
}

// GetUploadFailurePolicy returns the parsed UploadFailurePolicy.
func (o *Options) GetUploadFailurePolicy() (release.UploadFailurePolicy, error) {
	return release.ParseUploadFailurePolicy(o.UploadFailurePolicy)
}
