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
	"os"

	"github.com/spf13/pflag"

	"github.com/fluxcd/argh/auth"
	"github.com/fluxcd/argh/github"
	"github.com/fluxcd/argh/release"
)

const (
	flagStagingDir    = "staging-dir"
	envStagingDir     = "ARGH_STAGING_DIR"
	defaultStagingDir = "build/staging-repo"

	flagDestinationDir    = "destination-dir"
	envDestinationDir     = "ARGH_DESTINATION_DIR"
	defaultDestinationDir = "build/release-assets"

	flagRepository = "repository"
	envRepository  = "GITHUB_REPOSITORY"

	flagVersion = "version"
	envVersion  = "ARGH_VERSION"

	flagTagPrefix = "tag-prefix"
	envTagPrefix  = "ARGH_TAG_PREFIX"

	flagCreateRelease = "create-release"

	flagSkipUpload = "skip-upload"

	flagEnforcePreflight = "enforce-preflight"

	flagTokenCacheDir = "token-cache-dir"
	envTokenCacheDir  = "ARGH_TOKEN_CACHE_DIR"

	flagTokenSource = "token-source"
	envTokenSource  = "ARGH_TOKEN_SOURCE"

	flagAPIURL = "api-url"
	envAPIURL  = "GITHUB_API_URL"

	flagUploadURL    = "upload-url"
	envUploadURL     = "ARGH_UPLOAD_URL"
	defaultUploadURL = "https://uploads.github.com/"

	flagRetries = "retries"

	flagConcurrency = "concurrency"

	flagUploadFailurePolicy = "upload-failure-policy"

	flagDeviceFlowTimeout = "device-flow-timeout"

	flagRequestTimeout = "request-timeout"
)

// BindFlags will parse the given pflag.FlagSet for the argh commands and set the Options accordingly.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.StagingDir, flagStagingDir,
		envOrDefault(envStagingDir, defaultStagingDir),
		"The local repository the build published the components to.")

	fs.StringVar(&o.DestinationDir, flagDestinationDir,
		envOrDefault(envDestinationDir, defaultDestinationDir),
		"The directory where the prepared release assets are written.")

	fs.StringVar(&o.Repository, flagRepository,
		envOrDefault(envRepository, ""),
		"The GitHub repository hosting the releases, in the 'owner/repo' format.")

	fs.StringVar(&o.Version, flagVersion,
		envOrDefault(envVersion, ""),
		"The version being published.")

	fs.StringVar(&o.TagPrefix, flagTagPrefix,
		envOrDefault(envTagPrefix, ""),
		"The prefix of the release tag, e.g. 'v'.")

	fs.BoolVar(&o.CreateRelease, flagCreateRelease, false,
		"Create a draft release when none has the tag.")

	fs.BoolVar(&o.SkipUpload, flagSkipUpload, false,
		"Run the preflight checks without changing the release.")

	fs.BoolVar(&o.EnforcePreflight, flagEnforcePreflight, true,
		"Fail when the preflight checks fail.")

	fs.StringVar(&o.TokenCacheDir, flagTokenCacheDir,
		envOrDefault(envTokenCacheDir, ""),
		"The directory where the GitHub token is cached. Defaults to the user cache directory.")

	fs.StringVar(&o.TokenSource, flagTokenSource,
		envOrDefault(envTokenSource, ""),
		"Read the GitHub token from 'EnvVar' (GITHUB_TOKEN) or 'File:<path>' instead of the cache.")

	fs.StringVar(&o.APIURL, flagAPIURL,
		envOrDefault(envAPIURL, auth.DefaultAPIURL),
		"The base URL of the GitHub REST API.")

	fs.StringVar(&o.UploadURL, flagUploadURL,
		envOrDefault(envUploadURL, defaultUploadURL),
		"The base URL of release asset uploads.")

	fs.IntVar(&o.Retries, flagRetries, github.DefaultRetries,
		"The number of retries of failed GitHub API requests.")

	fs.IntVar(&o.Concurrency, flagConcurrency, release.DefaultConcurrency,
		"The maximum number of parallel asset uploads and deletions.")

	fs.StringVar(&o.UploadFailurePolicy, flagUploadFailurePolicy,
		string(release.LeaveOnFailure),
		"What happens to the uploaded assets when an upload fails, 'leave' or 'rollback'.")

	fs.DurationVar(&o.DeviceFlowTimeout, flagDeviceFlowTimeout, 0,
		"The maximum time to wait for the device authorization. Defaults to the expiry of the device code.")

	fs.DurationVar(&o.RequestTimeout, flagRequestTimeout, github.DefaultTimeout,
		"The timeout for connecting to GitHub and waiting for response headers.")
}

// envOrDefault returns the value of the environment variable named by the key.
// If the variable is empty or not present, it returns the defaultValue instead.
func envOrDefault(envName, defaultValue string) string {
	ret := os.Getenv(envName)
	if ret != "" {
		return ret
	}

	return defaultValue
}
