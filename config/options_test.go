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

package config_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/fluxcd/argh/config"
)

func Test_Options_BindFlags(t *testing.T) {
	defaults := config.Options{
		StagingDir:          "build/staging-repo",
		DestinationDir:      "build/release-assets",
		EnforcePreflight:    true,
		APIURL:              "https://api.github.com/",
		UploadURL:           "https://uploads.github.com/",
		Concurrency:         10,
		UploadFailurePolicy: "leave",
		RequestTimeout:      time.Minute,
	}

	tests := []struct {
		name        string
		env         map[string]string
		commandLine []string
		expected    func(o *config.Options)
	}{
		{
			name:        "empty flags gets default values",
			commandLine: []string{""},
			expected:    func(o *config.Options) {},
		},
		{
			name:        "environment sets defaults",
			env:         map[string]string{"GITHUB_REPOSITORY": "octo/widgets", "ARGH_VERSION": "1.0.0", "ARGH_TOKEN_SOURCE": "EnvVar"},
			commandLine: []string{""},
			expected: func(o *config.Options) {
				o.Repository = "octo/widgets"
				o.Version = "1.0.0"
				o.TokenSource = "EnvVar"
			},
		},
		{
			name:        "flags win over environment",
			env:         map[string]string{"GITHUB_REPOSITORY": "octo/widgets"},
			commandLine: []string{"--repository=octo/gadgets"},
			expected: func(o *config.Options) {
				o.Repository = "octo/gadgets"
			},
		},
		{
			name: "all flags set",
			commandLine: []string{
				"--staging-dir=/tmp/staging",
				"--destination-dir=/tmp/assets",
				"--repository=octo/widgets",
				"--version=1.0.0-SNAPSHOT",
				"--tag-prefix=v",
				"--create-release",
				"--skip-upload",
				"--enforce-preflight=false",
				"--token-cache-dir=/tmp/cache",
				"--token-source=File:/tmp/token",
				"--api-url=https://ghe.example.com/api/v3/",
				"--upload-url=https://ghe.example.com/api/uploads/",
				"--retries=2",
				"--concurrency=4",
				"--upload-failure-policy=rollback",
				"--device-flow-timeout=5m",
				"--request-timeout=10s",
			},
			expected: func(o *config.Options) {
				*o = config.Options{
					StagingDir:          "/tmp/staging",
					DestinationDir:      "/tmp/assets",
					Repository:          "octo/widgets",
					Version:             "1.0.0-SNAPSHOT",
					TagPrefix:           "v",
					CreateRelease:       true,
					SkipUpload:          true,
					TokenCacheDir:       "/tmp/cache",
					TokenSource:         "File:/tmp/token",
					APIURL:              "https://ghe.example.com/api/v3/",
					UploadURL:           "https://ghe.example.com/api/uploads/",
					Retries:             2,
					Concurrency:         4,
					UploadFailurePolicy: "rollback",
					DeviceFlowTimeout:   5 * time.Minute,
					RequestTimeout:      10 * time.Second,
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			// GitHub Actions sets some of these.
			for _, k := range []string{"GITHUB_REPOSITORY", "GITHUB_API_URL", "ARGH_STAGING_DIR", "ARGH_DESTINATION_DIR",
				"ARGH_VERSION", "ARGH_TAG_PREFIX", "ARGH_TOKEN_CACHE_DIR", "ARGH_TOKEN_SOURCE", "ARGH_UPLOAD_URL"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			f := pflag.NewFlagSet("test", pflag.ContinueOnError)
			var opts config.Options
			opts.BindFlags(f)
			g.Expect(f.Parse(tt.commandLine)).To(Succeed())

			expected := defaults
			tt.expected(&expected)
			g.Expect(opts).To(Equal(expected))
		})
	}
}

func Test_Options_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *config.Options)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(o *config.Options) {},
		},
		{
			name:    "invalid token source",
			modify:  func(o *config.Options) { o.TokenSource = "Keychain" },
			wantErr: "invalid token source",
		},
		{
			name:    "invalid failure policy",
			modify:  func(o *config.Options) { o.UploadFailurePolicy = "retry" },
			wantErr: "invalid upload failure policy",
		},
		{
			name:    "negative retries",
			modify:  func(o *config.Options) { o.Retries = -1 },
			wantErr: "retries must not be negative",
		},
		{
			name:    "no concurrency",
			modify:  func(o *config.Options) { o.Concurrency = 0 },
			wantErr: "concurrency must be at least 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			o := config.Options{Concurrency: 1, UploadFailurePolicy: "leave"}
			tt.modify(&o)
			err := o.Validate()
			if tt.wantErr == "" {
				g.Expect(err).ToNot(HaveOccurred())
				return
			}
			g.Expect(err).To(MatchError(ContainSubstring(tt.wantErr)))
		})
	}
}

func Test_Options_ValidateRelease(t *testing.T) {
	g := NewWithT(t)

	o := config.Options{Repository: "octo/widgets", Version: "1.0.0"}
	g.Expect(o.ValidateRelease()).To(Succeed())

	o = config.Options{Repository: "widgets"}
	err := o.ValidateRelease()
	g.Expect(err).To(MatchError(ContainSubstring("invalid repository")))
	g.Expect(err).To(MatchError(ContainSubstring("version is required")))
}
