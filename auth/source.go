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

package auth

import (
	"fmt"
	"os"
	"strings"
)

// DefaultTokenEnvVar is the variable read by the EnvVar token source.
const DefaultTokenEnvVar = "GITHUB_TOKEN"

// SourceKind selects where the Manager takes its token from.
type SourceKind int

const (
	// DefaultSource uses the cached token and falls back to the device flow.
	DefaultSource SourceKind = iota
	// EnvSource reads the token from an environment variable.
	EnvSource
	// FileSource reads the token from a file.
	FileSource
)

// Source is an explicit token override. An explicit source always wins over
// the cached token and is never replaced by a device flow.
type Source struct {
	Kind SourceKind
	// Name is the environment variable of an EnvSource, or the path of a
	// FileSource.
	Name string
}

func (s Source) String() string {
	switch s.Kind {
	case EnvSource:
		return "EnvVar"
	case FileSource:
		return "File:" + s.Name
	default:
		return ""
	}
}

// ParseSource parses 'EnvVar', 'File:<path>' or the empty string.
func ParseSource(s string) (Source, error) {
	switch {
	case s == "":
		return Source{Kind: DefaultSource}, nil
	case s == "EnvVar":
		return Source{Kind: EnvSource, Name: DefaultTokenEnvVar}, nil
	case strings.HasPrefix(s, "File:"):
		path := strings.TrimPrefix(s, "File:")
		if path == "" {
			return Source{}, fmt.Errorf("invalid token source %q: missing file path", s)
		}
		return Source{Kind: FileSource, Name: path}, nil
	default:
		return Source{}, fmt.Errorf("invalid token source %q, expected 'EnvVar' or 'File:<path>'", s)
	}
}

// read returns the token of an explicit source.
func (s Source) read() (string, error) {
	switch s.Kind {
	case EnvSource:
		token := strings.TrimSpace(os.Getenv(s.Name))
		if token == "" {
			return "", &Error{Reason: ErrNoToken, Err: fmt.Errorf("environment variable '%s' is empty", s.Name)}
		}
		return token, nil
	case FileSource:
		data, err := os.ReadFile(s.Name)
		if err != nil {
			return "", &Error{Reason: ErrNoToken, Err: err}
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", &Error{Reason: ErrNoToken, Err: fmt.Errorf("token file '%s' is empty", s.Name)}
		}
		return token, nil
	default:
		return "", &Error{Reason: ErrNoToken}
	}
}
