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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fluxcd/pkg/lockedfile"
)

// TokenFileName is the name of the token cache file.
const TokenFileName = "gh-token.json"

type storedToken struct {
	AccessToken string `json:"accessToken"`
}

// Store persists a single access token in a JSON file. Reads and writes
// hold an advisory lock on the file so that concurrent processes never
// observe a partially written token.
type Store struct {
	path string
}

// NewStore returns a store keeping its token in cacheDir.
func NewStore(cacheDir string) *Store {
	return &Store{path: filepath.Join(cacheDir, TokenFileName)}
}

// Path returns the path of the token file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the cached token, or an empty string if there is none.
// A corrupt file is reported as an error.
func (s *Store) Load() (string, error) {
	data, err := lockedfile.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var t storedToken
	if err := json.Unmarshal(data, &t); err != nil {
		return "", fmt.Errorf("corrupt token file '%s': %w", s.path, err)
	}
	return t.AccessToken, nil
}

// Save replaces the cached token. The file is readable by the owner only.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token cache directory: %w", err)
	}
	data, err := json.Marshal(storedToken{AccessToken: token})
	if err != nil {
		return err
	}
	if err := lockedfile.Write(s.path, bytes.NewReader(data), 0o600); err != nil {
		return fmt.Errorf("failed to write token file '%s': %w", s.path, err)
	}
	return nil
}

// Delete removes the cached token.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
