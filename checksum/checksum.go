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

// Package checksum computes, writes and verifies the hex digests published
// next to release assets as '<name>.sha256' and '<name>.sha512' sidecars.
package checksum

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
)

const (
	SHA256 = digest.SHA256
	SHA512 = digest.SHA512
)

// Sidecars are the algorithms of the sidecar files written for descriptors.
var Sidecars = []digest.Algorithm{SHA256, SHA512}

// MismatchError is returned when content doesn't match its published digest.
type MismatchError struct {
	Algorithm digest.Algorithm
	Expected  string
	Actual    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("computed %s checksum '%s' doesn't match expected '%s'", e.Algorithm, e.Actual, e.Expected)
}

// Compute returns the lowercase hex digest of the reader's content.
func Compute(r io.Reader, algo digest.Algorithm) (string, error) {
	if !algo.Available() {
		return "", fmt.Errorf("unsupported checksum algorithm '%s'", algo)
	}
	d, err := algo.FromReader(r)
	if err != nil {
		return "", err
	}
	return d.Encoded(), nil
}

// ComputeFile returns the lowercase hex digest of the file at path.
func ComputeFile(path string, algo digest.Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Compute(f, algo)
}

// SidecarName returns the name of the sidecar of name for the algorithm.
func SidecarName(name string, algo digest.Algorithm) string {
	return name + "." + algo.String()
}

// WriteSidecars writes a sidecar file for each algorithm next to the file at
// path. Existing sidecars are never overwritten. The written paths are
// returned.
func WriteSidecars(path string, algos ...digest.Algorithm) ([]string, error) {
	var written []string
	for _, algo := range algos {
		sum, err := ComputeFile(path, algo)
		if err != nil {
			return written, fmt.Errorf("failed to compute %s checksum of '%s': %w", algo, path, err)
		}
		sidecar := SidecarName(path, algo)
		f, err := os.OpenFile(sidecar, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return written, fmt.Errorf("failed to create checksum file: %w", err)
		}
		if _, err := f.WriteString(sum); err != nil {
			f.Close()
			return written, fmt.Errorf("failed to write checksum file '%s': %w", sidecar, err)
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, sidecar)
	}
	return written, nil
}

// Verify checks that the reader's content matches the expected hex digest.
// Surrounding whitespace in expected is ignored, as are any trailing fields
// after the digest ('<hex>  <file name>' as written by sha256sum).
func Verify(r io.Reader, algo digest.Algorithm, expected string) error {
	fields := strings.Fields(expected)
	if len(fields) == 0 {
		return fmt.Errorf("empty %s checksum", algo)
	}
	want := strings.ToLower(fields[0])
	if !algo.Available() {
		return fmt.Errorf("unsupported checksum algorithm '%s'", algo)
	}
	if err := algo.Validate(want); err != nil {
		return fmt.Errorf("invalid %s checksum '%s': %w", algo, want, err)
	}

	verifier := digest.NewDigestFromEncoded(algo, want).Verifier()
	d := algo.Digester()
	if _, err := io.Copy(io.MultiWriter(verifier, d.Hash()), r); err != nil {
		return err
	}
	if !verifier.Verified() {
		return &MismatchError{Algorithm: algo, Expected: want, Actual: d.Digest().Encoded()}
	}
	return nil
}
