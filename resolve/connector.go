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

// Package resolve downloads published components from release assets and
// presents them to Maven-style consumers.
package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/opencontainers/go-digest"
	"golang.org/x/oauth2"

	"github.com/fluxcd/argh/checksum"
	"github.com/fluxcd/argh/github"
	"github.com/fluxcd/argh/metadata"
)

const (
	// DefaultRetries is the number of retries of a download.
	DefaultRetries = 3
	// DefaultMaxDownloadSize bounds the size of a single download.
	DefaultMaxDownloadSize int64 = 2 << 30

	// maxErrorBody bounds the response body quoted in errors.
	maxErrorBody = 512
)

// Resolved is a verified module descriptor and the POM synthesized from it.
type Resolved struct {
	// Coordinate is the requested component. The descriptor of a platform
	// variant carries the coordinate of its root component.
	Coordinate metadata.Coordinate
	Module     *metadata.Module
	POM        []byte
	Project    *POMProject
	// Variant is the variant the POM was derived from, nil when the module
	// has no JVM variant.
	Variant *metadata.Variant
}

// File returns the entry of the descriptor listing the named asset, or nil.
func (r *Resolved) File(name string) *metadata.File {
	for _, f := range r.Module.Files() {
		if path.Base(f.URL) == name {
			return f
		}
	}
	return nil
}

type options struct {
	tokens          oauth2.TokenSource
	retries         int
	timeout         time.Duration
	maxDownloadSize int64
	log             logr.Logger
}

// Option configures a Connector.
type Option func(*options)

// WithTokenSource authenticates downloads with a bearer token.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) {
		o.tokens = ts
	}
}

// WithRetries sets the number of retries of failed downloads.
func WithRetries(n int) Option {
	return func(o *options) {
		o.retries = n
	}
}

// WithTimeout bounds connecting and waiting for response headers.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxDownloadSize bounds the size of a single download. Zero disables
// the limit.
func WithMaxDownloadSize(n int64) Option {
	return func(o *options) {
		o.maxDownloadSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Connector downloads the assets of published components.
type Connector struct {
	layout          *Layout
	client          *retryablehttp.Client
	tokens          oauth2.TokenSource
	maxDownloadSize int64
	log             logr.Logger
}

// NewConnector returns a Connector locating assets with the layout.
func NewConnector(layout *Layout, opts ...Option) *Connector {
	o := &options{
		retries:         DefaultRetries,
		timeout:         github.DefaultTimeout,
		maxDownloadSize: DefaultMaxDownloadSize,
		log:             logr.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Connector{
		layout:          layout,
		client:          github.NewRetryableClient(o.log, o.retries, o.timeout),
		tokens:          o.tokens,
		maxDownloadSize: o.maxDownloadSize,
		log:             o.log,
	}
}

// Resolve downloads the module descriptor of the component and verifies it
// against its published checksums. The SHA-256 checksum is required, the
// SHA-512 checksum is verified when published. Unverified content is never
// returned.
//
// The descriptor must describe the requested component, or be a variant
// descriptor pointing at the root descriptor of the component it names.
func (c *Connector) Resolve(ctx context.Context, coord metadata.Coordinate) (*Resolved, error) {
	u := c.layout.URL(DescriptorArtifact(coord))
	c.log.V(1).Info("resolving module descriptor", "coordinate", coord.String(), "url", u)

	data, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if _, err := c.verify(ctx, u, bytes.NewReader(data), true); err != nil {
		return nil, err
	}

	m, err := metadata.Parse(data)
	if err != nil {
		var pe *metadata.ParseError
		if errors.As(err, &pe) {
			pe.Path = u
		}
		return nil, err
	}
	if err := checkCoordinate(coord, m); err != nil {
		return nil, err
	}

	project := NewPOMProject(coord, m)
	pom, err := project.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to generate POM of '%s': %w", coord, err)
	}
	return &Resolved{Coordinate: coord, Module: m, POM: pom, Project: project, Variant: selectJavaVariant(m)}, nil
}

// checkCoordinate matches a descriptor downloaded as the descriptor of the
// requested component. Variant descriptors name their root component, the
// requested module is then given by the asset name alone.
func checkCoordinate(requested metadata.Coordinate, m *metadata.Module) error {
	found := m.Coordinate()
	if found == requested {
		return nil
	}
	if !m.IsRoot() &&
		found.Group == requested.Group &&
		found.Version == requested.Version &&
		path.Base(m.Component.URL) == DescriptorArtifact(found).FileName() {
		return nil
	}
	return &CoordinateMismatchError{Requested: requested, Found: found}
}

// Download fetches the artifact into destDir and returns the path of the
// written file. The file appears only once it's complete and verified.
func (c *Connector) Download(ctx context.Context, a Artifact, destDir string) (string, error) {
	return c.DownloadAsset(ctx, a.Coordinate, a.FileName(), destDir)
}

// DownloadAsset fetches a release asset of the component by name, like
// Download. Assets other than the module descriptor are verified against
// the digests and size listed by the descriptor, which is resolved first,
// and against the checksum sidecars published next to them. An asset
// without any published checksum is rejected.
func (c *Connector) DownloadAsset(ctx context.Context, coord metadata.Coordinate, name, destDir string) (string, error) {
	if err := checkAssetName(name); err != nil {
		return "", err
	}
	var entry *metadata.File
	if name != DescriptorArtifact(coord).FileName() {
		res, err := c.Resolve(ctx, coord)
		if err != nil {
			return "", fmt.Errorf("failed to resolve the descriptor of '%s': %w", coord, err)
		}
		entry = res.File(name)
	}
	return c.download(ctx, coord, name, destDir, entry)
}

// DownloadFile fetches a file listed by the resolved descriptor, like
// DownloadAsset.
func (c *Connector) DownloadFile(ctx context.Context, res *Resolved, f *metadata.File, destDir string) (string, error) {
	return c.download(ctx, res.Coordinate, path.Base(f.URL), destDir, f)
}

func checkAssetName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid asset name %q", name)
	}
	return nil
}

func (c *Connector) download(ctx context.Context, coord metadata.Coordinate, name, destDir string, entry *metadata.File) (string, error) {
	if err := checkAssetName(name); err != nil {
		return "", err
	}
	dest, err := securejoin.SecureJoin(destDir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}

	u := c.layout.AssetURL(coord, name)
	body, err := c.open(ctx, u)
	if err != nil {
		return "", err
	}
	defer body.Close()

	f, err := os.CreateTemp(filepath.Dir(dest), "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	size, err := c.copy(f, body, u)
	if err != nil {
		return "", err
	}
	verified, err := c.verify(ctx, u, f, false)
	if err != nil {
		return "", err
	}
	if entry != nil {
		n, err := verifyEntry(u, f, size, entry)
		if err != nil {
			return "", err
		}
		verified += n
	}
	if verified == 0 {
		return "", fmt.Errorf("no checksum published for '%s'", u)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(f.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move download to '%s': %w", dest, err)
	}
	c.log.V(1).Info("downloaded artifact", "url", u, "path", dest)
	return dest, nil
}

// verify checks the content against the checksum sidecars published next
// to u and returns the number of verified checksums.
func (c *Connector) verify(ctx context.Context, u string, content io.ReadSeeker, requireSHA256 bool) (int, error) {
	var verified int
	for _, algo := range []digest.Algorithm{checksum.SHA512, checksum.SHA256} {
		sidecar := checksum.SidecarName(u, algo)
		sum, err := c.get(ctx, sidecar)
		if errors.Is(err, ErrNotFound) {
			if algo == checksum.SHA256 && requireSHA256 {
				return verified, fmt.Errorf("no %s checksum published for '%s': %w", algo, u, err)
			}
			continue
		}
		if err != nil {
			return verified, err
		}
		if err := verifyDigest(u, content, algo, string(sum)); err != nil {
			return verified, err
		}
		verified++
	}
	return verified, nil
}

// verifyEntry checks the content against the size and digests listed by a
// descriptor and returns the number of verified digests.
func verifyEntry(u string, content io.ReadSeeker, size int64, entry *metadata.File) (int, error) {
	if entry.Size > 0 && entry.Size != size {
		return 0, &ChecksumMismatchError{URL: u,
			Err: fmt.Errorf("size %d doesn't match expected %d", size, entry.Size)}
	}
	var verified int
	for _, d := range []struct {
		algo digest.Algorithm
		sum  string
	}{
		{checksum.SHA512, entry.SHA512},
		{checksum.SHA256, entry.SHA256},
	} {
		if d.sum == "" {
			continue
		}
		if err := verifyDigest(u, content, d.algo, d.sum); err != nil {
			return verified, err
		}
		verified++
	}
	return verified, nil
}

func verifyDigest(u string, content io.ReadSeeker, algo digest.Algorithm, sum string) error {
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek back to beginning: %w", err)
	}
	if err := checksum.Verify(content, algo, sum); err != nil {
		var mismatch *checksum.MismatchError
		if errors.As(err, &mismatch) {
			return &ChecksumMismatchError{URL: u, Err: mismatch}
		}
		return fmt.Errorf("failed to verify '%s': %w", u, err)
	}
	return nil
}

func (c *Connector) get(ctx context.Context, u string) ([]byte, error) {
	body, err := c.open(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	var buf bytes.Buffer
	if _, err := c.copy(&buf, body, u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// open sends a GET request and returns the body of a successful response.
func (c *Connector) open(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new request: %w", err)
	}
	if c.tokens != nil {
		t, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		t.SetAuthHeader(req.Request)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download '%s': %w", u, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	default:
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("failed to download '%s', status: %s, body: %s",
			u, resp.Status, strings.TrimSpace(string(msg)))
	}
}

// copy copies the body to w, limited to the max download size, and returns
// the number of bytes copied.
func (c *Connector) copy(w io.Writer, body io.Reader, u string) (int64, error) {
	if c.maxDownloadSize <= 0 {
		n, err := io.Copy(w, body)
		if err != nil {
			return n, fmt.Errorf("failed to download '%s': %w", u, err)
		}
		return n, nil
	}
	n, err := io.Copy(w, io.LimitReader(body, c.maxDownloadSize))
	if err != nil {
		return n, fmt.Errorf("failed to download '%s': %w", u, err)
	}
	if extra, _ := io.Copy(io.Discard, body); extra > 0 {
		return n, fmt.Errorf("'%s' is %d bytes greater than the max download size of %d bytes", u, extra, c.maxDownloadSize)
	}
	return n, nil
}
