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

// Package github builds the REST API client used to manage releases.
package github

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	gh "github.com/google/go-github/v82/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds connecting to the API and waiting for response
	// headers.
	DefaultTimeout = 60 * time.Second
	// DefaultRetries is the number of retries of API requests.
	DefaultRetries = 0
)

type options struct {
	baseURL   string
	uploadURL string
	retries   int
	timeout   time.Duration
	log       logr.Logger
	transport http.RoundTripper
}

// OptFunc enables specifying options for the client.
type OptFunc func(*options)

// WithBaseURL sets the REST API endpoint, e.g. for GitHub Enterprise.
func WithBaseURL(u string) OptFunc {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithUploadURL sets the release asset upload endpoint.
func WithUploadURL(u string) OptFunc {
	return func(o *options) {
		o.uploadURL = u
	}
}

// WithRetries sets the number of times a failed request is retried.
func WithRetries(n int) OptFunc {
	return func(o *options) {
		o.retries = n
	}
}

// WithTimeout sets the connection and response header timeouts.
func WithTimeout(d time.Duration) OptFunc {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger receiving retry errors.
func WithLogger(log logr.Logger) OptFunc {
	return func(o *options) {
		o.log = log
	}
}

// WithTransport sets the base transport.
func WithTransport(t http.RoundTripper) OptFunc {
	return func(o *options) {
		o.transport = t
	}
}

// New returns a GitHub API client authenticating every request with a token
// from ts. Requests go through a retrying transport, uploads are streamed.
func New(ts oauth2.TokenSource, opts ...OptFunc) (*gh.Client, error) {
	o := &options{
		retries: DefaultRetries,
		timeout: DefaultTimeout,
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}

	rc := NewRetryableClient(o.log, o.retries, o.timeout)
	if o.transport != nil {
		rc.HTTPClient.Transport = o.transport
	}
	var rt http.RoundTripper = &retryablehttp.RoundTripper{Client: rc}
	if ts != nil {
		rt = &oauth2.Transport{Source: ts, Base: rt}
	}
	client := gh.NewClient(&http.Client{Transport: rt})

	if o.baseURL != "" {
		u, err := parseEndpoint(o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL: %w", err)
		}
		client.BaseURL = u
	}
	if o.uploadURL != "" {
		u, err := parseEndpoint(o.uploadURL)
		if err != nil {
			return nil, fmt.Errorf("invalid upload URL: %w", err)
		}
		client.UploadURL = u
	}
	return client, nil
}

// NewRetryableClient returns a retrying HTTP client with connection and
// response header timeouts. Final failures are passed through as responses
// so that callers can inspect the status and body.
func NewRetryableClient(log logr.Logger, retries int, timeout time.Duration) *retryablehttp.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport}
	rc.RetryMax = retries
	rc.Logger = newErrorLogger(log)
	rc.ErrorHandler = passthroughResponse
	return rc
}

// passthroughResponse returns the last response when retries are exhausted
// instead of an error.
func passthroughResponse(resp *http.Response, err error, _ int) (*http.Response, error) {
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// SplitRepository splits an 'owner/repo' string.
func SplitRepository(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected 'owner/repo'", s)
	}
	return owner, repo, nil
}

func parseEndpoint(s string) (*url.URL, error) {
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme in %q", s)
	}
	return u, nil
}
