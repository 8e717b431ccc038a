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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fluxcd/pkg/masktoken"
	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"github.com/fluxcd/argh/github"
)

// TokenSettingsURL is where users manage the scopes of their tokens.
const TokenSettingsURL = "https://github.com/settings/tokens"

// Token is an access token. It is never printed by the fmt package.
type Token string

func (Token) String() string {
	return "*****"
}

// Manager hands out a GitHub access token. The token is taken from the
// explicit source when one is configured. Otherwise the cached token is
// used if the API accepts it, and a new one is obtained through the OAuth
// device flow and cached when it doesn't.
type Manager struct {
	mu       sync.Mutex
	token    string
	source   Source
	store    *Store
	prober   *prober
	flow     *deviceFlow
	prompter Prompter
	log      logr.Logger
}

type managerOptions struct {
	source            Source
	cacheDir          string
	apiURL            string
	clientID          string
	deviceAuthURL     string
	tokenURL          string
	deviceFlowTimeout time.Duration
	httpClient        *http.Client
	prompter          Prompter
	log               logr.Logger
}

// Option configures a Manager.
type Option func(*managerOptions)

// WithSource sets an explicit token source.
func WithSource(s Source) Option {
	return func(o *managerOptions) {
		o.source = s
	}
}

// WithCacheDir sets the directory of the token cache file.
func WithCacheDir(dir string) Option {
	return func(o *managerOptions) {
		o.cacheDir = dir
	}
}

// WithAPIURL sets the REST API endpoint used to validate tokens.
func WithAPIURL(u string) Option {
	return func(o *managerOptions) {
		o.apiURL = u
	}
}

// WithDeviceFlowEndpoints sets the device authorization and token endpoints.
func WithDeviceFlowEndpoints(deviceAuthURL, tokenURL string) Option {
	return func(o *managerOptions) {
		o.deviceAuthURL = deviceAuthURL
		o.tokenURL = tokenURL
	}
}

// WithClientID sets the OAuth application of the device flow.
func WithClientID(id string) Option {
	return func(o *managerOptions) {
		o.clientID = id
	}
}

// WithDeviceFlowTimeout bounds the time spent waiting for the user to
// authorize the device. It defaults to the expiry of the device code.
func WithDeviceFlowTimeout(d time.Duration) Option {
	return func(o *managerOptions) {
		o.deviceFlowTimeout = d
	}
}

// WithHTTPClient sets the client used for the probe and device flow requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *managerOptions) {
		o.httpClient = c
	}
}

// WithPrompter sets how the device code is presented to the user.
func WithPrompter(p Prompter) Option {
	return func(o *managerOptions) {
		o.prompter = p
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(o *managerOptions) {
		o.log = log
	}
}

// NewManager returns a Manager. Without a cache directory the token is
// cached under the user cache directory.
func NewManager(opts ...Option) (*Manager, error) {
	o := &managerOptions{
		apiURL:        DefaultAPIURL,
		clientID:      DefaultClientID,
		deviceAuthURL: DefaultDeviceAuthURL,
		tokenURL:      DefaultTokenURL,
		prompter:      WriterPrompter(os.Stderr),
		log:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.cacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine token cache directory: %w", err)
		}
		o.cacheDir = filepath.Join(dir, "argh")
	}

	client := github.NewRetryableClient(o.log, 0, github.DefaultTimeout)
	if o.httpClient != nil {
		client.HTTPClient = o.httpClient
	}

	p, err := newProber(o.apiURL, client)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL '%s': %w", o.apiURL, err)
	}
	flow := newDeviceFlow(o.clientID, o.deviceAuthURL, o.tokenURL, client)
	flow.timeout = o.deviceFlowTimeout

	return &Manager{
		source:   o.source,
		store:    NewStore(o.cacheDir),
		prober:   p,
		flow:     flow,
		prompter: o.prompter,
		log:      o.log,
	}, nil
}

// Token returns an access token. Concurrent callers wait for a single
// acquisition.
func (m *Manager) Token(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" {
		return Token(m.token), nil
	}

	if m.source.Kind != DefaultSource {
		token, err := m.source.read()
		if err != nil {
			return "", err
		}
		m.log.V(1).Info("using explicit token", "source", m.source.String())
		m.token = token
		return Token(token), nil
	}

	cached, err := m.store.Load()
	if err != nil {
		m.log.Error(err, "ignoring cached token")
	}
	if cached != "" {
		r, err := m.prober.probe(ctx, cached)
		if err != nil {
			return "", m.mask(err, cached)
		}
		if r.valid {
			m.log.V(1).Info("using cached token", "path", m.store.Path())
			m.token = cached
			return Token(cached), nil
		}
		m.log.Info("cached token was rejected, starting device authorization", "path", m.store.Path())
	}

	return m.login(ctx)
}

// Login obtains a new token through the device flow and replaces the
// cached one.
func (m *Manager) Login(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.login(ctx)
}

func (m *Manager) login(ctx context.Context) (Token, error) {
	t, err := m.flow.run(ctx, m.prompter)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(t.AccessToken); err != nil {
		return "", err
	}

	r, err := m.prober.probe(ctx, t.AccessToken)
	if err != nil {
		return "", m.mask(err, t.AccessToken)
	}
	if !r.valid {
		return "", &Error{Reason: ErrInvalidToken, Err: errors.New("the token obtained through device authorization was rejected")}
	}
	m.log.Info("device authorized", "path", m.store.Path())
	m.token = t.AccessToken
	return Token(t.AccessToken), nil
}

// Logout forgets the token and removes it from the cache.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return m.store.Delete()
}

// HasCachedToken reports whether the token is taken from the cache and a
// cached token exists. The token isn't validated.
func (m *Manager) HasCachedToken() bool {
	if m.source.Kind != DefaultSource {
		return false
	}
	token, err := m.store.Load()
	return err == nil && token != ""
}

// CachePath returns the path of the token cache file.
func (m *Manager) CachePath() string {
	return m.store.Path()
}

// CheckScopes fails with ErrMissingScopes when the token lacks any of the
// required scopes. Tokens for which the server reports no scopes pass.
func (m *Manager) CheckScopes(ctx context.Context, required ...string) error {
	token, err := m.Token(ctx)
	if err != nil {
		return err
	}
	r, err := m.prober.probe(ctx, string(token))
	if err != nil {
		return m.mask(err, string(token))
	}
	if !r.valid {
		return &Error{Reason: ErrInvalidToken, Err: fmt.Errorf("token from %s was rejected", m.describeSource())}
	}
	if r.scopes == nil {
		m.log.V(1).Info("token scopes are not reported, skipping scope check")
		return nil
	}

	var missing []string
	for _, s := range required {
		if !slices.Contains(r.scopes, s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return &Error{Reason: ErrMissingScopes,
			Err: fmt.Errorf("token from %s lacks [%s], grant them at %s",
				m.describeSource(), strings.Join(missing, ", "), TokenSettingsURL)}
	}
	return nil
}

// TokenSource adapts the Manager to an oauth2.TokenSource.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	t, err := s.m.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: string(t), TokenType: "Bearer"}, nil
}

func (m *Manager) describeSource() string {
	if m.source.Kind == DefaultSource {
		return m.store.Path()
	}
	return m.source.String()
}

// mask removes the token from the error message.
func (m *Manager) mask(err error, token string) error {
	msg, maskErr := masktoken.MaskTokenFromString(err.Error(), token)
	if maskErr != nil {
		return errors.New("token validation failed")
	}
	return errors.New(msg)
}
