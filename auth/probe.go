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
	"net/url"
	"strings"
	"sync"

	"github.com/google/go-github/v82/github"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultAPIURL is the GitHub REST API endpoint.
const DefaultAPIURL = "https://api.github.com/"

// probeResult is the outcome of validating a token against the API.
type probeResult struct {
	valid bool
	// scopes is nil when the server doesn't report the granted scopes,
	// as for fine-grained tokens.
	scopes []string
}

// prober validates tokens with an authenticated 'GET /user' request. Only
// a 401 response marks a token as invalid. Successful probes are remembered
// for the lifetime of the process.
type prober struct {
	apiURL *url.URL
	client *retryablehttp.Client
	memo   sync.Map
}

func newProber(apiURL string, client *retryablehttp.Client) (*prober, error) {
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, err
	}
	return &prober{apiURL: u, client: client}, nil
}

func (p *prober) probe(ctx context.Context, token string) (*probeResult, error) {
	if r, ok := p.memo.Load(token); ok {
		return r.(*probeResult), nil
	}

	gh := github.NewClient(p.client.StandardClient()).WithAuthToken(token)
	gh.BaseURL = p.apiURL
	_, resp, err := gh.Users.Get(ctx, "")
	if err != nil {
		var errResp *github.ErrorResponse
		if !errors.As(err, &errResp) || errResp.Response == nil {
			return nil, err
		}
		switch errResp.Response.StatusCode {
		case http.StatusUnauthorized:
			return &probeResult{}, nil
		case http.StatusForbidden:
			// Installation tokens, like the Actions GITHUB_TOKEN, authenticate
			// but may not read the user.
			resp = &github.Response{Response: errResp.Response}
		default:
			return nil, fmt.Errorf("failed to validate token: %w", err)
		}
	}

	r := &probeResult{valid: true, scopes: parseScopes(resp.Header.Values("X-OAuth-Scopes"))}
	p.memo.Store(token, r)
	return r, nil
}

func parseScopes(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	scopes := []string{}
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}
	return scopes
}
