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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

const (
	// DefaultClientID is the OAuth application used for the device flow.
	DefaultClientID = "Ov23liVvsLA8nHywWI8e"
	// DefaultDeviceAuthURL is the device authorization endpoint.
	DefaultDeviceAuthURL = "https://github.com/login/device/code"
	// DefaultTokenURL is the token endpoint polled during the device flow.
	DefaultTokenURL = "https://github.com/login/oauth/access_token"
	// DeviceCodeGrantType is the grant type of device flow token requests.
	DeviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
	// RequiredScope is the scope requested by the device flow and needed to
	// manage releases.
	RequiredScope = "repo"

	defaultPollInterval = 5 * time.Second
	slowDownIncrement   = 5 * time.Second
)

// ErrorCode is an error code returned by the token endpoint.
// Ref: https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#error-codes-for-the-device-flow
type ErrorCode string

const (
	AuthorizationPending       ErrorCode = "authorization_pending"
	SlowDown                   ErrorCode = "slow_down"
	ExpiredToken               ErrorCode = "expired_token"
	UnsupportedGrantType       ErrorCode = "unsupported_grant_type"
	IncorrectClientCredentials ErrorCode = "incorrect_client_credentials"
	IncorrectDeviceCode        ErrorCode = "incorrect_device_code"
	AccessDenied               ErrorCode = "access_denied"
	DeviceFlowDisabled         ErrorCode = "device_flow_disabled"
)

// Terminal reports whether polling must stop on this code. Unknown codes
// are terminal.
func (c ErrorCode) Terminal() bool {
	switch c {
	case AuthorizationPending, SlowDown:
		return false
	default:
		return true
	}
}

// DeviceCode is the user-facing part of a device authorization.
type DeviceCode struct {
	UserCode        string
	VerificationURI string
	Expiry          time.Time
}

// Prompter presents the device code to the user.
type Prompter interface {
	Prompt(ctx context.Context, code DeviceCode) error
}

// PrompterFunc adapts a function to a Prompter.
type PrompterFunc func(ctx context.Context, code DeviceCode) error

func (f PrompterFunc) Prompt(ctx context.Context, code DeviceCode) error {
	return f(ctx, code)
}

// WriterPrompter prints the device code instructions to a writer.
func WriterPrompter(w io.Writer) Prompter {
	return PrompterFunc(func(_ context.Context, code DeviceCode) error {
		_, err := fmt.Fprintf(w, "To authorize publishing, open %s and enter the code %s\n",
			code.VerificationURI, code.UserCode)
		return err
	})
}

// pollResult is either a pollSuccess or a pollFailure.
type pollResult interface {
	isPollResult()
}

type pollSuccess struct {
	token *oauth2.Token
}

type pollFailure struct {
	code        ErrorCode
	description string
	interval    time.Duration
}

func (pollSuccess) isPollResult() {}
func (pollFailure) isPollResult() {}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	Scope            string    `json:"scope"`
	Error            ErrorCode `json:"error"`
	ErrorDescription string    `json:"error_description"`
	Interval         int64     `json:"interval"`
}

type deviceFlow struct {
	config          oauth2.Config
	client          *retryablehttp.Client
	timeout         time.Duration
	defaultInterval time.Duration
}

func newDeviceFlow(clientID, deviceAuthURL, tokenURL string, client *retryablehttp.Client) *deviceFlow {
	return &deviceFlow{
		config: oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: deviceAuthURL,
				TokenURL:      tokenURL,
				AuthStyle:     oauth2.AuthStyleInParams,
			},
			Scopes: []string{RequiredScope},
		},
		client:          client,
		defaultInterval: defaultPollInterval,
	}
}

// run requests a device code, hands it to the prompter and polls the token
// endpoint until the user authorizes the request, the code expires or the
// context is done.
func (f *deviceFlow) run(ctx context.Context, prompter Prompter) (*oauth2.Token, error) {
	da, err := f.config.DeviceAuth(context.WithValue(ctx, oauth2.HTTPClient, f.client.StandardClient()))
	if err != nil {
		return nil, &Error{Reason: ErrDeviceFlow, Err: err}
	}

	deadline := da.Expiry
	if f.timeout > 0 {
		deadline = time.Now().Add(f.timeout)
	}
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	if err := prompter.Prompt(ctx, DeviceCode{
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
		Expiry:          da.Expiry,
	}); err != nil {
		return nil, err
	}

	interval := time.Duration(da.Interval) * time.Second
	if interval <= 0 {
		interval = f.defaultInterval
	}
	for {
		// Poll 10% slower than the advertised interval.
		wait := time.Duration(float64(interval) * 1.1)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &Error{Reason: ErrDeviceFlow, Err: fmt.Errorf("timed out waiting for authorization: %w", ctx.Err())}
		case <-timer.C:
		}

		res, err := f.poll(ctx, da.DeviceCode)
		if err != nil {
			return nil, err
		}
		switch r := res.(type) {
		case pollSuccess:
			return r.token, nil
		case pollFailure:
			switch {
			case r.code == AuthorizationPending:
			case r.code == SlowDown:
				if r.interval > 0 {
					interval = r.interval
				} else {
					interval += slowDownIncrement
				}
			default:
				msg := r.description
				if msg == "" {
					msg = string(r.code)
				}
				return nil, &Error{Reason: ErrDeviceFlow, Code: r.code, Err: errors.New(msg)}
			}
		}
	}
}

// poll performs a single token request.
func (f *deviceFlow) poll(ctx context.Context, deviceCode string) (pollResult, error) {
	form := url.Values{
		"client_id":   {f.config.ClientID},
		"device_code": {deviceCode},
		"grant_type":  {DeviceCodeGrantType},
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, f.config.Endpoint.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Reason: ErrDeviceFlow, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Reason: ErrDeviceFlow, Err: err}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &Error{Reason: ErrDeviceFlow,
			Err: fmt.Errorf("unexpected token response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	switch {
	case tr.Error != "":
		return pollFailure{
			code:        tr.Error,
			description: tr.ErrorDescription,
			interval:    time.Duration(tr.Interval) * time.Second,
		}, nil
	case resp.StatusCode != http.StatusOK || tr.AccessToken == "":
		return nil, &Error{Reason: ErrDeviceFlow,
			Err: fmt.Errorf("unexpected token response (status %d)", resp.StatusCode)}
	default:
		token := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
		return pollSuccess{token: token.WithExtra(map[string]any{"scope": tr.Scope})}, nil
	}
}
