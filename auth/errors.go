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
	"errors"
	"fmt"
)

// ErrorReason is the reason of an authentication failure.
type ErrorReason struct {
	reason string
	msg    string
}

// Error gives a human-readable description of the error.
func (e ErrorReason) Error() string {
	return e.msg
}

var (
	ErrNoToken       = ErrorReason{"NoToken", "no token available"}
	ErrInvalidToken  = ErrorReason{"InvalidToken", "token was rejected"}
	ErrMissingScopes = ErrorReason{"MissingScopes", "token is missing required scopes"}
	ErrDeviceFlow    = ErrorReason{"DeviceFlow", "device authorization failed"}
)

// Error is returned by the Manager. Code is set for device flow failures
// reported by the authorization server.
type Error struct {
	Reason ErrorReason
	Code   ErrorCode
	Err    error
}

// Error returns Err as a string, prefixed with the Reason.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Reason.Error(), e.Code, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Err.Error())
}

// Is returns true if the Reason or Err equals target.
func (e *Error) Is(target error) bool {
	if e.Reason == target {
		return true
	}
	return errors.Is(e.Err, target)
}

// Unwrap returns the underlying Err.
func (e *Error) Unwrap() error {
	return e.Err
}
