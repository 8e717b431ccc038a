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

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize argh with GitHub and cache the token",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached GitHub token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := ctrl.SetupSignalHandler()

	m, err := newManager()
	if err != nil {
		return err
	}
	if _, err := m.Login(ctx); err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if err := m.CheckScopes(ctx, "repo"); err != nil {
		log.Error(err, "the token can't publish to private repositories")
	}
	fmt.Printf("token cached at %s\n", m.CachePath())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	if err := m.Logout(); err != nil {
		return fmt.Errorf("failed to remove cached token: %w", err)
	}
	fmt.Printf("removed %s\n", m.CachePath())
	return nil
}
