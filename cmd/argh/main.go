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
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/fluxcd/argh/auth"
	"github.com/fluxcd/argh/config"
	"github.com/fluxcd/argh/logger"
)

var rootCmd = &cobra.Command{
	Use:           "argh",
	Short:         "Publish Gradle components as GitHub release assets and resolve them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logOptions.Validate(); err != nil {
			return err
		}
		log = logger.NewLogger(logOptions)
		logger.SetLogger(log)
		return rootArgs.Validate()
	},
}

var (
	rootArgs   config.Options
	logOptions logger.Options
	log        = logr.Discard()
)

func init() {
	rootArgs.BindFlags(rootCmd.PersistentFlags())
	logOptions.BindFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newManager returns the token manager configured by the root flags.
func newManager() (*auth.Manager, error) {
	src, err := rootArgs.GetTokenSource()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(
		auth.WithSource(src),
		auth.WithCacheDir(rootArgs.TokenCacheDir),
		auth.WithAPIURL(rootArgs.APIURL),
		auth.WithDeviceFlowTimeout(rootArgs.DeviceFlowTimeout),
		auth.WithPrompter(auth.WriterPrompter(os.Stderr)),
		auth.WithLogger(log.WithName("auth")),
	)
}
