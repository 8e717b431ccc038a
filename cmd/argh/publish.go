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
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Prepare the staging repository and upload the assets to the GitHub release of the version",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

func init() {
	bindPrepareFlags(publishCmd)
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	if err := rootArgs.ValidateRelease(); err != nil {
		return err
	}
	ctx := ctrl.SetupSignalHandler()

	if _, err := prepare(); err != nil {
		return err
	}
	return syncRelease(ctx)
}
