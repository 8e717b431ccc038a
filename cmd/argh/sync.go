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
	"context"
	"fmt"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/fluxcd/argh/github"
	"github.com/fluxcd/argh/release"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload the prepared release assets to the GitHub release of the version",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := rootArgs.ValidateRelease(); err != nil {
		return err
	}
	ctx := ctrl.SetupSignalHandler()
	return syncRelease(ctx)
}

func syncRelease(ctx context.Context) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	client, err := github.New(m.TokenSource(ctx),
		github.WithBaseURL(rootArgs.APIURL),
		github.WithUploadURL(rootArgs.UploadURL),
		github.WithRetries(rootArgs.Retries),
		github.WithTimeout(rootArgs.RequestTimeout),
		github.WithLogger(log.WithName("github")))
	if err != nil {
		return err
	}
	policy, err := rootArgs.GetUploadFailurePolicy()
	if err != nil {
		return err
	}

	res, err := release.NewSyncer(client, log.WithName("release")).Sync(ctx,
		rootArgs.DestinationDir, rootArgs.Repository, rootArgs.Version,
		release.WithCreateIfMissing(rootArgs.CreateRelease),
		release.WithSkipUpload(rootArgs.SkipUpload),
		release.WithTagPrefix(rootArgs.TagPrefix),
		release.WithConcurrency(rootArgs.Concurrency),
		release.WithUploadFailurePolicy(policy),
		release.WithPreflightEnforcement(rootArgs.EnforcePreflight),
		release.WithScopeChecker(m))
	if err != nil {
		return err
	}

	printSyncResult(res)
	return res.Err()
}

func printSyncResult(res *release.SyncResult) {
	if res.Release == nil {
		fmt.Println("release not found, nothing uploaded")
		return
	}
	if res.Created {
		fmt.Printf("created draft release %s\n", res.Release.GetTagName())
	}
	for _, o := range res.Deleted {
		fmt.Printf("deleted %s\n", o.Name)
	}
	for _, o := range res.Uploaded {
		fmt.Printf("uploaded %s\n", o.Name)
	}
	for _, o := range res.RolledBack {
		fmt.Printf("rolled back %s\n", o.Name)
	}
	fmt.Printf("%d uploaded, %d failed: %s\n", len(res.Uploaded), len(res.UploadFailed), res.Release.GetHTMLURL())
}
