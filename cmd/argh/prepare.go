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

	"github.com/fluxcd/argh/stage"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Relocate the components of the staging repository into a flat directory of release assets",
	Args:  cobra.NoArgs,
	RunE:  runPrepare,
}

var prepareArgs struct {
	artifactMetadataExtensions []string
	legacyDescriptorExtension  string
}

func init() {
	bindPrepareFlags(prepareCmd)
	rootCmd.AddCommand(prepareCmd)
}

func bindPrepareFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&prepareArgs.artifactMetadataExtensions, "artifact-metadata-ext",
		stage.DefaultArtifactMetadataExtensions,
		"Extensions of the files published next to artifacts that are copied along, e.g. signatures.")
	cmd.Flags().StringVar(&prepareArgs.legacyDescriptorExtension, "legacy-descriptor-ext",
		stage.DefaultLegacyDescriptorExtension,
		"Extension of the descriptor published next to each module descriptor.")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	_, err := prepare()
	return err
}

func prepare() (*stage.Result, error) {
	res, err := stage.Prepare(rootArgs.StagingDir, rootArgs.DestinationDir,
		stage.WithLogger(log.WithName("stage")),
		stage.WithArtifactMetadataExtensions(prepareArgs.artifactMetadataExtensions...),
		stage.WithLegacyDescriptorExtension(prepareArgs.legacyDescriptorExtension))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare '%s': %w", rootArgs.StagingDir, err)
	}

	for _, s := range res.Skipped {
		fmt.Printf("skipped %s: %s\n", s.Path, s.Reason)
	}
	for _, c := range res.Roots {
		fmt.Printf("prepared %s\n", c)
	}
	fmt.Printf("%d assets written to %s\n", len(res.Assets), rootArgs.DestinationDir)
	return res, nil
}
