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
	"path/filepath"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/fluxcd/argh/metadata"
	"github.com/fluxcd/argh/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <group:module:version>",
	Short: "Download and verify the descriptor of a published component and print its POM",
	Example: `  # Print the POM of octo/widgets' mylib
  argh resolve octo.widgets:mylib:1.0.0 --tag-prefix=v

  # Download the POM and the files of the Java variant
  argh resolve octo.widgets:mylib:1.0.0 --output-dir=./lib`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var resolveArgs struct {
	baseURL         string
	outputDir       string
	retries         int
	maxDownloadSize int64
}

func init() {
	resolveCmd.Flags().StringVar(&resolveArgs.baseURL, "base-url", resolve.DefaultBaseURL,
		"The URL release assets are downloaded from.")
	resolveCmd.Flags().StringVar(&resolveArgs.outputDir, "output-dir", "",
		"Write the POM and download the files of the selected variant into this directory instead of printing the POM.")
	resolveCmd.Flags().IntVar(&resolveArgs.retries, "download-retries", resolve.DefaultRetries,
		"The number of retries of failed downloads.")
	resolveCmd.Flags().Int64Var(&resolveArgs.maxDownloadSize, "max-download-size", resolve.DefaultMaxDownloadSize,
		"The maximum size of a single download in bytes, 0 for no limit.")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	coord, err := metadata.ParseCoordinate(args[0])
	if err != nil {
		return err
	}
	ctx := ctrl.SetupSignalHandler()

	layout, err := resolve.NewLayout(resolveArgs.baseURL, rootArgs.TagPrefix)
	if err != nil {
		return err
	}
	opts := []resolve.Option{
		resolve.WithRetries(resolveArgs.retries),
		resolve.WithTimeout(rootArgs.RequestTimeout),
		resolve.WithMaxDownloadSize(resolveArgs.maxDownloadSize),
		resolve.WithLogger(log.WithName("resolve")),
	}
	// Without a token source or a cached token, release assets are
	// downloaded anonymously.
	m, err := newManager()
	if err != nil {
		return err
	}
	if rootArgs.TokenSource != "" || m.HasCachedToken() {
		opts = append(opts, resolve.WithTokenSource(m.TokenSource(ctx)))
	}
	c := resolve.NewConnector(layout, opts...)

	res, err := c.Resolve(ctx, coord)
	if err != nil {
		return fmt.Errorf("failed to resolve '%s': %w", coord, err)
	}
	if resolveArgs.outputDir == "" {
		_, err := os.Stdout.Write(res.POM)
		return err
	}

	if err := os.MkdirAll(resolveArgs.outputDir, 0o755); err != nil {
		return err
	}
	pom := filepath.Join(resolveArgs.outputDir, fmt.Sprintf("%s-%s.pom", coord.Module, coord.Version))
	if err := os.WriteFile(pom, res.POM, 0o644); err != nil {
		return err
	}
	fmt.Println(pom)

	if res.Variant == nil {
		return nil
	}
	if at := res.Variant.AvailableAt; at != nil {
		target := metadata.Coordinate{Group: at.Group, Module: at.Module, Version: at.Version}
		log.V(1).Info("following variant", "coordinate", coord.String(), "availableAt", target.String())
		res, err = c.Resolve(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to resolve '%s', the variant of '%s': %w", target, coord, err)
		}
		if res.Variant == nil || res.Variant.AvailableAt != nil {
			return fmt.Errorf("'%s' has no Java variant with files", target)
		}
	}
	for _, f := range res.Variant.Files {
		p, err := c.DownloadFile(ctx, res, f, resolveArgs.outputDir)
		if err != nil {
			return err
		}
		fmt.Println(p)
	}
	return nil
}
