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
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/fluxcd/argh/metadata"
)

func TestPrepareCommand(t *testing.T) {
	g := NewWithT(t)

	staging := t.TempDir()
	dir := filepath.Join(staging, "octo", "widgets", "mylib", "1.0.0")
	g.Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
	m := &metadata.Module{
		Component: metadata.Component{Group: "octo.widgets", Module: "mylib", Version: "1.0.0"},
		Variants: []*metadata.Variant{{
			Name:       "runtimeElements",
			Attributes: metadata.Attributes{"org.gradle.usage": metadata.String("java-runtime")},
			Files:      []*metadata.File{{Name: "mylib-1.0.0.jar", URL: "mylib-1.0.0.jar", Size: 5}},
		}},
	}
	g.Expect(m.Save(filepath.Join(dir, "mylib-1.0.0.module"))).To(Succeed())
	g.Expect(os.WriteFile(filepath.Join(dir, "mylib-1.0.0.jar"), []byte("hello"), 0o644)).To(Succeed())

	dest := filepath.Join(t.TempDir(), "assets")
	rootCmd.SetArgs([]string{"prepare", "--staging-dir=" + staging, "--destination-dir=" + dest, "--log-level=error"})
	g.Expect(rootCmd.Execute()).To(Succeed())

	for _, name := range []string{"mylib-1.0.0.module", "mylib-1.0.0.module.sha256", "mylib-1.0.0.jar", "mylib-1.0.0.ivy.xml"} {
		g.Expect(filepath.Join(dest, name)).To(BeAnExistingFile())
	}
}

func TestCommands(t *testing.T) {
	g := NewWithT(t)

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	g.Expect(names).To(ContainElements("prepare", "sync", "publish", "resolve", "login", "logout"))

	for _, flag := range []string{"artifact-metadata-ext", "legacy-descriptor-ext"} {
		g.Expect(prepareCmd.Flags().Lookup(flag)).ToNot(BeNil())
		g.Expect(publishCmd.Flags().Lookup(flag)).ToNot(BeNil())
	}
}
