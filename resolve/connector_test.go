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

package resolve

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/gomega"
	"golang.org/x/oauth2"

	"github.com/fluxcd/argh/checksum"
	"github.com/fluxcd/argh/metadata"
	"github.com/fluxcd/argh/stage"
)

const releasePath = "/octo/widgets/releases/download/v1.0.0/"

var coord = metadata.Coordinate{Group: "octo.widgets", Module: "mylib", Version: "1.0.0"}

// assetServer serves release assets from memory.
type assetServer struct {
	mu      sync.Mutex
	assets  map[string][]byte
	methods []string
	auth    []string
}

func (s *assetServer) put(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[p] = data
}

func (s *assetServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = append(s.methods, r.Method)
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	data, ok := s.assets[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

// putAsset serves data at p together with its checksum sidecars.
func putAsset(t *testing.T, assets map[string][]byte, p string, data []byte) {
	t.Helper()
	assets[p] = data
	for _, algo := range checksum.Sidecars {
		sum, err := checksum.Compute(bytes.NewReader(data), algo)
		if err != nil {
			t.Fatal(err)
		}
		assets[checksum.SidecarName(p, algo)] = []byte(sum)
	}
}

// newFile returns a descriptor file entry carrying the digests of content.
func newFile(t *testing.T, name, content string) *metadata.File {
	t.Helper()
	f := &metadata.File{Name: name, URL: name, Size: int64(len(content))}
	var err error
	if f.SHA256, err = checksum.Compute(strings.NewReader(content), checksum.SHA256); err != nil {
		t.Fatal(err)
	}
	if f.SHA512, err = checksum.Compute(strings.NewReader(content), checksum.SHA512); err != nil {
		t.Fatal(err)
	}
	return f
}

func newDescriptor(t *testing.T) *metadata.Module {
	return &metadata.Module{
		Component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version},
		Variants: []*metadata.Variant{
			{
				Name: "apiElements",
				Attributes: metadata.Attributes{
					"org.gradle.usage": metadata.String("java-api"),
				},
				Dependencies: []*metadata.Dependency{
					{
						Group:   "org.jetbrains.kotlin",
						Module:  "kotlin-stdlib",
						Version: &metadata.VersionConstraint{Requires: "2.1.0", Prefers: "2.1.10"},
						Excludes: []*metadata.Exclude{
							{Group: "org.jetbrains", Module: "annotations"},
						},
					},
					{
						Group:   "com.squareup.okio",
						Module:  "okio",
						Version: &metadata.VersionConstraint{Strictly: "3.9.0", Requires: "3.9.0"},
					},
					{Group: "com.example", Module: "unversioned"},
				},
				Files: []*metadata.File{newFile(t, "mylib-1.0.0.jar", "hello")},
			},
		},
	}
}

// stagedModule is a descriptor and its sibling files in a Maven layout.
type stagedModule struct {
	artifactID string
	module     *metadata.Module
	files      map[string]string
}

// publish prepares a staged component and returns its release assets keyed
// by download path.
func publish(t *testing.T, m *metadata.Module) map[string][]byte {
	t.Helper()
	return publishModules(t, stagedModule{
		artifactID: "mylib",
		module:     m,
		files:      map[string]string{"mylib-1.0.0.jar": "hello"},
	})
}

func publishModules(t *testing.T, modules ...stagedModule) map[string][]byte {
	t.Helper()
	g := NewWithT(t)

	staging := t.TempDir()
	for _, m := range modules {
		dir := filepath.Join(staging, "octo", "widgets", m.artifactID, "1.0.0")
		g.Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		g.Expect(m.module.Save(filepath.Join(dir, m.artifactID+"-1.0.0.module"))).To(Succeed())
		for name, content := range m.files {
			g.Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)).To(Succeed())
		}
	}

	dest := filepath.Join(t.TempDir(), "assets")
	res, err := stage.Prepare(staging, dest)
	g.Expect(err).ToNot(HaveOccurred())

	assets := make(map[string][]byte)
	for _, a := range res.Assets {
		data, err := os.ReadFile(filepath.Join(dest, a.Name))
		g.Expect(err).ToNot(HaveOccurred())
		assets[releasePath+a.Name] = data
	}
	return assets
}

func newTestConnector(t *testing.T, srv *assetServer, opts ...Option) *Connector {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	layout, err := NewLayout(ts.URL, "v")
	if err != nil {
		t.Fatal(err)
	}
	return NewConnector(layout, append([]Option{WithRetries(0)}, opts...)...)
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name     string
		artifact Artifact
		want     string
	}{
		{
			name:     "descriptor",
			artifact: DescriptorArtifact(coord),
			want:     "https://github.com/octo/widgets/releases/download/v1.0.0/mylib-1.0.0.module",
		},
		{
			name:     "classifier",
			artifact: Artifact{Coordinate: coord, Classifier: "sources", Extension: "jar"},
			want:     "https://github.com/octo/widgets/releases/download/v1.0.0/mylib-1.0.0-sources.jar",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			l, err := NewLayout("", "v")
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(l.URL(tt.artifact)).To(Equal(tt.want))
		})
	}

	_, err := NewLayout("ftp://example.com", "")
	NewWithT(t).Expect(err).To(HaveOccurred())
}

func TestConnector_Resolve(t *testing.T) {
	g := NewWithT(t)

	srv := &assetServer{assets: publish(t, newDescriptor(t))}
	c := newTestConnector(t, srv, WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "gho_test"})))

	res, err := c.Resolve(context.Background(), coord)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Module.Coordinate()).To(Equal(coord))
	g.Expect(res.Module.Variants[0].Dependencies).To(HaveLen(3))
	g.Expect(res.Variant).ToNot(BeNil())
	g.Expect(res.Variant.Name).To(Equal("apiElements"))

	want := []POMDependency{
		{
			GroupID:    "org.jetbrains.kotlin",
			ArtifactID: "kotlin-stdlib",
			Version:    "2.1.0",
			Scope:      "compile",
			Exclusions: []POMExclusion{{GroupID: "org.jetbrains", ArtifactID: "annotations"}},
		},
		{GroupID: "com.squareup.okio", ArtifactID: "okio", Version: "3.9.0", Scope: "compile"},
		{GroupID: "com.example", ArtifactID: "unversioned", Scope: "compile"},
	}
	if diff := cmp.Diff(want, res.Project.Dependencies); diff != "" {
		t.Errorf("unexpected dependencies (-want +got):\n%s", diff)
	}
	g.Expect(res.Project.Packaging).To(Equal("jar"))
	g.Expect(res.Project.Name).To(Equal("octo.widgets:mylib"))

	pom := string(res.POM)
	g.Expect(pom).To(HavePrefix("<?xml"))
	g.Expect(pom).To(ContainSubstring("<modelVersion>4.0.0</modelVersion>"))
	g.Expect(pom).To(ContainSubstring("<artifactId>okio</artifactId>"))
	g.Expect(pom).ToNot(ContainSubstring("<version></version>"))

	for _, m := range srv.methods {
		g.Expect(m).To(Equal(http.MethodGet))
	}
	for _, a := range srv.auth {
		g.Expect(a).To(Equal("Bearer gho_test"))
	}
}

func TestConnector_ResolveVerification(t *testing.T) {
	module := releasePath + "mylib-1.0.0.module"
	tests := []struct {
		name   string
		tamper func(assets map[string][]byte)
		assert func(g *WithT, err error)
	}{
		{
			name: "SHA-256 mismatch",
			tamper: func(assets map[string][]byte) {
				assets[module+".sha256"] = []byte(strings.Repeat("0", 64))
			},
			assert: func(g *WithT, err error) {
				var cm *ChecksumMismatchError
				g.Expect(errors.As(err, &cm)).To(BeTrue())
				var mismatch *checksum.MismatchError
				g.Expect(errors.As(err, &mismatch)).To(BeTrue())
				g.Expect(mismatch.Algorithm).To(Equal(checksum.SHA256))
			},
		},
		{
			name: "tampered descriptor",
			tamper: func(assets map[string][]byte) {
				assets[module] = append(assets[module], ' ')
			},
			assert: func(g *WithT, err error) {
				var mismatch *checksum.MismatchError
				g.Expect(errors.As(err, &mismatch)).To(BeTrue())
				g.Expect(mismatch.Algorithm).To(Equal(checksum.SHA512))
			},
		},
		{
			name: "missing SHA-256",
			tamper: func(assets map[string][]byte) {
				delete(assets, module+".sha256")
			},
			assert: func(g *WithT, err error) {
				g.Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
				g.Expect(err.Error()).To(ContainSubstring("no sha256 checksum"))
			},
		},
		{
			name: "missing SHA-512",
			tamper: func(assets map[string][]byte) {
				delete(assets, module+".sha512")
			},
			assert: func(g *WithT, err error) {
				g.Expect(err).ToNot(HaveOccurred())
			},
		},
		{
			name: "missing descriptor",
			tamper: func(assets map[string][]byte) {
				delete(assets, module)
			},
			assert: func(g *WithT, err error) {
				g.Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			srv := &assetServer{assets: publish(t, newDescriptor(t))}
			tt.tamper(srv.assets)
			c := newTestConnector(t, srv)

			res, err := c.Resolve(context.Background(), coord)
			tt.assert(g, err)
			if err != nil {
				g.Expect(res).To(BeNil())
			}
		})
	}
}

func TestConnector_ResolveCoordinateMismatch(t *testing.T) {
	g := NewWithT(t)

	srv := &assetServer{assets: publish(t, newDescriptor(t))}
	c := newTestConnector(t, srv)

	// Serve the assets of 1.0.0 as the release of 1.0.1.
	other := coord
	other.Version = "1.0.1"
	for p, data := range srv.assets {
		srv.assets[strings.Replace(strings.Replace(p, "v1.0.0", "v1.0.1", 1), "1.0.0", "1.0.1", 1)] = data
	}

	_, err := c.Resolve(context.Background(), other)
	var cm *CoordinateMismatchError
	g.Expect(errors.As(err, &cm)).To(BeTrue())
	g.Expect(cm.Found).To(Equal(coord))
}

func TestConnector_Download(t *testing.T) {
	g := NewWithT(t)

	srv := &assetServer{assets: publish(t, newDescriptor(t))}
	c := newTestConnector(t, srv)
	dest := t.TempDir()

	p, err := c.Download(context.Background(), Artifact{Coordinate: coord, Extension: "jar"}, dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(p).To(Equal(filepath.Join(dest, "mylib-1.0.0.jar")))
	data, err := os.ReadFile(p)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("hello"))

	p, err = c.Download(context.Background(), DescriptorArtifact(coord), dest)
	g.Expect(err).ToNot(HaveOccurred())
	_, err = metadata.Load(p)
	g.Expect(err).ToNot(HaveOccurred())

	descriptor := srv.assets[releasePath+"mylib-1.0.0.module"]
	srv.put(releasePath+"mylib-1.0.0.module", []byte("{}"))
	_, err = c.Download(context.Background(), DescriptorArtifact(coord), t.TempDir())
	var cm *ChecksumMismatchError
	g.Expect(errors.As(err, &cm)).To(BeTrue())

	// Artifacts are verified against the descriptor, which must verify too.
	_, err = c.Download(context.Background(), Artifact{Coordinate: coord, Extension: "jar"}, t.TempDir())
	g.Expect(errors.As(err, &cm)).To(BeTrue())
	srv.put(releasePath+"mylib-1.0.0.module", descriptor)

	_, err = c.DownloadAsset(context.Background(), coord, "../mylib-1.0.0.jar", dest)
	g.Expect(err).To(MatchError(ContainSubstring("invalid asset name")))

	empty := t.TempDir()
	_, err = c.Download(context.Background(), Artifact{Coordinate: coord, Classifier: "sources", Extension: "jar"}, empty)
	g.Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	entries, err := os.ReadDir(empty)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entries).To(BeEmpty())
}

func TestConnector_MaxDownloadSize(t *testing.T) {
	g := NewWithT(t)

	srv := &assetServer{assets: publish(t, newDescriptor(t))}
	res, err := newTestConnector(t, srv).Resolve(context.Background(), coord)
	g.Expect(err).ToNot(HaveOccurred())

	c := newTestConnector(t, srv, WithMaxDownloadSize(2))
	dest := t.TempDir()
	_, err = c.DownloadFile(context.Background(), res, res.Variant.Files[0], dest)
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("max download size"))
	entries, err := os.ReadDir(dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(entries).To(BeEmpty())
}

func TestConnector_DownloadVerification(t *testing.T) {
	jar := releasePath + "mylib-1.0.0.jar"
	tests := []struct {
		name       string
		descriptor func(m *metadata.Module)
		tamper     func(t *testing.T, assets map[string][]byte)
		wantErr    string
		mismatch   bool
	}{
		{
			name: "verified by descriptor digests",
		},
		{
			name: "tampered artifact",
			tamper: func(_ *testing.T, assets map[string][]byte) {
				assets[jar] = []byte("EVIL!")
			},
			mismatch: true,
		},
		{
			name: "truncated artifact",
			tamper: func(_ *testing.T, assets map[string][]byte) {
				assets[jar] = []byte("hell")
			},
			wantErr:  "size 4 doesn't match expected 5",
			mismatch: true,
		},
		{
			name: "tampered artifact with matching sidecars",
			tamper: func(t *testing.T, assets map[string][]byte) {
				putAsset(t, assets, jar, []byte("EVIL!"))
			},
			mismatch: true,
		},
		{
			name: "no digests published",
			descriptor: func(m *metadata.Module) {
				f := m.Variants[0].Files[0]
				f.SHA256, f.SHA512 = "", ""
			},
			wantErr: "no checksum published",
		},
		{
			name: "verified by sidecars",
			descriptor: func(m *metadata.Module) {
				f := m.Variants[0].Files[0]
				f.SHA256, f.SHA512 = "", ""
			},
			tamper: func(t *testing.T, assets map[string][]byte) {
				putAsset(t, assets, jar, assets[jar])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			m := newDescriptor(t)
			if tt.descriptor != nil {
				tt.descriptor(m)
			}
			srv := &assetServer{assets: publish(t, m)}
			if tt.tamper != nil {
				tt.tamper(t, srv.assets)
			}
			c := newTestConnector(t, srv)
			dest := t.TempDir()

			p, err := c.DownloadAsset(context.Background(), coord, "mylib-1.0.0.jar", dest)
			if tt.wantErr == "" && !tt.mismatch {
				g.Expect(err).ToNot(HaveOccurred())
				data, err := os.ReadFile(p)
				g.Expect(err).ToNot(HaveOccurred())
				g.Expect(string(data)).To(Equal("hello"))
				return
			}
			g.Expect(err).To(HaveOccurred())
			if tt.wantErr != "" {
				g.Expect(err.Error()).To(ContainSubstring(tt.wantErr))
			}
			var cm *ChecksumMismatchError
			g.Expect(errors.As(err, &cm)).To(Equal(tt.mismatch))
			entries, err := os.ReadDir(dest)
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(entries).To(BeEmpty())
		})
	}
}

// newPlatformModules returns a multiplatform root descriptor and the
// descriptor of its JVM variant. The variant descriptor carries the root
// coordinate and points at the root descriptor.
func newPlatformModules(t *testing.T) (*metadata.Module, *metadata.Module) {
	root := &metadata.Module{
		Component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version},
		Variants: []*metadata.Variant{
			{
				Name: "jvmApiElements-published",
				Attributes: metadata.Attributes{
					"org.gradle.usage":                   metadata.String("java-api"),
					"org.jetbrains.kotlin.platform.type": metadata.String("jvm"),
				},
				AvailableAt: &metadata.AvailableAt{
					URL:     "../../mylib-jvm/1.0.0/mylib-jvm-1.0.0.module",
					Group:   coord.Group,
					Module:  "mylib-jvm",
					Version: coord.Version,
				},
			},
		},
	}
	jvm := &metadata.Module{
		Component: metadata.Component{
			Group:   coord.Group,
			Module:  coord.Module,
			Version: coord.Version,
			URL:     "../../mylib/1.0.0/mylib-1.0.0.module",
		},
		Variants: []*metadata.Variant{
			{
				Name: "jvmApiElements-published",
				Attributes: metadata.Attributes{
					"org.gradle.usage":                   metadata.String("java-api"),
					"org.jetbrains.kotlin.platform.type": metadata.String("jvm"),
				},
				Dependencies: []*metadata.Dependency{
					{
						Group:   "org.jetbrains.kotlin",
						Module:  "kotlin-stdlib",
						Version: &metadata.VersionConstraint{Requires: "2.1.0"},
					},
				},
				Files: []*metadata.File{newFile(t, "mylib-jvm-1.0.0.jar", "jvm classes")},
			},
		},
	}
	return root, jvm
}

func TestConnector_ResolvePlatformVariant(t *testing.T) {
	g := NewWithT(t)

	root, jvm := newPlatformModules(t)
	srv := &assetServer{assets: publishModules(t,
		stagedModule{artifactID: "mylib", module: root},
		stagedModule{artifactID: "mylib-jvm", module: jvm, files: map[string]string{"mylib-jvm-1.0.0.jar": "jvm classes"}},
	)}
	c := newTestConnector(t, srv)

	res, err := c.Resolve(context.Background(), coord)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(res.Project.Dependencies).To(Equal([]POMDependency{
		{GroupID: coord.Group, ArtifactID: "mylib-jvm", Version: coord.Version},
	}))

	at := res.Variant.AvailableAt
	g.Expect(at).ToNot(BeNil())
	target := metadata.Coordinate{Group: at.Group, Module: at.Module, Version: at.Version}
	variant, err := c.Resolve(context.Background(), target)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(variant.Coordinate).To(Equal(target))
	g.Expect(variant.Module.Coordinate()).To(Equal(coord))
	g.Expect(variant.Project.ArtifactID).To(Equal("mylib-jvm"))
	g.Expect(variant.Project.Name).To(Equal("octo.widgets:mylib-jvm"))
	g.Expect(variant.Project.Dependencies).To(HaveLen(1))
	g.Expect(string(variant.POM)).To(ContainSubstring("<artifactId>mylib-jvm</artifactId>"))

	dest := t.TempDir()
	p, err := c.DownloadFile(context.Background(), variant, variant.Variant.Files[0], dest)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(p).To(Equal(filepath.Join(dest, "mylib-jvm-1.0.0.jar")))

	p, err = c.DownloadAsset(context.Background(), target, "mylib-jvm-1.0.0.jar", t.TempDir())
	g.Expect(err).ToNot(HaveOccurred())
	data, err := os.ReadFile(p)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("jvm classes"))
}

func TestCheckCoordinate(t *testing.T) {
	rootURL := DescriptorArtifact(coord).FileName()
	tests := []struct {
		name      string
		requested metadata.Coordinate
		component metadata.Component
		wantErr   bool
	}{
		{
			name:      "root",
			requested: coord,
			component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version},
		},
		{
			name:      "root of another module",
			requested: metadata.Coordinate{Group: coord.Group, Module: "mylib-jvm", Version: coord.Version},
			component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version},
			wantErr:   true,
		},
		{
			name:      "variant pointing at its root",
			requested: metadata.Coordinate{Group: coord.Group, Module: "mylib-jvm", Version: coord.Version},
			component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version, URL: rootURL},
		},
		{
			name:      "variant with its own coordinate",
			requested: metadata.Coordinate{Group: coord.Group, Module: "mylib-jvm", Version: coord.Version},
			component: metadata.Component{Group: coord.Group, Module: "mylib-jvm", Version: coord.Version, URL: rootURL},
		},
		{
			name:      "variant pointing at another descriptor",
			requested: metadata.Coordinate{Group: coord.Group, Module: "mylib-jvm", Version: coord.Version},
			component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version, URL: "other-1.0.0.module"},
			wantErr:   true,
		},
		{
			name:      "variant of another version",
			requested: metadata.Coordinate{Group: coord.Group, Module: "mylib-jvm", Version: "1.0.1"},
			component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version, URL: rootURL},
			wantErr:   true,
		},
		{
			name:      "variant of another group",
			requested: metadata.Coordinate{Group: "octo.other", Module: "mylib-jvm", Version: coord.Version},
			component: metadata.Component{Group: coord.Group, Module: coord.Module, Version: coord.Version, URL: rootURL},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			err := checkCoordinate(tt.requested, &metadata.Module{Component: tt.component})
			if !tt.wantErr {
				g.Expect(err).ToNot(HaveOccurred())
				return
			}
			var cm *CoordinateMismatchError
			g.Expect(errors.As(err, &cm)).To(BeTrue())
			g.Expect(cm.Requested).To(Equal(tt.requested))
		})
	}
}

func TestConnector_ResolveMalformedDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		variant string
		wantErr string
	}{
		{
			name:    "null dependency",
			variant: `{"name": "apiElements", "attributes": {"org.gradle.usage": "java-api"}, "dependencies": [null]}`,
			wantErr: "dependencies[0] is null",
		},
		{
			name:    "null exclude",
			variant: `{"name": "apiElements", "attributes": {"org.gradle.usage": "java-api"}, "dependencies": [{"group": "g", "module": "m", "excludes": [null]}]}`,
			wantErr: "dependencies[0].excludes[0] is null",
		},
		{
			name:    "null dependency constraint",
			variant: `{"name": "apiElements", "attributes": {"org.gradle.usage": "java-api"}, "dependencyConstraints": [null]}`,
			wantErr: "dependencyConstraints[0] is null",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			data := `{"formatVersion": "1.1", "component": {"group": "octo.widgets", "module": "mylib", "version": "1.0.0"}, "variants": [` + tt.variant + `]}`
			srv := &assetServer{assets: map[string][]byte{}}
			putAsset(t, srv.assets, releasePath+"mylib-1.0.0.module", []byte(data))
			c := newTestConnector(t, srv)

			res, err := c.Resolve(context.Background(), coord)
			g.Expect(res).To(BeNil())
			var pe *metadata.ParseError
			g.Expect(errors.As(err, &pe)).To(BeTrue())
			g.Expect(pe.Path).To(HaveSuffix("mylib-1.0.0.module"))
			g.Expect(err.Error()).To(ContainSubstring(tt.wantErr))
		})
	}
}

func TestNewPOMProject_VariantSelection(t *testing.T) {
	dep := func(module string) []*metadata.Dependency {
		return []*metadata.Dependency{{Group: "g", Module: module}}
	}
	tests := []struct {
		name     string
		variants []*metadata.Variant
		want     []string
	}{
		{
			name: "java runtime over earlier JVM variant",
			variants: []*metadata.Variant{
				{Name: "jvm", Attributes: metadata.Attributes{"org.gradle.jvm.version": metadata.Number(17)}, Dependencies: dep("a")},
				{Name: "runtime", Attributes: metadata.Attributes{"org.gradle.usage": metadata.String("java-runtime")}, Dependencies: dep("b")},
			},
			want: []string{"b"},
		},
		{
			name: "first JVM-like variant",
			variants: []*metadata.Variant{
				{Name: "docs", Attributes: metadata.Attributes{"org.gradle.category": metadata.String("documentation")}, Dependencies: dep("a")},
				{Name: "kotlin", Attributes: metadata.Attributes{"org.gradle.usage": metadata.String("kotlin-api")}, Dependencies: dep("b")},
			},
			want: []string{"b"},
		},
		{
			name: "available at",
			variants: []*metadata.Variant{
				{
					Name:        "jvmApiElements",
					Attributes:  metadata.Attributes{"org.gradle.usage": metadata.String("java-api")},
					AvailableAt: &metadata.AvailableAt{URL: "../../mylib-jvm/1.0.0/mylib-jvm-1.0.0.module", Group: "g", Module: "mylib-jvm", Version: "1.0.0"},
				},
			},
			want: []string{"mylib-jvm"},
		},
		{
			name: "no JVM variant",
			variants: []*metadata.Variant{
				{Name: "js", Attributes: metadata.Attributes{"org.jetbrains.kotlin.platform.type": metadata.String("js")}, Dependencies: dep("a")},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			m := &metadata.Module{
				Component: metadata.Component{Group: "g", Module: "mylib", Version: "1.0.0"},
				Variants:  tt.variants,
			}
			p := NewPOMProject(m.Coordinate(), m)
			var got []string
			for _, d := range p.Dependencies {
				got = append(got, d.ArtifactID)
			}
			g.Expect(got).To(Equal(tt.want))
		})
	}
}
