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
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{in: "", want: Source{Kind: DefaultSource}},
		{in: "EnvVar", want: Source{Kind: EnvSource, Name: DefaultTokenEnvVar}},
		{in: "File:/run/secrets/token", want: Source{Kind: FileSource, Name: "/run/secrets/token"}},
		{in: "File:", wantErr: true},
		{in: "Vault", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			g := NewWithT(t)
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())
				return
			}
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(got).To(Equal(tt.want))
			g.Expect(got.String()).To(Equal(tt.in))
		})
	}
}

func TestStore(t *testing.T) {
	g := NewWithT(t)

	s := NewStore(filepath.Join(t.TempDir(), "cache"))
	token, err := s.Load()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(token).To(BeEmpty())

	g.Expect(s.Save("gho_one")).To(Succeed())
	g.Expect(s.Save("gho_two")).To(Succeed())
	token, err = s.Load()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(token).To(Equal("gho_two"))

	g.Expect(os.WriteFile(s.Path(), []byte("{"), 0o600)).To(Succeed())
	token, err = s.Load()
	g.Expect(err).To(HaveOccurred())
	g.Expect(token).To(BeEmpty())

	g.Expect(s.Delete()).To(Succeed())
	g.Expect(s.Delete()).To(Succeed())
}
