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

package metadata

import (
	"bytes"
	"encoding/xml"
)

// IvyFileSuffix is the suffix of the synthesized Ivy index descriptor.
const IvyFileSuffix = ".ivy.xml"

// IvyFileName returns the name of the Ivy index of the coordinate, in the
// form '<module>-<version>.ivy.xml'.
func IvyFileName(c Coordinate) string {
	return c.Module + "-" + c.Version + IvyFileSuffix
}

// IvyIndex renders the minimal Ivy descriptor Gradle needs to discover the
// module descriptor of a component published to a flat directory.
// The marker comment and the info attributes are read by Gradle and must not
// change.
func IvyIndex(c Coordinate) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0"?>
<ivy-module version="2.0"
            xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
            xsi:noNamespaceSchemaLocation="https://ant.apache.org/ivy/schemas/ivy.xsd">
    <!-- do_not_remove: published-with-gradle-metadata -->
    <info organisation="`)
	escape(&b, c.Group)
	b.WriteString(`" module="`)
	escape(&b, c.Module)
	b.WriteString(`" revision="`)
	escape(&b, c.Version)
	b.WriteString("\" />\n</ivy-module>\n")
	return b.Bytes()
}

func escape(b *bytes.Buffer, s string) {
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(b, []byte(s))
}
