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
	"encoding/json"
	"fmt"
	"strconv"
)

// AttributeKind is the JSON scalar type of an AttributeValue.
type AttributeKind int

const (
	StringKind AttributeKind = iota
	BoolKind
	NumberKind
)

// AttributeValue is a Gradle attribute value. Attributes are JSON scalars:
// strings, booleans or numbers. Two values are equal only when both the kind
// and the value match.
type AttributeValue struct {
	kind AttributeKind
	str  string
	b    bool
	num  json.Number
}

// String returns a string attribute value.
func String(s string) AttributeValue {
	return AttributeValue{kind: StringKind, str: s}
}

// Bool returns a boolean attribute value.
func Bool(b bool) AttributeValue {
	return AttributeValue{kind: BoolKind, b: b}
}

// Number returns a numeric attribute value.
func Number(n int64) AttributeValue {
	return AttributeValue{kind: NumberKind, num: json.Number(strconv.FormatInt(n, 10))}
}

// Kind returns the scalar type of the value.
func (v AttributeValue) Kind() AttributeKind {
	return v.kind
}

// Value returns the underlying Go value: a string, a bool or a json.Number.
func (v AttributeValue) Value() any {
	switch v.kind {
	case BoolKind:
		return v.b
	case NumberKind:
		return v.num
	default:
		return v.str
	}
}

// Equal reports whether both values have the same kind and value.
func (v AttributeValue) Equal(o AttributeValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case BoolKind:
		return v.b == o.b
	case NumberKind:
		return v.num == o.num
	default:
		return v.str == o.str
	}
}

func (v AttributeValue) String() string {
	return fmt.Sprint(v.Value())
}

// MarshalJSON implements json.Marshaler.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value())
}

// UnmarshalJSON implements json.Unmarshaler. Objects, arrays and null are
// rejected.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	case json.Number:
		*v = AttributeValue{kind: NumberKind, num: x}
	default:
		return fmt.Errorf("attribute value must be a string, boolean or number, got %s", string(data))
	}
	return nil
}

// Attributes is a set of named attribute values.
type Attributes map[string]AttributeValue

// Contains reports whether every entry of want is present in a with an equal
// value.
func (a Attributes) Contains(want map[string]AttributeValue) bool {
	for k, wv := range want {
		v, ok := a[k]
		if !ok || !v.Equal(wv) {
			return false
		}
	}
	return true
}
