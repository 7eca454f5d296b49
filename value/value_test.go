/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package value

import (
	"testing"
)

func TestPathSetGet(t *testing.T) {
	tests := []struct {
		name string
		path string
		val  Value
	}{
		{"object key", "a.b.c", NewInt(7)},
		{"array index", "a.b[3].c", NewString("x")},
		{"bare key", "x", NewBool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var root Value
			if err := root.Set(tt.path, tt.val); err != nil {
				t.Fatalf("Set(%q) error = %v", tt.path, err)
			}
			got := root.Get(tt.path)
			if !Equal(got, tt.val) {
				t.Errorf("Get(%q) = %v, want %v", tt.path, got, tt.val)
			}
		})
	}
}

func TestPathGetMissingYieldsUndefined(t *testing.T) {
	var root Value
	_ = root.Set("a.b", NewInt(1))
	got := root.Get("a.missing.deeper")
	if got.IsValid() {
		t.Errorf("Get on missing path = %v, want Undefined", got)
	}
}

func TestArrayNullFill(t *testing.T) {
	var root Value
	if err := root.Set("arr[2]", NewInt(9)); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	arr := root.Get("arr")
	if arr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", arr.Len())
	}
	if arr.At(0).Kind() != KindNull || arr.At(1).Kind() != KindNull {
		t.Errorf("expected Null fill at indices 0,1, got %v %v", arr.At(0).Kind(), arr.At(1).Kind())
	}
	if got, _ := arr.At(2).Int(); got != 9 {
		t.Errorf("arr[2] = %d, want 9", got)
	}
}

func TestBindToAliases(t *testing.T) {
	a := NewObject()
	_ = a.SetField("x", NewInt(1))
	var b Value
	b.BindTo(a)
	_ = b.SetField("x", NewInt(2))
	if got, _ := a.Field("x").Int(); got != 2 {
		t.Errorf("alias mutation not observed: a.x = %d, want 2", got)
	}
}

func TestAssignFromDeepCopies(t *testing.T) {
	a := NewObject()
	_ = a.SetField("x", NewInt(1))
	var b Value
	b.AssignFrom(a)
	_ = b.SetField("x", NewInt(2))
	if got, _ := a.Field("x").Int(); got != 1 {
		t.Errorf("deep copy leaked mutation: a.x = %d, want 1", got)
	}
	if got, _ := b.Field("x").Int(); got != 2 {
		t.Errorf("b.x = %d, want 2", got)
	}
}

func TestUnite(t *testing.T) {
	left := NewObject()
	_ = left.SetField("a", NewInt(1))
	_ = left.SetField("b", NewInt(2))

	right := NewObject()
	_ = right.SetField("b", NewInt(20))
	_ = right.SetField("c", NewInt(3))

	left.Unite(right)

	if got, _ := left.Field("a").Int(); got != 1 {
		t.Errorf("a = %d, want 1", got)
	}
	if got, _ := left.Field("b").Int(); got != 20 {
		t.Errorf("b = %d, want 20 (right wins)", got)
	}
	if got, _ := left.Field("c").Int(); got != 3 {
		t.Errorf("c = %d, want 3", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var root Value
	_ = root.Set("a.b", NewInt(7))
	_ = root.Set("a.c", NewString("hi"))
	_ = root.Set("arr[0]", NewBool(true))

	b, err := root.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON error = %v", err)
	}
	back, err := FromJSON(b)
	if err != nil {
		t.Fatalf("FromJSON error = %v", err)
	}
	if !Equal(root, back) {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, root)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var root Value
	_ = root.Set("name", NewString("s1"))
	_ = root.Set("count", NewInt(3))
	_ = root.Set("active", NewBool(true))

	b, err := root.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML error = %v", err)
	}
	back, err := FromYAML(b)
	if err != nil {
		t.Fatalf("FromYAML error = %v", err)
	}
	if !Equal(root, back) {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, root)
	}
}

func TestXMLRoundTrip(t *testing.T) {
	var root Value
	_ = root.Set("name", NewString("s1"))
	_ = root.Set("count", NewInt(3))

	b, err := root.ToXML("statemachine")
	if err != nil {
		t.Fatalf("ToXML error = %v", err)
	}
	back, err := FromXML(b)
	if err != nil {
		t.Fatalf("FromXML error = %v", err)
	}
	if !Equal(root, back) {
		t.Errorf("round trip mismatch: got %+v, want %+v", back, root)
	}
}

func TestUndefinedNotSerializable(t *testing.T) {
	u := Undefined()
	if _, err := u.ToJSON(); err == nil {
		t.Error("ToJSON on Undefined: expected error, got nil")
	}
	if _, err := u.ToYAML(); err == nil {
		t.Error("ToYAML on Undefined: expected error, got nil")
	}
	if _, err := u.ToXML("root"); err == nil {
		t.Error("ToXML on Undefined: expected error, got nil")
	}
}

func TestTypeMismatch(t *testing.T) {
	s := NewString("x")
	if _, err := s.Int(); err == nil {
		t.Error("Int() on String: expected TypeMismatchError, got nil")
	}
	if got := s.IntOr(42); got != 42 {
		t.Errorf("IntOr default = %d, want 42", got)
	}
}
