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

// Package value implements the recursive tagged value tree shared by state
// input/output ports and dataflow copies.
//
// Package value 实现了状态输入/输出端口和数据流拷贝所共享的递归标记值树。
package value

import (
	"fmt"
)

// Kind tags the variant currently stored in a Value's cell.
//
// Kind 标记 Value 底层 cell 当前存储的变体类型。
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// member is a single entry of an Object, kept in insertion order.
type member struct {
	key string
	val *cell
}

// cell is the shared storage behind one or more Value handles. Two Values
// that BindTo each other point at the same cell; AssignFrom always installs
// a freshly allocated cell so the destination remains independent afterward.
//
// cell 是一个或多个 Value 句柄背后的共享存储。两个互相 BindTo 的 Value
// 指向同一个 cell；AssignFrom 总是安装一个新分配的 cell，使目的地在拷贝后保持独立。
type cell struct {
	kind    Kind
	boolean bool
	integer int64
	float   float64
	str     string
	arr     []*cell
	obj     []member
}

// Value is a thin handle over a shared cell. The zero Value is Undefined.
//
// Value 是共享 cell 上的一个简单句柄。Value 的零值是 Undefined。
type Value struct {
	c *cell
}

func newCell(k Kind) *cell {
	return &cell{kind: k}
}

// Undefined returns a fresh Undefined value.
func Undefined() Value { return Value{c: newCell(KindUndefined)} }

// Null returns a fresh Null value.
func Null() Value {
	return Value{c: newCell(KindNull)}
}

// NewBool returns a fresh Boolean value.
func NewBool(b bool) Value {
	c := newCell(KindBoolean)
	c.boolean = b
	return Value{c: c}
}

// NewInt returns a fresh Integer value.
func NewInt(i int64) Value {
	c := newCell(KindInteger)
	c.integer = i
	return Value{c: c}
}

// NewFloat returns a fresh Float value.
func NewFloat(f float64) Value {
	c := newCell(KindFloat)
	c.float = f
	return Value{c: c}
}

// NewString returns a fresh String value.
func NewString(s string) Value {
	c := newCell(KindString)
	c.str = s
	return Value{c: c}
}

// NewArray returns a fresh, empty Array value.
func NewArray() Value {
	return Value{c: newCell(KindArray)}
}

// NewObject returns a fresh, empty Object value.
func NewObject() Value {
	return Value{c: newCell(KindObject)}
}

func (v Value) ensure() *cell {
	if v.c == nil {
		return newCell(KindUndefined)
	}
	return v.c
}

// Kind returns the variant currently held.
func (v Value) Kind() Kind { return v.ensure().kind }

// IsValid reports whether the value is anything other than Undefined.
//
// IsValid 报告该值是否不是 Undefined。
func (v Value) IsValid() bool { return v.Kind() != KindUndefined }

// TypeMismatchError is returned by the typed getters when the stored kind
// does not match the requested one.
type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("value: type mismatch, want %s got %s", e.Want, e.Got)
}

// Bool returns the stored boolean or a TypeMismatchError.
func (v Value) Bool() (bool, error) {
	c := v.ensure()
	if c.kind != KindBoolean {
		return false, &TypeMismatchError{Want: KindBoolean, Got: c.kind}
	}
	return c.boolean, nil
}

// BoolOr returns the stored boolean, or def if the kind does not match.
func (v Value) BoolOr(def bool) bool {
	b, err := v.Bool()
	if err != nil {
		return def
	}
	return b
}

// Int returns the stored integer or a TypeMismatchError.
func (v Value) Int() (int64, error) {
	c := v.ensure()
	if c.kind != KindInteger {
		return 0, &TypeMismatchError{Want: KindInteger, Got: c.kind}
	}
	return c.integer, nil
}

// IntOr returns the stored integer, or def if the kind does not match.
func (v Value) IntOr(def int64) int64 {
	i, err := v.Int()
	if err != nil {
		return def
	}
	return i
}

// Float returns the stored float or a TypeMismatchError.
func (v Value) Float() (float64, error) {
	c := v.ensure()
	if c.kind != KindFloat {
		return 0, &TypeMismatchError{Want: KindFloat, Got: c.kind}
	}
	return c.float, nil
}

// FloatOr returns the stored float, or def if the kind does not match.
func (v Value) FloatOr(def float64) float64 {
	f, err := v.Float()
	if err != nil {
		return def
	}
	return f
}

// String returns the stored string or a TypeMismatchError.
func (v Value) String() (string, error) {
	c := v.ensure()
	if c.kind != KindString {
		return "", &TypeMismatchError{Want: KindString, Got: c.kind}
	}
	return c.str, nil
}

// StringOr returns the stored string, or def if the kind does not match.
func (v Value) StringOr(def string) string {
	s, err := v.String()
	if err != nil {
		return def
	}
	return s
}

// Len returns the array length, the object size, or -1 for scalars and
// Undefined/Null.
func (v Value) Len() int {
	c := v.ensure()
	switch c.kind {
	case KindArray:
		return len(c.arr)
	case KindObject:
		return len(c.obj)
	default:
		return -1
	}
}

// At returns the i-th element of an Array, or Undefined if out of range or
// not an Array.
func (v Value) At(i int) Value {
	c := v.ensure()
	if c.kind != KindArray || i < 0 || i >= len(c.arr) {
		return Undefined()
	}
	return Value{c: c.arr[i]}
}

// Keys returns the Object's keys in insertion order, or nil if not an
// Object.
func (v Value) Keys() []string {
	c := v.ensure()
	if c.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(c.obj))
	for _, m := range c.obj {
		keys = append(keys, m.key)
	}
	return keys
}

// Field returns the named field of an Object, or Undefined if missing or
// not an Object.
func (v Value) Field(key string) Value {
	c := v.ensure()
	if c.kind != KindObject {
		return Undefined()
	}
	for _, m := range c.obj {
		if m.key == key {
			return Value{c: m.val}
		}
	}
	return Undefined()
}

// SetField installs val as key in an Object, creating the Object
// representation in place if the Value was Undefined.
func (v *Value) SetField(key string, val Value) error {
	c := v.mutable()
	if c.kind == KindUndefined {
		c.kind = KindObject
	}
	if c.kind != KindObject {
		return &TypeMismatchError{Want: KindObject, Got: c.kind}
	}
	cp := copyCell(val.ensure())
	for i, m := range c.obj {
		if m.key == key {
			c.obj[i].val = cp
			return nil
		}
	}
	c.obj = append(c.obj, member{key: key, val: cp})
	return nil
}

// RemoveField deletes key from an Object. A missing key is a no-op.
func (v *Value) RemoveField(key string) {
	c := v.mutable()
	if c.kind != KindObject {
		return
	}
	for i, m := range c.obj {
		if m.key == key {
			c.obj = append(c.obj[:i], c.obj[i+1:]...)
			return
		}
	}
}

// RemoveAt deletes index i from an Array. An out-of-range index is a no-op.
func (v *Value) RemoveAt(i int) {
	c := v.mutable()
	if c.kind != KindArray || i < 0 || i >= len(c.arr) {
		return
	}
	c.arr = append(c.arr[:i], c.arr[i+1:]...)
}

// SetAt installs val at index i of an Array, extending with Null fill and
// converting an Undefined receiver into an Array representation.
func (v *Value) SetAt(i int, val Value) error {
	c := v.mutable()
	if c.kind == KindUndefined {
		c.kind = KindArray
	}
	if c.kind != KindArray {
		return &TypeMismatchError{Want: KindArray, Got: c.kind}
	}
	if i < 0 {
		return fmt.Errorf("value: negative array index %d", i)
	}
	for len(c.arr) <= i {
		c.arr = append(c.arr, newCell(KindNull))
	}
	c.arr[i] = copyCell(val.ensure())
	return nil
}

// Append adds val to the end of an Array, converting an Undefined receiver
// into an Array representation.
func (v *Value) Append(val Value) error {
	c := v.mutable()
	if c.kind == KindUndefined {
		c.kind = KindArray
	}
	if c.kind != KindArray {
		return &TypeMismatchError{Want: KindArray, Got: c.kind}
	}
	c.arr = append(c.arr, copyCell(val.ensure()))
	return nil
}

// mutable returns the underlying cell, allocating one if the Value handle
// has never been attached to storage.
func (v *Value) mutable() *cell {
	if v.c == nil {
		v.c = newCell(KindUndefined)
	}
	return v.c
}

// BindTo makes v an alias of other: mutations through either handle are
// observable through the other, because both now share the same cell.
//
// BindTo 使 v 成为 other 的别名：两者现在共享同一个 cell，
// 通过任意一方的修改都能被另一方观察到。
func (v *Value) BindTo(other Value) {
	v.c = other.ensure()
}

// AssignFrom deep-copies other's contents into a freshly allocated cell
// owned solely by v; v and other are independent after the call.
//
// AssignFrom 将 other 的内容深拷贝到一个新分配、仅由 v 持有的 cell 中；
// 调用之后 v 与 other 相互独立。
func (v *Value) AssignFrom(other Value) {
	v.c = copyCell(other.ensure())
}

func copyCell(src *cell) *cell {
	dst := &cell{
		kind:    src.kind,
		boolean: src.boolean,
		integer: src.integer,
		float:   src.float,
		str:     src.str,
	}
	if src.arr != nil {
		dst.arr = make([]*cell, len(src.arr))
		for i, e := range src.arr {
			dst.arr[i] = copyCell(e)
		}
	}
	if src.obj != nil {
		dst.obj = make([]member, len(src.obj))
		for i, m := range src.obj {
			dst.obj[i] = member{key: m.key, val: copyCell(m.val)}
		}
	}
	return dst
}

// Equal reports structural (deep) equality ignoring sharing topology.
func Equal(a, b Value) bool {
	return cellsEqual(a.ensure(), b.ensure())
}

func cellsEqual(a, b *cell) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return a.boolean == b.boolean
	case KindInteger:
		return a.integer == b.integer
	case KindFloat:
		return a.float == b.float
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !cellsEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for _, m := range a.obj {
			found := false
			for _, n := range b.obj {
				if n.key == m.key {
					found = cellsEqual(m.val, n.val)
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Unite recursively merges other into v per the Object/Array merge rules:
// for Objects, both-Object keys recurse, otherwise the right side (other)
// wins; for Arrays, same-index entries recurse the same way, missing left
// indices become Null, and the right side wins at conflicts.
func (v *Value) Unite(other Value) {
	c := v.mutable()
	o := other.ensure()
	united := uniteCells(c, o)
	*c = *united
}

func uniteCells(a, b *cell) *cell {
	if a.kind == KindObject && b.kind == KindObject {
		out := &cell{kind: KindObject}
		out.obj = append(out.obj, a.obj...)
		for _, bm := range b.obj {
			merged := false
			for i, om := range out.obj {
				if om.key == bm.key {
					out.obj[i].val = uniteCells(om.val, bm.val)
					merged = true
					break
				}
			}
			if !merged {
				out.obj = append(out.obj, member{key: bm.key, val: copyCell(bm.val)})
			}
		}
		return out
	}
	if a.kind == KindArray && b.kind == KindArray {
		n := len(a.arr)
		if len(b.arr) > n {
			n = len(b.arr)
		}
		out := &cell{kind: KindArray, arr: make([]*cell, n)}
		for i := 0; i < n; i++ {
			switch {
			case i < len(a.arr) && i < len(b.arr):
				out.arr[i] = uniteCells(a.arr[i], b.arr[i])
			case i < len(b.arr):
				out.arr[i] = copyCell(b.arr[i])
			default:
				out.arr[i] = newCell(KindNull)
			}
		}
		return out
	}
	// Type mismatch or scalar: right wins.
	return copyCell(b)
}
