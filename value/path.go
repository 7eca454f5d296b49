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
	"fmt"
	"strconv"
	"strings"
)

// segment is one step of a parsed path: either a key into an Object or an
// index into an Array.
type segment struct {
	key      string
	index    int
	isIndex  bool
}

// parsePath splits a dotted/indexed path like "a.b[3].c" into segments.
func parsePath(path string) ([]segment, error) {
	var segs []segment
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, segment{key: cur.String()})
			cur.Reset()
		}
	}
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			flush()
			i++
		case '[':
			flush()
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("value: unterminated index in path %q", path)
			}
			idxStr := path[i+1 : i+j]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("value: bad index %q in path %q", idxStr, path)
			}
			segs = append(segs, segment{index: idx, isIndex: true})
			i += j + 1
		default:
			cur.WriteByte(path[i])
			i++
		}
	}
	flush()
	if len(segs) == 0 {
		return nil, fmt.Errorf("value: empty path")
	}
	return segs, nil
}

// Get walks path from v, returning Undefined (never an error) when any
// intermediate segment is missing — per the spec, reading a missing key
// yields Undefined rather than failing.
func (v Value) Get(path string) Value {
	segs, err := parsePath(path)
	if err != nil {
		return Undefined()
	}
	cur := v
	for _, s := range segs {
		if s.isIndex {
			cur = cur.At(s.index)
		} else {
			cur = cur.Field(s.key)
		}
		if !cur.IsValid() {
			return Undefined()
		}
	}
	return cur
}

// Set walks path from v, auto-vivifying missing intermediate Objects and
// extending Arrays with Null fill, then installs val at the final segment.
func (v *Value) Set(path string, val Value) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	return setSegments(v, segs, val)
}

func setSegments(v *Value, segs []segment, val Value) error {
	last := len(segs) - 1
	cur := v
	for i, s := range segs {
		if i == last {
			if s.isIndex {
				return cur.SetAt(s.index, val)
			}
			return cur.SetField(s.key, val)
		}
		next := segs[i+1]
		if s.isIndex {
			c := cur.mutable()
			if c.kind == KindUndefined {
				c.kind = KindArray
			}
			if c.kind != KindArray {
				return &TypeMismatchError{Want: KindArray, Got: c.kind}
			}
			for len(c.arr) < s.index {
				c.arr = append(c.arr, newCell(KindNull))
			}
			if len(c.arr) == s.index {
				if next.isIndex {
					c.arr = append(c.arr, newCell(KindArray))
				} else {
					c.arr = append(c.arr, newCell(KindObject))
				}
			}
			child := Value{c: c.arr[s.index]}
			if err := setSegments(&child, segs[i+1:], val); err != nil {
				return err
			}
			c.arr[s.index] = child.ensure()
			return nil
		}
		c := cur.mutable()
		if c.kind == KindUndefined {
			c.kind = KindObject
		}
		if c.kind != KindObject {
			return &TypeMismatchError{Want: KindObject, Got: c.kind}
		}
		found := -1
		for idx, m := range c.obj {
			if m.key == s.key {
				found = idx
				break
			}
		}
		if found < 0 {
			var childCell *cell
			if next.isIndex {
				childCell = newCell(KindArray)
			} else {
				childCell = newCell(KindObject)
			}
			c.obj = append(c.obj, member{key: s.key, val: childCell})
			found = len(c.obj) - 1
		}
		child := Value{c: c.obj[found].val}
		if err := setSegments(&child, segs[i+1:], val); err != nil {
			return err
		}
		c.obj[found].val = child.ensure()
		return nil
	}
	return nil
}

// Remove deletes the value named by path's final segment. A missing key or
// out-of-range index is a no-op, matching RemoveField/RemoveAt.
func (v *Value) Remove(path string) {
	segs, err := parsePath(path)
	if err != nil {
		return
	}
	last := len(segs) - 1
	cur := *v
	for i, s := range segs {
		if i == last {
			if s.isIndex {
				cur.RemoveAt(s.index)
			} else {
				cur.RemoveField(s.key)
			}
			return
		}
		if s.isIndex {
			cur = cur.At(s.index)
		} else {
			cur = cur.Field(s.key)
		}
		if !cur.IsValid() {
			return
		}
	}
}
