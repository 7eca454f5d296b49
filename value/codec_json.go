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
	"bytes"
	"encoding/json"
	"fmt"
)

// ToJSON encodes v as JSON, preserving Object insertion order (the stdlib
// encoding/json package sorts map keys, so the tree is walked directly
// instead of round-tripping through map[string]interface{}).
func (v Value) ToJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v.ensure()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, c *cell) error {
	switch c.kind {
	case KindUndefined:
		return ErrUndefinedNotSerializable
	case KindNull:
		buf.WriteString("null")
	case KindBoolean:
		if c.boolean {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInteger:
		fmt.Fprintf(buf, "%d", c.integer)
	case KindFloat:
		b, err := json.Marshal(c.float)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(c.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range c.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range c.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(m.key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSON(buf, m.val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value: unknown kind %d", c.kind)
	}
	return nil
}

// FromJSON decodes JSON bytes into a Value tree, using json.Number to tell
// integers from floats precisely rather than collapsing everything to
// float64.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Undefined(), fmt.Errorf("value: json parse error: %w", err)
	}
	return Value{c: fromJSONRaw(raw)}, nil
}

func fromJSONRaw(v interface{}) *cell {
	switch t := v.(type) {
	case nil:
		return newCell(KindNull)
	case bool:
		c := newCell(KindBoolean)
		c.boolean = t
		return c
	case json.Number:
		if i, err := t.Int64(); err == nil {
			c := newCell(KindInteger)
			c.integer = i
			return c
		}
		f, _ := t.Float64()
		c := newCell(KindFloat)
		c.float = f
		return c
	case string:
		c := newCell(KindString)
		c.str = t
		return c
	case []interface{}:
		c := newCell(KindArray)
		c.arr = make([]*cell, len(t))
		for i, e := range t {
			c.arr[i] = fromJSONRaw(e)
		}
		return c
	case map[string]interface{}:
		// encoding/json does not preserve key order on decode into
		// interface{}; callers that need the original source order should
		// decode via a json.Decoder token stream instead. For the value
		// tree's purposes (structural equality, path access) order is
		// irrelevant except for round-trip cosmetics, which this accepts.
		c := newCell(KindObject)
		for k, e := range t {
			c.obj = append(c.obj, member{key: k, val: fromJSONRaw(e)})
		}
		return c
	default:
		c := newCell(KindString)
		c.str = fmt.Sprintf("%v", t)
		return c
	}
}
