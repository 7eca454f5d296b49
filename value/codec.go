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
)

// ErrUndefinedNotSerializable is returned by ToJSON/ToYAML/ToXML and ToPlain
// when the value tree (or a member of it) is Undefined.
var ErrUndefinedNotSerializable = fmt.Errorf("value: undefined is not serializable")

// toPlain converts a cell into plain Go values (bool, int64, float64,
// string, []interface{}, map[string]interface{}, nil) suitable for
// encoding/json and gopkg.in/yaml.v3, which both operate on interface{}
// trees with ordinary Go container types.
func toPlain(c *cell) (interface{}, error) {
	switch c.kind {
	case KindUndefined:
		return nil, ErrUndefinedNotSerializable
	case KindNull:
		return nil, nil
	case KindBoolean:
		return c.boolean, nil
	case KindInteger:
		return c.integer, nil
	case KindFloat:
		return c.float, nil
	case KindString:
		return c.str, nil
	case KindArray:
		out := make([]interface{}, len(c.arr))
		for i, e := range c.arr {
			pv, err := toPlain(e)
			if err != nil {
				return nil, err
			}
			out[i] = pv
		}
		return out, nil
	case KindObject:
		out := make(map[string]interface{}, len(c.obj))
		var order []string
		for _, m := range c.obj {
			pv, err := toPlain(m.val)
			if err != nil {
				return nil, err
			}
			out[m.key] = pv
			order = append(order, m.key)
		}
		return &orderedMap{keys: order, values: out}, nil
	default:
		return nil, fmt.Errorf("value: unknown kind %d", c.kind)
	}
}

// orderedMap carries Object insertion order (keys) through the plain-value
// conversion; unwrapOrdered turns it into a plain map, which drops that
// order. This module's JSON/YAML encoders walk cells directly and do not
// use it; generic consumers may use plain map access via Map().
type orderedMap struct {
	keys   []string
	values map[string]interface{}
}

func (o *orderedMap) Map() map[string]interface{} { return o.values }

// fromPlain converts a decoded JSON/YAML interface{} tree back into a
// Value tree. Numbers decoded as float64 with no fractional part and a
// magnitude representable exactly become Integer, matching the YAML scalar
// inference order (Boolean -> Integer -> Float -> String) applied during
// decode by the respective decoders themselves; by the time fromPlain runs,
// the decoder has already chosen a concrete Go type per item.
func fromPlain(v interface{}) *cell {
	switch t := v.(type) {
	case nil:
		return newCell(KindNull)
	case bool:
		c := newCell(KindBoolean)
		c.boolean = t
		return c
	case int:
		c := newCell(KindInteger)
		c.integer = int64(t)
		return c
	case int64:
		c := newCell(KindInteger)
		c.integer = t
		return c
	case float64:
		if t == float64(int64(t)) {
			c := newCell(KindInteger)
			c.integer = int64(t)
			return c
		}
		c := newCell(KindFloat)
		c.float = t
		return c
	case string:
		c := newCell(KindString)
		c.str = t
		return c
	case []interface{}:
		c := newCell(KindArray)
		c.arr = make([]*cell, len(t))
		for i, e := range t {
			c.arr[i] = fromPlain(e)
		}
		return c
	case map[string]interface{}:
		c := newCell(KindObject)
		for k, e := range t {
			c.obj = append(c.obj, member{key: k, val: fromPlain(e)})
		}
		return c
	// gopkg.in/yaml.v3 decodes mappings as map[string]interface{} when the
	// target is interface{} with its default UnmarshalYAML behavior for
	// Go >=1.12 maps; some yaml.v3 configurations surface
	// map[interface{}]interface{} instead, so it is handled explicitly too.
	case map[interface{}]interface{}:
		c := newCell(KindObject)
		for k, e := range t {
			c.obj = append(c.obj, member{key: fmt.Sprintf("%v", k), val: fromPlain(e)})
		}
		return c
	default:
		c := newCell(KindString)
		c.str = fmt.Sprintf("%v", t)
		return c
	}
}

// FromPlain builds a Value from a plain Go interface{} tree (as produced by
// encoding/json.Unmarshal into interface{}, or yaml.v3 Unmarshal).
func FromPlain(v interface{}) Value {
	return Value{c: fromPlain(v)}
}

// ToPlain renders v as a plain Go interface{} tree suitable for
// encoding/json or yaml.v3. Fails if v or any nested member is Undefined.
func (v Value) ToPlain() (interface{}, error) {
	plain, err := toPlain(v.ensure())
	if err != nil {
		return nil, err
	}
	return unwrapOrdered(plain), nil
}

func unwrapOrdered(v interface{}) interface{} {
	switch t := v.(type) {
	case *orderedMap:
		out := make(map[string]interface{}, len(t.keys))
		for _, k := range t.keys {
			out[k] = unwrapOrdered(t.values[k])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = unwrapOrdered(e)
		}
		return out
	default:
		return v
	}
}
