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

	"gopkg.in/yaml.v3"
)

// ToYAML encodes v as YAML via gopkg.in/yaml.v3. yaml.v3's own Node API is
// used instead of round-tripping through map[string]interface{} so Object
// insertion order survives encoding.
func (v Value) ToYAML() ([]byte, error) {
	node, err := toYAMLNode(v.ensure())
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func toYAMLNode(c *cell) (*yaml.Node, error) {
	switch c.kind {
	case KindUndefined:
		return nil, ErrUndefinedNotSerializable
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case KindBoolean:
		v := "false"
		if c.boolean {
			v = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}, nil
	case KindInteger:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", c.integer)}, nil
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: fmt.Sprintf("%g", c.float)}, nil
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.str}, nil
	case KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range c.arr {
			child, err := toYAMLNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range c.obj {
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.key}
			valNode, err := toYAMLNode(m.val)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, keyNode, valNode)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("value: unknown kind %d", c.kind)
	}
}

// FromYAML decodes YAML bytes into a Value tree, applying the YAML scalar
// inference order Boolean -> Integer -> Float -> String by relying on
// yaml.v3's own node tagging (it already classifies !!bool/!!int/!!float
// before falling back to !!str) and preserving mapping key order by
// walking yaml.Node directly.
func FromYAML(data []byte) (Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return Undefined(), fmt.Errorf("value: yaml parse error: %w", err)
	}
	if len(node.Content) == 0 {
		return Null(), nil
	}
	return Value{c: fromYAMLNode(node.Content[0])}, nil
}

func fromYAMLNode(n *yaml.Node) *cell {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return newCell(KindNull)
		case "!!bool":
			c := newCell(KindBoolean)
			c.boolean = n.Value == "true"
			return c
		case "!!int":
			var i int64
			if _, err := fmt.Sscanf(n.Value, "%d", &i); err == nil {
				c := newCell(KindInteger)
				c.integer = i
				return c
			}
			c := newCell(KindString)
			c.str = n.Value
			return c
		case "!!float":
			var f float64
			if _, err := fmt.Sscanf(n.Value, "%g", &f); err == nil {
				c := newCell(KindFloat)
				c.float = f
				return c
			}
			c := newCell(KindString)
			c.str = n.Value
			return c
		default:
			c := newCell(KindString)
			c.str = n.Value
			return c
		}
	case yaml.SequenceNode:
		c := newCell(KindArray)
		c.arr = make([]*cell, len(n.Content))
		for i, e := range n.Content {
			c.arr[i] = fromYAMLNode(e)
		}
		return c
	case yaml.MappingNode:
		c := newCell(KindObject)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			c.obj = append(c.obj, member{key: key, val: fromYAMLNode(n.Content[i+1])})
		}
		return c
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			return fromYAMLNode(n.Content[0])
		}
		return newCell(KindNull)
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	default:
		return newCell(KindNull)
	}
}
