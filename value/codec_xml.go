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
	"encoding/xml"
	"fmt"
	"strconv"
)

// xmlNode mirrors the spec's XML encoding: each element carries a type
// attribute; Objects become named child elements, Arrays become a
// repeated <item> child.
type xmlNode struct {
	XMLName  xml.Name
	Type     string     `xml:"type,attr"`
	Value    string     `xml:",chardata"`
	Children []*xmlNode `xml:",any"`
}

// ToXML encodes v as XML under the given root element name (stdlib
// encoding/xml is used: no pack example wires a third-party XML codec for
// schema-less tagged values, see DESIGN.md).
func (v Value) ToXML(root string) ([]byte, error) {
	node, err := toXMLNode(root, v.ensure())
	if err != nil {
		return nil, err
	}
	return xml.MarshalIndent(node, "", "  ")
}

func toXMLNode(name string, c *cell) (*xmlNode, error) {
	n := &xmlNode{XMLName: xml.Name{Local: name}}
	switch c.kind {
	case KindUndefined:
		return nil, ErrUndefinedNotSerializable
	case KindNull:
		n.Type = "null"
	case KindBoolean:
		n.Type = "boolean"
		n.Value = strconv.FormatBool(c.boolean)
	case KindInteger:
		n.Type = "integer"
		n.Value = strconv.FormatInt(c.integer, 10)
	case KindFloat:
		n.Type = "float"
		n.Value = strconv.FormatFloat(c.float, 'g', -1, 64)
	case KindString:
		n.Type = "string"
		n.Value = c.str
	case KindArray:
		n.Type = "array"
		for _, e := range c.arr {
			child, err := toXMLNode("item", e)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	case KindObject:
		n.Type = "object"
		for _, m := range c.obj {
			child, err := toXMLNode(m.key, m.val)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	default:
		return nil, fmt.Errorf("value: unknown kind %d", c.kind)
	}
	return n, nil
}

// FromXML decodes an XML document produced by ToXML back into a Value
// tree.
func FromXML(data []byte) (Value, error) {
	var n xmlNode
	if err := xml.Unmarshal(data, &n); err != nil {
		return Undefined(), fmt.Errorf("value: xml parse error: %w", err)
	}
	return Value{c: fromXMLNode(&n)}, nil
}

func fromXMLNode(n *xmlNode) *cell {
	switch n.Type {
	case "null":
		return newCell(KindNull)
	case "boolean":
		c := newCell(KindBoolean)
		c.boolean, _ = strconv.ParseBool(n.Value)
		return c
	case "integer":
		c := newCell(KindInteger)
		c.integer, _ = strconv.ParseInt(n.Value, 10, 64)
		return c
	case "float":
		c := newCell(KindFloat)
		c.float, _ = strconv.ParseFloat(n.Value, 64)
		return c
	case "string":
		c := newCell(KindString)
		c.str = n.Value
		return c
	case "array":
		c := newCell(KindArray)
		c.arr = make([]*cell, len(n.Children))
		for i, child := range n.Children {
			c.arr[i] = fromXMLNode(child)
		}
		return c
	case "object":
		c := newCell(KindObject)
		for _, child := range n.Children {
			c.obj = append(c.obj, member{key: child.XMLName.Local, val: fromXMLNode(child)})
		}
		return c
	default:
		return newCell(KindNull)
	}
}
