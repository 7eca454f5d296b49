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

// Package hfsm holds the hierarchical state machine's entity model: states,
// transitions and dataflow edges. Entities are pure data plus the small
// structural operations the spec names (AddTransition, SetInitialChild,
// FindState); the execution semantics live in package engine.
//
// Package hfsm 保存分层状态机的实体模型：状态、转换和数据流边。
// 实体只是数据加上规范命名的少量结构操作（AddTransition、SetInitialChild、
// FindState）；执行语义存在于 engine 包中。
package hfsm

import "github.com/bittoy/hfsm/value"

// Kind identifies a state's variant.
type Kind int

const (
	KindFinal Kind = iota
	KindComposite
	KindParallel
	KindInvoke
	KindMachine
)

func (k Kind) String() string {
	switch k {
	case KindFinal:
		return "final"
	case KindComposite:
		return "composite"
	case KindParallel:
		return "parallel"
	case KindInvoke:
		return "invoke"
	case KindMachine:
		return "machine"
	default:
		return "unknown"
	}
}

// State is one node of the HFSM tree. Common fields apply to every kind;
// Binding/Endpoint apply only to KindInvoke; Children/InitialChildID apply
// only to KindComposite/KindParallel/KindMachine.
type State struct {
	ID       string
	ParentID string
	Kind     Kind

	Input  value.Value
	Output value.Value

	Transitions []*Transition
	Dataflows   []*Dataflow // outbound dataflows, keyed by this state as source

	Children       []*State
	InitialChildID string

	Binding  string
	Endpoint value.Value

	Parent  *State
	Machine *MachineDef
}

// AddTransition appends t to s's outgoing transition list, preserving
// insertion order (used by the conflict-resolution "earlier sibling wins"
// rule).
func (s *State) AddTransition(t *Transition) {
	s.Transitions = append(s.Transitions, t)
}

// SetInitialChild sets the child that a Composite/Machine enters
// automatically on entry to this state (a Parallel enters all its children).
func (s *State) SetInitialChild(childID string) {
	s.InitialChildID = childID
}

// SetBinding sets the plugin binding name an Invoke state resolves at
// entry.
func (s *State) SetBinding(binding string) {
	s.Binding = binding
}

// SetEndpoint sets the binding-specific parameter subtree passed to the
// plugin on invoke.
func (s *State) SetEndpoint(endpoint value.Value) {
	s.Endpoint = endpoint
}

// IsComplex reports whether s can hold children (Composite, Parallel or
// Machine).
func (s *State) IsComplex() bool {
	return s.Kind == KindComposite || s.Kind == KindParallel || s.Kind == KindMachine
}

// FindState walks the subtree rooted at s in pre-order and returns the
// first state whose ID matches, or (nil, false).
func (s *State) FindState(id string) (*State, bool) {
	if s.ID == id {
		return s, true
	}
	for _, c := range s.Children {
		if found, ok := c.FindState(id); ok {
			return found, true
		}
	}
	return nil, false
}

// InitialChild returns s's configured (or first) child, used when entering
// a Composite.
func (s *State) InitialChild() *State {
	if s.InitialChildID != "" {
		for _, c := range s.Children {
			if c.ID == s.InitialChildID {
				return c
			}
		}
	}
	if len(s.Children) > 0 {
		return s.Children[0]
	}
	return nil
}

// Depth returns the number of ancestors between s and the machine root
// (root has depth 0). Used by the engine's conflict-resolution rule
// "deeper source wins".
func (s *State) Depth() int {
	d := 0
	for p := s.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// MachineDef is the built, immutable HFSM graph produced by the builder:
// an arena of states keyed by ID plus the root. References between
// entities are resolved to pointers once at build time (see builder.Build)
// and cached on the State/Transition/Dataflow values themselves.
//
// MachineDef 是构建器产出的、不可变的 HFSM 图：以 ID 为键的状态 arena
// 加上根节点。实体间的引用在构建时一次性解析为指针（见 builder.Build），
// 并缓存在 State/Transition/Dataflow 值本身上。
type MachineDef struct {
	Root   *State
	states map[string]*State
}

// NewMachineDef wraps root and its already-linked subtree into a
// MachineDef, indexing every state by ID for O(1) lookup.
func NewMachineDef(root *State) *MachineDef {
	m := &MachineDef{Root: root, states: make(map[string]*State)}
	m.index(root)
	return m
}

func (m *MachineDef) index(s *State) {
	s.Machine = m
	m.states[s.ID] = s
	for _, c := range s.Children {
		m.index(c)
	}
}

// State returns the state with the given ID, or (nil, false).
func (m *MachineDef) State(id string) (*State, bool) {
	s, ok := m.states[id]
	return s, ok
}

// States returns every state in the machine, in arbitrary order.
func (m *MachineDef) States() []*State {
	out := make([]*State, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, s)
	}
	return out
}
