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

// Package builder collects addState/addTransition/addDataflow calls
// (order-insensitive) and produces a validated, ready-to-run hfsm.MachineDef
// or a structured error. The algorithm follows §4.C: link parents, link
// transitions, link dataflows, initialize back-pointers, then validate
// (via pluggable Aspects, mirroring the teacher's AOP validator pattern).
//
// Package builder 收集 addState/addTransition/addDataflow 调用（顺序无关），
// 产出经过验证、可运行的 hfsm.MachineDef，或一个结构化错误。
package builder

import (
	"sort"

	"github.com/bittoy/hfsm/errs"
	"github.com/bittoy/hfsm/hfsm"
	"github.com/bittoy/hfsm/value"
)

// StateSpec describes one addState call.
type StateSpec struct {
	ID             string
	ParentID       string
	Kind           hfsm.Kind
	Input          value.Value
	Output         value.Value
	InitialChildID string
	Binding        string
	Endpoint       value.Value
}

// TransitionSpec describes one addTransition call.
type TransitionSpec struct {
	ID        string
	SourceID  string
	TargetID  string
	EventName string
	Condition string
	GuardInfo string
}

// DataflowSpec describes one addDataflow call.
type DataflowSpec struct {
	SourceStateID string
	TargetStateID string
	FromPath      string
	ToPath        string
}

// Aspect is a pluggable build-time cross-cutting hook, mirroring the
// teacher's AOP Aspect interface (types.Aspect): Order controls execution
// sequence (lower runs first), New returns a fresh per-build instance, and
// Validate inspects the linked (but not yet finalized) graph.
//
// Aspect 是一个可插拔的构建期切面钩子，参照教师仓库的 AOP Aspect 接口：
// Order 控制执行顺序（数值越小越先执行），New 返回一个全新的构建实例，
// Validate 检查已链接（但尚未最终确定）的图。
type Aspect interface {
	Order() int
	New() Aspect
	Validate(*hfsm.MachineDef) error
}

// Builder accumulates specs and produces a MachineDef via Build.
type Builder struct {
	states      []StateSpec
	transitions []TransitionSpec
	dataflows   []DataflowSpec
	aspects     []Aspect
}

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithAspect registers an additional build-validation aspect alongside the
// built-in structural validator.
func WithAspect(a Aspect) Option {
	return func(b *Builder) {
		b.aspects = append(b.aspects, a)
	}
}

// New returns a Builder seeded with the built-in structural validator
// (chain_validator_aspect equivalent) at Order 10.
func New(opts ...Option) *Builder {
	b := &Builder{aspects: []Aspect{&StructuralValidator{}}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddState records a state to be linked on Build.
func (b *Builder) AddState(spec StateSpec) *Builder {
	b.states = append(b.states, spec)
	return b
}

// AddTransition records a transition to be linked on Build.
func (b *Builder) AddTransition(spec TransitionSpec) *Builder {
	b.transitions = append(b.transitions, spec)
	return b
}

// AddDataflow records a dataflow edge to be linked on Build.
func (b *Builder) AddDataflow(spec DataflowSpec) *Builder {
	b.dataflows = append(b.dataflows, spec)
	return b
}

// Build runs the §4.C algorithm: find the root, link parents, link
// transitions, link dataflows, initialize back-pointers, then validate.
// On any failure the partially built graph is discarded and a
// *errs.HFSMError is returned.
func (b *Builder) Build() (*hfsm.MachineDef, error) {
	states := make(map[string]*hfsm.State, len(b.states))
	for _, spec := range b.states {
		if _, dup := states[spec.ID]; dup {
			return nil, errs.New(errs.KindBuildError, errs.CodeDuplicateID, "duplicate state id").WithState(spec.ID)
		}
		states[spec.ID] = &hfsm.State{
			ID:             spec.ID,
			ParentID:       spec.ParentID,
			Kind:           spec.Kind,
			Input:          spec.Input,
			Output:         spec.Output,
			InitialChildID: spec.InitialChildID,
			Binding:        spec.Binding,
			Endpoint:       spec.Endpoint,
		}
	}

	var root *hfsm.State
	for _, s := range states {
		if s.ParentID == "" {
			if root != nil {
				return nil, errs.New(errs.KindBuildError, errs.CodeMultipleRoots, "more than one state has an empty parentId")
			}
			root = s
		}
	}
	if root == nil {
		return nil, errs.New(errs.KindBuildError, errs.CodeNoRoot, "no state has an empty parentId")
	}
	root.Kind = hfsm.KindMachine

	// Link parents, preserving addState insertion order within each
	// parent's child list.
	for _, spec := range b.states {
		s := states[spec.ID]
		if s == root {
			continue
		}
		parent, ok := states[spec.ParentID]
		if !ok {
			return nil, errs.New(errs.KindBuildError, errs.CodeUnknownParent, "parentId does not reference a known state").WithState(spec.ID)
		}
		s.Parent = parent
		parent.Children = append(parent.Children, s)
	}

	// Link transitions.
	for seq, spec := range b.transitions {
		source, ok := states[spec.SourceID]
		if !ok {
			return nil, errs.New(errs.KindBuildError, errs.CodeUnknownSource, "transition sourceId does not reference a known state").WithTransition(spec.ID)
		}
		target, ok := states[spec.TargetID]
		if !ok {
			return nil, errs.New(errs.KindBuildError, errs.CodeUnknownTarget, "transition targetId does not reference a known state").WithTransition(spec.ID)
		}
		t := &hfsm.Transition{
			ID:        spec.ID,
			SourceID:  spec.SourceID,
			TargetID:  spec.TargetID,
			EventName: spec.EventName,
			Condition: spec.Condition,
			GuardInfo: spec.GuardInfo,
			Seq:       seq,
			Source:    source,
			Target:    target,
		}
		source.AddTransition(t)
	}

	// Link dataflows, stored on the source state.
	for _, spec := range b.dataflows {
		source, ok := states[spec.SourceStateID]
		if !ok {
			return nil, errs.New(errs.KindBuildError, errs.CodeUnknownSource, "dataflow sourceStateId does not reference a known state").WithState(spec.SourceStateID)
		}
		target, ok := states[spec.TargetStateID]
		if !ok {
			return nil, errs.New(errs.KindBuildError, errs.CodeUnknownTarget, "dataflow targetStateId does not reference a known state").WithState(spec.TargetStateID)
		}
		source.Dataflows = append(source.Dataflows, &hfsm.Dataflow{
			SourceStateID: spec.SourceStateID,
			TargetStateID: spec.TargetStateID,
			FromPath:      spec.FromPath,
			ToPath:        spec.ToPath,
			Source:        source,
			Target:        target,
		})
	}

	m := hfsm.NewMachineDef(root)

	aspects := make([]Aspect, len(b.aspects))
	copy(aspects, b.aspects)
	sort.Slice(aspects, func(i, j int) bool { return aspects[i].Order() < aspects[j].Order() })
	for _, a := range aspects {
		inst := a.New()
		if err := inst.Validate(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}
