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

package builder

import (
	"errors"
	"testing"

	"github.com/bittoy/hfsm/errs"
	"github.com/bittoy/hfsm/hfsm"
)

// s1Builder returns a Builder for the spec's S1 scenario: root composite R
// (initial A) with children A (leaf composite) and F (final), transition
// A -> F on event "go".
func s1Builder() *Builder {
	return New().
		AddState(StateSpec{ID: "R", Kind: hfsm.KindMachine, InitialChildID: "A"}).
		AddState(StateSpec{ID: "A", ParentID: "R", Kind: hfsm.KindComposite}).
		AddState(StateSpec{ID: "F", ParentID: "R", Kind: hfsm.KindFinal}).
		AddTransition(TransitionSpec{ID: "t1", SourceID: "A", TargetID: "F", EventName: "go"})
}

func TestBuildS1Succeeds(t *testing.T) {
	m, err := s1Builder().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if m.Root.ID != "R" {
		t.Errorf("root id = %q, want R", m.Root.ID)
	}
	a, ok := m.State("A")
	if !ok {
		t.Fatalf("state A not found")
	}
	if len(a.Transitions) != 1 || a.Transitions[0].Target.ID != "F" {
		t.Errorf("A's transitions = %+v, want one transition to F", a.Transitions)
	}
}

func TestBuildNoRoot(t *testing.T) {
	b := New().AddState(StateSpec{ID: "A", ParentID: "missing-root", Kind: hfsm.KindComposite})
	_, err := b.Build()
	var he *errs.HFSMError
	if !errors.As(err, &he) || he.Code != errs.CodeNoRoot {
		t.Fatalf("Build() error = %v, want NoRoot", err)
	}
}

func TestBuildMultipleRoots(t *testing.T) {
	b := New().
		AddState(StateSpec{ID: "R1", Kind: hfsm.KindMachine}).
		AddState(StateSpec{ID: "R2", Kind: hfsm.KindMachine})
	_, err := b.Build()
	var he *errs.HFSMError
	if !errors.As(err, &he) || he.Code != errs.CodeMultipleRoots {
		t.Fatalf("Build() error = %v, want MultipleRoots", err)
	}
}

func TestBuildFinalWithOutgoingRejected(t *testing.T) {
	b := New().
		AddState(StateSpec{ID: "R", Kind: hfsm.KindMachine, InitialChildID: "F"}).
		AddState(StateSpec{ID: "F", ParentID: "R", Kind: hfsm.KindFinal}).
		AddState(StateSpec{ID: "X", ParentID: "R", Kind: hfsm.KindFinal}).
		AddTransition(TransitionSpec{ID: "bad", SourceID: "F", TargetID: "X", EventName: "go"})
	_, err := b.Build()
	var he *errs.HFSMError
	if !errors.As(err, &he) || he.Code != errs.CodeFinalHasOutgoing {
		t.Fatalf("Build() error = %v, want FinalHasOutgoing", err)
	}
}

func TestBuildParallelRequiresChildren(t *testing.T) {
	b := New().
		AddState(StateSpec{ID: "R", Kind: hfsm.KindMachine, InitialChildID: "P"}).
		AddState(StateSpec{ID: "P", ParentID: "R", Kind: hfsm.KindParallel})
	_, err := b.Build()
	var he *errs.HFSMError
	if !errors.As(err, &he) || he.Code != errs.CodeParallelEmpty {
		t.Fatalf("Build() error = %v, want ParallelEmpty", err)
	}
}

func TestBuildDuplicateID(t *testing.T) {
	b := New().
		AddState(StateSpec{ID: "R", Kind: hfsm.KindMachine}).
		AddState(StateSpec{ID: "R", Kind: hfsm.KindMachine})
	_, err := b.Build()
	var he *errs.HFSMError
	if !errors.As(err, &he) || he.Code != errs.CodeDuplicateID {
		t.Fatalf("Build() error = %v, want DuplicateId", err)
	}
}
