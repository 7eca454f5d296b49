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
	"github.com/bittoy/hfsm/errs"
	"github.com/bittoy/hfsm/hfsm"
)

// StructuralValidator is the built-in structural validation aspect applied
// before a MachineDef is handed to the engine, mirroring the teacher's
// ChainValidator (builtin/aspect/chain_validator_aspect.go): Order 10,
// runs ahead of any caller-supplied aspect.
//
// StructuralValidator 是在 MachineDef 交给引擎之前应用的内置结构验证切面，
// 参照教师仓库的 ChainValidator：顺序为 10，先于任何调用方提供的切面执行。
type StructuralValidator struct{}

func (v *StructuralValidator) Order() int { return 10 }

func (v *StructuralValidator) New() Aspect { return &StructuralValidator{} }

// Validate enforces: Final states have no outgoing transitions; a
// Composite's initialChildId (if set) references one of its children;
// Parallel states have at least one child; every state is reachable from
// the root; and (implicitly, by construction) no ID is duplicated.
func (v *StructuralValidator) Validate(m *hfsm.MachineDef) error {
	for _, s := range m.States() {
		switch s.Kind {
		case hfsm.KindFinal:
			if len(s.Transitions) > 0 {
				return errs.New(errs.KindBuildError, errs.CodeFinalHasOutgoing, "final state has outgoing transitions").WithState(s.ID)
			}
		case hfsm.KindComposite, hfsm.KindMachine:
			if s.InitialChildID != "" {
				if _, ok := findChild(s, s.InitialChildID); !ok {
					return errs.New(errs.KindBuildError, errs.CodeInitialChildMissing, "initialChildId does not reference a child of this state").WithState(s.ID)
				}
			}
		case hfsm.KindParallel:
			if len(s.Children) == 0 {
				return errs.New(errs.KindBuildError, errs.CodeParallelEmpty, "parallel state has no child regions").WithState(s.ID)
			}
		}
	}

	reachable := map[string]bool{}
	markReachable(m.Root, reachable)
	for _, s := range m.States() {
		if !reachable[s.ID] {
			return errs.New(errs.KindBuildError, errs.CodeUnreachable, "state is not reachable from the root through parent links").WithState(s.ID)
		}
	}
	return nil
}

func findChild(s *hfsm.State, id string) (*hfsm.State, bool) {
	for _, c := range s.Children {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func markReachable(s *hfsm.State, seen map[string]bool) {
	seen[s.ID] = true
	for _, c := range s.Children {
		markReachable(c, seen)
	}
}
