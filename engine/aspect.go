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

package engine

import (
	"fmt"

	"github.com/bittoy/hfsm/hfsm"
)

// StateAspect is the shared shape of the engine's entry/exit hooks,
// mirroring the teacher's AOP Aspect (types.Aspect): Order controls
// execution sequence (lower runs first) and New returns a fresh instance;
// the engine calls New before every Before/After call, so an instance
// keeps no state from one call to the next.
type StateAspect interface {
	Order() int
	New() StateAspect
}

// StateBeforeAspect runs immediately before a state's OnEntry hook, after
// inbound dataflows have already been applied (§4.F), mirroring
// types.NodeBeforeAspect.
type StateBeforeAspect interface {
	StateAspect
	Before(machineID string, s *hfsm.State)
}

// StateAfterAspect runs immediately after a state's OnExit hook during the
// exit phase, mirroring types.NodeAfterAspect.
type StateAfterAspect interface {
	StateAspect
	After(machineID string, s *hfsm.State)
}

// StateDebug is the entry/exit analogue of builtin/aspect/node_debug_aspect.go's
// NodeDebug: it logs every state's enter/exit through OnDebug (or
// fmt.Println if none is configured), at the same Order 900 so user
// aspects run first.
type StateDebug struct {
	OnDebug OnDebug
}

func (d *StateDebug) Order() int { return 900 }

func (d *StateDebug) New() StateAspect {
	return &StateDebug{OnDebug: d.OnDebug}
}

func (d *StateDebug) Before(machineID string, s *hfsm.State) {
	d.log(machineID, s, "enter")
}

func (d *StateDebug) After(machineID string, s *hfsm.State) {
	d.log(machineID, s, "exit")
}

func (d *StateDebug) log(machineID string, s *hfsm.State, phase string) {
	if d.OnDebug != nil {
		d.OnDebug(machineID, "debug", fmt.Sprintf("%s %s (%s)", phase, s.ID, s.Kind))
		return
	}
	fmt.Println(phase+":", machineID, s.ID, s.Kind)
}
