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
	"github.com/bittoy/hfsm/hfsm"
	"github.com/bittoy/hfsm/value"
)

// applyOutboundDataflows runs every dataflow edge sourced by s, copying
// the value at fromPath (looked up in s.Output first, then s.Input) into
// toPath of the target's Input. Applied immediately after s's completion
// event is recognized, before any transition sourced by that event is
// taken (§4.F). A missing source path yields Undefined at the destination
// and logs a warning; it never fails the macrostep.
func (m *Machine) applyOutboundDataflows(s *hfsm.State) {
	for _, df := range s.Dataflows {
		v := s.Output.Get(df.FromPath)
		if !v.IsValid() {
			v = s.Input.Get(df.FromPath)
		}
		if !v.IsValid() {
			m.cfg.Logger.Printf("hfsm: dataflow %s->%s: source path %q not found on state %s, writing Undefined", df.SourceStateID, df.TargetStateID, df.FromPath, df.SourceStateID)
		}
		var copied value.Value
		copied.AssignFrom(v)
		if err := df.Target.Input.Set(df.ToPath, copied); err != nil {
			m.cfg.Logger.Printf("hfsm: dataflow %s->%s: set %q on target %s failed: %v", df.SourceStateID, df.TargetStateID, df.ToPath, df.TargetStateID, err)
			continue
		}
		dataflowCopiesTotal.WithLabelValues(m.id).Inc()
	}
}

// applyInboundDataflows runs every dataflow edge targeting s, immediately
// before s's entry (§4.F), so the entering state sees fresh inputs. It
// scans every state's outbound list for edges whose target is s; this is
// O(states) per entry, acceptable at HFSM scale.
func (m *Machine) applyInboundDataflows(s *hfsm.State) {
	for _, st := range m.def.States() {
		for _, df := range st.Dataflows {
			if df.TargetStateID != s.ID {
				continue
			}
			v := df.Source.Output.Get(df.FromPath)
			if !v.IsValid() {
				v = df.Source.Input.Get(df.FromPath)
			}
			if !v.IsValid() {
				m.cfg.Logger.Printf("hfsm: inbound dataflow %s->%s: source path %q not found, writing Undefined", df.SourceStateID, df.TargetStateID, df.FromPath)
			}
			var copied value.Value
			copied.AssignFrom(v)
			if err := s.Input.Set(df.ToPath, copied); err != nil {
				m.cfg.Logger.Printf("hfsm: inbound dataflow %s->%s: set %q failed: %v", df.SourceStateID, df.TargetStateID, df.ToPath, err)
				continue
			}
			dataflowCopiesTotal.WithLabelValues(m.id).Inc()
		}
	}
}
