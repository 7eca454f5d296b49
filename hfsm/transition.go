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

package hfsm

// Transition connects a source state to a target state, optionally gated
// by an event name and a condition expression evaluated over the current
// parameter snapshot. An empty EventName marks an automatic transition.
type Transition struct {
	ID        string
	SourceID  string
	TargetID  string
	EventName string
	Condition string
	GuardInfo string

	// Seq is the transition's position in build-time AddTransition order,
	// used by the engine's conflict resolution to break ties between
	// same-depth sibling sources ("earlier-added wins").
	Seq int

	Source *State
	Target *State
}

// IsAutomatic reports whether t fires without a dispatched event, subject
// only to its condition.
func (t *Transition) IsAutomatic() bool {
	return t.EventName == ""
}

// MatchesEvent reports whether t's event name matches the dispatched event
// name. Automatic transitions never match a named event (they only run
// during the automatic fixpoint step); done events require an exact match
// against "done.<id>"/"error.<id>".
func (t *Transition) MatchesEvent(name string) bool {
	if t.IsAutomatic() {
		return false
	}
	return t.EventName == name
}

// Dataflow binds a source state's output/input path to a target state's
// input path. On the source state's completion, the value at FromPath is
// deep-copied to ToPath in the target's input.
type Dataflow struct {
	SourceStateID string
	TargetStateID string
	FromPath      string
	ToPath        string

	Source *State
	Target *State
}
