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

import "fmt"

// Priority is an event queue priority class. High-priority events are
// always drained before Normal-priority ones.
type Priority int

const (
	Normal Priority = iota
	High
)

// Event is a user-posted named event, or an internally synthesized done/
// error completion event. Events carry no payload that transitions
// consume beyond Name and the values that conditions may read off state
// parameters.
type Event struct {
	Name     string
	Message  string
	Origin   string
	Priority Priority
}

// DoneEventName returns the synthetic "done.<id>" event name posted when a
// composite's active child becomes Final or a parallel's regions are all
// Final.
func DoneEventName(stateID string) string {
	return fmt.Sprintf("done.%s", stateID)
}

// ErrorEventName returns the synthetic "error.<id>" event name posted when
// an Invoke state's plugin reports an error, or its binding cannot be
// resolved.
func ErrorEventName(stateID string) string {
	return fmt.Sprintf("error.%s", stateID)
}
