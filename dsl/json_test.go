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

package dsl

import (
	"testing"

	"github.com/bittoy/hfsm/hfsm"
)

const sampleDoc = `{
  "id": "root",
  "type": "statemachine",
  "initial": "work",
  "childs": [
    {
      "id": "work",
      "type": "invoke",
      "endpoint": {"binding": "ECHO"},
      "transitions": [
        {"id": "t-done", "target": "done", "event": "finish"},
        {"id": "t-err", "target": "failed", "event": "state.error"}
      ]
    },
    {"id": "done", "type": "final"},
    {"id": "failed", "type": "final"}
  ]
}`

func TestJSONParser_Decode(t *testing.T) {
	def, err := JSONParser{}.Decode([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	root := def.Root
	if root.Kind != hfsm.KindMachine {
		t.Errorf("expected root kind Machine (forced by builder), got %v", root.Kind)
	}
	if root.InitialChildID != "work" {
		t.Errorf("expected initial child work, got %q", root.InitialChildID)
	}

	work, ok := def.State("work")
	if !ok {
		t.Fatalf("expected state work to exist")
	}
	if work.Kind != hfsm.KindInvoke {
		t.Errorf("expected work kind Invoke, got %v", work.Kind)
	}
	if work.Binding != "ECHO" {
		t.Errorf("expected binding ECHO, got %q", work.Binding)
	}
	if len(work.Transitions) != 2 {
		t.Fatalf("expected 2 transitions on work, got %d", len(work.Transitions))
	}

	var gotDone, gotErr bool
	for _, tr := range work.Transitions {
		switch tr.EventName {
		case hfsm.DoneEventName("work"):
			gotDone = true
			if tr.TargetID != "done" {
				t.Errorf("expected done transition to target done, got %q", tr.TargetID)
			}
		case hfsm.ErrorEventName("work"):
			gotErr = true
			if tr.TargetID != "failed" {
				t.Errorf("expected error transition to target failed, got %q", tr.TargetID)
			}
		default:
			t.Errorf("unexpected transition event name %q, reserved names should have been rewritten", tr.EventName)
		}
	}
	if !gotDone || !gotErr {
		t.Errorf("expected both reserved event names rewritten, gotDone=%v gotErr=%v", gotDone, gotErr)
	}
}

func TestRewriteReservedEvent(t *testing.T) {
	cases := []struct {
		event, stateID, want string
	}{
		{"finish", "s1", hfsm.DoneEventName("s1")},
		{"state.success", "s1", hfsm.DoneEventName("s1")},
		{"state.error", "s1", hfsm.ErrorEventName("s1")},
		{"custom.event", "s1", "custom.event"},
	}
	for _, c := range cases {
		if got := rewriteReservedEvent(c.event, c.stateID); got != c.want {
			t.Errorf("rewriteReservedEvent(%q, %q) = %q, want %q", c.event, c.stateID, got, c.want)
		}
	}
}

func TestJSONParser_EncodeDecodeRoundTrip(t *testing.T) {
	def, err := JSONParser{}.Decode([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	encoded, err := JSONParser{}.Encode(def)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	redecoded, err := JSONParser{}.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode(Encode(...)): %v", err)
	}

	work, ok := redecoded.State("work")
	if !ok {
		t.Fatalf("expected state work to survive round-trip")
	}
	if work.Binding != "ECHO" {
		t.Errorf("expected binding ECHO to survive round-trip, got %q", work.Binding)
	}
	if len(work.Transitions) != 2 {
		t.Errorf("expected 2 transitions to survive round-trip, got %d", len(work.Transitions))
	}
}
