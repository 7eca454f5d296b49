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

// Package dsl implements the description-format adapters of §6: a
// pluggable Parser decodes/encodes an hfsm.MachineDef from/to a document,
// grounded on the teacher's types.Parser interface and types/dsl.go's
// BaseInfo/Chain DSL shape. JSONParser is the one concrete implementation;
// XML/YAML are deferred (Non-goal), matching spec.md's external-boundary
// scope.
//
// Package dsl 实现了外部描述格式适配器：一个可插拔的 Parser
// 在文档与 hfsm.MachineDef 之间解码/编码。
package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/bittoy/hfsm/builder"
	"github.com/bittoy/hfsm/errs"
	"github.com/bittoy/hfsm/hfsm"
	"github.com/bittoy/hfsm/value"
)

// Parser mirrors types.Parser, generalized from rule-chain documents to
// HFSM descriptions.
type Parser interface {
	// Decode parses doc into a ready-to-run MachineDef (already built and
	// validated via package builder).
	Decode(doc []byte) (*hfsm.MachineDef, error)
	// Encode renders def back into the same document shape Decode accepts.
	Encode(def *hfsm.MachineDef) ([]byte, error)
}

// JSONParser is the default Parser, matching §6's recognized state
// elements (statemachine/composite/parallel/invoke/final) expressed as a
// JSON document with a "type" discriminator in place of XML's distinct
// element names.
type JSONParser struct{}

var _ Parser = JSONParser{}

type transitionDoc struct {
	ID        string `json:"id"`
	Target    string `json:"target"`
	Event     string `json:"event,omitempty"`
	Condition string `json:"condition,omitempty"`
}

type dataflowDoc struct {
	Source string `json:"source"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// stateDoc mirrors §6's state element: attributes id/initial plus children
// input/output/transitions/dataflows/childs, and on invoke a required
// endpoint child carrying its binding name and binding-specific payload.
type stateDoc struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type"`
	Initial     string          `json:"initial,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Transitions []transitionDoc `json:"transitions,omitempty"`
	// Dataflows declared on a state document describe that state's
	// INBOUND edges: Source names the other state the copy reads from,
	// From/To are the source/target paths. The builder stores the
	// resolved edge on the source state regardless of which document
	// node declared it (§4.C item 4); declaring it under the target
	// keeps document locality with the state whose input it fills.
	Dataflows []dataflowDoc   `json:"dataflows,omitempty"`
	Childs    []stateDoc      `json:"childs,omitempty"`
	Endpoint  json.RawMessage `json:"endpoint,omitempty"`
}

// Reserved user-visible event names rewritten to this state's synthetic
// done/error events.
const (
	eventFinish  = "finish"
	eventSuccess = "state.success"
	eventError   = "state.error"
)

func rewriteReservedEvent(event, ownerStateID string) string {
	switch event {
	case eventFinish, eventSuccess:
		return hfsm.DoneEventName(ownerStateID)
	case eventError:
		return hfsm.ErrorEventName(ownerStateID)
	default:
		return event
	}
}

func kindFromType(t string) (hfsm.Kind, error) {
	switch t {
	case "statemachine":
		return hfsm.KindMachine, nil
	case "composite":
		return hfsm.KindComposite, nil
	case "parallel":
		return hfsm.KindParallel, nil
	case "invoke":
		return hfsm.KindInvoke, nil
	case "final":
		return hfsm.KindFinal, nil
	default:
		return 0, fmt.Errorf("dsl: unknown state type %q", t)
	}
}

func typeFromKind(k hfsm.Kind) string {
	switch k {
	case hfsm.KindMachine:
		return "statemachine"
	case hfsm.KindComposite:
		return "composite"
	case hfsm.KindParallel:
		return "parallel"
	case hfsm.KindInvoke:
		return "invoke"
	case hfsm.KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Decode implements Parser: unmarshals doc into the stateDoc tree, feeds
// every state/transition/dataflow into a builder.Builder in document
// order, then calls Build (§4.C) to produce a validated MachineDef.
func (JSONParser) Decode(doc []byte) (*hfsm.MachineDef, error) {
	var root stateDoc
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, errs.Wrap(errs.KindParseError, errs.CodeMalformedDocument, err)
	}
	b := builder.New()
	if err := addStateDoc(b, "", &root); err != nil {
		return nil, err
	}
	return b.Build()
}

func addStateDoc(b *builder.Builder, parentID string, s *stateDoc) error {
	kind, err := kindFromType(s.Type)
	if err != nil {
		return errs.Wrap(errs.KindParseError, errs.CodeMalformedDocument, err).WithState(s.ID)
	}

	input := value.NewObject()
	if len(s.Input) > 0 {
		v, err := value.FromJSON(s.Input)
		if err != nil {
			return errs.Wrap(errs.KindParseError, errs.CodeMalformedDocument, err).WithState(s.ID).WithPath("input")
		}
		input = v
	}
	output := value.NewObject()
	if len(s.Output) > 0 {
		v, err := value.FromJSON(s.Output)
		if err != nil {
			return errs.Wrap(errs.KindParseError, errs.CodeMalformedDocument, err).WithState(s.ID).WithPath("output")
		}
		output = v
	}

	spec := builder.StateSpec{
		ID:             s.ID,
		ParentID:       parentID,
		Kind:           kind,
		Input:          input,
		Output:         output,
		InitialChildID: s.Initial,
	}

	if kind == hfsm.KindInvoke && len(s.Endpoint) > 0 {
		ep, err := value.FromJSON(s.Endpoint)
		if err != nil {
			return errs.Wrap(errs.KindParseError, errs.CodeMalformedDocument, err).WithState(s.ID).WithPath("endpoint")
		}
		spec.Endpoint = ep
		spec.Binding = ep.Get("binding").StringOr("")
	}

	b.AddState(spec)

	for _, t := range s.Transitions {
		b.AddTransition(builder.TransitionSpec{
			ID:        t.ID,
			SourceID:  s.ID,
			TargetID:  t.Target,
			EventName: rewriteReservedEvent(t.Event, s.ID),
			Condition: t.Condition,
		})
	}
	for _, df := range s.Dataflows {
		b.AddDataflow(builder.DataflowSpec{
			SourceStateID: df.Source,
			TargetStateID: s.ID,
			FromPath:      df.From,
			ToPath:        df.To,
		})
	}
	for i := range s.Childs {
		if err := addStateDoc(b, s.ID, &s.Childs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Encode implements Parser: walks def.Root back into a stateDoc tree and
// marshals it, the inverse of Decode. Transitions targeting a state's own
// synthetic done/error event are re-collapsed into their reserved names
// where unambiguous.
func (JSONParser) Encode(def *hfsm.MachineDef) ([]byte, error) {
	doc, err := stateToDoc(def.Root)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

func stateToDoc(s *hfsm.State) (*stateDoc, error) {
	doc := &stateDoc{
		ID:      s.ID,
		Type:    typeFromKind(s.Kind),
		Initial: s.InitialChildID,
	}

	if s.Input.IsValid() {
		plain, err := s.Input.ToPlain()
		if err == nil {
			if raw, err := json.Marshal(plain); err == nil {
				doc.Input = raw
			}
		}
	}
	if s.Output.IsValid() {
		plain, err := s.Output.ToPlain()
		if err == nil {
			if raw, err := json.Marshal(plain); err == nil {
				doc.Output = raw
			}
		}
	}
	if s.Kind == hfsm.KindInvoke && s.Endpoint.IsValid() {
		if raw, err := s.Endpoint.ToJSON(); err == nil {
			doc.Endpoint = raw
		}
	}

	for _, t := range s.Transitions {
		doc.Transitions = append(doc.Transitions, transitionDoc{
			ID:        t.ID,
			Target:    t.TargetID,
			Event:     collapseReservedEvent(t.EventName, s.ID),
			Condition: t.Condition,
		})
	}
	// Dataflows are stored on the source state but documented under the
	// target (see stateDoc.Dataflows' comment); collect every dataflow in
	// the whole machine whose target is this state.
	for _, st := range s.Machine.States() {
		for _, df := range st.Dataflows {
			if df.TargetStateID == s.ID {
				doc.Dataflows = append(doc.Dataflows, dataflowDoc{
					Source: df.SourceStateID,
					From:   df.FromPath,
					To:     df.ToPath,
				})
			}
		}
	}

	for _, c := range s.Children {
		childDoc, err := stateToDoc(c)
		if err != nil {
			return nil, err
		}
		doc.Childs = append(doc.Childs, *childDoc)
	}
	return doc, nil
}

func collapseReservedEvent(event, ownerStateID string) string {
	switch event {
	case hfsm.DoneEventName(ownerStateID):
		return eventFinish
	case hfsm.ErrorEventName(ownerStateID):
		return eventError
	default:
		return event
	}
}
