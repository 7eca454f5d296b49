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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bittoy/hfsm/hfsm"
	"github.com/bittoy/hfsm/plugins"
)

// invokeCompletionPrefix marks the internal event a plugin's completion
// callback posts; it is never visible to transition matching (see
// Machine.translateInvokeCompletion) and carries no user-facing meaning.
const invokeCompletionPrefix = "$invoke-complete."

func invokeCompletionEvent(stateID string) string {
	return invokeCompletionPrefix + stateID
}

// invokeHandle tracks one Invoke state's in-flight plugin instance so Exit
// can Cancel it.
type invokeHandle struct {
	plugin plugins.Plugin
	cancel context.CancelFunc
	start  time.Time
}

// invokeRuntime is the Machine-side bookkeeping for §4.E: active plugin
// handles and results pending translation into done/error events. Both
// maps are touched by arbitrary plugin goroutines (handles on enter/exit,
// from the engine goroutine; results from completion callbacks on any
// goroutine) so access is mutex-guarded; the actual output merge and
// dataflow application happen only on the engine goroutine, once the
// corresponding $invoke-complete event is dequeued.
type invokeRuntime struct {
	mu      sync.Mutex
	active  map[string]*invokeHandle
	pending map[string]plugins.Result
}

func newInvokeRuntime() *invokeRuntime {
	return &invokeRuntime{
		active:  make(map[string]*invokeHandle),
		pending: make(map[string]plugins.Result),
	}
}

// enterInvoke resolves s.Binding, calls Invoke, and stores the handle.
// Inbound dataflows must already have been applied by the caller before
// this runs (§4.F: "immediately before that state's entry").
func (m *Machine) enterInvoke(s *hfsm.State) {
	plugin, err := m.cfg.PluginRegistry.NewInstance(s.Binding)
	if err != nil {
		m.cfg.Logger.Printf("hfsm: invoke state %s: unknown binding %q: %v", s.ID, s.Binding, err)
		m.queue.push(hfsm.Event{Name: hfsm.ErrorEventName(s.ID), Priority: hfsm.Normal})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.invokes.mu.Lock()
	m.invokes.active[s.ID] = &invokeHandle{plugin: plugin, cancel: cancel, start: time.Now()}
	m.invokes.mu.Unlock()

	plugin.Invoke(ctx, s.Endpoint, s.Input, func(res plugins.Result) {
		m.invokes.mu.Lock()
		h, ok := m.invokes.active[s.ID]
		if !ok {
			// Already exited/cancelled; drop the late completion.
			m.invokes.mu.Unlock()
			return
		}
		invokeDuration.WithLabelValues(s.Binding).Observe(time.Since(h.start).Seconds())
		m.invokes.pending[s.ID] = res
		m.invokes.mu.Unlock()
		m.queue.push(hfsm.Event{Name: invokeCompletionEvent(s.ID), Priority: hfsm.Normal})
	})
}

// exitInvoke cancels a still-running plugin and detaches its completion
// callback (by removing the handle, so a late callback is dropped per
// enterInvoke's ok check).
func (m *Machine) exitInvoke(s *hfsm.State) {
	m.invokes.mu.Lock()
	h, ok := m.invokes.active[s.ID]
	if ok {
		delete(m.invokes.active, s.ID)
	}
	delete(m.invokes.pending, s.ID)
	m.invokes.mu.Unlock()
	if ok {
		h.plugin.Cancel()
		h.cancel()
	}
}

// translateInvokeCompletion runs on the engine goroutine when an
// $invoke-complete.<id> event is dequeued: it merges the plugin's result
// into the state's output, applies outbound dataflows, and returns the
// done/error event to enqueue in the state's place. Returns ok=false if
// the state was already exited (result already discarded).
func (m *Machine) translateInvokeCompletion(stateID string) (hfsm.Event, bool) {
	m.invokes.mu.Lock()
	res, ok := m.invokes.pending[stateID]
	if ok {
		delete(m.invokes.pending, stateID)
	}
	delete(m.invokes.active, stateID)
	m.invokes.mu.Unlock()
	if !ok {
		return hfsm.Event{}, false
	}

	s, found := m.def.State(stateID)
	if !found {
		return hfsm.Event{}, false
	}

	switch res.Outcome {
	case plugins.OutcomeSuccess:
		if res.Value.IsValid() {
			_ = s.Output.SetField("result", res.Value)
		}
		m.applyOutboundDataflows(s)
		return hfsm.Event{Name: hfsm.DoneEventName(stateID), Priority: hfsm.Normal}, true
	default:
		_ = s.Output.SetField("error", fmt.Errorf("%s", res.Message).Error())
		return hfsm.Event{Name: hfsm.ErrorEventName(stateID), Priority: hfsm.Normal}, true
	}
}

// releaseAllInvokes cancels every in-flight invocation, used by Stop to
// guarantee all acquired plugin handles are released (Testable Property
// 5).
func (m *Machine) releaseAllInvokes() {
	m.invokes.mu.Lock()
	handles := make([]*invokeHandle, 0, len(m.invokes.active))
	for _, h := range m.invokes.active {
		handles = append(handles, h)
	}
	m.invokes.active = make(map[string]*invokeHandle)
	m.invokes.pending = make(map[string]plugins.Result)
	m.invokes.mu.Unlock()
	for _, h := range handles {
		h.plugin.Cancel()
		h.cancel()
	}
}
