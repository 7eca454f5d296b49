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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bittoy/hfsm/errs"
	"github.com/bittoy/hfsm/hfsm"
)

// Machine is a running (or stopped) instance of an hfsm.MachineDef: the
// single-goroutine macrostep scheduler described in §4.D, plus the invoke
// subsystem (§4.E) and dataflow application (§4.F) it drives states
// through. Grounded structurally on engine/chain_engine.go's ChainEngine
// (a hot root context driven by one dispatch loop, prometheus-timed).
type Machine struct {
	id  string
	def *hfsm.MachineDef
	cfg Config

	queue   *eventQueue
	invokes *invokeRuntime

	// active, doneFired and rootFinished are mutated only on the engine
	// goroutine (inside Start's initial entry, and inside the loop's
	// processEvent calls); no lock is needed for them.
	active       map[string]*hfsm.State
	doneFired    map[string]bool
	rootFinished bool

	// snapMu guards the read-only snapshot other goroutines observe via
	// Active(); updated by the engine goroutine after every macrostep.
	snapMu   sync.RWMutex
	snapshot []string

	stateMu  sync.Mutex
	running  bool
	loopDone chan struct{}
}

// NewMachine wraps a built hfsm.MachineDef into a runnable Machine. id
// identifies this instance for metrics and log records.
func NewMachine(id string, def *hfsm.MachineDef, cfg Config) *Machine {
	return &Machine{
		id:      id,
		def:     def,
		cfg:     cfg,
		queue:   newEventQueue(),
		invokes: newInvokeRuntime(),
	}
}

// ID returns the machine's instance id.
func (m *Machine) ID() string { return m.id }

// Logs returns the LogBuffer backing this machine's notification stream
// (§6 SubscribeLog): a bounded, cursor-based ring buffer fed by OnDebug
// and the StateDebug aspect. Never nil; NewConfig always attaches one.
func (m *Machine) Logs() *LogBuffer { return m.cfg.LogBuffer }

// IsRunning reports whether Start has been called without a matching Stop.
func (m *Machine) IsRunning() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.running
}

// Active returns a snapshot of the currently entered state IDs, safe to
// call from any goroutine.
func (m *Machine) Active() []string {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	out := make([]string, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

func (m *Machine) updateSnapshot() {
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	m.snapMu.Lock()
	m.snapshot = ids
	m.snapMu.Unlock()
}

// Start initializes the configuration to the root's initial child (§4.D),
// recursing through every auto-entered Composite/Parallel, then launches
// the event loop goroutine. Starting an already-running machine fails
// with InvalidState.
func (m *Machine) Start() error {
	m.stateMu.Lock()
	if m.running {
		m.stateMu.Unlock()
		return errs.New(errs.KindInvalidState, errs.CodeAlreadyRunning, "machine already running").WithState(m.id)
	}
	m.running = true
	m.stateMu.Unlock()

	m.active = make(map[string]*hfsm.State)
	m.doneFired = make(map[string]bool)
	m.rootFinished = false
	m.queue.reopen()

	m.enterState(m.def.Root)
	m.runAutomaticFixpoint()
	m.updateSnapshot()

	m.loopDone = make(chan struct{})
	go m.loop()
	return nil
}

// Stop cancels pending delayed events (implicitly, by closing the queue),
// runs OnExit inside-out over the current configuration, releases every
// in-flight invoke, and clears the queue. Stopping an already-stopped
// machine fails with InvalidState.
func (m *Machine) Stop() error {
	m.stateMu.Lock()
	if !m.running {
		m.stateMu.Unlock()
		return errs.New(errs.KindInvalidState, errs.CodeNotRunning, "machine not running").WithState(m.id)
	}
	m.stateMu.Unlock()

	m.queue.close()
	<-m.loopDone
	return nil
}

// PostEvent enqueues e for dispatch on the engine goroutine. Posting to a
// stopped machine fails with InvalidState.
func (m *Machine) PostEvent(e hfsm.Event) error {
	if !m.IsRunning() {
		return errs.New(errs.KindInvalidState, errs.CodeNotRunning, "cannot post event to a stopped machine").WithState(m.id)
	}
	m.queue.push(e)
	return nil
}

// PostDelayed schedules e for delivery after delay elapses, returning a
// handle that CancelDelayed can use to suppress it before it fires.
func (m *Machine) PostDelayed(e hfsm.Event, delay time.Duration) (*DelayedHandle, error) {
	if !m.IsRunning() {
		return nil, errs.New(errs.KindInvalidState, errs.CodeNotRunning, "cannot post delayed event to a stopped machine").WithState(m.id)
	}
	return m.queue.postDelayed(e, delay), nil
}

// CancelDelayed suppresses a delayed event scheduled via PostDelayed. A
// cancelled event is never dispatched, even if it races an in-flight
// timer fire.
func (m *Machine) CancelDelayed(h *DelayedHandle) {
	cancelDelayed(h)
}

// loop is the engine goroutine: it pops one event at a time and runs it
// to completion (a macrostep) before considering the next. It exits when
// the queue is closed (external Stop) or the root finishes on its own
// (§4.D item 7).
func (m *Machine) loop() {
	for {
		e, ok := m.queue.pop()
		if !ok {
			break
		}
		m.processEvent(e)
		if m.rootFinished {
			break
		}
	}
	m.shutdown()
}

func (m *Machine) shutdown() {
	m.exitAll()
	m.releaseAllInvokes()
	m.queue.close()
	m.updateSnapshot()
	m.stateMu.Lock()
	m.running = false
	m.stateMu.Unlock()
	close(m.loopDone)
}

// processEvent runs one full macrostep for e, translating an invoke
// completion marker into its done/error event first if needed.
func (m *Machine) processEvent(e hfsm.Event) {
	if strings.HasPrefix(e.Name, invokeCompletionPrefix) {
		stateID := strings.TrimPrefix(e.Name, invokeCompletionPrefix)
		translated, ok := m.translateInvokeCompletion(stateID)
		if !ok {
			return
		}
		e = translated
	}

	start := time.Now()
	resolved := m.resolveConflicts(m.enabledForEvent(e.Name))
	if len(resolved) > 0 {
		m.fireTransitions(resolved)
		transitionsFiredTotal.WithLabelValues(m.id).Add(float64(len(resolved)))
	}
	m.runAutomaticFixpoint()
	m.updateSnapshot()

	macrostepsTotal.WithLabelValues(m.id).Inc()
	macrostepDuration.WithLabelValues(m.id).Observe(time.Since(start).Seconds())
}

// runAutomaticFixpoint drains every immediately-enabled automatic
// transition (§4.D item 6) until no more apply.
func (m *Machine) runAutomaticFixpoint() {
	for {
		resolved := m.resolveConflicts(m.enabledAutomatic())
		if len(resolved) == 0 {
			return
		}
		m.fireTransitions(resolved)
		transitionsFiredTotal.WithLabelValues(m.id).Add(float64(len(resolved)))
	}
}

// enabledForEvent collects every active state's outgoing transitions whose
// event name matches name exactly and whose condition evaluates true.
func (m *Machine) enabledForEvent(name string) []*hfsm.Transition {
	var out []*hfsm.Transition
	for _, s := range m.active {
		for _, t := range s.Transitions {
			if !t.MatchesEvent(name) {
				continue
			}
			if m.evalCondition(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// enabledAutomatic collects every active state's automatic (empty event
// name) outgoing transitions whose condition evaluates true.
func (m *Machine) enabledAutomatic() []*hfsm.Transition {
	var out []*hfsm.Transition
	for _, s := range m.active {
		for _, t := range s.Transitions {
			if !t.IsAutomatic() {
				continue
			}
			if m.evalCondition(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

func (m *Machine) evalCondition(t *hfsm.Transition) bool {
	if t.Condition == "" {
		return true
	}
	cond, err := m.cfg.ConditionCompiler.Compile(t.Condition)
	if err != nil {
		m.cfg.Logger.Printf("hfsm: transition %s: condition compile error: %v", t.ID, err)
		return false
	}
	ok, err := cond.Eval(m.snapshotParams())
	if err != nil {
		m.cfg.Logger.Printf("hfsm: transition %s: condition eval error: %v", t.ID, err)
		return false
	}
	return ok
}

// snapshotParams renders the active configuration's input/output trees as
// a map[string]interface{} for expr-lang/expr (or a goja dialect) to
// evaluate a condition against, keyed state.<id>.input.<path> /
// state.<id>.output.<path> per §9's resolved open question.
func (m *Machine) snapshotParams() map[string]interface{} {
	states := make(map[string]interface{}, len(m.active))
	for id, s := range m.active {
		in, _ := s.Input.ToPlain()
		out, _ := s.Output.ToPlain()
		states[id] = map[string]interface{}{"input": in, "output": out}
	}
	return map[string]interface{}{"state": states}
}

// resolveConflicts keeps a maximal non-conflicting subset of candidates:
// two transitions conflict when their exit sets overlap; deeper sources
// win, ties broken by build-time insertion order (§4.D item 2).
func (m *Machine) resolveConflicts(candidates []*hfsm.Transition) []*hfsm.Transition {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]*hfsm.Transition, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].Source.Depth(), sorted[j].Source.Depth()
		if di != dj {
			return di > dj
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	claimed := make(map[string]bool)
	var selected []*hfsm.Transition
	for _, t := range sorted {
		exitSet := m.exitSetFor(t)
		conflict := false
		for _, id := range exitSet {
			if claimed[id] {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		for _, id := range exitSet {
			claimed[id] = true
		}
		selected = append(selected, t)
	}
	return selected
}

// exitSetFor returns the IDs of every currently active state that is a
// proper descendant of lca(source, target) — the states the transition
// will exit.
func (m *Machine) exitSetFor(t *hfsm.Transition) []string {
	domain := lowestCommonAncestor(t.Source, t.Target)
	var out []string
	for id, s := range m.active {
		if domain != nil && id == domain.ID {
			continue
		}
		if isDescendant(s, domain) {
			out = append(out, id)
		}
	}
	return out
}

func lowestCommonAncestor(a, b *hfsm.State) *hfsm.State {
	// A self-transition's domain is the state's parent, so the state itself
	// is exited and re-entered.
	if a == b && a.Parent != nil {
		return a.Parent
	}
	seen := make(map[string]bool)
	for p := a; p != nil; p = p.Parent {
		seen[p.ID] = true
	}
	for p := b; p != nil; p = p.Parent {
		if seen[p.ID] {
			return p
		}
	}
	return nil
}

func isDescendant(s, ancestor *hfsm.State) bool {
	if ancestor == nil {
		return false
	}
	for p := s.Parent; p != nil; p = p.Parent {
		if p.ID == ancestor.ID {
			return true
		}
	}
	return false
}

// fireTransitions runs the exit/action/enter phases for a conflict-free
// transition set (§4.D items 3-5).
func (m *Machine) fireTransitions(transitions []*hfsm.Transition) {
	exitIDs := make(map[string]bool)
	for _, t := range transitions {
		for _, id := range m.exitSetFor(t) {
			exitIDs[id] = true
		}
	}
	exitStates := make([]*hfsm.State, 0, len(exitIDs))
	for id := range exitIDs {
		if s, ok := m.active[id]; ok {
			exitStates = append(exitStates, s)
		}
	}
	sort.Slice(exitStates, func(i, j int) bool { return exitStates[i].Depth() > exitStates[j].Depth() })
	for _, s := range exitStates {
		m.exitState(s)
	}

	// Transition actions (§4.D item 4): this entity model carries no
	// per-transition action hook — dataflow copies are state-scoped
	// (§4.F), not transition-scoped — so there is nothing to run here.

	for _, t := range transitions {
		m.enterPath(t)
	}
}

// activate marks s active, applies its inbound dataflows and runs the
// before-aspects, shared by both the full recursive enterState and the
// shallow pass-through entry of enterPath's intermediate ancestors.
func (m *Machine) activate(s *hfsm.State) {
	m.applyInboundDataflows(s)
	m.active[s.ID] = s
	m.runBeforeAspects(s)
}

// enterState fully enters s: activates it, then recurses into its
// auto-entered children (a Composite's initial child, every region of a
// Parallel), then checks whether s's entry completed its parent.
func (m *Machine) enterState(s *hfsm.State) {
	m.activate(s)
	switch s.Kind {
	case hfsm.KindInvoke:
		m.enterInvoke(s)
	case hfsm.KindComposite, hfsm.KindMachine:
		if child := s.InitialChild(); child != nil {
			m.enterState(child)
		}
	case hfsm.KindParallel:
		for _, c := range s.Children {
			m.enterState(c)
		}
	}
	m.checkCompletion(s)
}

// exitState runs s's exit behavior: cancels any in-flight invoke, runs the
// after-aspects, and removes s from the active configuration.
func (m *Machine) exitState(s *hfsm.State) {
	if s.Kind == hfsm.KindInvoke {
		m.exitInvoke(s)
	}
	m.runAfterAspects(s)
	delete(m.active, s.ID)
	delete(m.doneFired, s.ID)
}

// enterPath enters the path from a transition's domain down to its
// target, outside-in: every ancestor strictly between the domain and the
// target is activated without auto-descending (the path is explicit,
// not a default initial-child chain); the target itself is entered with
// the full recursive enterState so its own auto-entry chain still runs.
func (m *Machine) enterPath(t *hfsm.Transition) {
	domain := lowestCommonAncestor(t.Source, t.Target)
	var chain []*hfsm.State
	for s := t.Target; s != nil && (domain == nil || s.ID != domain.ID); s = s.Parent {
		chain = append(chain, s)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	for i, s := range chain {
		if i == len(chain)-1 {
			m.enterState(s)
			continue
		}
		m.activate(s)
	}
}

// isRegionFinished reports whether region — a direct or nested child of a
// Parallel — has reached its own Final leaf: a Final region trivially
// has; a Composite region has when its currently active child is Final;
// a nested Parallel region has when every one of its own regions has.
func (m *Machine) isRegionFinished(region *hfsm.State) bool {
	switch region.Kind {
	case hfsm.KindFinal:
		return true
	case hfsm.KindComposite, hfsm.KindMachine:
		for _, c := range region.Children {
			if _, active := m.active[c.ID]; active {
				return c.Kind == hfsm.KindFinal
			}
		}
		return false
	case hfsm.KindParallel:
		for _, c := range region.Children {
			if !m.isRegionFinished(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// checkCompletion runs the §4.D item 7 completion check against s's
// parent right after s has been entered: a Composite/Machine parent
// finishes when s itself is Final; a Parallel parent finishes when every
// one of its regions has reached its own Final leaf.
func (m *Machine) checkCompletion(s *hfsm.State) {
	parent := s.Parent
	if parent == nil {
		return
	}
	switch parent.Kind {
	case hfsm.KindComposite, hfsm.KindMachine:
		if s.Kind == hfsm.KindFinal {
			m.postDone(parent)
			m.checkCompletion(parent)
		}
	case hfsm.KindParallel:
		if m.isRegionFinished(parent) {
			m.postDone(parent)
			m.checkCompletion(parent)
		}
	}
}

// postDone applies s's outbound dataflows and enqueues done.<s.Id> at
// Normal priority exactly once per entry of s (cleared again on
// exitState), and marks the root finished so the engine loop stops itself
// once this macrostep completes.
func (m *Machine) postDone(s *hfsm.State) {
	if m.doneFired[s.ID] {
		return
	}
	m.doneFired[s.ID] = true
	m.applyOutboundDataflows(s)
	m.queue.push(hfsm.Event{Name: hfsm.DoneEventName(s.ID), Priority: hfsm.Normal})
	if s == m.def.Root {
		m.rootFinished = true
	}
}

// exitAll exits every active state inside-out, used by shutdown.
func (m *Machine) exitAll() {
	states := make([]*hfsm.State, 0, len(m.active))
	for _, s := range m.active {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Depth() > states[j].Depth() })
	for _, s := range states {
		m.exitState(s)
	}
}

func (m *Machine) runBeforeAspects(s *hfsm.State) {
	for _, a := range m.cfg.BeforeAspects {
		a.New().(StateBeforeAspect).Before(m.id, s)
	}
}

func (m *Machine) runAfterAspects(s *hfsm.State) {
	for _, a := range m.cfg.AfterAspects {
		a.New().(StateAfterAspect).After(m.id, s)
	}
}
