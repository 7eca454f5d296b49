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
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/bittoy/hfsm/hfsm"
)

// eventQueue is the engine's FIFO-with-two-priorities event queue (§4.D,
// §5): High is always drained before Normal. Posting and popping are both
// safe to call from any goroutine; the engine goroutine is the only
// reader.
type eventQueue struct {
	mu     sync.Mutex
	high   []hfsm.Event
	normal []hfsm.Event
	notify chan struct{}
	stop   chan struct{}
	closed bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
}

// push enqueues e, thread-safe, callable from any goroutine (a posting
// caller, or a plugin's completion callback).
func (q *eventQueue) push(e hfsm.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if e.Priority == hfsm.High {
		q.high = append(q.high, e)
	} else {
		q.normal = append(q.normal, e)
	}
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop blocks until an event is available or the queue is closed, in which
// case ok is false.
func (q *eventQueue) pop() (hfsm.Event, bool) {
	for {
		q.mu.Lock()
		if len(q.high) > 0 {
			e := q.high[0]
			q.high = q.high[1:]
			q.mu.Unlock()
			return e, true
		}
		if len(q.normal) > 0 {
			e := q.normal[0]
			q.normal = q.normal[1:]
			q.mu.Unlock()
			return e, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return hfsm.Event{}, false
		}
		select {
		case <-q.notify:
		case <-q.stop:
			return hfsm.Event{}, false
		}
	}
}

// close stops the queue and discards any pending events, matching Stop's
// "clears the queue" requirement.
func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.high = nil
	q.normal = nil
	q.mu.Unlock()
	close(q.stop)
}

// reopen allows a stopped Machine to be Started again with a fresh queue
// state.
func (q *eventQueue) reopen() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = false
	q.stop = make(chan struct{})
}

// DelayedHandle is the opaque handle returned by PostDelayed; it may be
// passed to CancelDelayed before the delay elapses.
type DelayedHandle struct {
	id        string
	timer     *time.Timer
	cancelled int32
}

// ID returns the handle's unique token, synthesized via gofrs/uuid/v5.
func (h *DelayedHandle) ID() string { return h.id }

func newDelayedHandle() *DelayedHandle {
	id, _ := uuid.NewV4()
	return &DelayedHandle{id: id.String()}
}

// postDelayed schedules e for delivery after delay elapses (monotonic
// clock via time.AfterFunc), returning a handle that can cancel it before
// it fires. A cancelled delayed event is never pushed onto the queue,
// even if Cancel races the timer (the cancelled flag is checked inside the
// fire callback, not just at Stop time).
func (q *eventQueue) postDelayed(e hfsm.Event, delay time.Duration) *DelayedHandle {
	h := newDelayedHandle()
	h.timer = time.AfterFunc(delay, func() {
		if atomic.LoadInt32(&h.cancelled) == 1 {
			return
		}
		q.push(e)
	})
	return h
}

// cancelDelayed marks h cancelled and stops its timer. Idempotent.
func cancelDelayed(h *DelayedHandle) {
	atomic.StoreInt32(&h.cancelled, 1)
	h.timer.Stop()
}
