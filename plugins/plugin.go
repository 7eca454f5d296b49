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

// Package plugins implements the Invoke subsystem's plugin contract
// (§4.E): a binding name resolves to a Plugin prototype registered in a
// Registry, the engine calls Invoke/Cancel on a per-state instance, and
// the plugin reports completion asynchronously through a callback.
//
// Package plugins 实现了调用子系统的插件契约（§4.E）：绑定名称解析为
// 注册在 Registry 中的 Plugin 原型，引擎在每个状态实例上调用
// Invoke/Cancel，插件通过回调异步报告完成情况。
package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/bittoy/hfsm/value"
)

// Outcome tags whether a completed invocation succeeded or errored.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

// Result is passed to a plugin's onComplete callback: Success carries an
// optional result Value to be merged into the invoke state's output;
// Error carries a human-readable message.
type Result struct {
	Outcome Outcome
	Value   value.Value
	Message string
}

// Success builds a successful Result carrying v to be merged into output.
func Success(v value.Value) Result { return Result{Outcome: OutcomeSuccess, Value: v} }

// Error builds a failed Result carrying a message.
func Error(message string) Result { return Result{Outcome: OutcomeError, Message: message} }

// Plugin is the binding contract an Invoke state drives. Invoke begins the
// external operation and must return promptly; onComplete is called
// exactly once, from any goroutine, unless Cancel is called first. Cancel
// must be idempotent and non-blocking.
type Plugin interface {
	// Binding returns this plugin's registry key, e.g. "ECHO", "MQTT".
	Binding() string
	// New returns a fresh per-invocation instance (components are
	// registered as prototypes and cloned on resolution, mirroring the
	// teacher's component registry pattern).
	New() Plugin
	// Invoke begins the external operation described by endpoint/input.
	// onComplete must be called exactly once unless the context is
	// cancelled first (via Cancel), in which case it must not be called.
	Invoke(ctx context.Context, endpoint, input value.Value, onComplete func(Result))
	// Cancel requests cancellation of an in-flight Invoke. Idempotent,
	// non-blocking.
	Cancel()
}

// Registry is a binding-name-keyed, concurrency-safe map of Plugin
// prototypes, grounded on engine/registry.go's RuleComponentRegistry.
type Registry struct {
	mu        sync.RWMutex
	prototype map[string]Plugin
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{prototype: make(map[string]Plugin)}
}

// Register adds a plugin prototype under its own Binding() name. Returns
// an error if the binding is already registered.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prototype[p.Binding()]; ok {
		return fmt.Errorf("plugins: binding already registered: %s", p.Binding())
	}
	r.prototype[p.Binding()] = p
	return nil
}

// Unregister removes binding from the registry.
func (r *Registry) Unregister(binding string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prototype[binding]; !ok {
		return fmt.Errorf("plugins: binding not found: %s", binding)
	}
	delete(r.prototype, binding)
	return nil
}

// NewInstance resolves binding to its prototype and returns a fresh
// per-invocation Plugin instance, or an error if the binding is unknown.
func (r *Registry) NewInstance(binding string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prototype[binding]
	if !ok {
		return nil, fmt.Errorf("plugins: binding not found: %s", binding)
	}
	return p.New(), nil
}

// Bindings returns every registered binding name.
func (r *Registry) Bindings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.prototype))
	for k := range r.prototype {
		out = append(out, k)
	}
	return out
}
