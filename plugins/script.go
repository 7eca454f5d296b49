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

package plugins

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/bittoy/hfsm/value"
)

// scriptFuncName is the name of the function a SCRIPT endpoint's source
// is wrapped in as its body: function invoke(input) { <source> }
const scriptFuncName = "invoke"

// Script is the invoke binding that runs a user-supplied JavaScript
// function as the external operation. The endpoint's "source" field
// supplies the script body; input is exposed as the function's sole
// argument and the returned value becomes the success result. A thrown
// exception or a script that returns a JS error-shaped value
// ({error: "..."}) is reported as a failure.
//
// VMs are pooled per compiled program with a sync.Pool, mirroring
// components/transform/js_filter_node.go.
type Script struct {
	mu      sync.Mutex
	pools   map[string]*sync.Pool // keyed by script source
}

var _ Plugin = (*Script)(nil)

func (p *Script) Binding() string { return "SCRIPT" }

func (p *Script) New() Plugin { return &Script{pools: make(map[string]*sync.Pool)} }

func (p *Script) Invoke(ctx context.Context, endpoint, input value.Value, onComplete func(Result)) {
	source, err := endpoint.Get("source").String()
	if err != nil || source == "" {
		onComplete(Error("SCRIPT endpoint missing string field \"source\""))
		return
	}

	pool, err := p.poolFor(source)
	if err != nil {
		onComplete(Error(err.Error()))
		return
	}

	vm := pool.Get().(*goja.Runtime)
	defer pool.Put(vm)

	fnVal := vm.Get(scriptFuncName)
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		onComplete(Error(fmt.Sprintf("SCRIPT source does not define function %q", scriptFuncName)))
		return
	}

	plain, err := input.ToPlain()
	if err != nil {
		onComplete(Error(err.Error()))
		return
	}

	res, err := fn(goja.Undefined(), vm.ToValue(plain))
	if err != nil {
		onComplete(Error(err.Error()))
		return
	}
	exported := res.Export()
	if m, ok := exported.(map[string]interface{}); ok {
		if msg, ok := m["error"].(string); ok {
			onComplete(Error(msg))
			return
		}
	}
	onComplete(Success(value.FromPlain(exported)))
}

func (p *Script) Cancel() {}

func (p *Script) poolFor(source string) (*sync.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok := p.pools[source]; ok {
		return pool, nil
	}

	wrapped := fmt.Sprintf("function %s(input) { %s }", scriptFuncName, source)
	program, err := goja.Compile("invoke.js", wrapped, true)
	if err != nil {
		return nil, errors.New("SCRIPT compile error: " + err.Error())
	}

	pool := &sync.Pool{
		New: func() any {
			vm := goja.New()
			if _, err := vm.RunProgram(program); err != nil {
				panic(fmt.Sprintf("SCRIPT: failed to run program in new VM: %v", err))
			}
			return vm
		},
	}
	p.pools[source] = pool
	return pool, nil
}
