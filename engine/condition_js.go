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
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/bittoy/hfsm/errs"
)

// jsConditionFuncName is the name of the function the compiler wraps a
// condition expression in: function condition(state) { return <expr>; }
const jsConditionFuncName = "condition"

// JSConditionCompiler compiles transition conditions as goja-scripted
// boolean predicates instead of expr-lang/expr expressions, for machines
// whose authors prefer JS guard logic, mirroring
// components/transform/js_filter_node.go's pooled-VM pattern the same way
// plugins/script.go does for invoke bindings.
type JSConditionCompiler struct {
	mu    sync.Mutex
	pools map[string]*sync.Pool
}

// NewJSConditionCompiler returns a compiler with an empty VM pool cache.
func NewJSConditionCompiler() *JSConditionCompiler {
	return &JSConditionCompiler{pools: make(map[string]*sync.Pool)}
}

func (c *JSConditionCompiler) Compile(expression string) (CompiledCondition, error) {
	pool, err := c.poolFor(expression)
	if err != nil {
		return nil, errs.Wrap(errs.KindBuildError, errs.CodeConditionCompile, err).WithPath(expression)
	}
	return &jsCondition{pool: pool}, nil
}

func (c *JSConditionCompiler) poolFor(source string) (*sync.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pool, ok := c.pools[source]; ok {
		return pool, nil
	}

	wrapped := fmt.Sprintf("function %s(state) { return (%s); }", jsConditionFuncName, source)
	program, err := goja.Compile("condition.js", wrapped, true)
	if err != nil {
		return nil, fmt.Errorf("condition: compile error: %w", err)
	}

	pool := &sync.Pool{
		New: func() any {
			vm := goja.New()
			if _, err := vm.RunProgram(program); err != nil {
				panic(fmt.Sprintf("condition: failed to run program in new VM: %v", err))
			}
			return vm
		},
	}
	c.pools[source] = pool
	return pool, nil
}

type jsCondition struct {
	pool *sync.Pool
}

func (j *jsCondition) Eval(snapshot map[string]interface{}) (bool, error) {
	vm := j.pool.Get().(*goja.Runtime)
	defer j.pool.Put(vm)

	fn, ok := goja.AssertFunction(vm.Get(jsConditionFuncName))
	if !ok {
		return false, fmt.Errorf("condition: script does not define function %q", jsConditionFuncName)
	}
	res, err := fn(goja.Undefined(), vm.ToValue(snapshot["state"]))
	if err != nil {
		return false, err
	}
	b, ok := res.Export().(bool)
	if !ok {
		return false, fmt.Errorf("condition: script did not return a boolean")
	}
	return b, nil
}
