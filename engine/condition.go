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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bittoy/hfsm/errs"
)

// CompiledCondition evaluates a transition's guard expression against a
// parameter snapshot (see Machine.snapshotParams).
type CompiledCondition interface {
	Eval(snapshot map[string]interface{}) (bool, error)
}

// ConditionCompiler resolves the spec's §9 open question: transition
// conditions are predicate expressions over the active configuration's
// parameter values. The default implementation compiles them with
// expr-lang/expr, the dialect the teacher already uses for its
// ExprFilterNode (components/transform/expr_filter_node.go).
type ConditionCompiler interface {
	Compile(expression string) (CompiledCondition, error)
}

// ExprConditionCompiler compiles conditions with expr-lang/expr, allowing
// undefined variables (a transition may reference a path that does not
// exist on every active state) and requiring a boolean result, exactly as
// ExprFilterNode.Init does.
type ExprConditionCompiler struct {
	mu    sync.Mutex
	cache map[string]*exprCondition
}

// NewExprConditionCompiler returns a compiler with an empty program cache.
func NewExprConditionCompiler() *ExprConditionCompiler {
	return &ExprConditionCompiler{cache: make(map[string]*exprCondition)}
}

func (c *ExprConditionCompiler) Compile(expression string) (CompiledCondition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache[expression]; ok {
		return cached, nil
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, errs.Wrap(errs.KindBuildError, errs.CodeConditionCompile, err).WithPath(expression)
	}
	cond := &exprCondition{program: program}
	c.cache[expression] = cond
	return cond, nil
}

type exprCondition struct {
	program *vm.Program
}

func (e *exprCondition) Eval(snapshot map[string]interface{}) (bool, error) {
	out, err := vm.Run(e.program, snapshot)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, errs.New(errs.KindInternalError, errs.CodeConditionCompile, "condition did not evaluate to a boolean")
	}
	return b, nil
}

// alwaysTrue is used for empty (automatic, unconditional) conditions.
type alwaysTrue struct{}

func (alwaysTrue) Eval(map[string]interface{}) (bool, error) { return true, nil }
