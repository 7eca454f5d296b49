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

	"github.com/bittoy/hfsm/value"
)

// Echo is the minimal synchronous invoke binding used by test fixtures and
// by machines that just need a deterministic "it worked" completion: it
// ignores input and reports success with {ok: true} immediately, inline
// on the calling goroutine.
type Echo struct{}

var _ Plugin = (*Echo)(nil)

func (p *Echo) Binding() string { return "ECHO" }

func (p *Echo) New() Plugin { return &Echo{} }

// Invoke reports success with an {ok: true} result, merged by the engine
// under the invoke state's output.result (see engine/invoke.go).
func (p *Echo) Invoke(ctx context.Context, endpoint, input value.Value, onComplete func(Result)) {
	result := value.NewObject()
	_ = result.SetField("ok", value.NewBool(true))
	onComplete(Success(result))
}

func (p *Echo) Cancel() {}
