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

// Fail is the synchronous always-errors invoke binding used by test
// fixtures to exercise the error.<id> routing path (S5).
type Fail struct {
	// Message is reported verbatim; defaults to "invoke failed" when empty.
	Message string
}

var _ Plugin = (*Fail)(nil)

func (p *Fail) Binding() string { return "FAIL" }

func (p *Fail) New() Plugin { return &Fail{Message: p.Message} }

func (p *Fail) Invoke(ctx context.Context, endpoint, input value.Value, onComplete func(Result)) {
	msg := p.Message
	if msg == "" {
		msg = "invoke failed"
	}
	onComplete(Error(msg))
}

func (p *Fail) Cancel() {}
