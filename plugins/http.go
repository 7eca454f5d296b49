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
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fatih/structs"

	"github.com/bittoy/hfsm/maps"
	"github.com/bittoy/hfsm/value"
)

// httpEndpoint is the binding-specific payload an invoke state's endpoint
// child must supply for the HTTP binding. No third-party HTTP client is
// wired here: no pack example imports one, so stdlib net/http is used
// directly (see DESIGN.md).
type httpEndpoint struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	TimeoutMs int64             `json:"timeoutMs"`
}

// httpOutcome is converted to a Value via fatih/structs so the success
// result carries a conventional shape without hand-written field-by-field
// assembly.
type httpOutcome struct {
	Status int    `structs:"status"`
	Body   string `structs:"body"`
}

// HTTP is the invoke binding that issues one request per invocation,
// built from endpoint via mapstructure and executed synchronously on a
// background goroutine so Invoke itself returns promptly.
type HTTP struct {
	cancel context.CancelFunc
}

var _ Plugin = (*HTTP)(nil)

func (p *HTTP) Binding() string { return "HTTP" }

func (p *HTTP) New() Plugin { return &HTTP{} }

func (p *HTTP) Invoke(ctx context.Context, endpoint, input value.Value, onComplete func(Result)) {
	var cfg httpEndpoint
	if err := maps.Value2Struct(endpoint, &cfg); err != nil {
		onComplete(Error("HTTP endpoint decode error: " + err.Error()))
		return
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.URL == "" {
		onComplete(Error("HTTP endpoint requires url"))
		return
	}
	timeout := 10 * time.Second
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	p.cancel = cancel

	go func() {
		defer cancel()

		var body io.Reader
		if input.IsValid() {
			payload, err := input.ToJSON()
			if err == nil {
				body = bytes.NewReader(payload)
			}
		}

		req, err := http.NewRequestWithContext(reqCtx, cfg.Method, cfg.URL, body)
		if err != nil {
			onComplete(Error("HTTP request build error: " + err.Error()))
			return
		}
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			onComplete(Error("HTTP request error: " + err.Error()))
			return
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			onComplete(Error("HTTP read body error: " + err.Error()))
			return
		}

		out := httpOutcome{Status: resp.StatusCode, Body: string(raw)}
		onComplete(Success(value.FromPlain(structs.Map(out))))
	}()
}

func (p *HTTP) Cancel() {
	if p.cancel != nil {
		p.cancel()
	}
}
