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

// Package engine implements the execution engine (§4.D): a single-
// threaded cooperative macrostep scheduler driven by a two-priority event
// queue, plus the invoke subsystem (§4.E) and dataflow application
// (§4.F) it drives states through.
package engine

import (
	"log"
	"os"
)

// Logger is the minimal diagnostic sink the engine writes to: missing
// plugin bindings, dataflow missing-path warnings, invariant violations.
// Mirrors types.Config.Logger in the teacher repo.
type Logger interface {
	Printf(format string, v ...interface{})
}

// defaultLogger wraps the standard library's log.Logger writing to
// os.Stdout, matching types.NewConfig's default.
type defaultLogger struct {
	*log.Logger
}

func newDefaultLogger() Logger {
	return &defaultLogger{Logger: log.New(os.Stdout, "", log.LstdFlags)}
}
