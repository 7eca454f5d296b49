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

// Package errs centralizes the error taxonomy shared by the builder, dsl
// and engine packages: ParseError, BuildError, InvalidState,
// TypeMismatch, PluginError and InternalError, each carrying enough
// context (state id, transition id, path) for a caller to react or log
// usefully.
//
// Package errs 汇总了 builder、dsl 和 engine 包共享的错误分类：
// ParseError、BuildError、InvalidState、TypeMismatch、PluginError 和
// InternalError，每一种都携带足够的上下文（状态 id、转换 id、路径），
// 便于调用方做出反应或记录日志。
package errs

import "fmt"

// Kind identifies which of the taxonomy's six buckets an error belongs to.
type Kind string

const (
	KindParseError    Kind = "ParseError"
	KindBuildError    Kind = "BuildError"
	KindInvalidState  Kind = "InvalidState"
	KindTypeMismatch  Kind = "TypeMismatch"
	KindPluginError   Kind = "PluginError"
	KindInternalError Kind = "InternalError"
)

// Code names the specific condition within a Kind, e.g. "UnknownParent"
// within BuildError.
type Code string

const (
	CodeNoRoot              Code = "NoRoot"
	CodeMultipleRoots       Code = "MultipleRoots"
	CodeUnknownParent       Code = "UnknownParent"
	CodeUnknownSource       Code = "UnknownSource"
	CodeUnknownTarget       Code = "UnknownTarget"
	CodeDuplicateID         Code = "DuplicateId"
	CodeFinalHasOutgoing    Code = "FinalHasOutgoing"
	CodeInitialChildMissing Code = "InitialChildMissing"
	CodeParallelEmpty       Code = "ParallelEmpty"
	CodeUnreachable         Code = "Unreachable"
	CodeAlreadyRunning      Code = "AlreadyRunning"
	CodeNotRunning          Code = "NotRunning"
	CodeMalformedDocument   Code = "MalformedDocument"
	CodeConditionCompile    Code = "ConditionCompile"
)

// HFSMError is the concrete error type returned across package boundaries.
// It wraps an optional underlying error and carries the state/transition/
// path context relevant to the taxonomy kind.
//
// HFSMError 是跨包边界返回的具体错误类型。它包裹一个可选的底层错误，
// 并携带与错误分类相关的状态/转换/路径上下文。
type HFSMError struct {
	Kind         Kind
	Code         Code
	StateID      string
	TransitionID string
	Path         string
	Message      string
	Err          error
}

func (e *HFSMError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.StateID != "" && e.TransitionID != "":
		return fmt.Sprintf("%s(%s): state=%s transition=%s: %s", e.Kind, e.Code, e.StateID, e.TransitionID, msg)
	case e.StateID != "":
		return fmt.Sprintf("%s(%s): state=%s: %s", e.Kind, e.Code, e.StateID, msg)
	case e.Path != "":
		return fmt.Sprintf("%s(%s): path=%s: %s", e.Kind, e.Code, e.Path, msg)
	default:
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Code, msg)
	}
}

func (e *HFSMError) Unwrap() error { return e.Err }

// New constructs a bare HFSMError of the given kind/code/message.
func New(kind Kind, code Code, message string) *HFSMError {
	return &HFSMError{Kind: kind, Code: code, Message: message}
}

// Wrap constructs an HFSMError that wraps an existing error.
func Wrap(kind Kind, code Code, err error) *HFSMError {
	return &HFSMError{Kind: kind, Code: code, Err: err}
}

// WithState returns a copy of e annotated with a state id.
func (e *HFSMError) WithState(id string) *HFSMError {
	c := *e
	c.StateID = id
	return &c
}

// WithTransition returns a copy of e annotated with a transition id.
func (e *HFSMError) WithTransition(id string) *HFSMError {
	c := *e
	c.TransitionID = id
	return &c
}

// WithPath returns a copy of e annotated with a Value path.
func (e *HFSMError) WithPath(path string) *HFSMError {
	c := *e
	c.Path = path
	return &c
}

// Is supports errors.Is comparisons by Kind+Code, ignoring context fields.
func (e *HFSMError) Is(target error) bool {
	t, ok := target.(*HFSMError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}
