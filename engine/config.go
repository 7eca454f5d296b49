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
	"sort"

	"github.com/bittoy/hfsm/plugins"
)

// OnDebug receives scope/level/message notifications (from the StateDebug
// aspect when WithStateDebug is set); SubscribeLog's ring buffer (log.go)
// is fed through it. Mirrors the teacher's Config.OnDebug callback.
//
// OnDebug 接收 scope/level/message 通知（启用 WithStateDebug 时来自
// StateDebug 切面）；SubscribeLog 的环形缓冲区（log.go）正是通过它填充的。
type OnDebug func(scope, level, message string)

// Config configures a Machine instance: Logger, plugin registry,
// transition-condition dialect and entry/exit aspects, all set through
// functional options, mirroring types.Config/types/options.go's shape.
type Config struct {
	Logger            Logger
	PluginRegistry    *plugins.Registry
	ConditionCompiler ConditionCompiler
	OnDebug           OnDebug
	LogBuffer         *LogBuffer
	BeforeAspects     []StateBeforeAspect
	AfterAspects      []StateAfterAspect
}

// Option configures a Config at construction time.
type Option func(*Config) error

// defaultLogBufferCapacity bounds the ring buffer SubscribeLog (§6) reads
// from when a Machine is built without an explicit WithLogBuffer option.
const defaultLogBufferCapacity = 256

// NewConfig returns a Config with sane defaults (stdout logger, expr-lang
// condition dialect, an empty plugin registry, a default-capacity
// LogBuffer already wired to OnDebug) modified by opts.
//
// NewConfig 返回一个具有合理默认值（stdout 日志记录器、expr-lang 条件方言、
// 空插件注册表，以及一个已接入 OnDebug 的默认容量 LogBuffer）并经过 opts
// 修改的 Config。
func NewConfig(opts ...Option) Config {
	c := Config{
		Logger:            newDefaultLogger(),
		PluginRegistry:    plugins.NewRegistry(),
		ConditionCompiler: NewExprConditionCompiler(),
	}
	for _, opt := range opts {
		_ = opt(&c)
	}
	sort.SliceStable(c.BeforeAspects, func(i, j int) bool { return c.BeforeAspects[i].Order() < c.BeforeAspects[j].Order() })
	sort.SliceStable(c.AfterAspects, func(i, j int) bool { return c.AfterAspects[i].Order() < c.AfterAspects[j].Order() })
	if c.LogBuffer == nil {
		c.LogBuffer = NewLogBuffer(defaultLogBufferCapacity)
	}
	attachLogBuffer(&c, c.LogBuffer)
	return c
}

// WithLogger overrides the Config's Logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithPluginRegistry overrides the Config's plugin registry.
func WithPluginRegistry(registry *plugins.Registry) Option {
	return func(c *Config) error {
		c.PluginRegistry = registry
		return nil
	}
}

// WithConditionCompiler overrides the transition-condition expression
// dialect (defaults to expr-lang/expr; a goja-scripted dialect is also
// available, see condition_js.go).
func WithConditionCompiler(compiler ConditionCompiler) Option {
	return func(c *Config) error {
		c.ConditionCompiler = compiler
		return nil
	}
}

// WithOnDebug sets the caller's debug callback. NewConfig re-wires the
// LogBuffer on top of whatever OnDebug is in place once every option has
// run, so ordering WithOnDebug before or after WithLogBuffer makes no
// difference: both still reach SubscribeLog's buffer.
func WithOnDebug(onDebug OnDebug) Option {
	return func(c *Config) error {
		c.OnDebug = onDebug
		return nil
	}
}

// WithLogBuffer replaces the Config's LogBuffer (e.g. to size it
// differently than defaultLogBufferCapacity, or to share one buffer
// across several machines). NewConfig wires it onto OnDebug once option
// processing finishes.
func WithLogBuffer(buf *LogBuffer) Option {
	return func(c *Config) error {
		c.LogBuffer = buf
		return nil
	}
}

// WithStateDebug registers the built-in StateDebug aspect (entry/exit
// logging at Order 900). It forwards to c.OnDebug by reference rather than
// by value, so it still reaches whatever OnDebug chain NewConfig settles
// on after every option (including the LogBuffer attach) has run.
func WithStateDebug() Option {
	return func(c *Config) error {
		d := &StateDebug{OnDebug: func(scope, level, message string) {
			if c.OnDebug != nil {
				c.OnDebug(scope, level, message)
			}
		}}
		c.BeforeAspects = append(c.BeforeAspects, d)
		c.AfterAspects = append(c.AfterAspects, d)
		return nil
	}
}

// WithBeforeAspect registers an additional state-entry aspect.
func WithBeforeAspect(a StateBeforeAspect) Option {
	return func(c *Config) error {
		c.BeforeAspects = append(c.BeforeAspects, a)
		return nil
	}
}

// WithAfterAspect registers an additional state-exit aspect.
func WithAfterAspect(a StateAfterAspect) Option {
	return func(c *Config) error {
		c.AfterAspects = append(c.AfterAspects, a)
		return nil
	}
}
