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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	macrostepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfsm",
			Subsystem: "engine",
			Name:      "macrosteps_total",
			Help:      "Total macrosteps processed, by machine id.",
		},
		[]string{"machine"},
	)

	macrostepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hfsm",
			Subsystem: "engine",
			Name:      "macrostep_duration_seconds",
			Help:      "Macrostep processing latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"machine"},
	)

	transitionsFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfsm",
			Subsystem: "engine",
			Name:      "transitions_fired_total",
			Help:      "Total transitions fired, by machine id.",
		},
		[]string{"machine"},
	)

	invokeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hfsm",
			Subsystem: "engine",
			Name:      "invoke_duration_seconds",
			Help:      "Invoke plugin latency, by binding.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"binding"},
	)

	dataflowCopiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hfsm",
			Subsystem: "engine",
			Name:      "dataflow_copies_total",
			Help:      "Total dataflow copies applied, by machine id.",
		},
		[]string{"machine"},
	)
)

func init() {
	prometheus.MustRegister(macrostepsTotal, macrostepDuration, transitionsFiredTotal, invokeDuration, dataflowCopiesTotal)
}
