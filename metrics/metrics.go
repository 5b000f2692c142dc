// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics instruments the coordination core's lifecycle events:
// boards formed/dissolved, deliberation rounds, IRV outcomes, holon
// recursion depth, and oracle call latency. Grounded on the teacher's
// metrics/metrics.go (Metrics{Registry prometheus.Registerer}).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics wraps a prometheus registerer with the coordination core's
// collectors, following the teacher's Metrics{Registry} shape. The
// luxfi/metric package's MultiGatherer is the corpus's own abstraction
// over "something prometheus.Registerer-shaped that can be merged across
// subsystems" (core/runtime.Deps.Metrics metric.MultiGatherer) — Registry
// here is the seam a caller would plug a MultiGatherer-backed registerer
// into.
type Metrics struct {
	Registry prometheus.Registerer

	BoardsFormed      prometheus.Counter
	BoardsDissolved   prometheus.Counter
	BoardsFailed      prometheus.Counter
	ChairTakeovers    prometheus.Counter
	ProtocolFaults    *prometheus.CounterVec // labeled by fault kind
	IRVRoundsRun      prometheus.Histogram
	BallotsCast       prometheus.Counter
	HolonsCreated     prometheus.Counter
	HolonsCompleted   prometheus.Counter
	HolonsFailed      prometheus.Counter
	RecursionDepth    prometheus.Histogram
	OracleLatency     *prometheus.HistogramVec // labeled by operation
	OracleFailures    *prometheus.CounterVec   // labeled by operation
	SynthesisRetries  prometheus.Counter
}

// New builds and registers the coordination core's collectors against reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Registry: reg,
		BoardsFormed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "board",
			Name:      "formed_total",
			Help:      "Number of boards formed.",
		}),
		BoardsDissolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "board",
			Name:      "dissolved_total",
			Help:      "Number of boards that reached Done and dissolved.",
		}),
		BoardsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "board",
			Name:      "failed_total",
			Help:      "Number of boards that transitioned to Failed.",
		}),
		ChairTakeovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "board",
			Name:      "chair_takeovers_total",
			Help:      "Number of times a surviving member assumed the chair role.",
		}),
		ProtocolFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "protocol",
			Name:      "faults_total",
			Help:      "Protocol faults by kind (bad_signature, hash_mismatch, duplicate_ballot).",
		}, []string{"kind"}),
		IRVRoundsRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wws",
			Subsystem: "deliberation",
			Name:      "irv_rounds",
			Help:      "Number of IRV elimination rounds run per vote.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		BallotsCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "deliberation",
			Name:      "ballots_cast_total",
			Help:      "Number of ballots recorded.",
		}),
		HolonsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "holon",
			Name:      "created_total",
			Help:      "Number of holons created, including sub-holons.",
		}),
		HolonsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "holon",
			Name:      "completed_total",
			Help:      "Number of holons that reached Done.",
		}),
		HolonsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "holon",
			Name:      "failed_total",
			Help:      "Number of holons that reached Failed.",
		}),
		RecursionDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wws",
			Subsystem: "holon",
			Name:      "recursion_depth",
			Help:      "Depth of each holon created, 0 for a root holon.",
			Buckets:   prometheus.LinearBuckets(0, 1, 8),
		}),
		OracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wws",
			Subsystem: "oracle",
			Name:      "call_latency_seconds",
			Help:      "LLM Oracle call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		OracleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "oracle",
			Name:      "failures_total",
			Help:      "LLM Oracle call failures by operation, after retries are exhausted.",
		}, []string{"operation"}),
		SynthesisRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wws",
			Subsystem: "holon",
			Name:      "synthesis_retries_total",
			Help:      "Number of synthesis retry attempts across all holons.",
		}),
	}

	collectors := []prometheus.Collector{
		m.BoardsFormed, m.BoardsDissolved, m.BoardsFailed, m.ChairTakeovers,
		m.ProtocolFaults, m.IRVRoundsRun, m.BallotsCast, m.HolonsCreated,
		m.HolonsCompleted, m.HolonsFailed, m.RecursionDepth, m.OracleLatency,
		m.OracleFailures, m.SynthesisRetries,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NoOp returns a Metrics backed by a fresh, unshared registry — suitable
// for tests that want real collectors without touching a process-wide
// default registerer.
func NoOp() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err) // unreachable: a fresh registry cannot reject first-time registration
	}
	return m
}
