// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle defines the LLM Oracle external collaborator (spec.md
// §6): four synchronous-from-the-core operations the holon supervisor and
// deliberation engine call out to. Generating or rotating the underlying
// model is out of scope (spec.md §1) — this package only defines the
// seam and a deterministic reference stub for tests. Grounded narrowly on
// the teacher's ai package's Module/Engine request-response shape; only
// the four operations spec.md names are exposed, not the teacher's wider
// AI-consensus composition surface.
package oracle

import (
	"context"

	"github.com/luxfi/wws/ids"
)

// Plan is a proposed decomposition of a task into zero or more subtasks.
type Plan struct {
	PlanBytes []byte
	Subtasks  []Subtask
}

// Subtask is one unit of work a plan decomposes a task into.
type Subtask struct {
	Description          string
	EstimatedComplexity   float64
	RequiredCapabilities  []string
}

// Critique is one plan's four-axis score, per spec.md §4.4.
type Critique struct {
	Feasibility  float64
	Parallelism  float64
	Completeness float64
	Risk         float64
}

// Oracle is the LLM collaborator's external interface. Every method may
// fail; the holon supervisor retries Propose, Critique and Synthesize up
// to config.Parameters.OracleMaxRetries times. Exhausted Propose/Critique
// retries drop the member from that round; exhausted Synthesize retries
// fail the holon. A failed Execute is not retried; its subtask is
// reassigned to the next member.
type Oracle interface {
	// Propose asks the oracle to produce a plan for a task description.
	Propose(ctx context.Context, taskDescription string) (Plan, error)
	// Critique scores every plan in planSet on the four axes. asAdversary
	// instructs the oracle to specifically search for flaws, per spec.md
	// §4.4's adversarial-critic behavior.
	Critique(ctx context.Context, planSet map[ids.ID][]byte, asAdversary bool) (map[ids.ID]Critique, error)
	// Execute performs one subtask directly, returning its result content.
	Execute(ctx context.Context, subtask Subtask) ([]byte, error)
	// Synthesize combines ordered subresults and the original task
	// description into a single result, explicitly more than
	// concatenation (spec.md §4.5).
	Synthesize(ctx context.Context, taskDescription string, subresults [][]byte) ([]byte, error)
}
