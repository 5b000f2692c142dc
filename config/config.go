// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the coordination core's tunable parameters:
// commit/reveal/critique/vote windows, the acceptance window, the
// chair-liveness timeout, the complexity gate and MAX_DEPTH, and board
// size bounds. spec.md §9 leaves these durations as an implementer's
// choice ("seconds-scale") — the defaults below are that choice, and are
// all overridable.
package config

import (
	"errors"
	"time"
)

// Sentinel validation errors, in the style of the teacher's own
// config/errors.go.
var (
	ErrInvalidMaxDepth          = errors.New("max depth must be >= 0")
	ErrInvalidComplexityGate    = errors.New("complexity threshold must be in [0.0, 1.0]")
	ErrInvalidMinRecursionBoard = errors.New("min recursion board size must be >= 3")
	ErrAcceptanceWindowTooLow   = errors.New("acceptance window must be > 0")
	ErrCommitWindowTooLow       = errors.New("commit window must be > 0")
	ErrRevealWindowTooLow       = errors.New("reveal window must be > 0")
	ErrCritiqueWindowTooLow     = errors.New("critique window must be > 0")
	ErrVoteWindowTooLow         = errors.New("vote window must be > 0")
	ErrExecutionDeadlineTooLow  = errors.New("execution deadline must be > 0")
	ErrSynthesisDeadlineTooLow  = errors.New("synthesis deadline must be > 0")
	ErrChairLivenessTooLow      = errors.New("chair liveness timeout must be > 0")
	ErrClockSkewToleranceTooLow = errors.New("clock skew tolerance must be >= 0")
	ErrOracleRetriesTooLow      = errors.New("oracle max retries must be >= 0")
	ErrTargetBoardSizeTooLow    = errors.New("target board size must be >= 1")
)

// Parameters holds every tunable of the coordination core.
type Parameters struct {
	// TargetBoardSize is the chair's "top N acceptors" selection size (§4.3).
	TargetBoardSize int
	// MinMembersForRecursion is the "at least 3 eligible candidate members"
	// gate of §4.5's recursion rule.
	MinMembersForRecursion int

	// AcceptanceWindow bounds how long the chair waits for board.accept /
	// board.decline replies before forming with whatever it has.
	AcceptanceWindow time.Duration
	// CommitWindow bounds Round 1's commit phase.
	CommitWindow time.Duration
	// RevealWindow bounds Round 1's reveal phase.
	RevealWindow time.Duration
	// CritiqueWindow bounds Round 2.
	CritiqueWindow time.Duration
	// VoteWindow bounds ballot collection before IRV tallies whatever
	// ballots arrived.
	VoteWindow time.Duration
	// ExecutionDeadline bounds one executor's direct-execution attempt
	// before the supervisor reassigns.
	ExecutionDeadline time.Duration
	// SynthesisDeadline bounds the synthesis oracle call.
	SynthesisDeadline time.Duration
	// ChairLivenessTimeout bounds how long members wait for chair activity
	// before the lowest-DID survivor assumes the chair role (§4.3).
	ChairLivenessTimeout time.Duration
	// ClockSkewTolerance bounds the accepted drift between an embedded
	// message timestamp (e.g. board.invite) and local receive time (§7).
	ClockSkewTolerance time.Duration

	// ComplexityThreshold is the complexity gate (§4.5); design value 0.4,
	// inclusive at the lower bound.
	ComplexityThreshold float64
	// MaxDepth bounds the holon recursion tree (§4.5); design value is a
	// small single-digit integer.
	MaxDepth int

	// OracleMaxRetries bounds how many times a failed Propose, Critique or
	// Synthesize oracle call is retried (§7). When Propose or Critique
	// retries are exhausted the member drops out of that round; when
	// Synthesize retries are exhausted the holon fails. A failed Execute is
	// not retried: the supervisor reassigns the subtask to the next member.
	OracleMaxRetries int
	// OracleRetryBackoff is the delay between oracle retry attempts.
	OracleRetryBackoff time.Duration
}

// Default returns the coordination core's baseline parameters.
func Default() Parameters {
	return Parameters{
		TargetBoardSize:        5,
		MinMembersForRecursion: 3,

		AcceptanceWindow:     5 * time.Second,
		CommitWindow:         8 * time.Second,
		RevealWindow:         8 * time.Second,
		CritiqueWindow:       8 * time.Second,
		VoteWindow:           8 * time.Second,
		ExecutionDeadline:    2 * time.Minute,
		SynthesisDeadline:    30 * time.Second,
		ChairLivenessTimeout: 10 * time.Second,
		ClockSkewTolerance:   5 * time.Second,

		ComplexityThreshold: 0.4,
		MaxDepth:            4,

		OracleMaxRetries:   2,
		OracleRetryBackoff: 500 * time.Millisecond,
	}
}

// Mainnet widens every window for a production mesh spread across a wider
// network, mirroring the teacher's MainnetParams/TestnetParams/LocalParams
// preset family (config/presets.go).
func Mainnet() Parameters {
	p := Default()
	p.AcceptanceWindow = 10 * time.Second
	p.CommitWindow = 15 * time.Second
	p.RevealWindow = 15 * time.Second
	p.CritiqueWindow = 15 * time.Second
	p.VoteWindow = 15 * time.Second
	p.ChairLivenessTimeout = 20 * time.Second
	return p
}

// Testnet keeps the default windows (shorter than Mainnet's) for faster
// iteration and lowers MaxDepth to 3.
func Testnet() Parameters {
	p := Default()
	p.MaxDepth = 3
	return p
}

// Local minimizes every window for single-process demos and tests.
func Local() Parameters {
	p := Default()
	p.AcceptanceWindow = 200 * time.Millisecond
	p.CommitWindow = 200 * time.Millisecond
	p.RevealWindow = 200 * time.Millisecond
	p.CritiqueWindow = 200 * time.Millisecond
	p.VoteWindow = 200 * time.Millisecond
	p.ExecutionDeadline = 2 * time.Second
	p.SynthesisDeadline = 2 * time.Second
	p.ChairLivenessTimeout = 300 * time.Millisecond
	p.ClockSkewTolerance = time.Second
	p.OracleRetryBackoff = 10 * time.Millisecond
	return p
}

// Validate checks the parameter set for internal consistency.
func (p Parameters) Validate() error {
	switch {
	case p.MaxDepth < 0:
		return ErrInvalidMaxDepth
	case p.ComplexityThreshold < 0.0 || p.ComplexityThreshold > 1.0:
		return ErrInvalidComplexityGate
	case p.MinMembersForRecursion < 3:
		return ErrInvalidMinRecursionBoard
	case p.TargetBoardSize < 1:
		return ErrTargetBoardSizeTooLow
	case p.AcceptanceWindow <= 0:
		return ErrAcceptanceWindowTooLow
	case p.CommitWindow <= 0:
		return ErrCommitWindowTooLow
	case p.RevealWindow <= 0:
		return ErrRevealWindowTooLow
	case p.CritiqueWindow <= 0:
		return ErrCritiqueWindowTooLow
	case p.VoteWindow <= 0:
		return ErrVoteWindowTooLow
	case p.ExecutionDeadline <= 0:
		return ErrExecutionDeadlineTooLow
	case p.SynthesisDeadline <= 0:
		return ErrSynthesisDeadlineTooLow
	case p.ChairLivenessTimeout <= 0:
		return ErrChairLivenessTooLow
	case p.ClockSkewTolerance < 0:
		return ErrClockSkewToleranceTooLow
	case p.OracleMaxRetries < 0:
		return ErrOracleRetriesTooLow
	}
	return nil
}
