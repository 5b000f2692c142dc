// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sampler picks indices out of a population without replacement.
// The coordination core's only sampling need is board.ChooseAdversarialCritic
// (spec.md §4.3): one member drawn uniformly at random to play devil's
// advocate in Round 2 critique.
package sampler

// Sampler is an interface for sampling elements.
type Sampler interface {
	Sample(size int) ([]int, bool)
}

// Uniform is the interface for uniform sampling, the only sampling
// discipline the coordination core needs.
type Uniform interface {
	Sampler
	Initialize(count int) error
}
