// Copyright (C) 2019-2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sampler

import (
	"math/rand"
)

// uniform implements Uniform over a board's member list: Initialize(count)
// is called with len(members), and Sample(1) picks the adversarial critic's
// index (board.ChooseAdversarialCritic).
type uniform struct {
	count int
	rng   *rand.Rand
}

// NewUniform creates a process-seeded uniform sampler, the one a live
// connector uses.
func NewUniform() Uniform {
	return &uniform{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewDeterministicUniform creates a seeded uniform sampler, used by tests
// that need a reproducible adversarial-critic pick.
func NewDeterministicUniform(seed int64) Uniform {
	return &uniform{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Initialize records the member-list size the next Sample draws from.
func (u *uniform) Initialize(count int) error {
	u.count = count
	return nil
}

// Sample draws size distinct member indices without replacement.
func (u *uniform) Sample(size int) ([]int, bool) {
	if size > u.count {
		return nil, false
	}
	
	indices := make([]int, size)
	selected := make(map[int]bool)
	
	for i := 0; i < size; i++ {
		for {
			idx := u.rng.Intn(u.count)
			if !selected[idx] {
				indices[i] = idx
				selected[idx] = true
				break
			}
		}
	}
	
	return indices, true
}