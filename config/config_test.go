package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestPresetsValid(t *testing.T) {
	for name, p := range map[string]Parameters{
		"mainnet": Mainnet(),
		"testnet": Testnet(),
		"local":   Local(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Validate())
		})
	}
}

func TestValidateCatchesEachField(t *testing.T) {
	base := Default()

	bad := base
	bad.MaxDepth = -1
	require.ErrorIs(t, bad.Validate(), ErrInvalidMaxDepth)

	bad = base
	bad.ComplexityThreshold = 1.5
	require.ErrorIs(t, bad.Validate(), ErrInvalidComplexityGate)

	bad = base
	bad.MinMembersForRecursion = 2
	require.ErrorIs(t, bad.Validate(), ErrInvalidMinRecursionBoard)

	bad = base
	bad.TargetBoardSize = 0
	require.ErrorIs(t, bad.Validate(), ErrTargetBoardSizeTooLow)

	bad = base
	bad.AcceptanceWindow = 0
	require.ErrorIs(t, bad.Validate(), ErrAcceptanceWindowTooLow)

	bad = base
	bad.ClockSkewTolerance = -time.Second
	require.ErrorIs(t, bad.Validate(), ErrClockSkewToleranceTooLow)

	bad = base
	bad.OracleMaxRetries = -1
	require.ErrorIs(t, bad.Validate(), ErrOracleRetriesTooLow)
}

// ComplexityThreshold is inclusive at the lower bound: a subtask whose
// estimated_complexity equals the threshold exactly must fire recursion
// (spec.md §8 boundary behaviors). The comparison itself is the >= in
// holon's executeOrRecurse; here we only check the threshold itself stays
// a valid, exact value rather than being nudged by Validate.
func TestComplexityThresholdBoundaryIsExact(t *testing.T) {
	p := Default()
	require.Equal(t, 0.4, p.ComplexityThreshold)
}
