package protocol

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wws/ids"
)

func TestCanonicalExcludesSignature(t *testing.T) {
	env := &Envelope{
		MessageID: ids.GenerateID(),
		TaskID:    ids.GenerateID(),
		Kind:      KindProposalCommit,
		PayloadProposalCommit: &ProposalCommit{
			CommitHash: ids.GenerateID(),
		},
	}

	sk, err := bls.GenerateKey()
	require.NoError(t, err)
	env.Signature = sk.Sign([]byte("any content"))
	withSig, err := Canonical(env)
	require.NoError(t, err)

	// Mutating only the signature must not change the canonical bytes:
	// the signature covers content, never itself.
	env.Signature = nil
	withoutSig, err := Canonical(env)
	require.NoError(t, err)
	require.Equal(t, withSig, withoutSig)
}

func TestCanonicalIsDeterministic(t *testing.T) {
	env := &Envelope{
		MessageID: ids.GenerateID(),
		TaskID:    ids.GenerateID(),
		Kind:      KindVoteBallot,
		PayloadVoteBallot: &VoteBallot{
			Ranking: []ids.ID{ids.GenerateID(), ids.GenerateID()},
			Epoch:   3,
		},
	}

	a, err := Canonical(env)
	require.NoError(t, err)
	b, err := Canonical(env)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	original := CritiqueScore{Feasibility: 0.8, Parallelism: 0.5, Completeness: 0.9, Risk: 0.1}
	data, err := Marshal(original)
	require.NoError(t, err)

	var decoded CritiqueScore
	version, err := Unmarshal(data, &decoded)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, version)
	require.Equal(t, original, decoded)
}
