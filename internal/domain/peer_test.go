package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePeerID(t *testing.T) {
	assert.NoError(t, ValidatePeerID("alice"))
	assert.ErrorIs(t, ValidatePeerID(""), ErrPeerIDEmpty)
	assert.ErrorIs(t, ValidatePeerID(PeerID(strings.Repeat("a", MaxPeerIDLen+1))), ErrPeerIDTooLong)
}

func TestValidateNegotiationID(t *testing.T) {
	assert.NoError(t, ValidateNegotiationID("n-1"))
	assert.ErrorIs(t, ValidateNegotiationID(""), ErrNegotiationIDEmpty)
	assert.ErrorIs(t, ValidateNegotiationID(NegotiationID(strings.Repeat("n", MaxNegotiationIDLen+1))), ErrNegotiationIDTooLong)
}

func TestPairingOther(t *testing.T) {
	p := Pairing{Offerer: "a"}
	assert.False(t, p.Complete())
	assert.Equal(t, PeerID(""), p.Other("a"))

	p.Answerer = "b"
	require.True(t, p.Complete())
	assert.Equal(t, PeerID("b"), p.Other("a"))
	assert.Equal(t, PeerID("a"), p.Other("b"))
	assert.Equal(t, PeerID(""), p.Other("c"))
}

func TestNewCandidateKeepsNullFields(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	var p CandidatePayload
	require.NoError(t, json.Unmarshal([]byte(`{"candidate":"candidate:1","sdpMLineIndex":null,"sdpMid":"audio","connectionId":"n"}`), &p))
	c := NewCandidate(p, now)
	assert.Nil(t, c.SDPMLineIndex)
	require.NotNil(t, c.SDPMid)
	assert.Equal(t, "audio", *c.SDPMid)
	assert.Equal(t, int64(1700000000000), c.Datetime)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"candidate":"candidate:1","sdpMLineIndex":null,"sdpMid":"audio","connectionId":"n","datetime":1700000000000}`, string(out))
}

func TestNewCandidateCopiesMLineIndex(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	idx := uint16(2)
	c := NewCandidate(CandidatePayload{Candidate: "candidate:2", SDPMLineIndex: &idx, ConnectionID: "n"}, now)
	require.NotNil(t, c.SDPMLineIndex)
	assert.Equal(t, uint16(2), *c.SDPMLineIndex)
	assert.Nil(t, c.SDPMid)

	idx = 7
	assert.Equal(t, uint16(2), *c.SDPMLineIndex)
}
