package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsMalformedFrame(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestKindClassification(t *testing.T) {
	assert.True(t, KindIdentity.Known())
	assert.False(t, KindIdentity.Routable())

	for _, k := range []Kind{KindOffer, KindAnswer, KindCandidate, KindBye} {
		assert.True(t, k.Known(), "%s", k)
		assert.True(t, k.Routable(), "%s", k)
	}

	assert.False(t, Kind("teleport").Known())
	assert.False(t, Kind("teleport").Routable())
}

func TestDecodeIdentityValidatesUserID(t *testing.T) {
	env, err := NewEnvelope(KindIdentity, "", IdentityPayload{UserID: "alice"})
	require.NoError(t, err)
	p, err := DecodeIdentity(env.Payload)
	require.NoError(t, err)
	assert.EqualValues(t, "alice", p.UserID)

	empty, err := NewEnvelope(KindIdentity, "", IdentityPayload{})
	require.NoError(t, err)
	_, err = DecodeIdentity(empty.Payload)
	assert.Error(t, err)
}

func TestEnvelopeRoundTripKeepsPayloadOpaque(t *testing.T) {
	env, err := NewEnvelope(KindOffer, "bob", map[string]string{"sdp": "v=0"})
	require.NoError(t, err)
	env.From = "alice"

	data, err := env.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindOffer, got.Type)
	assert.EqualValues(t, "alice", got.From)
	assert.EqualValues(t, "bob", got.To)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(got.Payload))
}
