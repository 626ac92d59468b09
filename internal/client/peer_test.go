package client

import (
	"errors"
	"sync"
	"testing"

	"github.com/avelose/scraplink/internal/adapters/rtc"
	"github.com/avelose/scraplink/internal/domain"
	"github.com/avelose/scraplink/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentSink records outbound envelopes. Guarded because pion fires
// candidate callbacks from its own goroutines.
type sentSink struct {
	mu   sync.Mutex
	envs []*protocol.Envelope
	err  error
}

func (s *sentSink) Send(env *protocol.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.envs = append(s.envs, env)
	return nil
}

func (s *sentSink) first(t *testing.T) *protocol.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.envs, "expected an outbound envelope")
	return s.envs[0]
}

// relayed wraps a payload the way the relay would deliver it, with the
// authoritative sender filled in.
func relayed(t *testing.T, kind protocol.Kind, from domain.UserID, payload any) *protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(kind, "", payload)
	require.NoError(t, err)
	env.From = from
	return env
}

// TestEarlyCandidateDoesNotOpenConnection: a candidate relayed before
// any offer is buffered by the link and must not spin up a peer
// connection; negotiation has not started.
func TestEarlyCandidateDoesNotOpenConnection(t *testing.T) {
	p := NewPeer(&sentSink{}, "alice", "bob")

	p.HandleEnvelope(relayed(t, protocol.KindCandidate, "bob",
		webrtc.ICECandidateInit{Candidate: "candidate:early"}))

	assert.Nil(t, p.pc)
	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, 1, p.link.PendingCandidates())
}

// TestCallAfterEarlyCandidate: a buffered candidate must not leak a
// stray connection under the one Call later creates.
func TestCallAfterEarlyCandidate(t *testing.T) {
	sink := &sentSink{}
	p := NewPeer(sink, "alice", "bob")

	p.HandleEnvelope(relayed(t, protocol.KindCandidate, "bob",
		webrtc.ICECandidateInit{Candidate: "candidate:early"}))
	require.Nil(t, p.pc)

	require.NoError(t, p.Call())
	defer p.Hangup()

	assert.Equal(t, StateOfferSent, p.State())
	require.NotNil(t, p.pc)
	assert.Equal(t, protocol.KindOffer, sink.first(t).Type)

	// A second Call while negotiating is rejected and leaves the
	// existing connection alone.
	first := p.pc
	require.ErrorIs(t, p.Call(), ErrNotIdle)
	assert.Same(t, first, p.pc)
}

// TestAnswerSendFailureSignalsUnreachable: when the answer cannot reach
// the relay, the link resets to Idle, the connection is released and
// the unreachable callback fires.
func TestAnswerSendFailureSignalsUnreachable(t *testing.T) {
	sink := &sentSink{err: errors.New("signaling gone")}
	p := NewPeer(sink, "bob", "alice")
	unreachable := false
	p.OnUnreachable(func() { unreachable = true })

	// A real offer so the remote description applies cleanly.
	caller, err := rtc.New(rtc.DefaultConfig())
	require.NoError(t, err)
	defer caller.Close()
	require.NoError(t, caller.OpenChatChannel())
	offer, err := caller.CreateOffer()
	require.NoError(t, err)

	p.HandleEnvelope(relayed(t, protocol.KindOffer, "alice", *offer))

	assert.True(t, unreachable)
	assert.Equal(t, StateIdle, p.State())
	assert.Nil(t, p.pc)
}

// TestByeDoesNotSignalUnreachable: a peer that says goodbye hung up on
// purpose; the callback is for failures only.
func TestByeDoesNotSignalUnreachable(t *testing.T) {
	p := NewPeer(&sentSink{}, "alice", "bob")
	unreachable := false
	p.OnUnreachable(func() { unreachable = true })

	p.HandleEnvelope(relayed(t, protocol.KindBye, "bob", nil))

	assert.False(t, unreachable)
	assert.Equal(t, StateIdle, p.State())
}
