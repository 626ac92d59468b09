package client

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/avelose/scraplink/internal/adapters/rtc"
	"github.com/avelose/scraplink/internal/domain"
	"github.com/avelose/scraplink/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("peer link not connected")

// SignalSender is the outbound half of the relay connection a Peer
// needs; *Signaling satisfies it.
type SignalSender interface {
	Send(env *protocol.Envelope) error
}

// Peer drives one Link against a real peer connection and the relay.
// All link events funnel through p.mu, which gives the machine the
// serialization it requires.
type Peer struct {
	mu sync.Mutex

	local  domain.UserID
	remote domain.UserID
	link   *Link
	sig    SignalSender
	pc     *rtc.PeerConnection

	onChat        func(string)
	onUnreachable func()
}

func NewPeer(sig SignalSender, local, remote domain.UserID) *Peer {
	return &Peer{
		local:  local,
		remote: remote,
		link:   NewLink(local, remote),
		sig:    sig,
	}
}

// OnChat sets the callback for inbound chat lines.
func (p *Peer) OnChat(fn func(string)) { p.onChat = fn }

// OnUnreachable sets the callback invoked when the remote peer cannot
// be reached and the link has been reset.
func (p *Peer) OnUnreachable(fn func()) { p.onUnreachable = fn }

// State reports the link state for display.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.link.State()
}

// Call starts negotiation as the initiator. The chat channel is opened
// before the offer is produced; opening it later would leave the remote
// side receive-only.
func (p *Peer) Call() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.link.CreateOffer(); err != nil {
		return err
	}
	if err := p.newConnLocked(true); err != nil {
		p.teardownLocked("peer connection failed")
		return err
	}
	offer, err := p.pc.CreateOffer()
	if err != nil {
		p.teardownLocked("create offer failed")
		return err
	}
	if err := p.sendSignal(protocol.KindOffer, *offer); err != nil {
		p.teardownLocked("offer send failed")
		return err
	}
	return nil
}

// SendChat pushes a line over the open data channel.
func (p *Peer) SendChat(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link.State() != StateConnected {
		return ErrNotConnected
	}
	if err := p.pc.SendText(text); err != nil {
		p.teardownLocked("data channel send failed")
		return err
	}
	return nil
}

// Hangup tears down the link and sends a best-effort bye. The relay
// does not enforce the bye; it is a courtesy message.
func (p *Peer) Hangup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if env, err := protocol.NewEnvelope(protocol.KindBye, p.remote, nil); err == nil {
		_ = p.sig.Send(env)
	}
	p.teardownLocked("hangup")
}

// HandleEnvelope feeds one relayed message into the link. Malformed
// payloads are discarded with a warning; the link survives.
func (p *Peer) HandleEnvelope(env *protocol.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch env.Type {
	case protocol.KindOffer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(env.Payload, &sd); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad offer payload, dropped")
			return
		}
		p.applyLocked(p.link.ReceiveOffer(env.From, sd))
	case protocol.KindAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(env.Payload, &sd); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad answer payload, dropped")
			return
		}
		p.applyLocked(p.link.ReceiveAnswer(env.From, sd))
	case protocol.KindCandidate:
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(env.Payload, &ci); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad candidate payload, dropped")
			return
		}
		p.applyLocked(p.link.ReceiveCandidate(env.From, ci))
	case protocol.KindBye:
		if env.From == p.remote {
			log.Info().Str("module", "client").Str("peer", string(env.From)).Msg("peer hung up")
			p.teardownLocked("bye")
		}
	default:
		log.Warn().Str("module", "client").Str("type", string(env.Type)).Msg("unexpected signal, dropped")
	}
}

func (p *Peer) applyLocked(eff Effect) {
	if eff.Ignored {
		return
	}

	if eff.DiscardLocalOffer {
		// Glare loss: throw away the half-negotiated connection and
		// answer the winner's offer on a fresh one.
		if p.pc != nil {
			p.pc.Close()
			p.pc = nil
		}
	}

	// A buffered candidate yields an empty effect: nothing to apply yet,
	// so no reason to open a connection before negotiation starts.
	if eff.SetRemote == nil && !eff.CreateAnswer && len(eff.ApplyCandidates) == 0 {
		return
	}

	if p.pc == nil {
		if err := p.newConnLocked(false); err != nil {
			log.Error().Err(err).Str("module", "client").Msg("new peer connection")
			p.teardownLocked("peer connection failed")
			return
		}
	}

	if eff.SetRemote != nil {
		if err := p.pc.SetRemoteDescription(*eff.SetRemote); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("unusable remote description, dropped")
			return
		}
	}

	if eff.CreateAnswer {
		answer, err := p.pc.CreateAnswer()
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("create answer failed, dropped")
			return
		}
		if err := p.link.AnswerSent(); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("answer out of order")
			return
		}
		if err := p.sendSignal(protocol.KindAnswer, *answer); err != nil {
			p.teardownLocked("answer send failed")
			return
		}
	}

	for _, ci := range eff.ApplyCandidates {
		if err := p.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("unusable candidate, dropped")
		}
	}
}

// newConnLocked builds the pion connection and wires its callbacks back
// into the link. withChannel is true on the initiator side only.
func (p *Peer) newConnLocked(withChannel bool) error {
	if p.pc != nil {
		p.pc.Close()
		p.pc = nil
	}
	pc, err := rtc.New(rtc.DefaultConfig())
	if err != nil {
		return err
	}

	pc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		// Fires from pion's goroutines; best-effort like everything else.
		if err := p.sendSignal(protocol.KindCandidate, ci); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("candidate send failed")
		}
	})
	pc.OnOpen(func() {
		p.mu.Lock()
		p.link.TransportReady()
		state := p.link.State()
		p.mu.Unlock()
		log.Info().Str("module", "client").Str("peer", string(p.remote)).Str("state", state.String()).Msg("chat channel ready")
	})
	pc.OnMessage(func(data []byte) {
		if p.onChat != nil {
			p.onChat(string(data))
		}
	})

	if withChannel {
		if err := pc.OpenChatChannel(); err != nil {
			pc.Close()
			return err
		}
	}
	p.pc = pc
	return nil
}

func (p *Peer) sendSignal(kind protocol.Kind, payload any) error {
	env, err := protocol.NewEnvelope(kind, p.remote, payload)
	if err != nil {
		return err
	}
	return p.sig.Send(env)
}

func (p *Peer) teardownLocked(reason string) {
	log.Info().Str("module", "client").Str("peer", string(p.remote)).Str("reason", reason).Msg("link teardown")
	unreachable := reason != "hangup" && reason != "bye"
	p.link.Teardown()
	if p.pc != nil {
		p.pc.Close()
		p.pc = nil
	}
	if unreachable && p.onUnreachable != nil {
		p.onUnreachable()
	}
}
