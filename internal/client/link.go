// Package client holds the peer side of the protocol: the negotiation
// state machine per remote peer, the signaling dialer, and the glue
// that drives a real peer connection from both.
package client

import (
	"errors"
	"fmt"

	"github.com/avelose/scraplink/internal/domain"
	"github.com/pion/webrtc/v4"
)

type State int

const (
	StateIdle State = iota
	StateOfferSent
	StateOfferReceived
	StateAnswerExchanged
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOfferSent:
		return "offer_sent"
	case StateOfferReceived:
		return "offer_received"
	case StateAnswerExchanged:
		return "answer_exchanged"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

type Role int

const (
	RoleUndetermined Role = iota
	RoleInitiator
	RoleResponder
)

var (
	ErrNotIdle       = errors.New("link is not idle")
	ErrNotNegotiable = errors.New("link cannot accept this event in its current state")
)

// Effect tells the caller what to do against the real peer connection
// after an event was applied. The machine itself never touches
// transports, which keeps glare and ordering testable in isolation.
type Effect struct {
	// Ignored: event came from an unexpected peer or an inapplicable
	// state; nothing to do.
	Ignored bool

	// SetRemote: apply this remote description.
	SetRemote *webrtc.SessionDescription

	// CreateAnswer: after SetRemote, produce and send an answer.
	CreateAnswer bool

	// DiscardLocalOffer: glare loss; the local offer and its
	// half-configured connection must be thrown away before answering.
	DiscardLocalOffer bool

	// ApplyCandidates: candidates to hand to the connection now, in
	// arrival order (buffered ones drain first).
	ApplyCandidates []webrtc.ICECandidateInit
}

// Link is the negotiation state per remote peer. Not safe for
// concurrent use; the owner serializes events onto it.
type Link struct {
	local  domain.UserID
	remote domain.UserID

	state     State
	role      Role
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func NewLink(local, remote domain.UserID) *Link {
	return &Link{local: local, remote: remote}
}

func (l *Link) State() State          { return l.state }
func (l *Link) Role() Role            { return l.role }
func (l *Link) Remote() domain.UserID { return l.remote }

// CreateOffer moves an idle link to OfferSent. The caller must have
// opened its data channel before producing the offer it sends.
func (l *Link) CreateOffer() error {
	if l.state != StateIdle {
		return fmt.Errorf("%w: state %s", ErrNotIdle, l.state)
	}
	l.state = StateOfferSent
	l.role = RoleInitiator
	return nil
}

// ReceiveOffer handles an inbound offer. In OfferSent it applies the
// glare rule: the lexicographically smaller user id keeps the
// initiator role; the other side discards its own offer and answers.
// The rule is symmetric, so both ends converge without a coordinator.
func (l *Link) ReceiveOffer(from domain.UserID, offer webrtc.SessionDescription) Effect {
	if from != l.remote {
		return Effect{Ignored: true}
	}

	switch l.state {
	case StateIdle:
		l.state = StateOfferReceived
		l.role = RoleResponder
		l.remoteSet = true
		return Effect{
			SetRemote:       &offer,
			CreateAnswer:    true,
			ApplyCandidates: l.drainPending(),
		}
	case StateOfferSent:
		if l.local < l.remote {
			// We keep the initiator role; the peer will yield and answer.
			return Effect{Ignored: true}
		}
		l.state = StateOfferReceived
		l.role = RoleResponder
		l.remoteSet = true
		return Effect{
			SetRemote:         &offer,
			CreateAnswer:      true,
			DiscardLocalOffer: true,
			ApplyCandidates:   l.drainPending(),
		}
	default:
		return Effect{Ignored: true}
	}
}

// ReceiveAnswer completes the exchange on the initiator side. Answers
// from any peer other than the expected remote are ignored.
func (l *Link) ReceiveAnswer(from domain.UserID, answer webrtc.SessionDescription) Effect {
	if from != l.remote || l.state != StateOfferSent {
		return Effect{Ignored: true}
	}
	l.state = StateAnswerExchanged
	l.remoteSet = true
	return Effect{
		SetRemote:       &answer,
		ApplyCandidates: l.drainPending(),
	}
}

// AnswerSent marks the responder's side of the exchange complete once
// its answer went out.
func (l *Link) AnswerSent() error {
	if l.state != StateOfferReceived {
		return fmt.Errorf("%w: state %s", ErrNotNegotiable, l.state)
	}
	l.state = StateAnswerExchanged
	return nil
}

// ReceiveCandidate buffers the candidate while the remote description
// is unset; the relay gives no ordering guarantee between a description
// and the candidates trailing it.
func (l *Link) ReceiveCandidate(from domain.UserID, cand webrtc.ICECandidateInit) Effect {
	if from != l.remote {
		return Effect{Ignored: true}
	}
	if !l.remoteSet {
		l.pending = append(l.pending, cand)
		return Effect{}
	}
	return Effect{ApplyCandidates: []webrtc.ICECandidateInit{cand}}
}

// PendingCandidates reports how many candidates wait for the remote
// description.
func (l *Link) PendingCandidates() int { return len(l.pending) }

// TransportReady moves the link to Connected once the data channel is
// open. A no-op in any state but AnswerExchanged.
func (l *Link) TransportReady() {
	if l.state == StateAnswerExchanged {
		l.state = StateConnected
	}
}

// Teardown resets the link to Idle, dropping buffered candidates and
// the negotiated role. Used for hangups, bye messages, transport loss
// and unreachable peers alike.
func (l *Link) Teardown() {
	l.state = StateIdle
	l.role = RoleUndetermined
	l.remoteSet = false
	l.pending = nil
}

func (l *Link) drainPending() []webrtc.ICECandidateInit {
	out := l.pending
	l.pending = nil
	return out
}
