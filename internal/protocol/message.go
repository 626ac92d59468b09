// Package protocol defines the wire envelope exchanged between clients
// and the relay. The relay classifies envelopes by kind and never looks
// inside Payload; payloads are opaque until the client decodes them.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/avelose/scraplink/internal/domain"
)

// Kind discriminates the signal message variants.
type Kind string

const (
	// KindIdentity announces the UserID for a fresh connection. It must
	// be accepted before any routable message from that connection.
	KindIdentity Kind = "identity"

	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "candidate"

	// KindBye is a best-effort courtesy notice that the sender tore down
	// its peer link. The relay routes it like any other message.
	KindBye Kind = "bye"
)

// Known reports whether k is part of the protocol at all.
func (k Kind) Known() bool {
	switch k {
	case KindIdentity, KindOffer, KindAnswer, KindCandidate, KindBye:
		return true
	}
	return false
}

// Routable reports whether k is relayed to a destination user.
func (k Kind) Routable() bool {
	switch k {
	case KindOffer, KindAnswer, KindCandidate, KindBye:
		return true
	}
	return false
}

// Envelope is the transport-agnostic signal message. From is rewritten
// by the relay to the sender's registered identity before forwarding;
// whatever the client put there is discarded.
type Envelope struct {
	Type    Kind            `json:"type"`
	From    domain.UserID   `json:"from,omitempty"`
	To      domain.UserID   `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// IdentityPayload is the payload of a KindIdentity envelope.
type IdentityPayload struct {
	UserID domain.UserID `json:"userId"`
}

func DecodeIdentity(payload json.RawMessage) (*IdentityPayload, error) {
	var p IdentityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode identity payload: %w", err)
	}
	if err := p.UserID.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewEnvelope marshals payload and wraps it. From is left empty on
// purpose for outbound client messages: the relay fills it in.
func NewEnvelope(kind Kind, to domain.UserID, payload any) (*Envelope, error) {
	env := &Envelope{Type: kind, To: to}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		env.Payload = raw
	}
	return env, nil
}
