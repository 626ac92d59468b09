// Package rtc wraps a pion PeerConnection carrying one chat data
// channel. The negotiation decisions live in internal/client; this
// wrapper only executes them against the real connection.
package rtc

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const chatChannelLabel = "chatChannel"

type PeerConnection struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	onICE     func(webrtc.ICECandidateInit)
	onOpen    func()
	onMessage func([]byte)
	onClosed  func()
}

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

func New(cfg webrtc.Configuration) (*PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &PeerConnection{pc: pc}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			if c.onClosed != nil {
				c.onClosed()
			}
		}
	})

	// Responder side: adopt the channel the initiator created.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Info().Str("module", "rtc").Str("label", dc.Label()).Msg("remote data channel")
		c.adoptChannel(dc)
	})

	return c, nil
}

func (c *PeerConnection) adoptChannel(dc *webrtc.DataChannel) {
	c.dc = dc
	dc.OnOpen(func() {
		log.Info().Str("module", "rtc").Str("label", dc.Label()).Msg("data channel open")
		if c.onOpen != nil {
			c.onOpen()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if c.onMessage != nil {
			c.onMessage(msg.Data)
		}
	})
}

// OpenChatChannel creates the data channel on the initiator side. It
// must run before CreateOffer: a channel created after the offer leaves
// the remote side without a negotiated channel of its own.
func (c *PeerConnection) OpenChatChannel() error {
	dc, err := c.pc.CreateDataChannel(chatChannelLabel, nil)
	if err != nil {
		return err
	}
	c.adoptChannel(dc)
	return nil
}

func (c *PeerConnection) CreateOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (c *PeerConnection) SetRemoteDescription(sd webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sd)
}

func (c *PeerConnection) CreateAnswer() (*webrtc.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

func (c *PeerConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *PeerConnection) SendText(text string) error {
	if c.dc == nil {
		return webrtc.ErrConnectionClosed
	}
	return c.dc.SendText(text)
}

func (c *PeerConnection) Close() {
	if c.dc != nil {
		if err := c.dc.Close(); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("data channel close")
		}
	}
	if c.pc != nil {
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("close error")
		} else {
			log.Info().Str("module", "rtc").Msg("closed")
		}
	}
}

func (c *PeerConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }
func (c *PeerConnection) OnOpen(fn func())                                { c.onOpen = fn }
func (c *PeerConnection) OnMessage(fn func([]byte))                       { c.onMessage = fn }
func (c *PeerConnection) OnClosed(fn func())                              { c.onClosed = fn }
