package app

import (
	"errors"

	"github.com/avelose/scraplink/internal/core"
	"github.com/avelose/scraplink/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Router forwards signal envelopes between registered connections.
// It keeps no state between calls: every decision is a function of the
// current registry snapshot and the incoming message. Delivery is
// best-effort, at-most-once; anything undeliverable is dropped, logged,
// and never fatal to the sending connection.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// Route validates env and forwards it to the connection currently bound
// to env.To. The sender's identity is derived from the registry's
// reverse mapping of sender and rewritten into the envelope; a
// client-supplied From is never trusted.
func (ro *Router) Route(sender core.SignalConnection, env *protocol.Envelope) {
	if !env.Type.Routable() {
		log.Warn().Str("module", "app.router").Str("type", string(env.Type)).Msg("unroutable message type, dropped")
		return
	}

	from, ok := ro.reg.IdentityOf(sender)
	if !ok {
		// A client must announce its identity before it may relay.
		log.Warn().Str("module", "app.router").Str("type", string(env.Type)).Msg("message from unannounced connection, dropped")
		return
	}

	if env.To == "" {
		log.Warn().Str("module", "app.router").Str("from", string(from)).Str("type", string(env.Type)).Msg("message without destination, dropped")
		return
	}

	dest, ok := ro.reg.Resolve(env.To)
	if !ok {
		// Peer offline: no mailbox, no error to the sender.
		log.Debug().Str("module", "app.router").Str("from", string(from)).Str("to", string(env.To)).Str("type", string(env.Type)).Msg("destination offline, dropped")
		return
	}

	env.From = from
	data, err := env.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("encode for forward")
		return
	}

	if err := dest.TrySend(data); err != nil {
		if errors.Is(err, core.ErrBackpressure) {
			log.Warn().Str("module", "app.router").Str("to", string(env.To)).Str("type", string(env.Type)).Msg("destination buffer full, dropped")
			return
		}
		log.Warn().Err(err).Str("module", "app.router").Str("to", string(env.To)).Msg("forward failed, dropped")
	}
}
