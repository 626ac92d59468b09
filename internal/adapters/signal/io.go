package signal

import (
	"time"

	"github.com/avelose/scraplink/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *Controller) readWait() time.Duration {
	return ctl.pingPeriod + 6*time.Second
}

func (ctl *Controller) writePump(c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", c.id).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("cid", c.id).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(c *wsConn) {
	defer func() {
		// Disconnect synchronously tears down the registry binding.
		if uid, ok := ctl.Registry.IdentityOf(c); ok {
			ctl.Limiter.Forget(uid)
		}
		ctl.Registry.Unregister(c)
		c.Close()
		log.Info().Str("module", "signal").Str("cid", c.id).Msg("readPump closing")
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.readWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.readWait()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("cid", c.id).Msg("readPump read error")
			}
			return
		}
		ctl.handleFrame(c, data)
	}
}

// handleFrame classifies one inbound frame. Malformed input is never
// fatal to the connection.
func (ctl *Controller) handleFrame(c *wsConn, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", c.id).Msg("bad frame, dropped")
		return
	}

	switch {
	case env.Type == protocol.KindIdentity:
		ctl.handleIdentity(c, env)
	case env.Type.Routable():
		if uid, ok := ctl.Registry.IdentityOf(c); ok && !ctl.Limiter.Allow(uid) {
			log.Warn().Str("module", "signal").Str("user", string(uid)).Msg("rate limit exceeded, dropped")
			return
		}
		ctl.Router.Route(c, env)
	default:
		log.Warn().Str("module", "signal").Str("cid", c.id).Str("type", string(env.Type)).Msg("unknown signal")
	}
}

func (ctl *Controller) handleIdentity(c *wsConn, env *protocol.Envelope) {
	p, err := protocol.DecodeIdentity(env.Payload)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", c.id).Msg("bad identity payload, dropped")
		return
	}
	ctl.Registry.Register(p.UserID, c)
	log.Info().Str("module", "signal").Str("cid", c.id).Str("user", string(p.UserID)).Msg("identity announced")
}
