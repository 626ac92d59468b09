// Package signal is the websocket adapter of the relay: it upgrades the
// HTTP connection, pumps frames in and out, and hands decoded envelopes
// to the app layer. It owns the socket's lifecycle; the registry only
// borrows the connection handle for routing.
package signal

import (
	"net/http"
	"sync"
	"time"

	"github.com/avelose/scraplink/internal/app"
	"github.com/avelose/scraplink/internal/config"
	"github.com/avelose/scraplink/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Controller struct {
	Registry *app.Registry
	Router   *app.Router
	Limiter  *app.SignalRateLimiter

	readLimit  int64
	pingPeriod time.Duration
	sendBuffer int
}

func NewController(reg *app.Registry, router *app.Router, limiter *app.SignalRateLimiter, cfg *config.Config) *Controller {
	return &Controller{
		Registry:   reg,
		Router:     router,
		Limiter:    limiter,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		sendBuffer: cfg.SendBuffer,
	}
}

// wsConn adapts a gorilla connection to core.SignalConnection. The send
// channel is bounded; TrySend never blocks.
type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and starts the read/write pumps.
func (ctl *Controller) HandleSignal(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		id:   uuid.NewString(),
		conn: ws,
		send: make(chan core.Frame, ctl.sendBuffer),
	}
	log.Info().Str("module", "signal").Str("cid", conn.id).Msg("new WS connection")

	go ctl.writePump(conn)
	go ctl.readPump(conn)
}
