package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/avelose/scraplink/internal/domain"
	"github.com/avelose/scraplink/internal/protocol"
	"github.com/gorilla/websocket"
)

// Signaling is the client end of the relay's websocket protocol. It
// announces the identity right after dialing; the relay drops anything
// routable sent before that.
type Signaling struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func Dial(ctx context.Context, url string, uid domain.UserID) (*Signaling, error) {
	if err := uid.Validate(); err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial signaling %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s := &Signaling{conn: conn}
	env, err := protocol.NewEnvelope(protocol.KindIdentity, "", protocol.IdentityPayload{UserID: uid})
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Send(env); err != nil {
		s.Close()
		return nil, fmt.Errorf("announce identity: %w", err)
	}
	return s, nil
}

func (s *Signaling) Send(env *protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Read blocks for the next envelope. Returns an error once the
// connection is gone; malformed frames are surfaced, not fatal.
func (s *Signaling) Read() (*protocol.Envelope, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(data)
}

func (s *Signaling) Close() {
	_ = s.conn.Close()
}
