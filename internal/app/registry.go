package app

import (
	"sync"
	"time"

	"github.com/avelose/scraplink/internal/core"
	"github.com/avelose/scraplink/internal/domain"
	"github.com/rs/zerolog/log"
)

// Session binds a user identity to its currently-live signal connection.
type Session struct {
	UserID   domain.UserID
	Conn     core.SignalConnection
	JoinedAt time.Time
}

// Registry owns the userID -> connection binding and its lifecycle.
// At most one session per user; a re-registration silently supersedes
// the old one, leaving the old connection open (the transport's own
// close event drives its removal, not this replacement).
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*Session
	byConn map[core.SignalConnection]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]*Session),
		byConn: make(map[core.SignalConnection]domain.UserID),
	}
}

// Register binds uid to conn, replacing any prior binding for uid.
// The superseded connection loses its reverse mapping so it can no
// longer send or be routed to, but it is not closed here.
func (r *Registry) Register(uid domain.UserID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[uid]; ok && old.Conn != conn {
		delete(r.byConn, old.Conn)
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("superseded previous session")
	}
	// A connection re-announcing as a different user abandons its old identity.
	if prev, ok := r.byConn[conn]; ok && prev != uid {
		if s, ok := r.byUser[prev]; ok && s.Conn == conn {
			delete(r.byUser, prev)
		}
	}
	r.byUser[uid] = &Session{UserID: uid, Conn: conn, JoinedAt: time.Now()}
	r.byConn[conn] = uid
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("registered session")
}

// Resolve returns the live connection for uid, if any.
func (r *Registry) Resolve(uid domain.UserID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[uid]
	if !ok {
		return nil, false
	}
	return s.Conn, true
}

// IdentityOf is the reverse lookup: the authoritative identity bound to
// a connection. The router trusts this, never a client-asserted "from".
func (r *Registry) IdentityOf(conn core.SignalConnection) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.byConn[conn]
	return uid, ok
}

// Unregister removes the session owned by conn. Idempotent: an unknown
// or already-removed connection is a no-op. A superseded connection's
// close must not evict the user's new session; the reverse map already
// forgot it, so nothing happens here.
func (r *Registry) Unregister(conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)
	if s, ok := r.byUser[uid]; ok && s.Conn == conn {
		delete(r.byUser, uid)
	}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("unregistered session")
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Shutdown closes every live connection and clears the registry. Tied
// to server stop; after it the registry is empty but still usable.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	conns := make([]core.SignalConnection, 0, len(r.byConn))
	for conn := range r.byConn {
		conns = append(conns, conn)
	}
	r.byUser = make(map[domain.UserID]*Session)
	r.byConn = make(map[core.SignalConnection]domain.UserID)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	log.Info().Str("module", "app.registry").Int("closed", len(conns)).Msg("registry shutdown")
}
