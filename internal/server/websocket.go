package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/snapsync/snapsync/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// session is one producer connection. When the client connected with
// ?cleanup=1, the entities it fed are removed from the engine on
// disconnect (the despawn hook); otherwise they persist until removed
// explicitly, matching the engine's no-implicit-expiry contract.
type session struct {
	id      string
	conn    *websocket.Conn
	cleanup bool

	mu    sync.Mutex
	owned map[string]struct{}

	closeOnce sync.Once
}

func (sess *session) own(entityID string) {
	sess.mu.Lock()
	sess.owned[entityID] = struct{}{}
	sess.mu.Unlock()
}

func (sess *session) disown(entityID string) {
	sess.mu.Lock()
	delete(sess.owned, entityID)
	sess.mu.Unlock()
}

func (sess *session) ownedEntities() []string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	ids := make([]string, 0, len(sess.owned))
	for id := range sess.owned {
		ids = append(ids, id)
	}
	return ids
}

func (sess *session) close() {
	sess.closeOnce.Do(func() {
		_ = sess.conn.Close()
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", log.Error(err))
		}
		return
	}

	sess := &session{
		id:      uuid.NewString(),
		conn:    conn,
		cleanup: r.URL.Query().Get("cleanup") == "1",
		owned:   make(map[string]struct{}),
	}

	s.sessions.Store(sess.id, sess)
	atomic.AddInt64(&s.sessionCount, 1)
	if s.logger != nil {
		s.logger.Info("session opened",
			log.String("session", sess.id),
			log.String("remote", conn.RemoteAddr().String()),
			log.Bool("cleanup", sess.cleanup),
		)
	}

	defer func() {
		s.sessions.Delete(sess.id)
		atomic.AddInt64(&s.sessionCount, -1)
		sess.close()
		if sess.cleanup {
			for _, id := range sess.ownedEntities() {
				s.engine.RemoveEntity(id)
			}
		}
		if s.logger != nil {
			s.logger.Info("session closed", log.String("session", sess.id))
		}
	}()

	s.readLoop(sess)
}

func (s *Server) readLoop(sess *session) {
	sess.conn.SetReadLimit(s.cfg.MaxMessageSize)

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if s.logger != nil {
					s.logger.Warn("session read failed", log.String("session", sess.id), log.Error(err))
				}
			}
			return
		}

		if err := s.dispatch(sess, data); err != nil {
			// Malformed frames are the producer's problem; keep the
			// stream alive.
			if s.logger != nil {
				s.logger.Warn("message dropped", log.String("session", sess.id), log.Error(err))
			}
		}
	}
}

func (s *Server) dispatch(sess *session, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.EntityID == "" {
		return fmt.Errorf("%w: missing entityId", ErrInvalidMessage)
	}

	switch env.Type {
	case MessageSnapshot:
		if env.Snapshot == nil {
			return fmt.Errorf("%w: snapshot message without snapshot", ErrInvalidMessage)
		}
		s.engine.AddSnapshot(env.EntityID, *env.Snapshot)
		sess.own(env.EntityID)
		return nil
	case MessageRemove:
		s.engine.RemoveEntity(env.EntityID)
		sess.disown(env.EntityID)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}
}
