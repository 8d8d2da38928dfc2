package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jastley/resume-ranker/internal/ranking"
)

// writeTimeout bounds every event write. A client that stops reading must
// surface as a sink error, not block the emitter's drain goroutine: a blocked
// drain fills the event buffer, which in turn stalls every worker emitting
// into it.
var writeTimeout = 10 * time.Second

// wsSink delivers run events over a websocket connection. gorilla/websocket
// permits a single concurrent writer, and the handler writes its own error
// event outside the emitter, so writes are serialized here.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

func (s *wsSink) Send(event ranking.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}
