package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pixelplaza/server/internal/net/proto"
)

const writeWait = 10 * time.Second

// Session wraps one websocket connection behind the hub's Session interface.
// The mutex serializes writes; gorilla connections allow only one concurrent
// writer.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{conn: conn}
}

// Send frames and writes one server event.
func (s *Session) Send(event string, payload any) error {
	data, err := proto.EncodeEvent(event, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears down the transport. The read loop's error return completes
// the cleanup.
func (s *Session) Close() {
	s.conn.Close()
}
