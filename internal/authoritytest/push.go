package authoritytest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const pushQueue = 16

// hub fans snapshot pushes out to every connected websocket. Each connection
// gets a bounded queue and its own writer goroutine; a full queue drops the
// message for that connection only.
type hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: map[*websocket.Conn]chan []byte{},
	}
}

// Connections reports how many push sockets are attached.
func (s *Server) Connections() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return len(s.hub.conns)
}

// Broadcast pushes the full current snapshot to every connection.
func (s *Server) Broadcast() {
	s.mu.Lock()
	msg := s.snapshotLocked()
	s.mu.Unlock()
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.hub.send(b)
}

// PushRaw sends b verbatim, for partial or malformed pushes.
func (s *Server) PushRaw(b []byte) {
	s.hub.send(append([]byte(nil), b...))
}

func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	out := make(chan []byte, pushQueue)
	s.hub.mu.Lock()
	s.hub.conns[conn] = out
	s.hub.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for b := range out {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}()

	// Greet with the current state, as the real authority does on connect.
	s.Broadcast()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.drop(conn)
	<-done
	_ = conn.Close()
}

func (h *hub) send(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.conns {
		select {
		case out <- b:
		default:
		}
	}
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.conns[conn]; ok {
		close(out)
		delete(h.conns, conn)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(time.Second))
		_ = c.Close()
	}
}
