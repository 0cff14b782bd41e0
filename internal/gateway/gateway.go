// Package gateway connects game clients to the host over WebSocket.
//
// A client opens /ws and sends a hello message with its player id and name.
// After that it may send change_world requests and receives host packets
// (chat lines, position updates) as JSON text frames.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/udisondev/rtp/internal/host"
	"github.com/udisondev/rtp/internal/sched"
)

const (
	helloTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	maxMessage   = 4 * 1024
)

// Client message types.
const (
	TypeHello       = "hello"
	TypeChangeWorld = "change_world"
)

// ClientMessage is an inbound message.
type ClientMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	World string `json:"world,omitempty"`
}

// Server accepts WebSocket clients and forwards their actions to the host on
// the primary loop.
type Server struct {
	addr     string
	loop     *sched.Loop
	host     *host.Server
	upgrader websocket.Upgrader
}

// New creates a gateway listening on addr.
func New(addr string, loop *sched.Loop, h *host.Server) *Server {
	return &Server{
		addr: addr,
		loop: loop,
		host: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: helloTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("gateway shutdown", "error", err)
		}
	}()

	slog.Info("gateway started", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving gateway: %w", err)
	}
	return nil
}

// call runs fn on the primary loop and waits for it.
func call[T any](ctx context.Context, loop *sched.Loop, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	loop.Post(func() {
		v, err := fn()
		ch <- result{v, err}
	})

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	id, name, err := readHello(conn)
	if err != nil {
		slog.Debug("gateway handshake failed", "remote", r.RemoteAddr, "error", err)
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	p, err := call(r.Context(), s.loop, func() (*host.Player, error) {
		return s.host.Join(id, name)
	})
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}
	// Outbox is read here only; it is closed by the host on quit.
	outbox := p.Outbox()

	written := make(chan struct{})
	go func() {
		defer close(written)
		writePump(conn, outbox)
	}()

	s.readPump(conn, id)

	s.loop.Post(func() { s.host.Quit(id) })
	<-written
}

func readHello(conn *websocket.Conn) (uuid.UUID, string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello ClientMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return uuid.Nil, "", fmt.Errorf("reading hello: %w", err)
	}
	if hello.Type != TypeHello {
		return uuid.Nil, "", errors.New("expected hello")
	}
	id, err := uuid.Parse(hello.ID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("bad player id: %w", err)
	}
	name := strings.TrimSpace(hello.Name)
	if name == "" {
		return uuid.Nil, "", errors.New("empty player name")
	}
	return id, name, nil
}

// readPump handles client messages until the connection fails.
func (s *Server) readPump(conn *websocket.Conn, id uuid.UUID) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeChangeWorld:
			target := msg.World
			s.loop.Post(func() {
				if err := s.host.ChangeWorld(id, target); err != nil {
					slog.Debug("change world rejected", "player", id.String(), "error", err)
					if p, ok := s.host.Player(id); ok {
						p.SendError(err.Error())
					}
				}
			})
		default:
			slog.Debug("unknown client message", "player", id.String(), "type", msg.Type)
		}
	}
}

// writePump sends outbox packets until the outbox is closed or a write fails.
func writePump(conn *websocket.Conn, outbox <-chan host.Packet) {
	for pkt := range outbox {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(pkt); err != nil {
			// Unblock the reader; the host drops packets once the outbox fills.
			conn.Close()
			return
		}
	}
	closeWith(conn, websocket.CloseNormalClosure, "bye")
	conn.Close()
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(time.Second))
}
