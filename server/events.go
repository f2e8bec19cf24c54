package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"treepilot/interaction"
	"treepilot/view"
	"treepilot/viewport"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware already restricts origins for the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wireEvent is the JSON form of a view event.
type wireEvent struct {
	Kind      view.EventKind        `json:"kind"`
	Transform *viewport.Transform   `json:"transform,omitempty"`
	Popover   *interaction.Snapshot `json:"popover,omitempty"`
	Detail    *detailPayload        `json:"detail,omitempty"`
	Error     string                `json:"error,omitempty"`
}

func (s *Server) toWire(sess *session, e view.Event) wireEvent {
	out := wireEvent{Kind: e.Kind, Popover: e.Popover}
	switch e.Kind {
	case view.EventTransform, view.EventLayout:
		t := sess.view.Viewport().Transform()
		out.Transform = &t
	case view.EventDetail:
		if e.Detail != nil {
			out.Detail = newDetailPayload(*e.Detail)
		}
	case view.EventError:
		if e.Err != nil {
			out.Error = e.Err.Error()
		}
	}
	return out
}

// events streams view events over a websocket until either side closes.
// Slow clients lose events rather than block the view.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "vid"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	log := s.logger.With(zap.String("session_id", sess.id))

	send := make(chan wireEvent, sendBuffer)
	done := make(chan struct{})
	unsubscribe := sess.view.Subscribe(func(e view.Event) {
		select {
		case send <- s.toWire(sess, e):
		case <-done:
		default:
			log.Debug("dropping view event for slow client", zap.String("kind", string(e.Kind)))
		}
	})

	go s.writeEvents(conn, send, done, log)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		sess.touch(time.Now())
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket closed", zap.Error(err))
			}
			break
		}
	}
	unsubscribe()
	close(done)
}

func (s *Server) writeEvents(conn *websocket.Conn, send <-chan wireEvent, done <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case e := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
