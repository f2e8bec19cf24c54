package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"treepilot/core"
	"treepilot/detail"
	"treepilot/interaction"
	"treepilot/layout"
	"treepilot/metrics"
	"treepilot/source"
	"treepilot/view"
	"treepilot/viewport"
)

// session is one server-side view driven by a remote client.
type session struct {
	id      string
	view    *view.View
	created time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// sessionStore owns the live sessions and closes the idle ones.
type sessionStore struct {
	ttl     time.Duration
	max     int
	logger  *zap.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore(ttl time.Duration, max int, logger *zap.Logger, m *metrics.Collector) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		max:      max,
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*session),
	}
}

func (st *sessionStore) add(v *view.View) (*session, error) {
	now := time.Now()
	sess := &session{id: uuid.NewString(), view: v, created: now, lastUsed: now}

	st.mu.Lock()
	if st.max > 0 && len(st.sessions) >= st.max {
		st.mu.Unlock()
		return nil, errTooManySessions
	}
	st.sessions[sess.id] = sess
	st.mu.Unlock()

	st.metrics.ViewOpened()
	st.logger.Info("view session opened", zap.String("session_id", sess.id), zap.String("person_id", v.PersonID()))
	return sess, nil
}

func (st *sessionStore) get(id string) (*session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	sess.touch(time.Now())
	return sess, nil
}

func (st *sessionStore) remove(id string) bool {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return false
	}
	sess.view.Close()
	st.metrics.ViewClosed()
	st.logger.Info("view session closed", zap.String("session_id", id))
	return true
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// reap closes sessions idle since before now minus the TTL and returns how many.
func (st *sessionStore) reap(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}
	var idle []string
	st.mu.RLock()
	for id, sess := range st.sessions {
		if now.Sub(sess.idleSince()) > st.ttl {
			idle = append(idle, id)
		}
	}
	st.mu.RUnlock()

	n := 0
	for _, id := range idle {
		if st.remove(id) {
			n++
		}
	}
	return n
}

func (st *sessionStore) reapEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := st.reap(now); n > 0 {
				st.logger.Info("reaped idle view sessions", zap.Int("count", n))
			}
		}
	}
}

func (st *sessionStore) closeAll() {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()
	for _, id := range ids {
		st.remove(id)
	}
}

// viewSnapshot is the JSON state of a session.
type viewSnapshot struct {
	ID           string               `json:"id"`
	PersonID     string               `json:"personId"`
	Kind         source.Kind          `json:"mode"`
	Layout       *layout.Result       `json:"layout"`
	Transform    viewport.Transform   `json:"transform"`
	Depths       view.Depths          `json:"depths"`
	Placeholders []string             `json:"placeholders,omitempty"`
	Popover      interaction.Snapshot `json:"popover"`
	Detail       *detailPayload       `json:"detail,omitempty"`
}

// detailPayload adds the inline error text to a detail entry.
type detailPayload struct {
	detail.Entry
	Error string `json:"error,omitempty"`
}

func newDetailPayload(e detail.Entry) *detailPayload {
	if e.ID == "" {
		return nil
	}
	return &detailPayload{Entry: e, Error: e.Message()}
}

func snapshotOf(sess *session) viewSnapshot {
	v := sess.view
	return viewSnapshot{
		ID:           sess.id,
		PersonID:     v.PersonID(),
		Kind:         v.Kind(),
		Layout:       v.Result(),
		Transform:    v.Viewport().Transform(),
		Depths:       v.Depths(),
		Placeholders: v.Placeholders(),
		Popover:      v.Interaction().Snapshot(),
		Detail:       newDetailPayload(v.Detail()),
	}
}

type createViewRequest struct {
	PersonID    string  `json:"personId"`
	Mode        string  `json:"mode"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Ancestors   *int    `json:"ancestors"`
	Descendants *int    `json:"descendants"`
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.PersonID == "" {
		s.respondError(w, r, fmt.Errorf("%w: personId is required", errBadRequest))
		return
	}
	kind, err := source.ParseKind(req.Mode)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Width <= 0 {
		req.Width = defaultWidth
	}
	if req.Height <= 0 {
		req.Height = defaultHeight
	}

	opts := s.viewOpts
	if req.Ancestors != nil {
		opts.AncestorDepth = *req.Ancestors
	}
	if req.Descendants != nil {
		opts.DescendantDepth = *req.Descendants
	}
	v := view.New(view.Deps{
		Trees:   s.provider,
		Details: s.details,
		Clock:   s.clock,
		Logger:  s.logger,
		Metrics: s.metrics,
	}, opts)
	v.Resize(req.Width, req.Height)
	if err := v.Load(r.Context(), req.PersonID, kind); err != nil {
		v.Close()
		s.respondError(w, r, err)
		return
	}

	sess, err := s.sessions.add(v)
	if err != nil {
		v.Close()
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, snapshotOf(sess))
}

// withSession resolves the {vid} parameter and runs fn with the session.
func (s *Server) withSession(fn func(w http.ResponseWriter, r *http.Request, sess *session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.get(chi.URLParam(r, "vid"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := fn(w, r, sess); err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, snapshotOf(sess))
	}
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(http.ResponseWriter, *http.Request, *session) error { return nil })(w, r)
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(chi.URLParam(r, "vid")) {
		s.respondError(w, r, errSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pointerRequest struct {
	Event string  `json:"event"`
	Key   string  `json:"key"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func (s *Server) pointer(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) error {
		var req pointerRequest
		if err := decodeBody(w, r, &req); err != nil {
			return err
		}
		switch req.Event {
		case "enter":
			if req.Key == "" {
				return fmt.Errorf("%w: enter needs a key", errBadRequest)
			}
			sess.view.PointerEnter(req.Key)
		case "leave":
			if req.Key == "" {
				return fmt.Errorf("%w: leave needs a key", errBadRequest)
			}
			sess.view.PointerLeave(req.Key)
		case "move":
			sess.view.PointerMove(core.Point{X: req.X, Y: req.Y})
		default:
			return fmt.Errorf("%w: unknown pointer event %q", errBadRequest, req.Event)
		}
		return nil
	})(w, r)
}

type pinRequest struct {
	Key string `json:"key"`
}

func (s *Server) pin(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) error {
		var req pinRequest
		if r.ContentLength != 0 {
			if err := decodeBody(w, r, &req); err != nil {
				return err
			}
		}
		if req.Key != "" {
			if _, ok := sess.view.Result().Find(req.Key); !ok {
				return fmt.Errorf("%w: no node %q in view", errBadRequest, req.Key)
			}
			sess.view.PinNode(req.Key)
			return nil
		}
		if !sess.view.Pin() {
			return fmt.Errorf("%w: nothing is hovered", errBadRequest)
		}
		return nil
	})(w, r)
}

func (s *Server) unpin(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, _ *http.Request, sess *session) error {
		sess.view.Unpin()
		return nil
	})(w, r)
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) pan(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) error {
		var req panRequest
		if err := decodeBody(w, r, &req); err != nil {
			return err
		}
		sess.view.Pan(req.DX, req.DY)
		return nil
	})(w, r)
}

type zoomRequest struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	// Fit resets to the fit transform instead of zooming.
	Fit bool `json:"fit"`
}

func (s *Server) zoom(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) error {
		var req zoomRequest
		if err := decodeBody(w, r, &req); err != nil {
			return err
		}
		if req.Fit {
			sess.view.Refit()
			return nil
		}
		if req.Factor <= 0 {
			return fmt.Errorf("%w: factor must be positive", errBadRequest)
		}
		sess.view.ZoomAt(req.Factor, core.Point{X: req.X, Y: req.Y})
		return nil
	})(w, r)
}

type depthRequest struct {
	Direction core.Direction `json:"direction"`
	Depth     int            `json:"depth"`
}

func (s *Server) depth(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) error {
		var req depthRequest
		if err := decodeBody(w, r, &req); err != nil {
			return err
		}
		if req.Direction != core.DirectionAncestor && req.Direction != core.DirectionDescendant {
			return fmt.Errorf("%w: direction must be ancestor or descendant", errBadRequest)
		}
		return sess.view.SetDepth(r.Context(), req.Direction, req.Depth)
	})(w, r)
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) resize(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *session) error {
		var req resizeRequest
		if err := decodeBody(w, r, &req); err != nil {
			return err
		}
		if req.Width < 0 || req.Height < 0 {
			return fmt.Errorf("%w: size must not be negative", errBadRequest)
		}
		sess.view.Resize(req.Width, req.Height)
		return nil
	})(w, r)
}
