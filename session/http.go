package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/hazyhaar/domtarget/internal/shield"
	"github.com/hazyhaar/domtarget/kit"
	"github.com/hazyhaar/domtarget/payload"
)

var upgrader = websocket.Upgrader{
	// The toolbar shell is served from the inspected page's origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns the HTTP control API.
//
//	GET    /health
//	GET    /v1/selection           status and selection forest
//	POST   /v1/selection           {"xpath": "..."} select
//	DELETE /v1/selection[?xpath=]  deselect one, or clear all
//	POST   /v1/inspect             enter inspection
//	DELETE /v1/inspect             exit inspection
//	POST   /v1/submit              build and send the payload
//	GET    /v1/payloads?n=         archived payloads
//	GET    /v1/events              websocket of change events
func (s *Session) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.APIStack() {
		r.Use(mw)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(kitContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/selection", s.handleStatus)
		r.Post("/selection", s.handleSelect)
		r.Delete("/selection", s.handleDeselect)
		r.Post("/inspect", s.handleInspect(true))
		r.Delete("/inspect", s.handleInspect(false))
		r.Post("/submit", s.handleSubmit)
		r.Get("/payloads", s.handlePayloads)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// kitContext carries the chi request ID and the caller into the kit context
// keys shared with the MCP transport.
func kitContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(r.Context()))
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Session) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type selectReq struct {
	XPath string `json:"xpath"`
}

func (s *Session) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.XPath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "xpath required"})
		return
	}
	idx, err := s.Select(r.Context(), req.XPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": idx, "xpath": req.XPath})
}

func (s *Session) handleDeselect(w http.ResponseWriter, r *http.Request) {
	var err error
	if xpath := r.URL.Query().Get("xpath"); xpath != "" {
		err = s.Deselect(r.Context(), xpath)
	} else {
		err = s.Clear(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Session) handleInspect(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		if on {
			err = s.EnterInspection(r.Context())
		} else {
			err = s.ExitInspection(r.Context())
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"inspecting": on})
	}
}

func (s *Session) handleSubmit(w http.ResponseWriter, r *http.Request) {
	p, err := s.Submit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Session) handlePayloads(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no payload history configured"})
		return
	}
	n := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && v > 0 && v <= 500 {
		n = v
	}
	list, err := s.Recent(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []payload.Payload{}
	}
	writeJSON(w, http.StatusOK, list)
}

const wsWriteTimeout = 5 * time.Second

func (s *Session) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("session: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.Subscribe()
	defer cancel()

	// The reader only detects the client going away.
	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("session: websocket write failed", "error", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrIgnored), errors.Is(err, ErrEmptySelection):
		code = http.StatusConflict
	case errors.Is(err, ErrClosed):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusRequestTimeout
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
