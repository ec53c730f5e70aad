// Package gateway exposes the match operations over a JSON HTTP API
// plus a websocket state stream per match. It owns spectator presence:
// counts come from its live websocket subscriptions and are stamped
// onto outgoing views, never written into the session.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/chess-match-server/internal/broadcast"
	"github.com/park285/chess-match-server/internal/match"
	"github.com/park285/chess-match-server/internal/obslog"
	"github.com/park285/chess-match-server/internal/registry"
	"github.com/park285/chess-match-server/pkg/matchdto"
)

type Server struct {
	reg      *registry.Registry
	sub      broadcast.Subscriber
	presence *presence
}

func New(reg *registry.Registry, sub broadcast.Subscriber) *Server {
	return &Server{reg: reg, sub: sub, presence: newPresence()}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/match", s.handleCreate)
	mux.HandleFunc("POST /api/match/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/match/{id}/connect", s.handleConnect)
	mux.HandleFunc("POST /api/match/{id}/robot", s.handleRobot)
	mux.HandleFunc("POST /api/match/{id}/move", s.handleMove)
	mux.HandleFunc("POST /api/match/{id}/resign", s.handleResign)
	mux.HandleFunc("POST /api/match/{id}/leave", s.handleLeave)
	mux.HandleFunc("GET /api/match/{id}/role", s.handleRole)
	mux.HandleFunc("GET /api/match/{id}/state", s.handleState)
	mux.HandleFunc("GET /api/match/{id}/destinations", s.handleDestinations)
	mux.HandleFunc("GET /ws/match/{id}", s.handleWS)
	return mux
}

type identityRequest struct {
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
}

type robotRequest struct {
	Seat string `json:"seat"`
}

type moveRequest struct {
	Token     string `json:"token"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type joinResponse struct {
	ID    string              `json:"id"`
	Seat  string              `json:"seat"`
	Role  string              `json:"role"`
	State *matchdto.StateView `json:"state"`
}

type destinationsResponse struct {
	Square  string   `json:"square"`
	Squares []string `json:"squares"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.reg.Create(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	seat, view, err := a.Join(r.Context(), req.Token, req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), view)
	writeJSON(w, http.StatusCreated, joinResponse{
		ID:    a.ID(),
		Seat:  string(seat),
		Role:  "player",
		State: view,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	seat, view, err := a.Join(r.Context(), req.Token, req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), view)
	writeJSON(w, http.StatusOK, joinResponse{
		ID:    a.ID(),
		Seat:  string(seat),
		Role:  "player",
		State: view,
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	res, err := a.Connect(r.Context(), req.Token)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), res.State)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRobot(w http.ResponseWriter, r *http.Request) {
	var req robotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	view, err := a.AddRobot(r.Context(), req.Seat)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	view, err := a.ApplyMove(r.Context(), req.Token, req.From, req.To, req.Promotion)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	view, err := a.Resign(r.Context(), req.Token)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), view)
	writeJSON(w, http.StatusOK, view)
}

// handleLeave is fire-and-forget; it acknowledges as soon as the
// message is posted to the actor.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	a.Leave(req.Token)
	w.WriteHeader(http.StatusAccepted)
}

// handleRole is the read-only counterpart of connect: it answers "who
// am I in this match" without marking anyone connected.
func (s *Server) handleRole(w http.ResponseWriter, r *http.Request) {
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	res, err := a.Role(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), res.State)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	view, err := a.State(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	s.stamp(a.ID(), view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDestinations(w http.ResponseWriter, r *http.Request) {
	a, err := s.resolve(w, r)
	if err != nil {
		return
	}
	q := r.URL.Query()
	squares, err := a.Destinations(r.Context(), q.Get("token"), q.Get("square"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if squares == nil {
		squares = []string{}
	}
	writeJSON(w, http.StatusOK, destinationsResponse{
		Square:  q.Get("square"),
		Squares: squares,
	})
}

// resolve looks the actor up and writes the error response itself on
// failure, so handlers can return on a non-nil error without touching w.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*match.Actor, error) {
	a, err := s.reg.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return nil, err
	}
	return a, nil
}

// stamp writes the gateway-owned spectator count onto an outgoing view.
func (s *Server) stamp(matchID string, view *matchdto.StateView) {
	if view != nil {
		view.Spectators = s.presence.count(matchID)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, matchdto.DomainError{
			Code:    "malformed_request",
			Message: "malformed request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		obslog.L().Debug("gateway_write_failed", zap.Error(err))
	}
}

// writeErr maps core sentinels to the caller-facing error codes.
func writeErr(w http.ResponseWriter, err error) {
	code, status := matchdto.CodeNotFound, http.StatusInternalServerError
	retryable := false
	switch {
	case errors.Is(err, match.ErrSlotTaken):
		code, status = matchdto.CodeSlotTaken, http.StatusConflict
	case errors.Is(err, match.ErrRobotAlreadyPresent):
		code, status = matchdto.CodeRobotAlreadyPresent, http.StatusConflict
	case errors.Is(err, match.ErrInvalidSeat):
		code, status = matchdto.CodeInvalidSeat, http.StatusBadRequest
	case errors.Is(err, match.ErrNotAuthorized):
		code, status = matchdto.CodeNotAuthorized, http.StatusForbidden
	case errors.Is(err, match.ErrNotYourTurn):
		code, status = matchdto.CodeNotYourTurn, http.StatusConflict
	case errors.Is(err, match.ErrGameNotActive):
		code, status = matchdto.CodeGameNotActive, http.StatusConflict
	case errors.Is(err, match.ErrEmptySquare):
		code, status = matchdto.CodeEmptySquare, http.StatusBadRequest
	case errors.Is(err, match.ErrInvalidSquare):
		code, status = matchdto.CodeInvalidSquare, http.StatusBadRequest
	case errors.Is(err, match.ErrIllegalMove):
		code, status = matchdto.CodeIllegalMove, http.StatusUnprocessableEntity
	case errors.Is(err, match.ErrNotFound):
		code, status = matchdto.CodeNotFound, http.StatusNotFound
	case errors.Is(err, match.ErrActorStopped):
		code, status, retryable = matchdto.CodeNotFound, http.StatusServiceUnavailable, true
	default:
		obslog.L().Error("gateway_internal_error", zap.Error(err))
		writeJSON(w, status, matchdto.DomainError{
			Code:      "internal",
			Message:   "internal error",
			Retryable: true,
		})
		return
	}
	writeJSON(w, status, matchdto.DomainError{
		Code:      code,
		Message:   err.Error(),
		Retryable: retryable,
	})
}
