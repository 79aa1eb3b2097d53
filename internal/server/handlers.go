package server

import (
	"bugfind/internal/client"
	"bugfind/internal/logger"
	"bugfind/internal/model"
	"bugfind/internal/wshub"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type Server struct {
	Client  *client.Client
	Hub     *wshub.Hub
	Health  func(context.Context) error // nil when the store has nothing to ping
	Metrics http.Handler

	log zerolog.Logger
}

// New returns a Server for c whose views stream through hub.
func New(c *client.Client, hub *wshub.Hub) *Server {
	return &Server{
		Client: c,
		Hub:    hub,
		log:    logger.New("server"),
	}
}

type createRequest struct {
	Nickname string `json:"nickname"`
}

type joinRequest struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

type startRequest struct {
	Difficulty string `json:"difficulty"`
}

type voteRequest struct {
	Target string `json:"target"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.Client.CreateRoom(r.Context(), req.Nickname)
	if err != nil {
		s.writeError(w, "create room", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.Client.JoinRoom(r.Context(), req.Code, req.Nickname)
	if err != nil {
		s.writeError(w, "join room", err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	view, err := s.Client.Resume(r.Context(), mux.Vars(r)["roomID"])
	if err != nil {
		s.writeError(w, "resume room", err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.Client.Identity()
	if err != nil {
		s.writeError(w, "session", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Client.View())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.start(r.Context(), req.Difficulty); err != nil {
		s.writeError(w, "start round", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.Client.Vote(r.Context(), req.Target); err != nil {
		s.writeError(w, "vote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.Client.Restart(r.Context()); err != nil {
		s.writeError(w, "restart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if err := s.Client.Leave(r.Context()); err != nil {
		s.writeError(w, "leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store_error", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) start(ctx context.Context, difficulty string) error {
	d, err := model.ParseDifficulty(difficulty)
	if err != nil {
		return err
	}
	return s.Client.StartRound(ctx, d)
}

// decode reads a JSON body into v. An empty body leaves v zero.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	ev := s.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("action", action).Int("status", status).Msg("request rejected")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrPermissionDenied), errors.Is(err, model.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, model.ErrRoomFull),
		errors.Is(err, model.ErrDuplicateVote),
		errors.Is(err, model.ErrWrongPhase),
		errors.Is(err, model.ErrInsufficientPlayers),
		errors.Is(err, model.ErrNoWordsAvailable):
		return http.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
