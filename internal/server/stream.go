package server

import (
	"bugfind/internal/model"
	"bugfind/internal/wshub"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const sendBuffer = 16

// handleWS streams views to the connection and accepts game actions from it.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &wshub.Client{ID: uuid.NewString(), Conn: conn, Send: make(chan []byte, sendBuffer)}
	s.Hub.Register(c)
	defer s.Hub.Unregister(c.ID)
	go func() {
		c.WritePump(ctx)
		cancel()
	}()

	s.log.Debug().Str("client", c.ID).Msg("view stream opened")
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.log.Debug().Str("client", c.ID).Err(err).Msg("view stream closed")
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Hub.SendError(c.ID, model.Validation("malformed message"))
			continue
		}
		if err := s.dispatch(ctx, msg); err != nil {
			s.log.Warn().Err(err).Str("client", c.ID).Str("type", msg.Type).Msg("action rejected")
			s.Hub.SendError(c.ID, err)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, msg wshub.ClientMessage) error {
	switch msg.Type {
	case "start":
		return s.start(ctx, msg.Difficulty)
	case "vote":
		return s.Client.Vote(ctx, msg.TargetID)
	case "restart":
		return s.Client.Restart(ctx)
	case "leave":
		return s.Client.Leave(ctx)
	default:
		return model.Validation("unknown message type %q", msg.Type)
	}
}

// handleEvents is the server-sent events variant of the view stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c := &wshub.Client{ID: uuid.NewString(), Send: make(chan []byte, sendBuffer)}
	s.Hub.Register(c)
	defer s.Hub.Unregister(c.ID)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
