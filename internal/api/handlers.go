package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-teamchat/internal/server"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *TeamChatApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode", "error", err)
	}
}

func (s *TeamChatApp) status(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Message: "teamchat real-time server is running",
	})
}

func (s *TeamChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Error("health check", "error", err)
		s.writeError(w, NewServiceUnavailableError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// presence reports the last known online status of every user seen since
// start.
func (s *TeamChatApp) presence(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.cs.Presence().Snapshot())
}

func (s *TeamChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(r.Context(), id)
	if err != nil {
		s.writeError(w, lookupError(err))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("error upgrading connection", "error", err)
		return
	}

	client := server.NewClient(user.Id, conn, s.cs, s.log.With("user", user.Id))
	if !s.cs.Register(client) {
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
