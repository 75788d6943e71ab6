package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"ytmanager-backend-go/internal/logging"
	"ytmanager-backend-go/internal/services"
)

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	sample := services.CaptureHealth(r.Context(), s.Pinger, s.Config.HealthDiskPath)
	status := http.StatusOK
	if !sample.Healthy() {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, sample)
}

// ChangesSocket streams change events to any authenticated staff member.
// Browsers cannot set headers on websocket requests, so the access token
// comes in the query string.
func (s *Server) ChangesSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	viewer, err := authenticate(r.Context(), s.Tokens, s.Staff, token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if s.Hub == nil {
		WriteError(w, http.StatusServiceUnavailable, "Change feed unavailable")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	logging.Logger.Debug().Str("staff", viewer.ID).Msg("change subscriber connected")
	s.Hub.Add(conn)
	defer func() {
		s.Hub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
