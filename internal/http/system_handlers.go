package httpapi

import (
	"net/http"

	"ytmanager-backend-go/internal/services"
)

type AppendLogRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (s *Server) SystemConfig(w http.ResponseWriter, r *http.Request) {
	view, err := s.Settings.Config(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) SaveSystemConfig(w http.ResponseWriter, r *http.Request) {
	var req services.ConfigInput
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.Settings.Save(r.Context(), CurrentViewer(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.Settings.Logs(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"items": logs})
}

func (s *Server) AppendLog(w http.ResponseWriter, r *http.Request) {
	var req AppendLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Settings.AppendLog(r.Context(), req.Level, req.Message); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.Settings.ClearLogs(r.Context(), CurrentViewer(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListGoogleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.Accounts.List(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]services.LinkedAccountView{"items": accounts})
}
