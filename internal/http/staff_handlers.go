package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ytmanager-backend-go/internal/services"
)

type StaffListResponse struct {
	Items []StaffDTO `json:"items"`
}

func (s *Server) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := s.Staff.List(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, StaffListResponse{Items: staffDTOs(staff)})
}

func (s *Server) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req services.StaffInput
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := s.Staff.Create(r.Context(), CurrentViewer(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, staffDTO(member))
}

func (s *Server) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	var req services.StaffInput
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := s.Staff.Update(r.Context(), CurrentViewer(r), chi.URLParam(r, "staffId"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, staffDTO(member))
}

func (s *Server) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := s.Staff.Delete(r.Context(), CurrentViewer(r), chi.URLParam(r, "staffId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.Staff.Teams(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]TeamDTO, 0, len(teams))
	for _, team := range teams {
		items = append(items, TeamDTO{Head: staffDTO(team.Head), Members: staffDTOs(team.Members)})
	}
	WriteJSON(w, http.StatusOK, map[string][]TeamDTO{"items": items})
}
