package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ytmanager-backend-go/internal/services"
)

type AssignRequest struct {
	StaffID    string   `json:"staffId"`
	ChannelIDs []string `json:"channelIds"`
}

func (s *Server) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, _, err := s.Channels.List(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]ChannelDTO, 0, len(channels))
	for _, ch := range channels {
		items = append(items, channelDTO(ch))
	}
	WriteJSON(w, http.StatusOK, map[string][]ChannelDTO{"items": items})
}

func (s *Server) SaveChannel(w http.ResponseWriter, r *http.Request) {
	var req services.ChannelInput
	if !decodeJSON(w, r, &req) {
		return
	}
	channel, err := s.Channels.Save(r.Context(), CurrentViewer(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, channelDTO(channel))
}

func (s *Server) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := s.Channels.Delete(r.Context(), CurrentViewer(r), chi.URLParam(r, "channelId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AssignChannels(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Channels.Assign(r.Context(), CurrentViewer(r), req.StaffID, req.ChannelIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ExportChannels(w http.ResponseWriter, r *http.Request) {
	channels, staff, err := s.Channels.List(r.Context(), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCSV(w, "channels-"+s.Now().Format("2006-01-02")+".csv", services.ChannelRosterCSV(channels, staff))
}

// ChannelAnalytics serves the daily report of a channel, or of one video
// when videoId is given. The range defaults to the last 28 days.
func (s *Server) ChannelAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	end := s.Now().UTC()
	start := end.AddDate(0, 0, -27)
	var err error
	if raw := q.Get("start"); raw != "" {
		if start, err = time.Parse("2006-01-02", raw); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid start date")
			return
		}
	}
	if raw := q.Get("end"); raw != "" {
		if end, err = time.Parse("2006-01-02", raw); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid end date")
			return
		}
	}
	rows, err := s.Analytics.ChannelDaily(r.Context(), CurrentViewer(r), services.ChannelDailyRequest{
		ChannelID: chi.URLParam(r, "channelId"),
		VideoID:   q.Get("videoId"),
		Start:     start,
		End:       end,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	points := make([]services.DailyPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, services.DailyPoint{Day: row.Day, Revenue: row.Revenue, Views: row.Views})
	}
	WriteJSON(w, http.StatusOK, map[string][]services.DailyPoint{"items": points})
}
