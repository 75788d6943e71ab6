package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ytmanager-backend-go/internal/services"
)

type ManualRevenueRequest struct {
	ChannelID string            `json:"channelId"`
	Year      int               `json:"year"`
	Monthly   []decimal.Decimal `json:"monthly"`
}

type ManualRevenueMonthRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) ListManualRevenue(w http.ResponseWriter, r *http.Request) {
	year := parseInt(r.URL.Query().Get("year"), s.Now().Year())
	entries, err := s.Channels.ManualRevenue(r.Context(), CurrentViewer(r), year, r.URL.Query().Get("channelId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	items := make([]ManualRevenueDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, ManualRevenueDTO{ChannelID: entry.ChannelID, Year: entry.Year, Month: entry.Month, Amount: entry.Amount})
	}
	WriteJSON(w, http.StatusOK, map[string][]ManualRevenueDTO{"items": items})
}

func (s *Server) SaveManualRevenue(w http.ResponseWriter, r *http.Request) {
	var req ManualRevenueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Channels.SetManualRevenue(r.Context(), CurrentViewer(r), req.ChannelID, req.Year, req.Monthly); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SaveManualRevenueMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid month")
		return
	}
	var req ManualRevenueMonthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Channels.SetManualRevenueMonth(r.Context(), CurrentViewer(r), chi.URLParam(r, "channelId"), year, month, req.Amount); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseWindow(r *http.Request) (services.Window, error) {
	q := r.URL.Query()
	return services.ParseWindow(q.Get("mode"), q.Get("year"), q.Get("month"), q.Get("start"), q.Get("end"), s.Now())
}

func (s *Server) aggregate(r *http.Request) (services.RevenueReport, error) {
	window, err := s.parseWindow(r)
	if err != nil {
		return services.RevenueReport{}, err
	}
	return s.Engine.Aggregate(r.Context(), services.RevenueRequest{
		Viewer: CurrentViewer(r),
		Filter: r.URL.Query().Get("filter"),
		Window: window,
	})
}

func (s *Server) RevenueReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.aggregate(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, revenueReportDTO(report))
}

func (s *Server) ExportRevenueReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.aggregate(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCSV(w, "revenue-"+s.Now().Format("2006-01-02")+".csv", services.RevenueReportCSV(report))
}

func (s *Server) AnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	overview, err := s.Analytics.Overview(r.Context(), CurrentViewer(r), window)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, overview)
}

func (s *Server) ExportAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	window, err := s.parseWindow(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	overview, err := s.Analytics.Overview(r.Context(), CurrentViewer(r), window)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCSV(w, "analytics-"+s.Now().Format("2006-01-02")+".csv", services.OverviewCSV(overview))
}
