package httpapi

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"ytmanager-backend-go/internal/services"
)

type ReceiveCodeRequest struct {
	FlowID string `json:"flowId"`
	// Code is a bare authorization code or a pasted callback URL.
	Code string `json:"code"`
}

func (s *Server) BeginLink(w http.ResponseWriter, r *http.Request) {
	var req services.LinkPrefill
	if !decodeJSON(w, r, &req) {
		return
	}
	flow, err := s.Linker.Begin(r.Context(), CurrentViewer(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, flow)
}

func (s *Server) LinkStatus(w http.ResponseWriter, r *http.Request) {
	flow, err := s.Linker.Status(chi.URLParam(r, "flowId"), CurrentViewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, flow)
}

func (s *Server) ReceiveCode(w http.ResponseWriter, r *http.Request) {
	var req ReceiveCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	flowID := strings.TrimSpace(req.FlowID)
	if flowID == "" {
		flowID = stateFromURL(req.Code)
	}
	if _, err := s.Linker.Status(flowID, CurrentViewer(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	flow, err := s.Linker.Receive(r.Context(), flowID, services.ExtractCode(req.Code))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, flow)
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Channel linking</title></head>
<body>
<p>{{.Message}}</p>
<script>
if (window.opener) {
  window.opener.postMessage({type: "OAUTH_RESULT", flowId: {{.FlowID}}, state: {{.State}}}, {{.Origin}});
  window.close();
}
</script>
</body></html>
`))

type callbackView struct {
	FlowID  string
	State   string
	Message string
	Origin  string
}

// OAuthCallback is the redirect target registered with Google. The state
// parameter carries the flow id; the code goes through the same dedup path
// as codes posted by the dashboard.
func (s *Server) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := callbackView{FlowID: q.Get("state"), Origin: s.Config.PublicOrigin}
	status := http.StatusOK
	switch {
	case q.Get("error") != "":
		view.State = string(services.StateIdle)
		view.Message = "Authorization was denied: " + q.Get("error")
		status = http.StatusBadRequest
	case q.Get("code") == "" || view.FlowID == "":
		view.State = string(services.StateIdle)
		view.Message = "Missing authorization code."
		status = http.StatusBadRequest
	default:
		flow, err := s.Linker.Receive(r.Context(), view.FlowID, q.Get("code"))
		view.State = string(flow.State)
		if err != nil {
			status, view.Message = services.StatusOf(err)
			break
		}
		status, view.Message = callbackOutcome(flow)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, view)
}

// callbackOutcome describes a flow after a code was received. A duplicate
// delivery returns the flow as it stands, which may still be working or may
// have failed on the first delivery.
func callbackOutcome(flow services.LinkFlow) (int, string) {
	switch flow.State {
	case services.StateComplete:
		return http.StatusOK, "Channels linked. You can close this window."
	case services.StateExchanging, services.StateRegistering:
		return http.StatusAccepted, "Linking is in progress. You can close this window."
	case services.StateIdle:
		if flow.Error != "" {
			return http.StatusBadGateway, "Linking failed: " + flow.Error
		}
	}
	return http.StatusConflict, "This authorization was not used. Start linking again from the dashboard."
}

func stateFromURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.Query().Get("state")
}
