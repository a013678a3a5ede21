package dashboard

import (
	"net/http"
	"time"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/coverage"
	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/httputil"
	"github.com/banshee-data/coverage.report/internal/indicator"
	"github.com/banshee-data/coverage.report/internal/version"
)

type apiEvent struct {
	coverage.Event
	Heat string `json:"heat"`
}

type apiEventsResponse struct {
	Total  int        `json:"total"`
	Events []apiEvent `json:"events"`
}

// apiEvents serves the filtered, sorted event table. It accepts the same
// query keys as the events page.
func (s *Server) apiEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.listEvents(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, backendStatus(err), backend.UserMessage(err))
		return
	}
	rows := tableQuery(r.URL.Query()).Apply(events)
	resp := apiEventsResponse{Total: len(events), Events: make([]apiEvent, len(rows))}
	for i, e := range rows {
		resp.Events[i] = apiEvent{Event: e, Heat: coverage.HeatmapColor(e.EventCount, e.Threshold).Hex()}
	}
	httputil.WriteJSONOK(w, resp)
}

type apiSearchResponse struct {
	State string `json:"state"`
	indicator.SearchResult
}

func (s *Server) apiIndicatorSearch(w http.ResponseWriter, r *http.Request) {
	res, status, err := s.searchEvent(r)
	if err != nil {
		httputil.WriteJSONError(w, status, backend.UserMessage(err))
		return
	}
	httputil.WriteJSONOK(w, apiSearchResponse{State: res.State.String(), SearchResult: res})
}

type apiDrilldownResponse struct {
	Stage     string              `json:"stage"`
	Tool      string              `json:"tool,omitempty"`
	Project   string              `json:"project,omitempty"`
	Stepping  string              `json:"stepping,omitempty"`
	Tools     []string            `json:"tools"`
	Projects  []string            `json:"projects,omitempty"`
	Steppings []string            `json:"steppings,omitempty"`
	Coverage  *drilldown.Coverage `json:"coverage,omitempty"`
}

func (s *Server) apiDrilldown(w http.ResponseWriter, r *http.Request) {
	sel := selectionFromQuery(r.URL.Query())
	v, err := drilldown.Load(r.Context(), s.backend, sel)
	if err != nil {
		httputil.WriteJSONError(w, backendStatus(err), backend.UserMessage(err))
		return
	}
	httputil.WriteJSONOK(w, apiDrilldownResponse{
		Stage:     v.Selection.Stage().String(),
		Tool:      v.Selection.Tool(),
		Project:   v.Selection.Project(),
		Stepping:  v.Selection.Stepping(),
		Tools:     v.Tools,
		Projects:  v.Projects,
		Steppings: v.Steppings,
		Coverage:  v.Coverage,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "covdash",
		"version":   version.Version,
		"backend":   s.backend.BaseURL(),
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleOverall(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "overall.html", layout{Title: "Overall", Panel: "overall"})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "subscribe.html", layout{Title: "Subscribe", Panel: "subscribe"})
}
