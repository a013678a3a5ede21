package dashboard

import (
	"net/http"
	"net/url"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/httputil"
)

// selectionFromQuery reads the drill-down selection. The selector form
// posts back the previous tool and project; when one of them changed, every
// level below it is dropped so a stale project or stepping never rides
// along with a new tool.
func selectionFromQuery(q url.Values) drilldown.Selection {
	sel := drilldown.NewSelection(q.Get("tool"), q.Get("project"), q.Get("stepping"))
	switch {
	case q.Has("prev_tool") && q.Get("prev_tool") != sel.Tool():
		return drilldown.Selection{}.WithTool(sel.Tool())
	case q.Has("prev_project") && q.Get("prev_project") != sel.Project():
		return drilldown.Selection{}.WithTool(sel.Tool()).WithProject(sel.Project())
	}
	return sel
}

func selectionQuery(sel drilldown.Selection) url.Values {
	q := url.Values{}
	if sel.Tool() != "" {
		q.Set("tool", sel.Tool())
	}
	if sel.Project() != "" {
		q.Set("project", sel.Project())
	}
	if sel.Stepping() != "" {
		q.Set("stepping", sel.Stepping())
	}
	return q
}

type toolLink struct {
	drilldown.EventBar
	URL string
}

type testcaseLink struct {
	drilldown.TestcasePanel
	URL string
}

type toolPage struct {
	View        drilldown.View
	Tab         drilldown.Tab
	EventsURL   string
	CasesURL    string
	ChartURL    string
	PNGURL      string
	ChartHeight int
	Bars        []toolLink
	Open        *drilldown.EventBar
	Testcases   []testcaseLink
}

func buildToolPage(v drilldown.View, q url.Values) toolPage {
	base := selectionQuery(v.Selection)
	tab := drilldown.ParseTab(q.Get("tab"))
	link := func(extra url.Values) string {
		out := url.Values{}
		for k, vs := range base {
			out[k] = vs
		}
		for k, vs := range extra {
			out[k] = vs
		}
		return "/tool?" + out.Encode()
	}

	p := toolPage{
		View:      v,
		Tab:       tab,
		EventsURL: link(url.Values{"tab": {string(drilldown.TabEvents)}}),
		CasesURL:  link(url.Values{"tab": {string(drilldown.TabTestcases)}}),
	}
	if v.Coverage == nil {
		return p
	}
	p.ChartURL = "/tool/chart?" + base.Encode()
	p.PNGURL = "/tool/chart.png?" + base.Encode()
	p.ChartHeight = drilldown.ChartHeight(len(v.Coverage.Events))

	open := drilldown.ID(q.Get("event"))
	for _, b := range drilldown.EventBars(v.Coverage.Events, open) {
		next := drilldown.Toggle(open, b.Event.ID)
		l := toolLink{EventBar: b, URL: link(url.Values{"tab": {string(drilldown.TabEvents)}, "event": {string(next)}})}
		if b.Selected {
			bar := b
			p.Open = &bar
		}
		p.Bars = append(p.Bars, l)
	}

	expanded := drilldown.ID(q.Get("tc"))
	for _, tc := range drilldown.TestcasePanels(v.Coverage.Testcases, expanded) {
		next := drilldown.Toggle(expanded, tc.ID)
		p.Testcases = append(p.Testcases, testcaseLink{
			TestcasePanel: tc,
			URL:           link(url.Values{"tab": {string(drilldown.TabTestcases)}, "tc": {string(next)}}),
		})
	}
	return p
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := selectionFromQuery(q)

	status := http.StatusOK
	var errMsg string
	v, err := drilldown.Load(r.Context(), s.backend, sel)
	if err != nil {
		logf("tool page %s: %v", sel.Stage(), err)
		status = backendStatus(err)
		errMsg = backend.UserMessage(err)
		v = drilldown.View{Selection: sel}
	}

	s.render(w, status, "tool.html", layout{
		Title: "Tool",
		Panel: "tool",
		Error: errMsg,
		Page:  buildToolPage(v, q),
	})
}

// loadCoverage fetches the coverage payload for a fully selected query.
func (s *Server) loadCoverage(r *http.Request) (drilldown.Selection, drilldown.Coverage, int, error) {
	sel := drilldown.NewSelection(r.URL.Query().Get("tool"), r.URL.Query().Get("project"), r.URL.Query().Get("stepping"))
	if sel.Stage() != drilldown.SteppingSelected {
		return sel, drilldown.Coverage{}, http.StatusBadRequest, errIncompleteSelection
	}
	cov, err := s.backend.Coverage(r.Context(), sel.Tool(), sel.Project(), sel.Stepping())
	if err != nil {
		return sel, drilldown.Coverage{}, backendStatus(err), err
	}
	return sel, cov, http.StatusOK, nil
}

func writeCoverageError(w http.ResponseWriter, status int, err error) {
	if err == errIncompleteSelection {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONError(w, status, backend.UserMessage(err))
}

func (s *Server) handleToolChart(w http.ResponseWriter, r *http.Request) {
	sel, cov, status, err := s.loadCoverage(r)
	if err != nil {
		writeCoverageError(w, status, err)
		return
	}
	s.writeChart(w, eventBarChart(sel, cov.Events, s.assetsHost))
}

func (s *Server) handleToolChartPNG(w http.ResponseWriter, r *http.Request) {
	sel, cov, status, err := s.loadCoverage(r)
	if err != nil {
		writeCoverageError(w, status, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := WriteEventPNG(w, SelectionTitle(sel), cov.Events); err != nil {
		logf("render png: %v", err)
	}
}
