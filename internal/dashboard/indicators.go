package dashboard

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/httputil"
	"github.com/banshee-data/coverage.report/internal/indicator"
)

type indicatorsPage struct {
	IPs      []string
	Selected string
	Bars     []indicator.Bar
	Summary  indicator.Summary
	Loaded   bool
	Term     string
	Search   indicator.SearchResult
	PieURL   string
	ChartURL string
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ip := strings.TrimSpace(q.Get("ip"))
	term := strings.TrimSpace(q.Get("event"))

	var (
		ips        []string
		coverages  []indicator.Coverage
		breakdowns []indicator.EventBreakdown
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		ips, err = s.backend.UniqueIPs(ctx)
		return err
	})
	if ip != "" {
		g.Go(func() error {
			var err error
			coverages, err = s.backend.Indicators(ctx, ip)
			return err
		})
	}
	if term != "" {
		g.Go(func() error {
			var err error
			breakdowns, err = s.backend.EventBreakdowns(ctx)
			return err
		})
	}

	status := http.StatusOK
	_, errMsg := flashFrom(r)
	if err := g.Wait(); err != nil {
		logf("indicators page ip=%q event=%q: %v", ip, term, err)
		status = backendStatus(err)
		errMsg = backend.UserMessage(err)
	}

	p := indicatorsPage{
		IPs:      ips,
		Selected: ip,
		Bars:     indicator.Bars(coverages),
		Summary:  indicator.Summarize(coverages),
		Loaded:   ip != "" && status == http.StatusOK,
		Term:     term,
	}
	if p.Loaded && len(coverages) > 0 {
		p.ChartURL = "/coverage/indicators/chart?" + url.Values{"ip": {ip}}.Encode()
	}
	if status == http.StatusOK {
		p.Search = indicator.Search(breakdowns, term, s.palette)
		if p.Search.State == indicator.SearchFound {
			p.PieURL = "/coverage/indicators/pie?" + url.Values{"event": {p.Search.EventID}}.Encode()
		}
	}

	s.render(w, status, "indicators.html", layout{
		Title: "Indicators",
		Panel: "coverage",
		Tab:   "indicators",
		Error: errMsg,
		Page:  p,
	})
}

func (s *Server) searchEvent(r *http.Request) (indicator.SearchResult, int, error) {
	term := r.URL.Query().Get("event")
	if strings.TrimSpace(term) == "" {
		return indicator.SearchResult{State: indicator.SearchIdle}, http.StatusOK, nil
	}
	breakdowns, err := s.backend.EventBreakdowns(r.Context())
	if err != nil {
		return indicator.SearchResult{}, backendStatus(err), err
	}
	return indicator.Search(breakdowns, term, s.palette), http.StatusOK, nil
}

func (s *Server) handleIndicatorPie(w http.ResponseWriter, r *http.Request) {
	res, status, err := s.searchEvent(r)
	if err != nil {
		httputil.WriteJSONError(w, status, backend.UserMessage(err))
		return
	}
	if res.State != indicator.SearchFound {
		httputil.WriteJSONError(w, http.StatusNotFound, "Event not found")
		return
	}
	s.writeChart(w, pieChart(res, s.assetsHost))
}

func (s *Server) handleIndicatorChart(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		httputil.BadRequest(w, "ip is required")
		return
	}
	coverages, err := s.backend.Indicators(r.Context(), ip)
	if err != nil {
		httputil.WriteJSONError(w, backendStatus(err), backend.UserMessage(err))
		return
	}
	s.writeChart(w, fillChart(ip, coverages, s.assetsHost))
}
