package dashboard

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/coverage.report/internal/backend"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageFiles are the content templates rendered inside layout.html.
var pageFiles = []string{
	"overall.html",
	"subscribe.html",
	"tool.html",
	"events.html",
	"mapping.html",
	"indicators.html",
}

var funcMap = template.FuncMap{
	"add":    func(a, b int) int { return a + b },
	"mulPct": func(f float64) float64 { return f * 100 },
	"css":    func(s string) template.CSS { return template.CSS(s) },
}

func loadPages() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

type navItem struct {
	Label  string
	Href   string
	Active bool
}

// layout is the data every page template receives.
type layout struct {
	Title string
	Panel string
	Tab   string
	Flash string
	Error string
	Page  any
}

func (l layout) Nav() []navItem {
	items := []navItem{
		{Label: "Overall", Href: "/"},
		{Label: "Tool", Href: "/tool"},
		{Label: "Coverage", Href: "/coverage/events"},
		{Label: "Subscribe", Href: "/subscribe"},
	}
	for i := range items {
		items[i].Active = strings.EqualFold(items[i].Label, l.Panel)
	}
	return items
}

func (l layout) Tabs() []navItem {
	items := []navItem{
		{Label: "Event List", Href: "/coverage/events"},
		{Label: "Mapping/Matrix", Href: "/coverage/mapping"},
		{Label: "Indicators", Href: "/coverage/indicators"},
	}
	for i := range items {
		items[i].Active = strings.HasSuffix(items[i].Href, "/"+l.Tab)
	}
	return items
}

func flashFrom(r *http.Request) (flash, errMsg string) {
	q := r.URL.Query()
	return q.Get("msg"), q.Get("err")
}

// render executes page into a buffer so a template failure still yields a
// clean 500.
func (s *Server) render(w http.ResponseWriter, status int, page string, data layout) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page "+page, http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logf("render %s: %v", page, err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// redirectWith sends the browser back to path with a flash message. Query
// values already on path are kept.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Del("msg")
	q.Del("err")
	if msg != "" {
		q.Set(key, msg)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// backendStatus maps a backend failure to the status of the page that
// reports it.
func backendStatus(err error) int {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
