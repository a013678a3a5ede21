package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/coverage.report/internal/coverage"
	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/indicator"
	"github.com/banshee-data/coverage.report/internal/mapping"
)

// UniqueTogetherMessage is what the fake backend answers for a duplicate
// (event_id, ip) pair.
const UniqueTogetherMessage = "The fields event_id, ip must make a unique set."

// TemplateCSV is the body served by the fake template endpoint.
const TemplateCSV = "event_id,event_name,event_type,ip,threshold\n"

// Upload is a multipart request the fake backend received.
type Upload struct {
	Path     string
	Fields   map[string]string
	Filename string
	Content  string
}

// FakeBackend is an in-memory coverage backend served over httptest. Seed
// its exported fields before issuing requests; mutate them only through the
// HTTP API afterwards.
type FakeBackend struct {
	Events     []coverage.Event
	IPs        []string
	Indicators map[string][]indicator.Coverage
	Breakdowns []indicator.EventBreakdown
	Mappings   map[string][]mapping.Mapping
	Tools      []string
	Projects   map[string][]string
	Steppings  map[string][]string
	Coverage   map[string]drilldown.Coverage

	mu       sync.Mutex
	nextID   int64
	requests []string
	uploads  []Upload
	failures map[string]failure
	server   *httptest.Server
}

type failure struct {
	status int
	body   string
}

// NewFakeBackend starts a FakeBackend that is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		Indicators: map[string][]indicator.Coverage{},
		Mappings:   map[string][]mapping.Mapping{},
		Projects:   map[string][]string{},
		Steppings:  map[string][]string{},
		Coverage:   map[string]drilldown.Coverage{},
		failures:   map[string]failure{},
		nextID:     1000,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the fake's base URL.
func (f *FakeBackend) URL() string { return f.server.URL }

// SteppingKey and CoverageKey build the keys of Steppings and Coverage.
func SteppingKey(tool, project string) string { return tool + "/" + project }

func CoverageKey(tool, project, stepping string) string {
	return tool + "/" + project + "/" + stepping
}

// Fail makes every request to path answer status with body.
func (f *FakeBackend) Fail(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure{status: status, body: body}
}

// Requests returns "METHOD /path?query" for every request received.
func (f *FakeBackend) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// CountRequests counts requests whose method and path match.
func (f *FakeBackend) CountRequests(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		m, rest, _ := strings.Cut(r, " ")
		p, _, _ := strings.Cut(rest, "?")
		if m == method && p == path {
			n++
		}
	}
	return n
}

// Uploads returns the multipart uploads received.
func (f *FakeBackend) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

// EventsSnapshot returns a copy of the current events.
func (f *FakeBackend) EventsSnapshot() []coverage.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]coverage.Event(nil), f.Events...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())

	if fail, ok := f.failures[r.URL.Path]; ok {
		w.WriteHeader(fail.status)
		io.WriteString(w, fail.body)
		return
	}

	q := r.URL.Query()
	path := r.URL.Path
	switch {
	case path == "/coverage/" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, f.Events)
	case path == "/coverage/" && r.Method == http.MethodPost:
		f.saveEvent(w, r, 0)
	case path == "/coverage/bulk-upload/" && r.Method == http.MethodPost:
		f.bulkUpload(w, r)
	case path == "/coverage/template/" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="coverage_template.csv"`)
		io.WriteString(w, TemplateCSV)
	case path == "/coverage/unique-ip/":
		writeJSON(w, http.StatusOK, map[string][]string{"ip": f.IPs})
	case path == "/coverage/indicator/":
		writeJSON(w, http.StatusOK, nonNil(f.Indicators[q.Get("ip")]))
	case path == "/coverage/coverage-event/":
		writeJSON(w, http.StatusOK, nonNil(f.Breakdowns))
	case path == "/coverage/coverage-mapping/" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, nonNil(f.Mappings[q.Get("ip")]))
	case path == "/coverage/coverage-mapping/bulk-upload/" && r.Method == http.MethodPost:
		f.mappingUpload(w, r)
	case path == "/project/tools/":
		writeJSON(w, http.StatusOK, nonNil(f.Tools))
	case path == "/project/projects/":
		writeJSON(w, http.StatusOK, nonNil(f.Projects[q.Get("tool")]))
	case path == "/project/steppings/":
		writeJSON(w, http.StatusOK, nonNil(f.Steppings[SteppingKey(q.Get("tool"), q.Get("project"))]))
	case path == "/project/coverage/":
		cov, ok := f.Coverage[CoverageKey(q.Get("tool"), q.Get("project"), q.Get("stepping"))]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		writeJSON(w, http.StatusOK, cov)
	case strings.HasPrefix(path, "/coverage/"):
		id, err := strconv.ParseInt(strings.Trim(strings.TrimPrefix(path, "/coverage/"), "/"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		switch r.Method {
		case http.MethodPut:
			f.saveEvent(w, r, id)
		case http.MethodDelete:
			f.deleteEvent(w, id)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method not allowed."})
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (f *FakeBackend) index(id int64) int {
	for i, e := range f.Events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// saveEvent creates (id 0) or replaces an event, enforcing the unique
// (event_id, ip) constraint exactly, as the database does.
func (f *FakeBackend) saveEvent(w http.ResponseWriter, r *http.Request, id int64) {
	var form coverage.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid JSON."}})
		return
	}
	fields := map[string][]string{}
	if form.EventID == "" {
		fields["event_id"] = []string{"This field may not be blank."}
	}
	if form.IP == "" {
		fields["ip"] = []string{"This field may not be blank."}
	}
	if form.Threshold < 0 {
		fields["threshold"] = []string{"Ensure this value is greater than or equal to 0."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	for _, e := range f.Events {
		if e.ID != id && e.EventID == form.EventID && e.IP == form.IP {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {UniqueTogetherMessage}})
			return
		}
	}

	if id == 0 {
		f.nextID++
		e := coverage.Event{ID: f.nextID, EventID: form.EventID, EventName: form.EventName, EventType: form.EventType, IP: form.IP, Threshold: form.Threshold}
		f.Events = append(f.Events, e)
		writeJSON(w, http.StatusCreated, e)
		return
	}
	i := f.index(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	e := f.Events[i]
	e.EventID, e.EventName, e.EventType, e.IP, e.Threshold = form.EventID, form.EventName, form.EventType, form.IP, form.Threshold
	f.Events[i] = e
	writeJSON(w, http.StatusOK, e)
}

func (f *FakeBackend) deleteEvent(w http.ResponseWriter, id int64) {
	i := f.index(id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	f.Events = append(f.Events[:i], f.Events[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) readUpload(r *http.Request) (Upload, bool) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return Upload{}, false
	}
	up := Upload{Path: r.URL.Path, Fields: map[string]string{}}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			up.Fields[k] = v[0]
		}
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return up, false
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	up.Filename = hdr.Filename
	up.Content = string(data)
	f.uploads = append(f.uploads, up)
	return up, true
}

// bulkUpload inserts one event per CSV data row with an event_id and ip,
// skipping the rest.
func (f *FakeBackend) bulkUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := f.readUpload(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}
	var inserted []int64
	skipped := 0
	lines := strings.Split(strings.TrimSpace(up.Content), "\n")
	for _, line := range lines[1:] {
		cols := strings.Split(strings.TrimSpace(line), ",")
		if len(cols) < 5 || cols[0] == "" || cols[3] == "" {
			skipped++
			continue
		}
		threshold, _ := strconv.Atoi(cols[4])
		f.nextID++
		f.Events = append(f.Events, coverage.Event{ID: f.nextID, EventID: cols[0], EventName: cols[1], EventType: cols[2], IP: cols[3], Threshold: threshold})
		inserted = append(inserted, f.nextID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"inserted_ids":  nonNil(inserted),
		"skipped_rows":  skipped,
		"encoding_used": "utf-8",
	})
}

func (f *FakeBackend) mappingUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := f.readUpload(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Mapping uploaded for " + up.Fields["ip"]})
}
