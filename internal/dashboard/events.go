package dashboard

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/coverage"
	"github.com/banshee-data/coverage.report/internal/httputil"
)

const eventsPath = "/coverage/events"

// tableState are the query keys that describe the table view. They survive
// every redirect back to the events page.
var tableState = []string{"q", "sort", "dir", "f_event_name", "f_event_type", "f_ip"}

func filterKey(col coverage.Column) string { return "f_" + string(col) }

// tableQuery reads search, filters and sort from q.
func tableQuery(q url.Values) coverage.Query {
	tq := coverage.Query{Search: q.Get("q"), Filters: coverage.Filters{}}
	for _, col := range coverage.FilterColumns {
		if vals := q[filterKey(col)]; len(vals) > 0 {
			tq.Filters[col] = vals
		}
	}
	if col, ok := coverage.ParseColumn(q.Get("sort")); ok {
		dir := coverage.Asc
		if q.Get("dir") == string(coverage.Desc) {
			dir = coverage.Desc
		}
		tq.Sort = coverage.Sort{Column: col, Direction: dir}
	}
	return tq
}

// viewState keeps only the table keys of q.
func viewState(q url.Values) url.Values {
	out := url.Values{}
	for _, k := range tableState {
		if v, ok := q[k]; ok && len(v) > 0 {
			out[k] = v
		}
	}
	return out
}

func withSort(state url.Values, s coverage.Sort) url.Values {
	out := url.Values{}
	for k, v := range state {
		out[k] = v
	}
	out.Set("sort", string(s.Column))
	out.Set("dir", string(s.Direction))
	return out
}

func eventsURL(state url.Values) string {
	if len(state) == 0 {
		return eventsPath
	}
	return eventsPath + "?" + state.Encode()
}

type columnHeader struct {
	Label string
	URL   string
	Arrow string
}

type filterOption struct {
	Value    string
	Selected bool
}

type filterBox struct {
	Key     string
	Label   string
	Active  bool
	Options []filterOption
}

type eventRow struct {
	Event   coverage.Event
	Heat    string
	EditURL string
}

type hiddenField struct {
	Name, Value string
}

type eventsPage struct {
	Search    string
	Headers   []columnHeader
	Filters   []filterBox
	Rows      []eventRow
	Total     int
	Shown     int
	Form      coverage.EditState
	Editing   bool
	FormError string
	ErrField  string
	CancelURL string
	ClearURL  string
	SortState []hiddenField
	Return    string
}

func (s *Server) buildEventsPage(state url.Values, events []coverage.Event, form coverage.EditState, formErr error) eventsPage {
	tq := tableQuery(state)
	rows := tq.Apply(events)

	p := eventsPage{
		Search:    tq.Search,
		Total:     len(events),
		Shown:     len(rows),
		Form:      form,
		Editing:   form.Mode == coverage.FormEdit,
		CancelURL: eventsURL(state),
		Return:    state.Encode(),
	}
	if formErr != nil {
		p.FormError = formErr.Error()
		if ve, ok := formErr.(*coverage.ValidationError); ok {
			p.ErrField = ve.Field
		}
	}
	if tq.Sort.Column != "" {
		p.SortState = []hiddenField{{"sort", string(tq.Sort.Column)}, {"dir", string(tq.Sort.Direction)}}
	}
	reset := url.Values{}
	for _, f := range p.SortState {
		reset.Set(f.Name, f.Value)
	}
	p.ClearURL = eventsURL(reset)

	for _, col := range coverage.Columns {
		h := columnHeader{Label: col.Label(), URL: eventsURL(withSort(state, tq.Sort.Toggle(col)))}
		if tq.Sort.Column == col {
			h.Arrow = "▲"
			if tq.Sort.Direction == coverage.Desc {
				h.Arrow = "▼"
			}
		}
		p.Headers = append(p.Headers, h)
	}

	opts := coverage.FilterOptions(events)
	for _, col := range coverage.FilterColumns {
		box := filterBox{Key: filterKey(col), Label: col.Label(), Active: len(tq.Filters[col]) > 0}
		for _, v := range opts[col] {
			box.Options = append(box.Options, filterOption{Value: v, Selected: tq.Filters.Selected(col, v)})
		}
		p.Filters = append(p.Filters, box)
	}

	for _, e := range rows {
		edit := url.Values{}
		for k, v := range state {
			edit[k] = v
		}
		edit.Set("edit", strconv.FormatInt(e.ID, 10))
		p.Rows = append(p.Rows, eventRow{
			Event:   e,
			Heat:    coverage.HeatmapColor(e.EventCount, e.Threshold).CSS(),
			EditURL: eventsURL(edit) + "#event-form",
		})
	}
	return p
}

func (s *Server) renderEvents(w http.ResponseWriter, status int, state url.Values, events []coverage.Event, form coverage.EditState, formErr error, flash, errMsg string) {
	s.render(w, status, "events.html", layout{
		Title: "Coverage Events",
		Panel: "coverage",
		Tab:   "events",
		Flash: flash,
		Error: errMsg,
		Page:  s.buildEventsPage(state, events, form, formErr),
	})
}

func (s *Server) listEvents(ctx context.Context) ([]coverage.Event, error) {
	events, err := s.backend.ListEvents(ctx)
	if err != nil {
		logf("list events: %v", err)
	}
	return events, err
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := viewState(q)
	flash, errMsg := flashFrom(r)

	events, err := s.listEvents(r.Context())
	if err != nil {
		s.renderEvents(w, backendStatus(err), state, nil, coverage.NewCreate(), nil, "", backend.UserMessage(err))
		return
	}

	form := coverage.NewCreate()
	if raw := q.Get("edit"); raw != "" {
		id, _ := strconv.ParseInt(raw, 10, 64)
		found := false
		for _, e := range events {
			if e.ID == id {
				form, found = coverage.EditOf(e), true
				break
			}
		}
		if !found {
			errMsg = "Record not found."
		}
	}
	s.renderEvents(w, http.StatusOK, state, events, form, nil, flash, errMsg)
}

// returnState recovers the table view a form was posted from.
func returnState(form url.Values) url.Values {
	q, err := url.ParseQuery(form.Get("return"))
	if err != nil {
		return url.Values{}
	}
	return viewState(q)
}

// editStateFromForm reads the event form. A malformed threshold or id is a
// local validation failure.
func editStateFromForm(form url.Values) (coverage.EditState, error) {
	st := coverage.EditState{
		Mode: coverage.FormCreate,
		Form: coverage.Form{
			EventID:   form.Get("event_id"),
			EventName: form.Get("event_name"),
			EventType: form.Get("event_type"),
			IP:        form.Get("ip"),
		},
	}
	if form.Get("mode") == coverage.FormEdit.String() {
		st.Mode = coverage.FormEdit
		if raw := form.Get("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return st, &coverage.ValidationError{Field: "id", Message: "Editing requires an existing record."}
			}
			st.ID = id
		}
	}
	if raw := strings.TrimSpace(form.Get("threshold")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return st, &coverage.ValidationError{Field: "threshold", Message: "Threshold must be a whole number."}
		}
		st.Form.Threshold = n
	}
	return st, nil
}

func (s *Server) handleEventSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	state := returnState(r.PostForm)
	st, err := editStateFromForm(r.PostForm)

	events, listErr := s.listEvents(r.Context())
	if listErr != nil {
		s.renderEvents(w, backendStatus(listErr), state, nil, st, nil, "", backend.UserMessage(listErr))
		return
	}

	if err == nil {
		_, err = coverage.Upsert(r.Context(), s.backend, events, st)
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		msg := err
		if !coverage.IsValidation(err) {
			logf("save event: %v", err)
			status = backendStatus(err)
			msg = &coverage.ValidationError{Message: backend.UserMessage(err)}
		}
		s.renderEvents(w, status, state, events, st, msg, "", "")
		return
	}

	done := "Event created."
	if st.Mode == coverage.FormEdit {
		done = "Event updated."
	}
	redirectWith(w, r, eventsURL(state), "msg", done)
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	back := eventsURL(returnState(r.PostForm))
	id, err := strconv.ParseInt(r.PostForm.Get("id"), 10, 64)
	if err != nil || id <= 0 {
		redirectWith(w, r, back, "err", "Invalid record id.")
		return
	}
	if err := s.backend.DeleteEvent(r.Context(), id); err != nil {
		logf("delete event %d: %v", id, err)
		redirectWith(w, r, back, "err", backend.UserMessage(err))
		return
	}
	redirectWith(w, r, back, "msg", "Event deleted.")
}

func (s *Server) handleEventImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(min(s.maxUpload, 8<<20)); err != nil {
		redirectWith(w, r, eventsPath, "err", "Upload failed: the file could not be read.")
		return
	}
	back := eventsURL(returnState(r.PostForm))
	file, hdr, err := r.FormFile("file")
	if err != nil {
		redirectWith(w, r, back, "err", "Please select a CSV file.")
		return
	}
	defer file.Close()

	res, err := s.backend.BulkUpload(r.Context(), backend.File{Name: hdr.Filename, Reader: file})
	if err != nil {
		logf("bulk upload %s: %v", hdr.Filename, err)
		redirectWith(w, r, back, "err", backend.UserMessage(err))
		return
	}
	if res.Error != "" {
		redirectWith(w, r, back, "err", res.Error)
		return
	}
	redirectWith(w, r, back, "msg", res.Summary())
}

func (s *Server) handleEventTemplate(w http.ResponseWriter, r *http.Request) {
	d, err := s.backend.Template(r.Context())
	if err != nil {
		logf("download template: %v", err)
		redirectWith(w, r, eventsPath, "err", backend.UserMessage(err))
		return
	}
	if err := httputil.WriteAttachment(w, d.ContentType, d.Filename, bytes.NewReader(d.Body)); err != nil {
		logf("write template: %v", err)
	}
}
