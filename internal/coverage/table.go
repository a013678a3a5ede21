package coverage

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Column names a sortable or filterable table column. The values double as
// query-string keys.
type Column string

const (
	ColID         Column = "id"
	ColEventID    Column = "event_id"
	ColEventName  Column = "event_name"
	ColEventType  Column = "event_type"
	ColIP         Column = "ip"
	ColThreshold  Column = "threshold"
	ColEventCount Column = "event_count"
)

// Columns lists the table columns in display order.
var Columns = []Column{ColEventID, ColEventName, ColEventType, ColIP, ColThreshold, ColEventCount}

// FilterColumns are the columns that offer a multi-select filter.
var FilterColumns = []Column{ColEventName, ColEventType, ColIP}

var columnLabels = map[Column]string{
	ColID:         "ID",
	ColEventID:    "Event ID",
	ColEventName:  "Name",
	ColEventType:  "Type",
	ColIP:         "IP",
	ColThreshold:  "Threshold",
	ColEventCount: "Hit Count",
}

// ParseColumn maps a query-string value to a Column.
func ParseColumn(s string) (Column, bool) {
	c := Column(s)
	_, ok := columnLabels[c]
	return c, ok
}

// Label is the column header text.
func (c Column) Label() string { return columnLabels[c] }

func (c Column) numeric() bool {
	return c == ColID || c == ColThreshold || c == ColEventCount
}

// Value returns the display value of column c for e.
func (c Column) Value(e Event) string {
	switch c {
	case ColID:
		return strconv.FormatInt(e.ID, 10)
	case ColEventID:
		return e.EventID
	case ColEventName:
		return e.EventName
	case ColEventType:
		return e.EventType
	case ColIP:
		return e.IP
	case ColThreshold:
		return strconv.Itoa(e.Threshold)
	case ColEventCount:
		return strconv.Itoa(e.EventCount)
	}
	return ""
}

func (c Column) number(e Event) int64 {
	switch c {
	case ColID:
		return e.ID
	case ColThreshold:
		return int64(e.Threshold)
	case ColEventCount:
		return int64(e.EventCount)
	}
	return 0
}

// MatchesSearch reports whether term is a case-insensitive substring of the
// event id, name or ip. An empty term matches everything.
func MatchesSearch(e Event, term string) bool {
	term = fold(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(fold(e.EventID), term) ||
		strings.Contains(fold(e.EventName), term) ||
		strings.Contains(fold(e.IP), term)
}

// Filters holds the selected values per column. A column with no selected
// values does not filter.
type Filters map[Column][]string

// Matches reports whether e passes every column filter: within a column any
// selected value may match exactly, across columns all must.
func (f Filters) Matches(e Event) bool {
	for col, values := range f {
		if len(values) == 0 {
			continue
		}
		if !slices.Contains(values, col.Value(e)) {
			return false
		}
	}
	return true
}

// Active reports whether any column has a selection.
func (f Filters) Active() bool {
	for _, v := range f {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// Selected reports whether value is selected for col.
func (f Filters) Selected(col Column, value string) bool {
	return slices.Contains(f[col], value)
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is the active sort column and direction. A zero Sort leaves rows in
// backend order.
type Sort struct {
	Column    Column
	Direction Direction
}

// Toggle returns the sort after clicking col: the same column flips
// direction, a new column starts ascending.
func (s Sort) Toggle(col Column) Sort {
	if s.Column == col {
		if s.Direction == Asc {
			return Sort{Column: col, Direction: Desc}
		}
		return Sort{Column: col, Direction: Asc}
	}
	return Sort{Column: col, Direction: Asc}
}

// numericSuffix keeps only the digits of id. ok is false when there are
// none or the digits overflow int64.
func numericSuffix(id string) (int64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareEventIDs orders ids by their numeric suffix when both have one and
// lexicographically otherwise.
func CompareEventIDs(a, b string) int {
	na, okA := numericSuffix(a)
	nb, okB := numericSuffix(b)
	if okA && okB {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

func (s Sort) compare(a, b Event) int {
	var c int
	switch {
	case s.Column == ColEventID:
		c = CompareEventIDs(a.EventID, b.EventID)
	case s.Column.numeric():
		c = cmp.Compare(s.Column.number(a), s.Column.number(b))
	default:
		c = strings.Compare(s.Column.Value(a), s.Column.Value(b))
	}
	if s.Direction == Desc {
		return -c
	}
	return c
}

// Apply returns a sorted copy of events. The sort is stable.
func (s Sort) Apply(events []Event) []Event {
	out := slices.Clone(events)
	if _, ok := columnLabels[s.Column]; !ok {
		return out
	}
	slices.SortStableFunc(out, s.compare)
	return out
}

// Query is the full table view state: search term, filters and sort.
type Query struct {
	Search  string
	Filters Filters
	Sort    Sort
}

// Apply filters and sorts events for display.
func (q Query) Apply(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if MatchesSearch(e, q.Search) && q.Filters.Matches(e) {
			out = append(out, e)
		}
	}
	return q.Sort.Apply(out)
}

// FilterOptions returns the distinct non-blank values of each filter column,
// sorted case-insensitively.
func FilterOptions(events []Event) map[Column][]string {
	opts := make(map[Column][]string, len(FilterColumns))
	for _, col := range FilterColumns {
		seen := make(map[string]bool)
		var values []string
		for _, e := range events {
			v := col.Value(e)
			if strings.TrimSpace(v) == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		slices.SortFunc(values, func(a, b string) int {
			if c := strings.Compare(fold(a), fold(b)); c != 0 {
				return c
			}
			return strings.Compare(a, b)
		})
		opts[col] = values
	}
	return opts
}
