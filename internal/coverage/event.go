// Package coverage models coverage events and the logic behind the coverage
// event table: validation, duplicate detection, search, column filters,
// sorting and the hit-count heatmap.
package coverage

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// Event is one coverage event as served by GET /coverage/.
type Event struct {
	ID         int64  `json:"id"`
	EventID    string `json:"event_id"`
	EventName  string `json:"event_name"`
	EventType  string `json:"event_type"`
	IP         string `json:"ip"`
	Threshold  int    `json:"threshold"`
	EventCount int    `json:"event_count"`
}

// Form is the writable part of an Event, the body of POST and PUT requests.
type Form struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	EventType string `json:"event_type"`
	IP        string `json:"ip"`
	Threshold int    `json:"threshold"`
}

// Form returns the writable fields of e.
func (e Event) Form() Form {
	return Form{
		EventID:   e.EventID,
		EventName: e.EventName,
		EventType: e.EventType,
		IP:        e.IP,
		Threshold: e.Threshold,
	}
}

// Store performs event mutations against the backend.
type Store interface {
	CreateEvent(ctx context.Context, f Form) (Event, error)
	UpdateEvent(ctx context.Context, id int64, f Form) (Event, error)
}

// fold normalizes s for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(s)
}

// key is the trimmed, case-folded form used for (event_id, ip) identity.
func key(s string) string {
	return fold(strings.TrimSpace(s))
}
