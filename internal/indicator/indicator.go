// Package indicator shapes per-IP coverage indicators: the partitioned
// thermometer bars, the event search pie and a per-IP fill summary.
package indicator

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Partition colors.
const (
	FilledColor    = "#4caf50"
	EmptyColor     = "#d3d3d3"
	RemainingColor = "#cccccc"
)

// EventHit is one event's hit count against its threshold for one IP.
type EventHit struct {
	EventID   string `json:"event_id"`
	Hit       int    `json:"hit"`
	Threshold int    `json:"threshold"`
}

// Coverage groups the events of one coverage_id, as served by
// GET /coverage/indicator/?ip=.
type Coverage struct {
	CoverageID string     `json:"coverage_id"`
	Events     []EventHit `json:"events"`
}

// IPHit is one IP's hit count for an event.
type IPHit struct {
	IP        string `json:"ip"`
	Hit       int    `json:"hit"`
	Threshold int    `json:"threshold"`
}

// EventBreakdown is an event's hits across IPs, as served by
// GET /coverage/coverage-event/.
type EventBreakdown struct {
	EventID string  `json:"event_id"`
	IPs     []IPHit `json:"ips"`
}

// Partition is one cell of an event's thermometer.
type Partition struct {
	Filled bool
	Color  string
	Title  string
}

// MaxPartitions caps the cells drawn for one event. Thresholds above it are
// drawn at this resolution with the filled count scaled to match.
const MaxPartitions = 1000

// cells returns how many cells to draw for e and how many of them are
// filled. Up to MaxPartitions there is one cell per threshold unit.
func cells(e EventHit) (n, filled int) {
	n = max(e.Threshold, 1)
	hit := min(max(e.Hit, 0), n)
	if n <= MaxPartitions {
		return n, hit
	}
	filled = int(int64(hit) * MaxPartitions / int64(n))
	if hit > 0 && filled == 0 {
		filled = 1
	}
	return MaxPartitions, filled
}

// Partitions splits an event into threshold cells, the first hit of them
// filled. A threshold of zero or less still renders one cell.
func Partitions(e EventHit) []Partition {
	n, filled := cells(e)
	title := fmt.Sprintf("%s - Hit: %d / Threshold: %d", e.EventID, e.Hit, e.Threshold)
	parts := make([]Partition, n)
	for i := range parts {
		color := EmptyColor
		if i < filled {
			color = FilledColor
		}
		parts[i] = Partition{Filled: i < filled, Color: color, Title: title}
	}
	return parts
}

// Bar is one coverage_id row: its events laid out left to right.
type Bar struct {
	CoverageID string
	Events     []EventCells
}

// EventCells pairs an event with its partitions.
type EventCells struct {
	Event      EventHit
	Partitions []Partition
}

// Bars lays out one bar per coverage id, in backend order.
func Bars(coverages []Coverage) []Bar {
	bars := make([]Bar, 0, len(coverages))
	for _, c := range coverages {
		b := Bar{CoverageID: c.CoverageID, Events: make([]EventCells, 0, len(c.Events))}
		for _, e := range c.Events {
			b.Events = append(b.Events, EventCells{Event: e, Partitions: Partitions(e)})
		}
		bars = append(bars, b)
	}
	return bars
}

// Slice is one pie slice.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// RemainingLabel names the slice for hits still missing across all IPs.
const RemainingLabel = "Remaining"

// PieSlices aggregates a breakdown into one slice per IP labelled "<ip>-Hit",
// colored by rotating palette, plus a Remaining slice of
// sum(threshold) - sum(hit) when that is strictly positive.
func PieSlices(b EventBreakdown, palette []string) []Slice {
	slices := make([]Slice, 0, len(b.IPs)+1)
	var hits, thresholds int
	for i, ip := range b.IPs {
		color := RemainingColor
		if len(palette) > 0 {
			color = palette[i%len(palette)]
		}
		slices = append(slices, Slice{Name: ip.IP + "-Hit", Value: ip.Hit, Color: color})
		hits += ip.Hit
		thresholds += ip.Threshold
	}
	if remaining := thresholds - hits; remaining > 0 {
		slices = append(slices, Slice{Name: RemainingLabel, Value: remaining, Color: RemainingColor})
	}
	return slices
}

// SearchState distinguishes an empty search from a miss.
type SearchState int

const (
	SearchIdle SearchState = iota
	SearchFound
	SearchNotFound
)

func (s SearchState) String() string {
	switch s {
	case SearchFound:
		return "found"
	case SearchNotFound:
		return "not_found"
	}
	return "idle"
}

// SearchResult is the outcome of an event search.
type SearchResult struct {
	State   SearchState `json:"-"`
	Term    string      `json:"term"`
	EventID string      `json:"event_id,omitempty"`
	Slices  []Slice     `json:"slices,omitempty"`
}

// foldKey trims s and applies full Unicode case folding.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Search finds the breakdown whose event_id equals term, ignoring case and
// surrounding space. An empty term is idle, not a miss.
func Search(breakdowns []EventBreakdown, term string, palette []string) SearchResult {
	term = strings.TrimSpace(term)
	if term == "" {
		return SearchResult{State: SearchIdle}
	}
	key := foldKey(term)
	for _, b := range breakdowns {
		if foldKey(b.EventID) == key {
			return SearchResult{
				State:   SearchFound,
				Term:    term,
				EventID: b.EventID,
				Slices:  PieSlices(b, palette),
			}
		}
	}
	return SearchResult{State: SearchNotFound, Term: term}
}

// Summary condenses one IP's indicator data.
type Summary struct {
	Events   int     `json:"events"`
	Complete int     `json:"complete"`
	MeanFill float64 `json:"mean_fill"`
	MinFill  float64 `json:"min_fill"`
}

// Fill is hit/threshold clamped to [0, 1]. An event without a threshold is
// full.
func Fill(e EventHit) float64 {
	if e.Threshold <= 0 {
		return 1
	}
	return min(1, max(0, float64(e.Hit)/float64(e.Threshold)))
}

// Summarize counts events and fully-hit events and reports the mean and
// minimum Fill.
func Summarize(coverages []Coverage) Summary {
	var fills []float64
	var s Summary
	for _, c := range coverages {
		for _, e := range c.Events {
			fill := Fill(e)
			if fill >= 1 {
				s.Complete++
			}
			fills = append(fills, fill)
		}
	}
	s.Events = len(fills)
	if len(fills) == 0 {
		return s
	}
	s.MeanFill = stat.Mean(fills, nil)
	s.MinFill = floats.Min(fills)
	return s
}
