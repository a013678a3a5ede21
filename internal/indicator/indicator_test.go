package indicator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var palette = []string{"#0088FE", "#00C49F"}

func filledCount(parts []Partition) int {
	n := 0
	for _, p := range parts {
		if p.Filled {
			n++
		}
	}
	return n
}

func TestPartitions(t *testing.T) {
	tests := []struct {
		name       string
		hit, thr   int
		wantCells  int
		wantFilled int
	}{
		{"half", 2, 4, 4, 2},
		{"none", 0, 3, 3, 0},
		{"over threshold", 9, 3, 3, 3},
		{"zero threshold renders one cell", 0, 0, 1, 0},
		{"zero threshold with hits", 5, 0, 1, 1},
		{"negative hit", -2, 3, 3, 0},
		{"at the cell cap", 3, MaxPartitions, MaxPartitions, 3},
		{"huge threshold half hit", 10_000_000, 20_000_000, MaxPartitions, MaxPartitions / 2},
		{"huge threshold few hits keeps one cell", 3, 20_000_000, MaxPartitions, 1},
		{"huge threshold no hits", 0, 20_000_000, MaxPartitions, 0},
		{"huge threshold exceeded", 25_000_000, 20_000_000, MaxPartitions, MaxPartitions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := Partitions(EventHit{EventID: "E1", Hit: tt.hit, Threshold: tt.thr})
			require.Len(t, parts, tt.wantCells)
			assert.Equal(t, tt.wantFilled, filledCount(parts))
		})
	}
}

func TestPartitions_FilledFirst(t *testing.T) {
	parts := Partitions(EventHit{EventID: "E7", Hit: 2, Threshold: 4})
	colors := make([]string, len(parts))
	for i, p := range parts {
		colors[i] = p.Color
	}
	want := []string{FilledColor, FilledColor, EmptyColor, EmptyColor}
	if diff := cmp.Diff(want, colors); diff != "" {
		t.Errorf("colors (-want +got):\n%s", diff)
	}
	assert.Equal(t, "E7 - Hit: 2 / Threshold: 4", parts[3].Title)
}

func TestBars(t *testing.T) {
	bars := Bars([]Coverage{
		{CoverageID: "cov-a", Events: []EventHit{{EventID: "E1", Hit: 1, Threshold: 2}, {EventID: "E2", Hit: 0, Threshold: 0}}},
		{CoverageID: "cov-b"},
	})
	require.Len(t, bars, 2)
	assert.Equal(t, "cov-a", bars[0].CoverageID)
	require.Len(t, bars[0].Events, 2)
	assert.Len(t, bars[0].Events[0].Partitions, 2)
	assert.Len(t, bars[0].Events[1].Partitions, 1)
	assert.Empty(t, bars[1].Events)
}

func TestPieSlices(t *testing.T) {
	b := EventBreakdown{EventID: "E1", IPs: []IPHit{
		{IP: "A", Hit: 3, Threshold: 5},
		{IP: "B", Hit: 1, Threshold: 2},
	}}
	want := []Slice{
		{Name: "A-Hit", Value: 3, Color: "#0088FE"},
		{Name: "B-Hit", Value: 1, Color: "#00C49F"},
		{Name: RemainingLabel, Value: 3, Color: RemainingColor},
	}
	if diff := cmp.Diff(want, PieSlices(b, palette)); diff != "" {
		t.Errorf("PieSlices (-want +got):\n%s", diff)
	}
}

func TestPieSlices_NoRemainingWhenMet(t *testing.T) {
	b := EventBreakdown{EventID: "E1", IPs: []IPHit{
		{IP: "A", Hit: 5, Threshold: 5},
		{IP: "B", Hit: 4, Threshold: 2},
		{IP: "C", Hit: 0, Threshold: 1},
	}}
	got := PieSlices(b, palette)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.NotEqual(t, RemainingLabel, s.Name)
	}
	assert.Equal(t, "#0088FE", got[2].Color, "palette rotates by position")
}

func TestSearch(t *testing.T) {
	breakdowns := []EventBreakdown{
		{EventID: "EVT1", IPs: []IPHit{{IP: "A", Hit: 1, Threshold: 1}}},
		{EventID: "E2", IPs: []IPHit{{IP: "B", Hit: 0, Threshold: 4}}},
	}

	idle := Search(breakdowns, "   ", palette)
	assert.Equal(t, SearchIdle, idle.State)

	miss := Search(breakdowns, "EVT", palette)
	assert.Equal(t, SearchNotFound, miss.State, "substring is not a match")
	assert.Equal(t, "EVT", miss.Term)
	assert.Empty(t, miss.Slices)

	hit := Search(breakdowns, " e2 ", palette)
	require.Equal(t, SearchFound, hit.State)
	assert.Equal(t, "E2", hit.EventID)
	assert.Equal(t, []Slice{
		{Name: "B-Hit", Value: 0, Color: "#0088FE"},
		{Name: RemainingLabel, Value: 4, Color: RemainingColor},
	}, hit.Slices)
}

func TestSearch_FullCaseFolding(t *testing.T) {
	breakdowns := []EventBreakdown{
		{EventID: "straße_evt", IPs: []IPHit{{IP: "A", Hit: 1, Threshold: 2}}},
	}
	// Simple folding leaves ß alone; full folding maps it to "ss".
	res := Search(breakdowns, "STRASSE_EVT", palette)
	require.Equal(t, SearchFound, res.State)
	assert.Equal(t, "straße_evt", res.EventID)
}

func TestSearchStateString(t *testing.T) {
	assert.Equal(t, "idle", SearchIdle.String())
	assert.Equal(t, "found", SearchFound.String())
	assert.Equal(t, "not_found", SearchNotFound.String())
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Coverage{
		{CoverageID: "a", Events: []EventHit{
			{EventID: "E1", Hit: 4, Threshold: 4},
			{EventID: "E2", Hit: 1, Threshold: 4},
		}},
		{CoverageID: "b", Events: []EventHit{
			{EventID: "E3", Hit: 10, Threshold: 2},
			{EventID: "E4", Hit: 0, Threshold: 0},
		}},
	})
	assert.Equal(t, 4, s.Events)
	assert.Equal(t, 3, s.Complete)
	assert.InDelta(t, (1+0.25+1+1)/4.0, s.MeanFill, 1e-9)
	assert.InDelta(t, 0.25, s.MinFill, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestFill(t *testing.T) {
	tests := []struct {
		hit, threshold int
		want           float64
	}{
		{0, 4, 0},
		{2, 4, 0.5},
		{9, 4, 1},
		{-3, 4, 0},
		{0, 0, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Fill(EventHit{Hit: tt.hit, Threshold: tt.threshold}), 1e-9,
			"hit=%d threshold=%d", tt.hit, tt.threshold)
	}
}
