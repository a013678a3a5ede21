package drilldown

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	var c Coverage
	payload := `{
		"events": [{"id": 7, "name": "E1", "count": 1, "threshold": 2, "description": "d"}],
		"testcases": [{"id": "tc-1", "name": "boot", "latestResult": {"status": "fail", "steps": [{"id": 3, "status": "pass"}, {"id": null, "status": "skip"}]}}]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &c))
	assert.Equal(t, ID("7"), c.Events[0].ID)
	assert.Equal(t, ID("tc-1"), c.Testcases[0].ID)
	assert.Equal(t, ID("3"), c.Testcases[0].LatestResult.Steps[0].ID)
	assert.Equal(t, ID(""), c.Testcases[0].LatestResult.Steps[1].ID)

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestEventBars(t *testing.T) {
	events := []Event{
		{ID: "1", Count: 5, Threshold: 5},
		{ID: "2", Count: 1, Threshold: 5},
		{ID: "3", Count: 0, Threshold: 0},
	}
	bars := EventBars(events, "2")
	want := []EventBar{
		{Event: events[0], Index: 0, Color: PassColor, PopoverTop: 30},
		{Event: events[1], Index: 1, Color: FailColor, Selected: true, PopoverTop: 80},
		{Event: events[2], Index: 2, Color: PassColor, PopoverTop: 130},
	}
	if diff := cmp.Diff(want, bars); diff != "" {
		t.Errorf("EventBars (-want +got):\n%s", diff)
	}
}

func TestChartHeight(t *testing.T) {
	assert.Equal(t, 150, ChartHeight(0))
	assert.Equal(t, 150, ChartHeight(3))
	assert.Equal(t, 200, ChartHeight(4))
}

func TestToggle(t *testing.T) {
	assert.Equal(t, ID("2"), Toggle("", "2"))
	assert.Equal(t, ID(""), Toggle("2", "2"))
	assert.Equal(t, ID("3"), Toggle("2", "3"))
}

func TestParseTab(t *testing.T) {
	assert.Equal(t, TabTestcases, ParseTab("testcases"))
	assert.Equal(t, TabEvents, ParseTab(""))
	assert.Equal(t, TabEvents, ParseTab("bogus"))
}

func TestTestcasePanels(t *testing.T) {
	tcs := []Testcase{
		{ID: "1", Name: "boot", LatestResult: Result{Status: "pass"}},
		{ID: "2", Name: "link", LatestResult: Result{
			Status: "fail", Platform: "emu", FailedSteps: 1, OverallResult: "FAIL",
			Steps: []Step{{ID: "s1", Status: "pass"}, {ID: "s2", Status: "fail"}, {ID: "s3", Status: "skipped"}},
		}},
	}
	panels := TestcasePanels(tcs, "2")
	require.Len(t, panels, 2)

	assert.Equal(t, "Unknown", panels[0].Platform)
	assert.Equal(t, 0, panels[0].FailedSteps)
	assert.Equal(t, "N/A", panels[0].Overall)
	assert.False(t, panels[0].Expanded)
	assert.Nil(t, panels[0].Steps)

	assert.True(t, panels[1].Expanded)
	assert.Equal(t, "emu", panels[1].Platform)
	want := []StepBlock{
		{ID: "s1", Status: "pass", Color: PassColor, Title: "s1: pass"},
		{ID: "s2", Status: "fail", Color: FailColor, Title: "s2: fail"},
		{ID: "s3", Status: "skipped", Color: NeutralColor, Title: "s3: skipped"},
	}
	assert.Equal(t, want, panels[1].Steps)
}
