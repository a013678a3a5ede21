package drilldown

import "fmt"

// Display colors.
const (
	PassColor    = "green"
	FailColor    = "red"
	NeutralColor = "gray"
)

// Layout of the event bar chart, in pixels.
const (
	BarHeight      = 50
	MinChartHeight = 150
	popoverOffset  = 30
)

// Tab is a coverage display tab.
type Tab string

const (
	TabEvents    Tab = "events"
	TabTestcases Tab = "testcases"
)

// ParseTab returns the tab named by s, defaulting to TabEvents.
func ParseTab(s string) Tab {
	if Tab(s) == TabTestcases {
		return TabTestcases
	}
	return TabEvents
}

// BarColor is green once the event reaches its threshold, red before.
func BarColor(e Event) string {
	if e.Met() {
		return PassColor
	}
	return FailColor
}

// ChartHeight is the event chart height for n events.
func ChartHeight(n int) int {
	return max(n*BarHeight, MinChartHeight)
}

// PopoverTop is the vertical offset of the description popover for the bar
// at index i.
func PopoverTop(i int) int {
	return i*BarHeight + popoverOffset
}

// Toggle returns the new open item after clicking clicked: clicking the open
// item closes it, clicking another opens that one.
func Toggle(open, clicked ID) ID {
	if open == clicked {
		return ""
	}
	return clicked
}

// EventBar is one bar of the event chart.
type EventBar struct {
	Event      Event
	Index      int
	Color      string
	Selected   bool
	PopoverTop int
}

// EventBars shapes events for the chart. selected is the event whose
// description popover is open, if any.
func EventBars(events []Event, selected ID) []EventBar {
	bars := make([]EventBar, len(events))
	for i, e := range events {
		bars[i] = EventBar{
			Event:      e,
			Index:      i,
			Color:      BarColor(e),
			Selected:   selected != "" && e.ID == selected,
			PopoverTop: PopoverTop(i),
		}
	}
	return bars
}

// StepColor colors a step block: pass green, fail red, anything else gray.
func StepColor(status string) string {
	switch status {
	case "pass":
		return PassColor
	case "fail":
		return FailColor
	}
	return NeutralColor
}

// StepBlock is one colored step of an expanded testcase.
type StepBlock struct {
	ID     ID
	Status string
	Color  string
	Title  string
}

// TestcasePanel is one accordion row.
type TestcasePanel struct {
	ID          ID
	Name        string
	Status      string
	Platform    string
	FailedSteps int
	Overall     string
	Expanded    bool
	Steps       []StepBlock
}

// TestcasePanels summarizes testcases, filling "Unknown" for a missing
// platform and "N/A" for a missing overall result. Only the expanded panel
// carries its step blocks.
func TestcasePanels(testcases []Testcase, expanded ID) []TestcasePanel {
	panels := make([]TestcasePanel, len(testcases))
	for i, tc := range testcases {
		r := tc.LatestResult
		p := TestcasePanel{
			ID:          tc.ID,
			Name:        tc.Name,
			Status:      r.Status,
			Platform:    r.Platform,
			FailedSteps: max(r.FailedSteps, 0),
			Overall:     r.OverallResult,
			Expanded:    expanded != "" && tc.ID == expanded,
		}
		if p.Platform == "" {
			p.Platform = "Unknown"
		}
		if p.Overall == "" {
			p.Overall = "N/A"
		}
		if p.Expanded {
			p.Steps = make([]StepBlock, len(r.Steps))
			for j, s := range r.Steps {
				p.Steps[j] = StepBlock{
					ID:     s.ID,
					Status: s.Status,
					Color:  StepColor(s.Status),
					Title:  fmt.Sprintf("%s: %s", s.ID, s.Status),
				}
			}
		}
		panels[i] = p
	}
	return panels
}
