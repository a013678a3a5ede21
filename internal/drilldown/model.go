// Package drilldown implements the tool, project and stepping drill-down:
// the selection state machine, the cascading loader and the shaping of
// coverage events and testcases for display.
package drilldown

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a server-assigned identifier. The backend serves ids as either JSON
// numbers or strings; both decode to their text form.
type ID string

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Event is one coverage event of a stepping.
type Event struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Threshold   int    `json:"threshold"`
	Description string `json:"description"`
}

// Met reports whether the event reached its threshold.
func (e Event) Met() bool { return e.Count >= e.Threshold }

// Step is one execution step of a testcase run.
type Step struct {
	ID     ID     `json:"id"`
	Status string `json:"status"`
}

// Result is the latest run of a testcase.
type Result struct {
	Status        string `json:"status"`
	Platform      string `json:"platform"`
	FailedSteps   int    `json:"failedSteps"`
	OverallResult string `json:"overallResult"`
	Steps         []Step `json:"steps"`
}

// Testcase is one testcase with its latest run.
type Testcase struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	LatestResult Result `json:"latestResult"`
}

// Coverage is the payload of GET /project/coverage/.
type Coverage struct {
	Events    []Event    `json:"events"`
	Testcases []Testcase `json:"testcases"`
}
