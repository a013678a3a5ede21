package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.report/internal/coverage"
)

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestFakeBackend_CreateEnforcesUniquePair(t *testing.T) {
	f := NewFakeBackend(t)
	f.Events = []coverage.Event{{ID: 1, EventID: "E1", IP: "pcie", Threshold: 5}}

	resp := postJSON(t, f.URL()+"/coverage/", coverage.Form{EventID: "E1", IP: "pcie", EventName: "n", EventType: "t"})
	AssertStatusCode(t, resp.StatusCode, http.StatusBadRequest)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{UniqueTogetherMessage}, body["non_field_errors"])

	resp = postJSON(t, f.URL()+"/coverage/", coverage.Form{EventID: "E1", IP: "ddr", EventName: "n", EventType: "t"})
	AssertStatusCode(t, resp.StatusCode, http.StatusCreated)
	assert.Len(t, f.EventsSnapshot(), 2)
	assert.Equal(t, 2, f.CountRequests(http.MethodPost, "/coverage/"))
}

func TestFakeBackend_UpdateAndDelete(t *testing.T) {
	f := NewFakeBackend(t)
	f.Events = []coverage.Event{{ID: 7, EventID: "E7", IP: "ddr", Threshold: 1}}

	body, _ := json.Marshal(coverage.Form{EventID: "E7", IP: "ddr", Threshold: 9})
	req, _ := http.NewRequest(http.MethodPut, f.URL()+"/coverage/7/", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	AssertStatusCode(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, 9, f.EventsSnapshot()[0].Threshold)

	req, _ = http.NewRequest(http.MethodDelete, f.URL()+"/coverage/7/", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	AssertStatusCode(t, resp.StatusCode, http.StatusNoContent)
	assert.Empty(t, f.EventsSnapshot())

	req, _ = http.NewRequest(http.MethodDelete, f.URL()+"/coverage/7/", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	AssertStatusCode(t, resp.StatusCode, http.StatusNotFound)
}

func TestFakeBackend_BulkUpload(t *testing.T) {
	f := NewFakeBackend(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "events.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(TemplateCSV + "E1,Read,perf,pcie,3\n,missing,perf,pcie,1\n"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.URL()+"/coverage/bulk-upload/", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	AssertStatusCode(t, resp.StatusCode, http.StatusCreated)

	var got struct {
		InsertedIDs []int64 `json:"inserted_ids"`
		SkippedRows int     `json:"skipped_rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got.InsertedIDs, 1)
	assert.Equal(t, 1, got.SkippedRows)

	ups := f.Uploads()
	require.Len(t, ups, 1)
	assert.Equal(t, "events.csv", ups[0].Filename)
	assert.True(t, strings.HasPrefix(ups[0].Content, "event_id,"))
}

func TestFakeBackend_Fail(t *testing.T) {
	f := NewFakeBackend(t)
	f.Fail("/project/tools/", http.StatusInternalServerError, "<html>boom</html>")

	resp, err := http.Get(f.URL() + "/project/tools/")
	require.NoError(t, err)
	resp.Body.Close()
	AssertStatusCode(t, resp.StatusCode, http.StatusInternalServerError)
	assert.Equal(t, []string{"GET /project/tools/"}, f.Requests())
}

func TestFakeBackend_DrilldownLookups(t *testing.T) {
	f := NewFakeBackend(t)
	f.Tools = []string{"sim"}
	f.Projects["sim"] = []string{"alpha"}

	resp, err := http.Get(f.URL() + "/project/projects/?tool=sim")
	require.NoError(t, err)
	defer resp.Body.Close()
	var projects []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	assert.Equal(t, []string{"alpha"}, projects)

	resp2, err := http.Get(f.URL() + "/project/steppings/?tool=sim&project=beta")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var steppings []string
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&steppings))
	assert.Empty(t, steppings)

	resp3, err := http.Get(f.URL() + "/project/coverage/?tool=sim&project=alpha&stepping=A0")
	require.NoError(t, err)
	resp3.Body.Close()
	AssertStatusCode(t, resp3.StatusCode, http.StatusNotFound)
}
