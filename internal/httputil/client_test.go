package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestStandardClient_Wraps(t *testing.T) {
	custom := &http.Client{}
	if c := NewStandardClient(custom); c.Client != custom {
		t.Error("expected custom client to be wrapped")
	}
	if c := NewStandardClient(nil); c.Client != http.DefaultClient {
		t.Error("expected nil to fall back to http.DefaultClient")
	}
}

func TestNewTimeoutClient(t *testing.T) {
	c := NewTimeoutClient(3 * time.Second)
	if c.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", c.Timeout)
	}
}

func TestStandardClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	resp, err := NewStandardClient(srv.Client()).Do(newRequest(t, http.MethodGet, srv.URL, ""))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "first")
	mock.AddResponse(http.StatusAccepted, "second")

	resp1, _ := mock.Do(newRequest(t, http.MethodGet, "http://example.com/1", ""))
	body1, _ := io.ReadAll(resp1.Body)
	if string(body1) != "first" {
		t.Errorf("first body = %q", body1)
	}

	resp2, _ := mock.Do(newRequest(t, http.MethodGet, "http://example.com/2", ""))
	if resp2.StatusCode != http.StatusAccepted {
		t.Errorf("second status = %d", resp2.StatusCode)
	}

	// queue exhausted: default 200
	resp3, _ := mock.Do(newRequest(t, http.MethodGet, "http://example.com/3", ""))
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("default status = %d", resp3.StatusCode)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
	}
}

func TestMockHTTPClient_RecordsBody(t *testing.T) {
	mock := NewMockHTTPClient()
	req := newRequest(t, http.MethodPost, "http://example.com/api", `{"name":"test"}`)
	if _, err := mock.Do(req); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := string(mock.GetBody(0)); got != `{"name":"test"}` {
		t.Errorf("GetBody(0) = %q", got)
	}
	// the request body stays readable for callers that inspect it later
	again, _ := io.ReadAll(mock.GetRequest(0).Body)
	if string(again) != `{"name":"test"}` {
		t.Errorf("request body after Do = %q", again)
	}
	if mock.GetRequest(5) != nil || mock.GetBody(-1) != nil {
		t.Error("out of range lookups should return nil")
	}
}

func TestMockHTTPClient_Errors(t *testing.T) {
	mock := NewMockHTTPClient()
	queued := errors.New("connection refused")
	mock.AddErrorResponse(queued)
	if _, err := mock.Do(newRequest(t, http.MethodGet, "http://example.com", "")); err != queued {
		t.Errorf("err = %v, want %v", err, queued)
	}

	mock.Reset()
	def := errors.New("network down")
	mock.DefaultError = def
	if _, err := mock.Do(newRequest(t, http.MethodGet, "http://example.com", "")); err != def {
		t.Errorf("err = %v, want %v", err, def)
	}
}

func TestMockHTTPClient_DoFunc(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTeapot,
			Body:       io.NopCloser(strings.NewReader("custom")),
			Request:    req,
		}, nil
	}
	resp, _ := mock.Do(newRequest(t, http.MethodGet, "http://example.com", ""))
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}

func TestMockHTTPClient_Headers(t *testing.T) {
	mock := NewMockHTTPClient()
	h := http.Header{}
	h.Set("Content-Disposition", `attachment; filename="t.csv"`)
	mock.AddResponseWithHeaders(http.StatusOK, "a,b\n", h)

	resp, _ := mock.Do(newRequest(t, http.MethodGet, "http://example.com", ""))
	if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="t.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}
