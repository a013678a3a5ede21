package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/coverage.report/internal/coverage"
	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/indicator"
	"github.com/banshee-data/coverage.report/internal/mapping"
	"github.com/banshee-data/coverage.report/internal/security"
)

// DefaultTemplateName is used when the template response does not name its file.
const DefaultTemplateName = "coverage_template.csv"

var (
	_ coverage.Store   = (*Client)(nil)
	_ drilldown.Source = (*Client)(nil)
)

// ListEvents fetches every coverage event.
func (c *Client) ListEvents(ctx context.Context) ([]coverage.Event, error) {
	var events []coverage.Event
	if err := c.getJSON(ctx, "/coverage/", nil, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CreateEvent posts a new event.
func (c *Client) CreateEvent(ctx context.Context, f coverage.Form) (coverage.Event, error) {
	var e coverage.Event
	err := c.sendJSON(ctx, http.MethodPost, "/coverage/", f, &e)
	return e, err
}

// UpdateEvent replaces every writable field of event id.
func (c *Client) UpdateEvent(ctx context.Context, id int64, f coverage.Form) (coverage.Event, error) {
	var e coverage.Event
	err := c.sendJSON(ctx, http.MethodPut, eventPath(id), f, &e)
	return e, err
}

// DeleteEvent removes event id.
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, eventPath(id), nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

func eventPath(id int64) string {
	return "/coverage/" + strconv.FormatInt(id, 10) + "/"
}

// File is an upload attachment.
type File struct {
	Name   string
	Reader io.Reader
}

// UploadResult is the body of a successful upload.
type UploadResult struct {
	Message      string  `json:"message,omitempty"`
	Error        string  `json:"error,omitempty"`
	InsertedIDs  []int64 `json:"inserted_ids,omitempty"`
	SkippedRows  int     `json:"skipped_rows,omitempty"`
	EncodingUsed string  `json:"encoding_used,omitempty"`
}

// Summary is the text shown after an upload: the server message when there
// is one, otherwise a count of inserted and skipped rows.
func (r UploadResult) Summary() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Error != "" {
		return r.Error
	}
	s := fmt.Sprintf("Imported %d events, skipped %d rows", len(r.InsertedIDs), r.SkippedRows)
	if r.EncodingUsed != "" {
		s += " (" + r.EncodingUsed + ")"
	}
	return s + "."
}

func multipartBody(fields [][2]string, file File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file.Reader); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *Client) upload(ctx context.Context, path string, fields [][2]string, file File) (UploadResult, error) {
	body, contentType, err := multipartBody(fields, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build upload body: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body, contentType)
	if err != nil {
		return UploadResult{}, err
	}
	var res UploadResult
	if err := c.do(req, &res); err != nil {
		return UploadResult{}, err
	}
	return res, nil
}

// BulkUpload posts a CSV of events to /coverage/bulk-upload/.
func (c *Client) BulkUpload(ctx context.Context, file File) (UploadResult, error) {
	res, err := c.upload(ctx, "/coverage/bulk-upload/", nil, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("bulk upload %s: %w", file.Name, err)
	}
	return res, nil
}

// Download is a binary file served by the backend.
type Download struct {
	ContentType string
	Filename    string
	Body        []byte
}

// ErrDownloadTooLarge is returned when a file download exceeds its size limit.
var ErrDownloadTooLarge = errors.New("download too large")

// Template fetches the bulk upload template.
func (c *Client) Template(ctx context.Context) (Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/coverage/template/", nil, nil, "")
	if err != nil {
		return Download{}, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.send(req)
	if err != nil {
		return Download{}, fmt.Errorf("download template: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateBody+1))
	if err != nil {
		return Download{}, &TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	if len(body) > maxTemplateBody {
		return Download{}, fmt.Errorf("download template: %w (limit %d bytes)", ErrDownloadTooLarge, maxTemplateBody)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Download{
		ContentType: ct,
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		Body:        body,
	}, nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return DefaultTemplateName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || strings.TrimSpace(params["filename"]) == "" {
		return DefaultTemplateName
	}
	return security.SanitizeFilename(params["filename"])
}

// UniqueIPs fetches the IPs known to the indicator endpoints.
func (c *Client) UniqueIPs(ctx context.Context) ([]string, error) {
	var body struct {
		IP []string `json:"ip"`
	}
	if err := c.getJSON(ctx, "/coverage/unique-ip/", nil, &body); err != nil {
		return nil, fmt.Errorf("unique ips: %w", err)
	}
	return body.IP, nil
}

// Indicators fetches the per-coverage event hits for ip.
func (c *Client) Indicators(ctx context.Context, ip string) ([]indicator.Coverage, error) {
	var out []indicator.Coverage
	if err := c.getJSON(ctx, "/coverage/indicator/", url.Values{"ip": {ip}}, &out); err != nil {
		return nil, fmt.Errorf("indicators for %q: %w", ip, err)
	}
	return out, nil
}

// EventBreakdowns fetches every event's hits across IPs.
func (c *Client) EventBreakdowns(ctx context.Context) ([]indicator.EventBreakdown, error) {
	var out []indicator.EventBreakdown
	if err := c.getJSON(ctx, "/coverage/coverage-event/", nil, &out); err != nil {
		return nil, fmt.Errorf("event breakdowns: %w", err)
	}
	return out, nil
}

// Mappings fetches the coverage mapping rows for ip.
func (c *Client) Mappings(ctx context.Context, ip string) ([]mapping.Mapping, error) {
	var out []mapping.Mapping
	if err := c.getJSON(ctx, "/coverage/coverage-mapping/", url.Values{"ip": {ip}}, &out); err != nil {
		return nil, fmt.Errorf("mappings for %q: %w", ip, err)
	}
	return out, nil
}

// UploadMapping posts a mapping sheet for ip. The form is validated locally
// first and nothing is sent when it fails.
func (c *Client) UploadMapping(ctx context.Context, ip, sheetName string, file File) (UploadResult, error) {
	if err := (mapping.Upload{IP: ip, SheetName: sheetName, FileName: file.Name}).Validate(); err != nil {
		return UploadResult{}, err
	}
	fields := [][2]string{{"sheet_name", sheetName}, {"ip", ip}}
	res, err := c.upload(ctx, "/coverage/coverage-mapping/bulk-upload/", fields, file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload mapping for %q: %w", ip, err)
	}
	return res, nil
}

// Tools fetches the tool names.
func (c *Client) Tools(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/project/tools/", nil, &out); err != nil {
		return nil, fmt.Errorf("tools: %w", err)
	}
	return out, nil
}

// Projects fetches the projects of tool.
func (c *Client) Projects(ctx context.Context, tool string) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/project/projects/", url.Values{"tool": {tool}}, &out); err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}
	return out, nil
}

// Steppings fetches the steppings of tool and project.
func (c *Client) Steppings(ctx context.Context, tool, project string) ([]string, error) {
	var out []string
	q := url.Values{"tool": {tool}, "project": {project}}
	if err := c.getJSON(ctx, "/project/steppings/", q, &out); err != nil {
		return nil, fmt.Errorf("steppings: %w", err)
	}
	return out, nil
}

// Coverage fetches the drill-down coverage payload.
func (c *Client) Coverage(ctx context.Context, tool, project, stepping string) (drilldown.Coverage, error) {
	var out drilldown.Coverage
	q := url.Values{"tool": {tool}, "project": {project}, "stepping": {stepping}}
	if err := c.getJSON(ctx, "/project/coverage/", q, &out); err != nil {
		return drilldown.Coverage{}, fmt.Errorf("coverage: %w", err)
	}
	return out, nil
}
