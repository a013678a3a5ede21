package dashboard

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/mapping"
)

const mappingPath = "/coverage/mapping"

func mappingURL(ip string) string {
	if ip == "" {
		return mappingPath
	}
	return mappingPath + "?" + url.Values{"ip": {ip}}.Encode()
}

type mappingRow struct {
	Mapping   mapping.Mapping
	Matched   int
	Unmatched int
}

type mappingPage struct {
	IPs      []string
	Selected string
	Rows     []mappingRow
	Loaded   bool
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	flash, errMsg := flashFrom(r)
	ip := strings.TrimSpace(q.Get("ip"))

	if q.Has("new_ip") {
		newIP := q.Get("new_ip")
		if err := mapping.ValidateNewIP(newIP); err != nil {
			errMsg = err.Error()
		} else {
			ip = strings.TrimSpace(newIP)
		}
	}

	var (
		ips  []string
		rows []mapping.Mapping
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		events, err := s.backend.ListEvents(ctx)
		if err != nil {
			return err
		}
		ips = mapping.DistinctIPs(events)
		return nil
	})
	if ip != "" {
		g.Go(func() error {
			var err error
			rows, err = s.backend.Mappings(ctx, ip)
			return err
		})
	}

	status := http.StatusOK
	if err := g.Wait(); err != nil {
		logf("mapping page for %q: %v", ip, err)
		status = backendStatus(err)
		errMsg = backend.UserMessage(err)
	}

	p := mappingPage{
		IPs:      mapping.WithLocalIP(ips, ip),
		Selected: ip,
		Loaded:   ip != "" && status == http.StatusOK,
	}
	for _, m := range rows {
		matched, unmatched := m.Counts()
		p.Rows = append(p.Rows, mappingRow{Mapping: m, Matched: matched, Unmatched: unmatched})
	}

	s.render(w, status, "mapping.html", layout{
		Title: "Coverage Mapping",
		Panel: "coverage",
		Tab:   "mapping",
		Flash: flash,
		Error: errMsg,
		Page:  p,
	})
}

func (s *Server) handleMappingUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(min(s.maxUpload, 8<<20)); err != nil {
		redirectWith(w, r, mappingPath, "err", mapping.MsgUploadFailed)
		return
	}
	ip := strings.TrimSpace(r.PostForm.Get("ip"))
	sheet := r.PostForm.Get("sheet_name")

	upload := mapping.Upload{IP: ip, SheetName: sheet}
	file, hdr, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		upload.FileName = hdr.Filename
	}
	if err := upload.Validate(); err != nil {
		redirectWith(w, r, mappingURL(ip), "err", err.Error())
		return
	}

	res, err := s.backend.UploadMapping(r.Context(), ip, sheet, backend.File{Name: hdr.Filename, Reader: file})
	if err != nil {
		logf("upload mapping for %q: %v", ip, err)
		msg := mapping.MsgUploadFailed
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		redirectWith(w, r, mappingURL(ip), "err", msg)
		return
	}
	msg := res.Message
	if msg == "" {
		msg = mapping.MsgUploaded
	}
	redirectWith(w, r, mappingURL(ip), "msg", msg)
}
