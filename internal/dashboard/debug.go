package dashboard

import (
	"fmt"
	"io"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/httputil"
	"github.com/banshee-data/coverage.report/internal/version"
)

// AttachDebugRoutes hangs the operator pages off /debug/.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())
	debug.KV("Backend", s.backend.BaseURL())

	debug.HandleFunc("config", "Effective dashboard configuration", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, map[string]any{
			"backend_url":         s.cfg.GetBackendURL(),
			"listen":              s.cfg.GetListen(),
			"request_timeout":     s.cfg.GetRequestTimeout().String(),
			"max_upload_bytes":    s.maxUpload,
			"palette":             s.palette,
			"echarts_assets_host": s.assetsHost,
		})
	})

	debug.HandleFunc("ping-backend", "Time a tool list request against the backend", func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		tools, err := s.backend.Tools(r.Context())
		elapsed := s.clock.Since(start)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err != nil {
			w.WriteHeader(backendStatus(err))
			fmt.Fprintf(w, "backend %s failed after %v: %v\n", s.backend.BaseURL(), elapsed, err)
			return
		}
		io.WriteString(w, fmt.Sprintf("backend %s answered in %v with %d tools\n", s.backend.BaseURL(), elapsed, len(tools)))
	})

	debug.HandleSilentFunc("request-id", func(w http.ResponseWriter, r *http.Request) {
		id, _ := backend.RequestID(r.Context())
		io.WriteString(w, id+"\n")
	})
}
