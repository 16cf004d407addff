package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

var editLink = template.Must(template.New("edit-link").Parse(
	`<a href="{{.}}" style="position:fixed;right:1rem;bottom:1rem;z-index:9999;padding:.5rem .75rem;` +
		`background:#222;color:#fff;border-radius:.25rem;font:14px sans-serif;text-decoration:none">&#9998;</a>`))

// PreviewServer serves the build output and adds a link back to the admin
// page of the record behind each HTML page.
type PreviewServer struct {
	service    Service
	outputPath string
	addr       string
	adminURL   string
	server     *http.Server
	log        logger.Logger
}

// NewPreviewServer serves outputPath on addr. Edit links point to the
// admin in adminLang at adminAddr.
func NewPreviewServer(service Service, outputPath, addr, adminAddr, adminLang string, log logger.Logger) *PreviewServer {
	return &PreviewServer{
		service:    service,
		outputPath: outputPath,
		addr:       addr,
		adminURL:   "http://" + adminAddr + lektor.AdminPrefix + "/" + adminLang + "/contents",
		log:        log,
	}
}

func (s *PreviewServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s,
	}

	go func() {
		s.log.Infof("Preview server listening on %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("Preview server error: %v", err)
		}
	}()

	return nil
}

func (s *PreviewServer) Stop(ctx context.Context) error {
	if s.server != nil {
		s.log.Info("Stopping preview server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *PreviewServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	artifact := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(artifact, "/"+stateDir) {
		http.NotFound(w, r)
		return
	}

	root := filepath.Clean(s.outputPath)
	fullPath := filepath.Join(root, filepath.FromSlash(artifact))
	if fullPath != root && !strings.HasPrefix(fullPath, root+string(filepath.Separator)) {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		fullPath = filepath.Join(fullPath, "index.html")
		artifact = path.Join(artifact, "index.html")
		if _, err := os.Stat(fullPath); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	if !strings.HasSuffix(fullPath, ".html") {
		http.ServeFile(w, r, fullPath)
		return
	}
	s.serveHTML(w, r, fullPath, strings.TrimPrefix(artifact, "/"))
}

func (s *PreviewServer) serveHTML(w http.ResponseWriter, r *http.Request, fullPath, artifact string) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	if recordPath, ok := s.service.ArtifactRecord(r.Context(), artifact); ok {
		data = injectEditLink(data, s.adminURL+"?"+url.Values{"path": {recordPath}}.Encode())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

// injectEditLink places a link to editURL before the closing body tag,
// or at the end of pages without one.
func injectEditLink(page []byte, editURL string) []byte {
	var link bytes.Buffer
	if err := editLink.Execute(&link, template.URL(editURL)); err != nil {
		return page
	}

	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page, link.Bytes()...)
	}
	out := make([]byte, 0, len(page)+link.Len())
	out = append(out, page[:i]...)
	out = append(out, link.Bytes()...)
	return append(out, page[i:]...)
}
