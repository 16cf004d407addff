package web

import (
	"io/fs"
	"net/http"

	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/go-chi/chi/v5"
)

const (
	staticURLPrefix = "/static"
	cacheControl    = "public, max-age=3600"
)

// FileServer serves the admin's static files.
type FileServer struct {
	staticFS fs.FS
	log      logger.Logger
}

func NewFileServer(staticFS fs.FS, log logger.Logger) *FileServer {
	return &FileServer{
		staticFS: staticFS,
		log:      log,
	}
}

func (s *FileServer) RegisterRoutes(r chi.Router) {
	s.log.Debugf("Registering file server at %s", staticURLPrefix)

	files := http.StripPrefix(staticURLPrefix+"/", http.FileServer(http.FS(s.staticFS)))
	r.Handle(staticURLPrefix+"/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControl)
		files.ServeHTTP(w, r)
	}))
}
