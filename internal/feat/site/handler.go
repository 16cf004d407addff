package site

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/formdata"
	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/cliossg/tekir/pkg/cl/render"
)

const (
	apiPrefix = lektor.AdminPrefix + "/{lang}/api"

	// publishTimeout bounds a single publish request.
	publishTimeout = 10 * time.Minute
)

// PageCounter counts the pages of the project.
type PageCounter interface {
	PageCount(actx *lektor.AdminContext) (int, error)
}

type Handler struct {
	service  Service
	pages    PageCounter
	renderer *render.Renderer
	adminMw  func(http.Handler) http.Handler
	log      logger.Logger
}

func NewHandler(service Service, pages PageCounter, renderer *render.Renderer, adminMw func(http.Handler) http.Handler, log logger.Logger) *Handler {
	return &Handler{
		service:  service,
		pages:    pages,
		renderer: renderer,
		adminMw:  adminMw,
		log:      log,
	}
}

// RegisterRoutes registers the site API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.adminMw)

		r.Get(apiPrefix+"/open-folder", h.HandleOpenFolder)
		r.Get(apiPrefix+"/site-summary", h.HandleSiteSummary)
		r.Get(apiPrefix+"/site-output", h.HandleSiteOutput)
		r.Get(apiPrefix+"/clean-build", h.HandleCleanBuild)
		r.Get(apiPrefix+"/build", h.HandleBuild)
		r.Get(apiPrefix+"/publish-info", h.HandlePublishInfo)
		r.Post(apiPrefix+"/publish-build", h.HandlePublishBuild)
	})
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, template.HTMLEscapeString(text))
}

func (h *Handler) HandleOpenFolder(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	q := r.URL.Query()

	fsPath := q.Get("fs_path")
	if fsPath == "" {
		if !q.Has("path") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec, err := actx.Pad.Get(q.Get("path"), lektor.PrimaryAlt)
		if err != nil {
			h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgNotFound, lektor.CleanPath(q.Get("path"))))
			return
		}
		fsPath = rec.Dir()
	}

	if err := h.service.OpenFolder(r.Context(), fsPath); err != nil {
		h.log.Errorf("Cannot open folder: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleSiteSummary(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())

	count, err := h.pages.PageCount(actx)
	if err != nil {
		h.log.Errorf("Cannot count pages: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return
	}
	h.renderer.Fragment(w, actx.Lang, "site-summary", map[string]any{"Ctx": actx, "PageCount": count})
}

func (h *Handler) HandleSiteOutput(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())

	output, err := h.service.Output(r.Context(), actx.Lang)
	if err != nil {
		h.log.Errorf("Cannot read build output: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return
	}
	h.renderer.Fragment(w, actx.Lang, "site-output", map[string]any{"Ctx": actx, "Output": output})
}

func (h *Handler) HandleCleanBuild(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())

	if err := h.service.Clean(r.Context()); err != nil {
		h.log.Errorf("Cannot clean build: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return
	}
	writeText(w, actx.T(i18n.MsgNoOutput))
}

func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())

	failures, err := h.service.Build(r.Context())
	if err != nil {
		h.log.Errorf("Cannot build project: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return
	}
	if len(failures) > 0 {
		h.renderer.ErrorDialog(w, actx.Lang, failures...)
		return
	}
	writeText(w, h.service.OutputTime(actx.Lang))
}

func (h *Handler) HandlePublishInfo(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())

	h.renderer.Dialog(w, actx.Lang, "publish-dialog", "publish-dialog", map[string]any{
		"Ctx": actx, "Servers": actx.Project.Servers(),
	})
}

func (h *Handler) HandlePublishBuild(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())

	form, err := formdata.Parse(r)
	if err != nil {
		h.log.Errorf("Cannot parse form: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return
	}
	serverID, ok := form.Get("server")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	server, ok := actx.Project.Server(serverID)
	if !ok {
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgUnknownServer, serverID))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()

	lines, err := h.service.Publish(ctx, server)
	if err != nil {
		h.log.Errorf("Cannot publish to %s: %v", server.ID, err)
		h.renderer.ErrorDialog(w, actx.Lang, append(lines, err.Error())...)
		return
	}
	writeText(w, strings.Join(lines, "\n"))
}
