package dash

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/cliossg/tekir/internal/feat/content"
	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/internal/feat/site"
	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/cliossg/tekir/pkg/cl/middleware"
	"github.com/cliossg/tekir/pkg/cl/render"
)

const pagePrefix = lektor.AdminPrefix + "/{lang}"

// Handler serves the full admin pages. Their panels are loaded from the
// content and site APIs.
type Handler struct {
	content     content.Service
	site        site.Service
	renderer    *render.Renderer
	adminMw     func(http.Handler) http.Handler
	defaultLang language.Tag
	log         logger.Logger
}

func NewHandler(contentSvc content.Service, siteSvc site.Service, renderer *render.Renderer, adminMw func(http.Handler) http.Handler, defaultLang language.Tag, log logger.Logger) *Handler {
	return &Handler{
		content:     contentSvc,
		site:        siteSvc,
		renderer:    renderer,
		adminMw:     adminMw,
		defaultLang: defaultLang,
		log:         log,
	}
}

// RegisterRoutes registers the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get(lektor.AdminPrefix, h.HandleRoot)

	r.Group(func(r chi.Router) {
		r.Use(h.adminMw)

		r.Get(pagePrefix, h.HandleOverview)
		r.Get(pagePrefix+"/", h.HandleOverview)
		r.Get(pagePrefix+"/contents", h.HandleContents)
		r.Get(pagePrefix+"/content/edit", h.HandleEditContent)
		r.Get(pagePrefix+"/attachment/edit", h.HandleEditAttachment)
		r.Get(pagePrefix+"/attachment/file", h.HandleAttachmentFile)
	})
}

func (h *Handler) page(w http.ResponseWriter, actx *lektor.AdminContext, name string, data *Page) {
	h.renderer.HTML(w, http.StatusOK, func(out io.Writer) error {
		return h.renderer.Page(out, actx.Lang, name, data)
	})
}

func (h *Handler) renderError(w http.ResponseWriter, actx *lektor.AdminContext, status int, message string) {
	h.log.Errorf("HTTP %d: %s", status, message)
	h.renderer.HTML(w, status, func(out io.Writer) error {
		return h.renderer.Page(out, actx.Lang, "error", &Page{
			Ctx:   actx,
			Title: actx.T("Error"),
			Error: message,
		})
	})
}

// recordParam reads the required path parameter and loads its record in
// the primary alternative. It answers the request itself on failure.
func (h *Handler) recordParam(w http.ResponseWriter, r *http.Request, actx *lektor.AdminContext) (*lektor.Record, bool) {
	q := r.URL.Query()
	if !q.Has("path") {
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	rec, err := actx.Pad.Get(q.Get("path"), lektor.PrimaryAlt)
	if errors.Is(err, lektor.ErrNotFound) {
		h.renderError(w, actx, http.StatusNotFound, actx.T(i18n.MsgNotFound, lektor.CleanPath(q.Get("path"))))
		return nil, false
	}
	if err != nil {
		h.renderError(w, actx, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return rec, true
}

// HandleRoot redirects to the overview in the browser's language.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	tag := middleware.PreferredLanguage(r, i18n.Supported, h.defaultLang)
	http.Redirect(w, r, lektor.AdminPrefix+"/"+i18n.Code(tag)+"/", http.StatusFound)
}

func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	data := &Page{Ctx: actx, Title: actx.T("Overview")}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.content.PageCount(actx)
		data.PageCount = n
		return err
	})
	g.Go(func() error {
		output, err := h.site.Output(ctx, actx.Lang)
		data.Output = output
		return err
	})
	if err := g.Wait(); err != nil {
		h.renderError(w, actx, http.StatusInternalServerError, err.Error())
		return
	}

	h.page(w, actx, "overview", data)
}

func (h *Handler) HandleContents(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	rec, ok := h.recordParam(w, r, actx)
	if !ok {
		return
	}
	ancestors, err := rec.Ancestors()
	if err != nil {
		h.renderError(w, actx, http.StatusInternalServerError, err.Error())
		return
	}

	h.page(w, actx, "contents", &Page{
		Ctx:         actx,
		Title:       rec.Title(),
		Record:      rec,
		Ancestors:   ancestors,
		ChildModels: h.content.ChildModels(actx, rec),
	})
}

func (h *Handler) HandleEditContent(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	rec, ok := h.recordParam(w, r, actx)
	if !ok {
		return
	}

	data, ok := h.editPage(w, actx, rec)
	if !ok {
		return
	}
	h.page(w, actx, "content_edit", data)
}

func (h *Handler) HandleEditAttachment(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	rec, ok := h.recordParam(w, r, actx)
	if !ok {
		return
	}
	if !rec.IsAttachment() {
		http.Redirect(w, r, actx.URL("content/edit", "path", rec.Path()), http.StatusFound)
		return
	}

	data, ok := h.editPage(w, actx, rec)
	if !ok {
		return
	}
	data.Title = rec.Slug()
	data.PreviewURL = actx.URL("attachment/file", "path", rec.Path())
	h.page(w, actx, "attachment_edit", data)
}

func (h *Handler) editPage(w http.ResponseWriter, actx *lektor.AdminContext, rec *lektor.Record) (*Page, bool) {
	summary, err := h.content.Summary(actx, rec.Path())
	if err != nil {
		h.renderError(w, actx, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	form, err := h.content.EditForm(actx, rec.Path())
	if err != nil {
		h.renderError(w, actx, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return &Page{
		Ctx:        actx,
		Title:      summary.Record.Title(),
		Record:     summary.Record,
		Ancestors:  summary.Ancestors,
		Form:       form,
		Attachment: summary.Attachment,
	}, true
}

// HandleAttachmentFile serves the file of an attachment for previews.
func (h *Handler) HandleAttachmentFile(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	rec, ok := h.recordParam(w, r, actx)
	if !ok {
		return
	}
	if !rec.IsAttachment() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, rec.AttachmentFilename())
}
