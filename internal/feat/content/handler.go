package content

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/formdata"
	"github.com/cliossg/tekir/pkg/cl/htmx"
	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/cliossg/tekir/pkg/cl/render"
)

const apiPrefix = lektor.AdminPrefix + "/{lang}/api"

type Handler struct {
	service  Service
	renderer *render.Renderer
	adminMw  func(http.Handler) http.Handler
	log      logger.Logger
}

func NewHandler(service Service, renderer *render.Renderer, adminMw func(http.Handler) http.Handler, log logger.Logger) *Handler {
	return &Handler{
		service:  service,
		renderer: renderer,
		adminMw:  adminMw,
		log:      log,
	}
}

// RegisterRoutes registers the content API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.adminMw)

		r.Get(apiPrefix+"/content-summary", h.HandleContentSummary)
		r.Get(apiPrefix+"/content-subpages", h.HandleContentSubpages)
		r.Get(apiPrefix+"/content-attachments", h.HandleContentAttachments)
		r.Post(apiPrefix+"/delete-collect", h.HandleDeleteCollect)
		r.Post(apiPrefix+"/delete-content", h.HandleDeleteContent)
		r.Get(apiPrefix+"/slugify", h.HandleSlugify)
		r.Get(apiPrefix+"/new-subpage", h.HandleNewSubpage)
		r.Post(apiPrefix+"/add-subpage", h.HandleAddSubpage)
		r.Get(apiPrefix+"/upload-attachment", h.HandleUploadAttachment)
		r.Post(apiPrefix+"/add-attachment", h.HandleAddAttachment)
		r.Post(apiPrefix+"/replace-attachment", h.HandleReplaceAttachment)
		r.Post(apiPrefix+"/save-content", h.HandleSaveContent)
		r.Post(apiPrefix+"/check-changes", h.HandleCheckChanges)
		r.Get(apiPrefix+"/new-flowblock", h.HandleNewFlowBlock)
		r.Get(apiPrefix+"/start-navigate", h.HandleStartNavigate)
		r.Get(apiPrefix+"/navigables", h.HandleNavigables)
	})
}

// query returns a required query parameter. A missing parameter is
// answered with an empty 400 response.
func query(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	q := r.URL.Query()
	values := make([]string, len(names))
	for i, name := range names {
		if !q.Has(name) {
			w.WriteHeader(http.StatusBadRequest)
			return nil, false
		}
		values[i] = q.Get(name)
	}
	return values, true
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, actx *lektor.AdminContext) (*formdata.Form, bool) {
	form, err := formdata.Parse(r)
	if err != nil {
		h.log.Errorf("Cannot parse form: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
		return nil, false
	}
	return form, true
}

// fail shows err in the error dialog, using the translated message for
// the errors users can cause.
func (h *Handler) fail(w http.ResponseWriter, actx *lektor.AdminContext, err error) {
	var (
		encErr      *EncodeError
		notFoundErr *lektor.NotFoundError
	)
	switch {
	case errors.Is(err, ErrMixedBlockTypes):
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgMixedBlocks))
	case errors.Is(err, ErrUnknownBlockType) && errors.As(err, &encErr) && len(encErr.BlockTypes) > 0:
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgUnknownBlock, encErr.BlockTypes[0]))
	case errors.As(err, &notFoundErr):
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgNotFound, notFoundErr.Path))
	default:
		h.log.Errorf("Cannot complete request: %v", err)
		h.renderer.ErrorDialog(w, actx.Lang, err.Error())
	}
}

func (h *Handler) HandleContentSummary(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}

	sum, err := h.service.Summary(actx, params[0])
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	name := "content-summary"
	if sum.Record.IsAttachment() {
		name = "attachment-summary"
	}
	h.renderer.Fragment(w, actx.Lang, name, map[string]any{"Ctx": actx, "Summary": sum})
}

func (h *Handler) HandleContentSubpages(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}

	rec, subpages, err := h.service.Subpages(actx, params[0])
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Fragment(w, actx.Lang, "content-subpages", map[string]any{
		"Ctx": actx, "Record": rec, "Subpages": subpages,
	})
}

func (h *Handler) HandleContentAttachments(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}

	rec, attachments, err := h.service.Attachments(actx, params[0])
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Fragment(w, actx.Lang, "content-attachments", map[string]any{
		"Ctx": actx, "Record": rec, "Attachments": attachments,
	})
}

func (h *Handler) HandleDeleteCollect(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	form, ok := h.parseForm(w, r, actx)
	if !ok {
		return
	}
	req := NewDeleteRequest(form)
	if errs := req.Validate(); errs.HasErrors() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	paths, err := h.service.RecordPaths(actx, req.Items)
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Dialog(w, actx.Lang, "delete-dialog", "delete-dialog", map[string]any{
		"Ctx": actx, "Items": paths, "FormID": req.FormID,
	})
}

func (h *Handler) HandleDeleteContent(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	form, ok := h.parseForm(w, r, actx)
	if !ok {
		return
	}
	req := NewDeleteRequest(form)
	if errs := req.Validate(); errs.HasErrors() {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(actx, req.Items); err != nil {
		h.fail(w, actx, err)
		return
	}
	htmx.Trigger(w, htmx.HeaderTriggerAfterSwap, htmx.EventDeleteCheckedRows, map[string]string{
		"form":  "#" + req.FormID,
		"modal": "#delete-dialog",
	})
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleSlugify(w http.ResponseWriter, r *http.Request) {
	params, ok := query(w, r, "title")
	if !ok {
		return
	}

	slug := Slugify(params[0])
	htmx.Trigger(w, htmx.HeaderTrigger, htmx.EventUpdateAttr, map[string]string{
		"target": "#field-slug",
		"attr":   "placeholder",
		"value":  slug,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, slug)
}

func (h *Handler) HandleNewSubpage(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}

	rec, err := actx.Pad.Get(params[0], lektor.PrimaryAlt)
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Dialog(w, actx.Lang, "new-subpage-dialog", "new-subpage-dialog", map[string]any{
		"Ctx": actx, "Record": rec, "Models": h.service.ChildModels(actx, rec),
	})
}

func (h *Handler) HandleAddSubpage(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "parent")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r, actx)
	if !ok {
		return
	}
	if _, ok := form.Get("model"); !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req := NewAddSubpageRequest(params[0], form)
	if errs := req.Validate(); errs.HasErrors() {
		if len(errs.ForField("title")) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgTitleRequired))
		return
	}

	path, err := h.service.CreateSubpage(actx, req)
	if errors.Is(err, ErrExists) {
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgContentExists))
		return
	}
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	htmx.Redirect(w, actx.URL("content/edit", "path", path))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path", "op")
	if !ok {
		return
	}

	rec, err := actx.Pad.Get(params[0], lektor.PrimaryAlt)
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Dialog(w, actx.Lang, "upload-dialog", "upload-dialog", map[string]any{
		"Ctx": actx, "Record": rec, "Endpoint": params[1],
	})
}

// uploaded returns the file of the upload dialog, showing an error when
// none was sent.
func (h *Handler) uploaded(w http.ResponseWriter, r *http.Request, actx *lektor.AdminContext) (*formdata.File, bool) {
	form, ok := h.parseForm(w, r, actx)
	if !ok {
		return nil, false
	}
	file, ok := form.File("file")
	if !ok || file.Filename == "" {
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgUploadRequired))
		return nil, false
	}
	return file, true
}

func (h *Handler) HandleAddAttachment(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}
	file, ok := h.uploaded(w, r, actx)
	if !ok {
		return
	}

	path, err := h.service.CreateAttachment(actx, params[0], file)
	if errors.Is(err, ErrExists) {
		h.renderer.ErrorDialog(w, actx.Lang, actx.T(i18n.MsgAttachmentExist))
		return
	}
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	htmx.Redirect(w, actx.URL("contents", "path", path))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleReplaceAttachment(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}
	file, ok := h.uploaded(w, r, actx)
	if !ok {
		return
	}

	if err := h.service.ReplaceAttachment(actx, params[0], file); err != nil {
		h.fail(w, actx, err)
		return
	}
	htmx.Redirect(w, actx.URL("contents", "path", lektor.CleanPath(params[0])))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleSaveContent(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r, actx)
	if !ok {
		return
	}

	saved, err := h.service.Save(actx, params[0], form)
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	message := actx.T(i18n.MsgNoChanges)
	if saved {
		message = actx.T(i18n.MsgContentSaved)
	}
	h.renderer.Dialog(w, actx.Lang, "save-dialog", "save-dialog", map[string]any{
		"Ctx": actx, "Message": message, "Path": lektor.CleanPath(params[0]),
	})
}

func (h *Handler) HandleCheckChanges(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}
	form, ok := h.parseForm(w, r, actx)
	if !ok {
		return
	}

	changed, err := h.service.HasChanges(actx, params[0], form)
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	recordURL := actx.URL("contents", "path", lektor.CleanPath(params[0]))
	if !changed {
		htmx.Redirect(w, recordURL)
		w.WriteHeader(http.StatusOK)
		return
	}

	modal := map[string]string{"modal": "#changes-dialog"}
	htmx.Trigger(w, htmx.HeaderTrigger, htmx.EventShowModal, modal)
	h.renderer.Dialog(w, actx.Lang, "changes-dialog", "changes-dialog", map[string]any{
		"Ctx": actx, "Message": actx.T(i18n.MsgUnsavedChanges), "RecordURL": recordURL,
	})
}

func (h *Handler) HandleNewFlowBlock(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path", "field_name", "flow_type")
	if !ok {
		return
	}

	block, err := h.service.NewFlowBlock(actx, params[0], params[1], params[2])
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Fragment(w, actx.Lang, "flowblock", block)
}

func (h *Handler) HandleStartNavigate(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "field_id")
	if !ok {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}

	navigables, err := h.service.Navigables(actx, path)
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Dialog(w, actx.Lang, "navigate-dialog", "navigate-dialog", map[string]any{
		"Ctx": actx, "Navigables": navigables, "FieldID": params[0],
	})
}

func (h *Handler) HandleNavigables(w http.ResponseWriter, r *http.Request) {
	actx := lektor.FromContext(r.Context())
	params, ok := query(w, r, "path")
	if !ok {
		return
	}

	navigables, err := h.service.Navigables(actx, params[0])
	if err != nil {
		h.fail(w, actx, err)
		return
	}
	h.renderer.Fragment(w, actx.Lang, "navigables", map[string]any{
		"Ctx": actx, "Navigables": navigables,
	})
}
