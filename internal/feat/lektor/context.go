package lektor

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/middleware"
)

type contextKey string

const adminContextKey contextKey = "admin-context"

// AdminPrefix is the URL prefix of every admin page.
const AdminPrefix = "/tekir-admin"

// AdminContext is the request-scoped state every admin operation receives.
type AdminContext struct {
	Lang    language.Tag
	Alt     string
	Pad     *Pad
	Project *Project
}

// NewAdminContext returns a context for the primary alt of project.
func NewAdminContext(project *Project, lang language.Tag) *AdminContext {
	return &AdminContext{
		Lang:    lang,
		Alt:     PrimaryAlt,
		Pad:     NewPad(project),
		Project: project,
	}
}

// LangCode is the admin language as used in URLs.
func (a *AdminContext) LangCode() string {
	return i18n.Code(a.Lang)
}

// T translates key into the admin language.
func (a *AdminContext) T(key string, args ...any) string {
	return i18n.T(a.Lang, key, args...)
}

// Get loads a record for the alt of the context.
func (a *AdminContext) Get(path string) (*Record, error) {
	return a.Pad.Get(path, a.Alt)
}

// URL returns the admin URL of page for the language of the context,
// keeping a non-primary alt. kv are query parameter pairs.
func (a *AdminContext) URL(page string, kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	if a.Alt != "" && a.Alt != PrimaryAlt {
		q.Set("alt", a.Alt)
	}
	u := AdminPrefix + "/" + a.LangCode() + "/" + strings.TrimPrefix(page, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// WithAdminContext stores actx in ctx.
func WithAdminContext(ctx context.Context, actx *AdminContext) context.Context {
	return context.WithValue(ctx, adminContextKey, actx)
}

// FromContext returns the admin context of a request, nil outside the
// admin routes.
func FromContext(ctx context.Context) *AdminContext {
	actx, _ := ctx.Value(adminContextKey).(*AdminContext)
	return actx
}

// AdminContextMiddleware resolves the {lang} URL parameter and the optional
// alt query parameter into an AdminContext.
func AdminContextMiddleware(project *Project) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag, ok := i18n.Parse(chi.URLParam(r, "lang"))
			if !ok {
				http.NotFound(w, r)
				return
			}

			actx := NewAdminContext(project, tag)
			if alt := r.URL.Query().Get("alt"); alt != "" {
				resolved, ok := project.ResolveAlt(alt)
				if !ok {
					http.Error(w, "Unknown alternative", http.StatusBadRequest)
					return
				}
				actx.Alt = resolved
			}

			ctx := middleware.WithLanguage(r.Context(), tag)
			ctx = WithAdminContext(ctx, actx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
