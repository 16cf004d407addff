package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"golang.org/x/text/language"

	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

const (
	baseTemplate = "base.html"
	partialsGlob = "partials/*.html"
)

var (
	minifier *minify.M
	once     sync.Once
)

func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &html.Minifier{
			KeepQuotes:          true,
			KeepEndTags:         true,
			KeepDocumentTags:    true,
			KeepDefaultAttrVals: true,
		})
	})
	return minifier
}

// Renderer executes the admin templates found in fsys.
// Pages are composed of base.html, every partial and the page file.
type Renderer struct {
	fsys   fs.FS
	funcs  template.FuncMap
	minify bool
	log    logger.Logger
}

// NewRenderer returns a renderer over the templates rooted at fsys.
// extra functions override the defaults from FuncMap.
func NewRenderer(fsys fs.FS, extra template.FuncMap, minify bool, log logger.Logger) *Renderer {
	return &Renderer{
		fsys:   fsys,
		funcs:  MergeFuncMaps(FuncMap(), extra),
		minify: minify,
		log:    log,
	}
}

func (r *Renderer) funcsFor(tag language.Tag) template.FuncMap {
	return MergeFuncMaps(r.funcs, template.FuncMap{
		"t": func(key string, args ...any) string {
			return i18n.T(tag, key, args...)
		},
		"lang": func() string { return i18n.Code(tag) },
	})
}

func (r *Renderer) parse(tag language.Tag, files ...string) (*template.Template, error) {
	tmpl := template.New("").Funcs(r.funcsFor(tag))
	tmpl, err := tmpl.ParseFS(r.fsys, partialsGlob)
	if err != nil {
		return nil, fmt.Errorf("cannot parse partials: %w", err)
	}
	if len(files) == 0 {
		return tmpl, nil
	}
	tmpl, err = tmpl.ParseFS(r.fsys, files...)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %v: %w", files, err)
	}
	return tmpl, nil
}

// Page renders a full page: base.html wrapping name.html.
func (r *Renderer) Page(w io.Writer, tag language.Tag, name string, data any) error {
	tmpl, err := r.parse(tag, baseTemplate, name+".html")
	if err != nil {
		return err
	}
	return r.execute(w, tmpl, baseTemplate, data)
}

// Partial renders a template defined in one of the partial files.
func (r *Renderer) Partial(w io.Writer, tag language.Tag, name string, data any) error {
	tmpl, err := r.parse(tag)
	if err != nil {
		return err
	}
	return r.execute(w, tmpl, name, data)
}

func (r *Renderer) execute(w io.Writer, tmpl *template.Template, name string, data any) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("cannot execute %s: %w", name, err)
	}
	if !r.minify {
		_, err := buf.WriteTo(w)
		return err
	}
	return getMinifier().Minify("text/html", w, &buf)
}

// HTML writes a rendered page or partial with status, logging failures.
func (r *Renderer) HTML(w http.ResponseWriter, status int, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		r.log.Errorf("Template error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.log.Debugf("Cannot write response: %v", err)
	}
}
