package render

import (
	"io"
	"net/http"

	"golang.org/x/text/language"

	"github.com/cliossg/tekir/pkg/cl/htmx"
)

const (
	errorDialogTemplate = "error-dialog"
	errorDialogSelector = "#error-dialog"
)

// Fragment writes a partial with status 200.
func (r *Renderer) Fragment(w http.ResponseWriter, tag language.Tag, name string, data any) {
	r.HTML(w, http.StatusOK, func(out io.Writer) error {
		return r.Partial(out, tag, name, data)
	})
}

// Dialog writes a partial and asks the client to open the dialog with
// the given id once it has been swapped in.
func (r *Renderer) Dialog(w http.ResponseWriter, tag language.Tag, name, id string, data any) {
	htmx.ShowModal(w, "#"+id)
	r.Fragment(w, tag, name, data)
}

// ErrorDialog shows messages in the error dialog of the page, whatever
// the target of the request was.
func (r *Renderer) ErrorDialog(w http.ResponseWriter, tag language.Tag, messages ...string) {
	htmx.Retarget(w, errorDialogSelector, "innerHTML")
	htmx.ShowModal(w, errorDialogSelector)
	r.Fragment(w, tag, errorDialogTemplate, map[string]any{"Errors": messages})
}
