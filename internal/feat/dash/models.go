package dash

import (
	"github.com/cliossg/tekir/internal/feat/content"
	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/internal/feat/site"
)

// Page is the data of every full admin page. Each page fills the fields
// its template needs.
type Page struct {
	Ctx   *lektor.AdminContext
	Title string

	Record      *lektor.Record
	Ancestors   []*lektor.Record
	ChildModels []*lektor.DataModel
	Form        *content.EditForm
	Attachment  *lektor.AttachmentInfo
	PreviewURL  string

	PageCount int
	Output    *site.Output

	Error string
}
