package content

import (
	"html/template"

	"github.com/cliossg/tekir/internal/feat/lektor"
)

// Summary is the header shown above a record.
type Summary struct {
	Record    *lektor.Record
	Ancestors []*lektor.Record
	Model     *lektor.DataModel
	// Attachment is set for attachment records.
	Attachment *lektor.AttachmentInfo
}

// AttachmentItem is one row of an attachment listing.
type AttachmentItem struct {
	Record *lektor.Record
	Info   lektor.AttachmentInfo
}

// Navigable is one entry of the link picker.
type Navigable struct {
	Path        string
	Title       string
	HasChildren bool
}

// FieldView is a form control for one field of a record or flow block.
type FieldView struct {
	Field   lektor.Field
	Label   string
	Key     string
	Value   string
	Checked bool
	// Preview is rendered for markdown fields.
	Preview template.HTML
	// Blocks and BlockTypes are set for flow fields.
	Blocks     []BlockView
	BlockTypes []BlockType
}

func (f FieldView) Kind() string { return f.Field.Kind().String() }

// BlockView is one flow block inside a flow field.
type BlockView struct {
	FieldName string
	Index     string
	Type      string
	Name      string
	Fields    []FieldView
}

// Marker is the form key registering the block even when all its
// fields are empty.
func (b BlockView) Marker() string {
	return FormKey{Field: b.FieldName, Index: b.Index, BlockType: b.Type, Subfield: blockMarker}.String()
}

// BlockType is a flow block type a flow field accepts.
type BlockType struct {
	ID   string
	Name string
}

// EditForm is the edit page of a record.
type EditForm struct {
	Record *lektor.Record
	Fields []FieldView
}
