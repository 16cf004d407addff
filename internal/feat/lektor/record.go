package lektor

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Record is a page or attachment of the content tree, read for one alt.
type Record struct {
	pad        *Pad
	path       string
	alt        string
	dir        string
	file       string
	source     string
	attachment bool

	own     []Entry
	primary []Entry
}

func (r *Record) load(primaryFile string) error {
	var err error
	if r.source == primaryFile {
		r.own, _, err = readEntries(primaryFile)
		return err
	}
	if r.own, _, err = readEntries(r.source); err != nil {
		return err
	}
	r.primary, _, err = readEntries(primaryFile)
	return err
}

func (r *Record) Pad() *Pad { return r.pad }

// Path is the record path, "/" for the root.
func (r *Record) Path() string { return r.path }

func (r *Record) Alt() string { return r.alt }

func (r *Record) IsAttachment() bool { return r.attachment }

// IsRoot reports whether r is the root page.
func (r *Record) IsRoot() bool { return r.path == "/" }

// Slug is the last segment of the path.
func (r *Record) Slug() string {
	if r.IsRoot() {
		return ""
	}
	return path.Base(r.path)
}

// SourceFilename is the file holding the fields of r for its alt.
func (r *Record) SourceFilename() string { return r.source }

// PrimaryFilename is the file holding the untranslated fields.
func (r *Record) PrimaryFilename() string {
	if r.attachment {
		return attachmentMetaFile(r.file, PrimaryAlt)
	}
	return ContentsFile(r.dir, PrimaryAlt)
}

// Dir is the directory of a page or the directory holding an attachment.
func (r *Record) Dir() string { return r.dir }

// AttachmentFilename is the file of an attachment, empty for pages.
func (r *Record) AttachmentFilename() string { return r.file }

// Raw returns the stored value of name, falling back to the primary file
// for translations.
func (r *Record) Raw(name string) (string, bool) {
	for _, e := range r.own {
		if e.Key == name {
			return e.Value, true
		}
	}
	for _, e := range r.primary {
		if e.Key == name {
			return e.Value, true
		}
	}
	return "", false
}

// Get returns the stored value of name or the empty string.
func (r *Record) Get(name string) string {
	v, _ := r.Raw(name)
	return v
}

// Entries returns the stored entries of r in file order.
func (r *Record) Entries() []Entry {
	if len(r.primary) == 0 {
		return append([]Entry(nil), r.own...)
	}
	seen := map[string]bool{}
	var out []Entry
	for _, e := range r.own {
		seen[e.Key] = true
		out = append(out, e)
	}
	for _, e := range r.primary {
		if !seen[e.Key] {
			out = append(out, e)
		}
	}
	return out
}

// IsTranslation reports whether r was loaded for a non-primary alt.
func (r *Record) IsTranslation() bool {
	return r.alt != PrimaryAlt
}

// Primary returns the untranslated version of r.
func (r *Record) Primary() (*Record, error) {
	if !r.IsTranslation() {
		return r, nil
	}
	return r.pad.Get(r.path, PrimaryAlt)
}

// Parent returns the parent page or nil for the root.
func (r *Record) Parent() (*Record, error) {
	if r.IsRoot() {
		return nil, nil
	}
	return r.pad.Get(path.Dir(r.path), r.alt)
}

// DefaultModel is the model a record gets when it stores no _model.
func (r *Record) DefaultModel() string {
	parent, err := r.Parent()
	if err == nil && parent != nil {
		pm := parent.Model()
		if r.attachment {
			if pm.Attachments.Model != "" {
				return pm.Attachments.Model
			}
			return noneModel.ID
		}
		if pm.Children.Model != "" {
			return pm.Children.Model
		}
	}
	if r.attachment {
		return noneModel.ID
	}
	return "page"
}

// ModelID is the stored _model or the default model.
func (r *Record) ModelID() string {
	if v, ok := r.Raw("_model"); ok && v != "" {
		return v
	}
	return r.DefaultModel()
}

// Model returns the data model of r. Unknown models resolve to a model
// without fields.
func (r *Record) Model() *DataModel {
	if m, ok := r.pad.project.Model(r.ModelID()); ok {
		return m
	}
	return noneModel
}

// Template is the stored _template or the model default.
func (r *Record) Template() string {
	if v, ok := r.Raw("_template"); ok && v != "" {
		return v
	}
	return r.Model().DefaultTemplate()
}

// Title is the title field, falling back to the slug.
func (r *Record) Title() string {
	if t := r.Get("title"); t != "" {
		return t
	}
	if r.IsRoot() {
		return "/"
	}
	return r.Slug()
}

// FlowBlocks parses the flow field name.
func (r *Record) FlowBlocks(name string) []FlowBlock {
	return ParseFlow(r.Get(name))
}

// Ancestors returns the pages from the root down to the parent of r.
func (r *Record) Ancestors() ([]*Record, error) {
	var out []*Record
	current := r
	for {
		parent, err := current.Parent()
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		out = append(out, parent)
		current = parent
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *Record) childPath(name string) string {
	return path.Join(r.path, name)
}

// Children returns the subpages of r sorted by slug.
func (r *Record) Children() ([]*Record, error) {
	if r.attachment {
		return nil, nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", r.path, err)
	}
	var out []*Record
	for _, e := range entries {
		if !e.IsDir() || isHiddenName(e.Name()) {
			continue
		}
		child, err := r.pad.Get(r.childPath(e.Name()), r.alt)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	sortBySlug(out)
	return out, nil
}

// HasChildren reports whether r has at least one subpage.
func (r *Record) HasChildren() bool {
	if r.attachment {
		return false
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() && !isHiddenName(e.Name()) {
			return true
		}
	}
	return false
}

// Attachments returns the attachments of r sorted by slug.
func (r *Record) Attachments() ([]*Record, error) {
	if r.attachment {
		return nil, nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", r.path, err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !isAttachmentName(e.Name()) {
			continue
		}
		att, err := r.pad.Get(r.childPath(e.Name()), r.alt)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	sortBySlug(out)
	return out, nil
}

func sortBySlug(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Slug() < records[j].Slug()
	})
}

// FSDir is the directory to show in a file manager for r.
func (r *Record) FSDir() string {
	return filepath.Clean(r.dir)
}
