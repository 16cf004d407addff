package content

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/formdata"
	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

var (
	ErrExists          = errors.New("already exists")
	ErrInvalidName     = errors.New("invalid name")
	ErrUnknownModel    = errors.New("unknown model")
	ErrNotFlowField    = errors.New("not a flow field")
	ErrBlockNotAllowed = errors.New("flow block type not allowed")
	ErrNotAttachment   = errors.New("not an attachment")
	ErrRootRecord      = errors.New("the root record cannot be changed this way")
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Service implements the content operations of the admin.
type Service interface {
	Summary(actx *lektor.AdminContext, path string) (*Summary, error)
	Subpages(actx *lektor.AdminContext, path string) (*lektor.Record, []*lektor.Record, error)
	Attachments(actx *lektor.AdminContext, path string) (*lektor.Record, []AttachmentItem, error)
	PageCount(actx *lektor.AdminContext) (int, error)
	ChildModels(actx *lektor.AdminContext, rec *lektor.Record) []*lektor.DataModel

	CreateSubpage(actx *lektor.AdminContext, req AddSubpageRequest) (string, error)
	CreateAttachment(actx *lektor.AdminContext, parent string, file *formdata.File) (string, error)
	ReplaceAttachment(actx *lektor.AdminContext, path string, file *formdata.File) error
	RecordPaths(actx *lektor.AdminContext, paths []string) ([]string, error)
	Delete(actx *lektor.AdminContext, paths []string) error

	Save(actx *lektor.AdminContext, path string, form Form) (bool, error)
	HasChanges(actx *lektor.AdminContext, path string, form Form) (bool, error)

	EditForm(actx *lektor.AdminContext, path string) (*EditForm, error)
	NewFlowBlock(actx *lektor.AdminContext, path, field, blockType string) (*BlockView, error)
	Navigables(actx *lektor.AdminContext, path string) ([]Navigable, error)
	Preview(markdown string) (template.HTML, error)
}

type service struct {
	processor *Processor
	log       logger.Logger
}

func NewService(log logger.Logger) Service {
	return &service{
		processor: NewProcessor(),
		log:       log,
	}
}

func (s *service) Summary(actx *lektor.AdminContext, path string) (*Summary, error) {
	rec, err := actx.Get(path)
	if err != nil {
		return nil, err
	}
	ancestors, err := rec.Ancestors()
	if err != nil {
		return nil, err
	}

	sum := &Summary{Record: rec, Ancestors: ancestors, Model: rec.Model()}
	if rec.IsAttachment() {
		info, err := rec.Info()
		if err != nil {
			return nil, err
		}
		sum.Attachment = &info
	}
	return sum, nil
}

func (s *service) Subpages(actx *lektor.AdminContext, path string) (*lektor.Record, []*lektor.Record, error) {
	rec, err := actx.Get(path)
	if err != nil {
		return nil, nil, err
	}
	children, err := rec.Children()
	if err != nil {
		return nil, nil, err
	}
	return rec, children, nil
}

func (s *service) Attachments(actx *lektor.AdminContext, path string) (*lektor.Record, []AttachmentItem, error) {
	rec, err := actx.Get(path)
	if err != nil {
		return nil, nil, err
	}
	atts, err := rec.Attachments()
	if err != nil {
		return nil, nil, err
	}

	items := make([]AttachmentItem, 0, len(atts))
	for _, a := range atts {
		info, err := a.Info()
		if err != nil {
			s.log.Warnf("Cannot inspect attachment %s: %v", a.Path(), err)
		}
		items = append(items, AttachmentItem{Record: a, Info: info})
	}
	return rec, items, nil
}

// PageCount counts the pages below the root.
func (s *service) PageCount(actx *lektor.AdminContext) (int, error) {
	root, err := actx.Pad.Root(lektor.PrimaryAlt)
	if err != nil {
		return 0, err
	}
	return countSubpages(root)
}

func countSubpages(rec *lektor.Record) (int, error) {
	children, err := rec.Children()
	if err != nil {
		return 0, err
	}
	n := len(children)
	for _, c := range children {
		sub, err := countSubpages(c)
		if err != nil {
			return 0, err
		}
		n += sub
	}
	return n, nil
}

// ChildModels lists the models a new subpage of rec may use, sorted by
// their name in the admin language.
func (s *service) ChildModels(actx *lektor.AdminContext, rec *lektor.Record) []*lektor.DataModel {
	pm := rec.Model()
	if !pm.Children.Enabled {
		return nil
	}

	var models []*lektor.DataModel
	if pm.Children.Model != "" {
		if m, ok := actx.Project.Model(pm.Children.Model); ok {
			models = append(models, m)
		}
		return models
	}

	for _, m := range actx.Project.Models() {
		if !m.Hidden {
			models = append(models, m)
		}
	}
	i18n.SortBy(actx.Lang, models, func(m *lektor.DataModel) string {
		return m.LocalizedName(actx.Lang)
	})
	return models
}

// CreateSubpage creates a page below req.Parent and returns its path.
func (s *service) CreateSubpage(actx *lektor.AdminContext, req AddSubpageRequest) (string, error) {
	parent, err := actx.Pad.Get(req.Parent, lektor.PrimaryAlt)
	if err != nil {
		return "", err
	}
	if parent.IsAttachment() {
		return "", fmt.Errorf("%w: %s has no subpages", ErrInvalidName, parent.Path())
	}
	if _, ok := actx.Project.Model(req.Model); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, req.Model)
	}

	title := strings.TrimSpace(req.Title)
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = title
	}
	slug = Slugify(slug)
	if slug == "" {
		return "", fmt.Errorf("%w: cannot derive a slug from %q", ErrInvalidName, title)
	}

	dir := filepath.Join(parent.Dir(), slug)
	if err := os.Mkdir(dir, dirMode); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, slug)
		}
		return "", fmt.Errorf("cannot create %s: %w", slug, err)
	}

	text := lektor.Serialize([]lektor.Entry{
		{Key: "_model", Value: req.Model},
		{Key: "title", Value: title},
	})
	if err := os.WriteFile(lektor.ContentsFile(dir, lektor.PrimaryAlt), []byte(text), fileMode); err != nil {
		return "", fmt.Errorf("cannot write record %s: %w", slug, err)
	}

	p := path.Join(parent.Path(), slug)
	s.log.Infof("Created page %s with model %s", p, req.Model)
	return p, nil
}

func attachmentName(filename string) (string, error) {
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(filename, `\`, "/")))
	if name == "." || name == string(filepath.Separator) || name == "" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		strings.HasSuffix(name, ".lr") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return name, nil
}

// CreateAttachment stores file as an attachment of parent and returns the
// path of the new attachment.
func (s *service) CreateAttachment(actx *lektor.AdminContext, parent string, file *formdata.File) (string, error) {
	rec, err := actx.Pad.Get(parent, lektor.PrimaryAlt)
	if err != nil {
		return "", err
	}
	if rec.IsAttachment() {
		return "", fmt.Errorf("%w: %s cannot have attachments", ErrInvalidName, rec.Path())
	}
	name, err := attachmentName(file.Filename)
	if err != nil {
		return "", err
	}

	target := filepath.Join(rec.Dir(), name)
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", fmt.Errorf("cannot create attachment %s: %w", name, err)
	}
	if _, err := f.Write(file.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("cannot write attachment %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cannot write attachment %s: %w", name, err)
	}

	p := path.Join(rec.Path(), name)
	s.log.Infof("Added attachment %s (%d bytes)", p, len(file.Data))
	return p, nil
}

// ReplaceAttachment overwrites the file of an attachment record.
func (s *service) ReplaceAttachment(actx *lektor.AdminContext, path string, file *formdata.File) error {
	rec, err := actx.Pad.Get(path, lektor.PrimaryAlt)
	if err != nil {
		return err
	}
	if !rec.IsAttachment() {
		return fmt.Errorf("%w: %s", ErrNotAttachment, rec.Path())
	}
	if err := os.WriteFile(rec.AttachmentFilename(), file.Data, fileMode); err != nil {
		return fmt.Errorf("cannot replace attachment %s: %w", rec.Path(), err)
	}
	s.log.Infof("Replaced attachment %s (%d bytes)", rec.Path(), len(file.Data))
	return nil
}

// RecordPaths expands paths with every page and attachment below them.
// The root is never included.
func (s *service) RecordPaths(actx *lektor.AdminContext, paths []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string

	var walk func(rec *lektor.Record) error
	walk = func(rec *lektor.Record) error {
		if !rec.IsRoot() && !seen[rec.Path()] {
			seen[rec.Path()] = true
			out = append(out, rec.Path())
		}
		if rec.IsAttachment() {
			return nil
		}
		atts, err := rec.Attachments()
		if err != nil {
			return err
		}
		for _, a := range atts {
			if !seen[a.Path()] {
				seen[a.Path()] = true
				out = append(out, a.Path())
			}
		}
		children, err := rec.Children()
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	for _, p := range paths {
		if lektor.CleanPath(p) == "/" {
			continue
		}
		rec, err := actx.Pad.Get(p, lektor.PrimaryAlt)
		if err != nil {
			return nil, err
		}
		if err := walk(rec); err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes the records at paths from disk. Pages go with their
// whole directory, attachments with their metadata files.
func (s *service) Delete(actx *lektor.AdminContext, paths []string) error {
	for _, p := range paths {
		if lektor.CleanPath(p) == "/" {
			return ErrRootRecord
		}
	}

	for _, p := range paths {
		rec, err := actx.Pad.Get(p, lektor.PrimaryAlt)
		if errors.Is(err, lektor.ErrNotFound) {
			// Already removed along with a selected parent.
			continue
		}
		if err != nil {
			return err
		}

		if !rec.IsAttachment() {
			if err := os.RemoveAll(rec.Dir()); err != nil {
				return fmt.Errorf("cannot delete %s: %w", rec.Path(), err)
			}
			s.log.Infof("Deleted page %s", rec.Path())
			continue
		}

		if err := removeAttachment(rec.AttachmentFilename()); err != nil {
			return fmt.Errorf("cannot delete %s: %w", rec.Path(), err)
		}
		s.log.Infof("Deleted attachment %s", rec.Path())
	}
	return nil
}

func removeAttachment(file string) error {
	dir, name := filepath.Split(file)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		n := e.Name()
		if n == name+".lr" || (strings.HasPrefix(n, name+"+") && strings.HasSuffix(n, ".lr")) {
			if err := os.Remove(filepath.Join(dir, n)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// encode returns the record text for form and the current text of the
// source file. A missing source reads as an empty record.
func (s *service) encode(actx *lektor.AdminContext, path string, form Form) (*lektor.Record, string, string, error) {
	rec, err := actx.Get(path)
	if err != nil {
		return nil, "", "", err
	}
	text, err := EncodeRecord(actx, rec, form)
	if err != nil {
		return nil, "", "", err
	}

	current := "\n"
	data, err := os.ReadFile(rec.SourceFilename())
	switch {
	case err == nil:
		current = string(data)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, "", "", fmt.Errorf("cannot read %s: %w", rec.Path(), err)
	}
	return rec, text, current, nil
}

// Save writes the encoded form to the record file when it differs from
// the stored text. It reports whether the file was written.
func (s *service) Save(actx *lektor.AdminContext, path string, form Form) (bool, error) {
	rec, text, current, err := s.encode(actx, path, form)
	if err != nil {
		return false, err
	}
	if text == current {
		return false, nil
	}
	if err := os.WriteFile(rec.SourceFilename(), []byte(text), fileMode); err != nil {
		return false, fmt.Errorf("cannot save %s: %w", rec.Path(), err)
	}
	s.log.Infof("Saved %s (%s)", rec.Path(), rec.Alt())
	return true, nil
}

// HasChanges reports whether form differs from the stored record.
func (s *service) HasChanges(actx *lektor.AdminContext, path string, form Form) (bool, error) {
	_, text, current, err := s.encode(actx, path, form)
	if err != nil {
		return false, err
	}
	return text != current, nil
}

// EditForm builds the form controls for the record at path.
func (s *service) EditForm(actx *lektor.AdminContext, path string) (*EditForm, error) {
	rec, err := actx.Get(path)
	if err != nil {
		return nil, err
	}

	form := &EditForm{Record: rec}
	for _, f := range rec.Model().Fields {
		value, stored := rec.Raw(f.Name)
		fv := s.fieldView(actx, f, f.Name, value, stored)
		if f.Kind() == lektor.KindFlow {
			fv.BlockTypes = blockTypes(actx, f)
			for i, block := range rec.FlowBlocks(f.Name) {
				bv, ok := s.blockView(actx, f.Name, fmt.Sprint(i), block.Type, block.Entries)
				if !ok {
					s.log.Warnf("Skipping flow block of unknown type %s in %s", block.Type, rec.Path())
					continue
				}
				fv.Blocks = append(fv.Blocks, bv)
			}
		}
		form.Fields = append(form.Fields, fv)
	}
	return form, nil
}

func (s *service) fieldView(actx *lektor.AdminContext, f lektor.Field, key, value string, stored bool) FieldView {
	fv := FieldView{
		Field: f,
		Label: f.LocalizedLabel(actx.Lang),
		Key:   key,
		Value: value,
	}
	switch f.Kind() {
	case lektor.KindBoolean:
		if !stored {
			value = f.Default
		}
		b, _ := ResolveBool(value)
		fv.Checked = b == "yes"
	case lektor.KindMultiline:
		if f.Type == "markdown" && strings.TrimSpace(value) != "" {
			preview, err := s.Preview(value)
			if err != nil {
				s.log.Warnf("Cannot render preview of %s: %v", key, err)
			}
			fv.Preview = preview
		}
	}
	return fv
}

func (s *service) blockView(actx *lektor.AdminContext, field, index, blockType string, entries []lektor.Entry) (BlockView, bool) {
	model, ok := actx.Project.FlowBlock(blockType)
	if !ok {
		return BlockView{}, false
	}
	bv := BlockView{
		FieldName: field,
		Index:     index,
		Type:      blockType,
		Name:      model.LocalizedName(actx.Lang),
	}
	for _, bf := range model.Fields {
		value, stored := entryValue(entries, bf.Name)
		key := FormKey{Field: field, Index: index, BlockType: blockType, Subfield: bf.Name}.String()
		bv.Fields = append(bv.Fields, s.fieldView(actx, bf, key, value, stored))
	}
	return bv, true
}

func entryValue(entries []lektor.Entry, name string) (string, bool) {
	for _, e := range entries {
		if e.Key == name {
			return e.Value, true
		}
	}
	return "", false
}

// blockTypes lists the block types f accepts. An empty flow_blocks option
// accepts every type of the project.
func blockTypes(actx *lektor.AdminContext, f lektor.Field) []BlockType {
	ids := f.FlowBlocks
	if len(ids) == 0 {
		ids = actx.Project.FlowBlockIDs()
	}
	var out []BlockType
	for _, id := range ids {
		if m, ok := actx.Project.FlowBlock(id); ok {
			out = append(out, BlockType{ID: id, Name: m.LocalizedName(actx.Lang)})
		}
	}
	return out
}

// NewFlowBlock returns an empty block of blockType for the flow field of
// the record at path. The block gets a fresh uuid index.
func (s *service) NewFlowBlock(actx *lektor.AdminContext, path, field, blockType string) (*BlockView, error) {
	rec, err := actx.Get(path)
	if err != nil {
		return nil, err
	}
	f, ok := rec.Model().Field(field)
	if !ok || f.Kind() != lektor.KindFlow {
		return nil, fmt.Errorf("%w: %s", ErrNotFlowField, field)
	}

	allowed := false
	for _, bt := range blockTypes(actx, f) {
		if bt.ID == blockType {
			allowed = true
			break
		}
	}
	if !allowed {
		if _, known := actx.Project.FlowBlock(blockType); !known {
			return nil, &EncodeError{Field: field, BlockTypes: []string{blockType}, Err: ErrUnknownBlockType}
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrBlockNotAllowed, blockType, field)
	}

	index := uuidIndexPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
	bv, _ := s.blockView(actx, field, index, blockType, nil)
	return &bv, nil
}

// Navigables lists the link targets reachable from the page at path: its
// parent first, then its subpages. Unknown paths start at the root.
func (s *service) Navigables(actx *lektor.AdminContext, path string) ([]Navigable, error) {
	rec, err := actx.Get(path)
	if errors.Is(err, lektor.ErrNotFound) {
		rec, err = actx.Pad.Root(actx.Alt)
	}
	if err != nil {
		return nil, err
	}
	if rec.IsAttachment() {
		if rec, err = rec.Parent(); err != nil {
			return nil, err
		}
	}

	var out []Navigable
	if !rec.IsRoot() {
		parent, err := rec.Parent()
		if err != nil {
			return nil, err
		}
		out = append(out, Navigable{Path: parent.Path(), Title: "..", HasChildren: true})
	}

	children, err := rec.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		out = append(out, Navigable{Path: c.Path(), Title: c.Title(), HasChildren: c.HasChildren()})
	}
	return out, nil
}

func (s *service) Preview(markdown string) (template.HTML, error) {
	return s.processor.ToHTML(markdown)
}
