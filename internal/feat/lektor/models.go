package lektor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/ini.v1"

	"github.com/cliossg/tekir/pkg/cl/i18n"
)

// FieldKind decides how a field is written to a record file.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindMultiline
	KindBoolean
	KindFlow
)

func (k FieldKind) String() string {
	switch k {
	case KindMultiline:
		return "multiline"
	case KindBoolean:
		return "boolean"
	case KindFlow:
		return "flow"
	default:
		return "scalar"
	}
}

var multilineTypes = map[string]bool{
	"text":     true,
	"strings":  true,
	"markdown": true,
	"html":     true,
	"rst":      true,
}

// KindOf maps a Lektor field type name to its kind.
func KindOf(typeName string) FieldKind {
	switch {
	case typeName == "flow":
		return KindFlow
	case typeName == "boolean":
		return KindBoolean
	case multilineTypes[typeName]:
		return KindMultiline
	default:
		return KindScalar
	}
}

// Field is one field declaration of a model or flow block.
type Field struct {
	Name        string
	Type        string
	Label       string
	Labels      map[string]string
	Default     string
	Description string
	Choices     []string
	FlowBlocks  []string
	Options     map[string]string
}

func (f Field) Kind() FieldKind {
	return KindOf(f.Type)
}

// LocalizedLabel returns the label for tag, the plain label or the name.
func (f Field) LocalizedLabel(tag language.Tag) string {
	def := f.Label
	if def == "" {
		def = f.Name
	}
	return i18n.Localized(f.Labels, tag, def)
}

// Decorative reports whether the field only lays out the edit form and
// never holds a value.
func (f Field) Decorative() bool {
	switch f.Type {
	case "line", "spacing", "info", "heading":
		return true
	}
	return false
}

// ChildConfig is the [children] section of a model.
type ChildConfig struct {
	Enabled bool
	Model   string
	OrderBy []string
	Hidden  bool
}

// AttachmentConfig is the [attachments] section of a model.
type AttachmentConfig struct {
	Enabled bool
	Model   string
}

// DataModel describes the fields of a content record.
type DataModel struct {
	ID          string
	Name        string
	Names       map[string]string
	Hidden      bool
	Protected   bool
	Inherits    string
	Children    ChildConfig
	Attachments AttachmentConfig
	Fields      []Field
}

// DefaultTemplate is the template used when a record sets no _template.
func (m *DataModel) DefaultTemplate() string {
	return m.ID + ".html"
}

func (m *DataModel) LocalizedName(tag language.Tag) string {
	def := m.Name
	if def == "" {
		def = m.ID
	}
	return i18n.Localized(m.Names, tag, def)
}

func (m *DataModel) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FlowBlockModel describes one block type usable in flow fields.
type FlowBlockModel struct {
	ID     string
	Name   string
	Names  map[string]string
	Fields []Field
}

func (b *FlowBlockModel) LocalizedName(tag language.Tag) string {
	def := b.Name
	if def == "" {
		def = b.ID
	}
	return i18n.Localized(b.Names, tag, def)
}

func (b *FlowBlockModel) Field(name string) (Field, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// noneModel is used for records whose model cannot be resolved.
var noneModel = &DataModel{ID: "none", Name: "None", Hidden: true}

func parseFields(f *ini.File) []Field {
	var fields []Field
	for _, s := range sections(f) {
		name, ok := strings.CutPrefix(s.Name(), "fields.")
		if !ok || name == "" {
			continue
		}
		field := Field{
			Name:        name,
			Type:        sectionValue(s, "type"),
			Label:       sectionValue(s, "label"),
			Labels:      localized(s, "label"),
			Default:     sectionValue(s, "default"),
			Description: sectionValue(s, "description"),
			Choices:     splitList(sectionValue(s, "choices")),
			FlowBlocks:  splitList(sectionValue(s, "flow_blocks")),
			Options:     map[string]string{},
		}
		if field.Type == "" {
			field.Type = "string"
		}
		for _, k := range s.Keys() {
			field.Options[k.Name()] = k.String()
		}
		fields = append(fields, field)
	}
	return fields
}

func loadModel(path string) (*DataModel, error) {
	f, err := loadINI(path)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSuffix(filepath.Base(path), ".ini")
	s := f.Section("model")
	m := &DataModel{
		ID:        id,
		Name:      sectionValue(s, "name"),
		Names:     localized(s, "name"),
		Hidden:    sectionBool(s, "hidden", false),
		Protected: sectionBool(s, "protected", false),
		Inherits:  sectionValue(s, "inherits"),
		Fields:    parseFields(f),
	}

	cs := f.Section("children")
	m.Children = ChildConfig{
		Enabled: sectionBool(cs, "enabled", true),
		Model:   sectionValue(cs, "model"),
		OrderBy: splitList(sectionValue(cs, "order_by")),
		Hidden:  sectionBool(cs, "hidden", false),
	}

	as := f.Section("attachments")
	m.Attachments = AttachmentConfig{
		Enabled: sectionBool(as, "enabled", true),
		Model:   sectionValue(as, "model"),
	}

	return m, nil
}

func loadFlowBlock(path string) (*FlowBlockModel, error) {
	f, err := loadINI(path)
	if err != nil {
		return nil, err
	}
	s := f.Section("block")
	return &FlowBlockModel{
		ID:     strings.TrimSuffix(filepath.Base(path), ".ini"),
		Name:   sectionValue(s, "name"),
		Names:  localized(s, "name"),
		Fields: parseFields(f),
	}, nil
}

func iniFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ini") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func loadModels(dir string) (map[string]*DataModel, error) {
	paths, err := iniFiles(dir)
	if err != nil {
		return nil, err
	}
	models := make(map[string]*DataModel, len(paths))
	for _, p := range paths {
		m, err := loadModel(p)
		if err != nil {
			return nil, err
		}
		models[m.ID] = m
	}
	if err := resolveInheritance(models); err != nil {
		return nil, err
	}
	return models, nil
}

// resolveInheritance prepends the fields of parent models. A field
// redeclared by the child keeps the parent's position.
func resolveInheritance(models map[string]*DataModel) error {
	resolved := map[string]bool{}
	var resolve func(id string, seen map[string]bool) error
	resolve = func(id string, seen map[string]bool) error {
		if resolved[id] {
			return nil
		}
		m := models[id]
		if m.Inherits == "" {
			resolved[id] = true
			return nil
		}
		if seen[id] {
			return fmt.Errorf("model %s: inheritance cycle", id)
		}
		seen[id] = true
		parent, ok := models[m.Inherits]
		if !ok {
			return fmt.Errorf("model %s inherits unknown model %s", id, m.Inherits)
		}
		if err := resolve(parent.ID, seen); err != nil {
			return err
		}

		own := map[string]Field{}
		for _, f := range m.Fields {
			own[f.Name] = f
		}
		var fields []Field
		for _, f := range parent.Fields {
			if o, ok := own[f.Name]; ok {
				fields = append(fields, o)
				delete(own, f.Name)
				continue
			}
			fields = append(fields, f)
		}
		for _, f := range m.Fields {
			if _, ok := own[f.Name]; ok {
				fields = append(fields, f)
			}
		}
		m.Fields = fields
		if m.Children.Model == "" {
			m.Children = parent.Children
		}
		if m.Attachments.Model == "" {
			m.Attachments = parent.Attachments
		}
		resolved[id] = true
		return nil
	}

	for id := range models {
		if err := resolve(id, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func loadFlowBlocks(dir string) (map[string]*FlowBlockModel, error) {
	paths, err := iniFiles(dir)
	if err != nil {
		return nil, err
	}
	blocks := make(map[string]*FlowBlockModel, len(paths))
	for _, p := range paths {
		b, err := loadFlowBlock(p)
		if err != nil {
			return nil, err
		}
		blocks[b.ID] = b
	}
	return blocks, nil
}
