package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cliossg/tekir/internal/feat/lektor"
)

const (
	entrySeparator = "\n---\n"
	checkboxOn     = "on"
	defaultModel   = "page"
)

var (
	ErrMixedBlockTypes  = errors.New("all fields of a flow block must be of the same block type")
	ErrUnknownBlockType = errors.New("unknown flow block type")
)

// EncodeError reports an inconsistent flow field submission or a block
// type the field cannot hold. Index is empty when no block exists yet.
type EncodeError struct {
	Field      string
	Index      string
	BlockTypes []string
	Err        error
}

func (e *EncodeError) Error() string {
	if e.Index == "" {
		return fmt.Sprintf("flow field %s (%s): %v", e.Field, strings.Join(e.BlockTypes, ", "), e.Err)
	}
	return fmt.Sprintf("flow field %s, block %s (%s): %v", e.Field, e.Index, strings.Join(e.BlockTypes, ", "), e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// FlowBlocks resolves flow block models by id.
type FlowBlocks interface {
	FlowBlock(id string) (*lektor.FlowBlockModel, bool)
	FlowBlockIDs() []string
}

// Form is an ordered form submission.
type Form interface {
	Get(key string) (string, bool)
	Keys() []string
}

// Values gives the stored values of a record.
type Values interface {
	Raw(name string) (string, bool)
}

// Target describes the record a form is encoded for.
type Target struct {
	Model        *lektor.DataModel
	ModelID      string
	DefaultModel string
	Template     string
	// Primary holds the untranslated values when encoding a translation.
	// Values equal to the primary ones are left out.
	Primary Values
}

// TargetFor builds the target for rec.
func TargetFor(rec *lektor.Record) (Target, error) {
	t := Target{
		Model:        rec.Model(),
		ModelID:      rec.ModelID(),
		DefaultModel: rec.DefaultModel(),
		Template:     rec.Template(),
	}
	if rec.IsTranslation() {
		primary, err := rec.Primary()
		if err != nil {
			return Target{}, fmt.Errorf("cannot load primary of %s: %w", rec.Path(), err)
		}
		t.Primary = primary
	}
	return t, nil
}

func (t Target) primary(name string) (string, bool) {
	if t.Primary == nil {
		return "", false
	}
	return t.Primary.Raw(name)
}

// Encoder writes form submissions in record file format.
type Encoder struct {
	blocks FlowBlocks
}

func NewEncoder(blocks FlowBlocks) *Encoder {
	return &Encoder{blocks: blocks}
}

// EncodeRecord encodes form for rec using the schema of actx.
func EncodeRecord(actx *lektor.AdminContext, rec *lektor.Record, form Form) (string, error) {
	target, err := TargetFor(rec)
	if err != nil {
		return "", err
	}
	return NewEncoder(actx.Project).Encode(target, form)
}

// Encode returns the record text for form. Fields follow the declaration
// order of the model and values equal to their default are left out.
func (e *Encoder) Encode(t Target, form Form) (string, error) {
	var entries []string

	def := t.DefaultModel
	if def == "" {
		def = defaultModel
	}
	if t.ModelID != "" && t.ModelID != def {
		if pv, ok := t.primary("_model"); !ok || pv != t.ModelID {
			entries = append(entries, "_model: "+t.ModelID)
		}
	}
	if t.Template != "" && t.Model != nil && t.Template != t.Model.DefaultTemplate() {
		if pv, ok := t.primary("_template"); !ok || pv != t.Template {
			entries = append(entries, "_template: "+t.Template)
		}
	}

	if t.Model != nil {
		for _, f := range t.Model.Fields {
			entry, err := e.entry(f, form, f.Name, t, false)
			if err != nil {
				return "", err
			}
			if entry != "" {
				entries = append(entries, entry)
			}
		}
	}

	return strings.Join(entries, entrySeparator) + "\n", nil
}

// entry dispatches on the kind of f. key is the form key holding the value.
func (e *Encoder) entry(f lektor.Field, form Form, key string, t Target, inBlock bool) (string, error) {
	switch kind := f.Kind(); {
	case kind == lektor.KindFlow && inBlock:
		// Nested flows are kept as the submitted text of the block.
		return multilineEntry(f, form, key, t, true), nil
	case kind == lektor.KindFlow:
		return e.flowEntry(f, form, t)
	case kind == lektor.KindBoolean:
		return booleanEntry(f, form, key, t), nil
	case kind == lektor.KindMultiline:
		return multilineEntry(f, form, key, t, inBlock), nil
	default:
		return scalarEntry(f, form, key, t, inBlock), nil
	}
}

// ResolveBool maps a stored boolean to "yes" or "no". ok is false for
// values that are not booleans.
func ResolveBool(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return "yes", true
	case "false", "no", "0":
		return "no", true
	}
	return "", false
}

func booleanDefault(f lektor.Field, t Target) string {
	if pv, ok := t.primary(f.Name); ok {
		if b, ok := ResolveBool(pv); ok {
			return b
		}
	}
	if b, ok := ResolveBool(f.Default); ok {
		return b
	}
	return "no"
}

func booleanEntry(f lektor.Field, form Form, key string, t Target) string {
	value := "no"
	if v, _ := form.Get(key); v == checkboxOn {
		value = "yes"
	}
	if value == booleanDefault(f, t) {
		return ""
	}
	return f.Name + ": " + value
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func rstripLines(s string) string {
	lines := strings.Split(normalizeNewlines(strings.TrimSpace(s)), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\v\f")
	}
	return strings.Join(lines, "\n")
}

func blockValue(name, value string, inBlock bool) string {
	if inBlock {
		value = lektor.EscapeBlockHeaders(value)
	}
	return name + ":\n\n" + lektor.EscapeDashes(value)
}

func multilineEntry(f lektor.Field, form Form, key string, t Target, inBlock bool) string {
	v, _ := form.Get(key)
	value := rstripLines(v)
	if value == "" {
		return ""
	}
	if pv, ok := t.primary(f.Name); ok && rstripLines(pv) == value {
		return ""
	}
	return blockValue(f.Name, value, inBlock)
}

func scalarEntry(f lektor.Field, form Form, key string, t Target, inBlock bool) string {
	v, _ := form.Get(key)
	value := strings.TrimSpace(normalizeNewlines(v))
	if value == "" {
		return ""
	}
	if pv, ok := t.primary(f.Name); ok && strings.TrimSpace(pv) == value {
		return ""
	}
	if strings.Contains(value, "\n") {
		return blockValue(f.Name, rstripLines(value), inBlock)
	}
	return f.Name + ": " + value
}

type blockGroup struct {
	index string
	types []string
}

func (g *blockGroup) addType(bt string) {
	for _, t := range g.types {
		if t == bt {
			return
		}
	}
	g.types = append(g.types, bt)
}

// groupBlocks collects the block indexes of field in first-seen order.
func (e *Encoder) groupBlocks(field string, form Form) []*blockGroup {
	ids := e.blocks.FlowBlockIDs()
	var order []*blockGroup
	byIndex := map[string]*blockGroup{}
	for _, key := range form.Keys() {
		if !strings.HasPrefix(key, field+"-") {
			continue
		}
		fk, err := ParseFormKey(field, key, ids)
		if err != nil {
			continue
		}
		g, ok := byIndex[fk.Index]
		if !ok {
			g = &blockGroup{index: fk.Index}
			byIndex[fk.Index] = g
			order = append(order, g)
		}
		g.addType(fk.BlockType)
	}
	return order
}

func (e *Encoder) flowEntry(f lektor.Field, form Form, t Target) (string, error) {
	groups := e.groupBlocks(f.Name, form)
	if len(groups) == 0 {
		return "", nil
	}

	blocks := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g.types) > 1 {
			return "", &EncodeError{Field: f.Name, Index: g.index, BlockTypes: g.types, Err: ErrMixedBlockTypes}
		}
		bt := g.types[0]
		model, ok := e.blocks.FlowBlock(bt)
		if !ok {
			return "", &EncodeError{Field: f.Name, Index: g.index, BlockTypes: g.types, Err: ErrUnknownBlockType}
		}

		var sub []string
		for _, bf := range model.Fields {
			key := FormKey{Field: f.Name, Index: g.index, BlockType: bt, Subfield: bf.Name}.String()
			entry, err := e.entry(bf, form, key, Target{}, true)
			if err != nil {
				return "", err
			}
			if entry != "" {
				sub = append(sub, entry)
			}
		}
		blocks = append(blocks, "#### "+bt+" ####\n"+strings.Join(sub, entrySeparator))
	}

	value := strings.Join(blocks, "\n")
	if pv, ok := t.primary(f.Name); ok && pv == value {
		return "", nil
	}
	return f.Name + ":\n\n" + lektor.EscapeDashes(value), nil
}
