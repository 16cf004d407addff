package content

import (
	"errors"
	"sort"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/internal/testutil"
	"github.com/cliossg/tekir/pkg/cl/formdata"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

type blockSet map[string]*lektor.FlowBlockModel

func (b blockSet) FlowBlock(id string) (*lektor.FlowBlockModel, bool) {
	m, ok := b[id]
	return m, ok
}

func (b blockSet) FlowBlockIDs() []string {
	var ids []string
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type rawValues map[string]string

func (v rawValues) Raw(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

var testBlocks = blockSet{
	"text": {ID: "text", Fields: []lektor.Field{
		{Name: "text", Type: "markdown"},
		{Name: "class", Type: "string"},
	}},
	"hero": {ID: "hero", Fields: []lektor.Field{
		{Name: "title", Type: "string"},
	}},
	"hero-image": {ID: "hero-image", Fields: []lektor.Field{
		{Name: "image", Type: "string"},
		{Name: "full_width", Type: "boolean", Default: "yes"},
	}},
}

func pageModel(fields ...lektor.Field) *lektor.DataModel {
	return &lektor.DataModel{ID: "page", Fields: fields}
}

func encode(t *testing.T, target Target, kv ...string) string {
	t.Helper()
	out, err := NewEncoder(testBlocks).Encode(target, formdata.New(kv...))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return out
}

func TestEncodeExample(t *testing.T) {
	target := Target{Model: pageModel(
		lektor.Field{Name: "title", Type: "string"},
		lektor.Field{Name: "published", Type: "boolean", Default: "no"},
	)}

	got := encode(t, target, "title", "Hello", "published", "on")
	if want := "title: Hello\n---\npublished: yes\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeFollowsModelOrder(t *testing.T) {
	target := Target{Model: pageModel(
		lektor.Field{Name: "title", Type: "string"},
		lektor.Field{Name: "author", Type: "string"},
	)}
	got := encode(t, target, "author", "Ann", "title", "T", "extra", "ignored")
	if want := "title: T\n---\nauthor: Ann\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeBoolean(t *testing.T) {
	tests := []struct {
		name    string
		def     string
		checked bool
		want    string
	}{
		{"checked with default no", "no", true, "flag: yes\n"},
		{"unchecked with default no", "no", false, "\n"},
		{"checked with default yes", "yes", true, "\n"},
		{"unchecked with default yes", "yes", false, "flag: no\n"},
		{"checked with default true", "true", true, "\n"},
		{"unchecked with default 0", "0", false, "\n"},
		{"unchecked without default", "", false, "\n"},
		{"checked without default", "", true, "flag: yes\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := Target{Model: pageModel(lektor.Field{Name: "flag", Type: "boolean", Default: tt.def})}
			var kv []string
			if tt.checked {
				kv = []string{"flag", "on"}
			}
			if got := encode(t, target, kv...); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeScalarTrimsAndDropsEmpty(t *testing.T) {
	target := Target{Model: pageModel(
		lektor.Field{Name: "title", Type: "string"},
		lektor.Field{Name: "slug", Type: "slug"},
		lektor.Field{Name: "missing", Type: "string"},
	)}
	got := encode(t, target, "title", "  Spaced  ", "slug", "   ")
	if want := "title: Spaced\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeMultiline(t *testing.T) {
	target := Target{Model: pageModel(
		lektor.Field{Name: "body", Type: "markdown"},
		lektor.Field{Name: "summary", Type: "text"},
		lektor.Field{Name: "notes", Type: "text"},
	)}
	got := encode(t, target,
		"body", "First line   \r\nSecond line\t\r\n\r\n",
		"summary", "One",
		"notes", " \n  \n",
	)
	want := "body:\n\nFirst line\nSecond line\n---\nsummary:\n\nOne\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeMultilineEscapesDashes(t *testing.T) {
	target := Target{Model: pageModel(lektor.Field{Name: "body", Type: "markdown"})}
	got := encode(t, target, "body", "above\n---\nbelow")
	if want := "body:\n\nabove\n----\nbelow\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	entries := lektor.Tokenize(got)
	if len(entries) != 1 || entries[0].Value != "above\n---\nbelow" {
		t.Errorf("Tokenize() of encoded record = %+v", entries)
	}
}

func TestEncodeSystemFields(t *testing.T) {
	model := &lektor.DataModel{ID: "blog-post", Fields: []lektor.Field{{Name: "title", Type: "string"}}}

	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name:   "model equals parent default",
			target: Target{Model: model, ModelID: "blog-post", DefaultModel: "blog-post", Template: "blog-post.html"},
			want:   "title: T\n",
		},
		{
			name:   "model differs from parent default",
			target: Target{Model: model, ModelID: "blog-post", DefaultModel: "page", Template: "blog-post.html"},
			want:   "_model: blog-post\n---\ntitle: T\n",
		},
		{
			name:   "no parent default falls back to page",
			target: Target{Model: model, ModelID: "blog-post", Template: "blog-post.html"},
			want:   "_model: blog-post\n---\ntitle: T\n",
		},
		{
			name:   "custom template",
			target: Target{Model: model, ModelID: "blog-post", DefaultModel: "blog-post", Template: "special.html"},
			want:   "_template: special.html\n---\ntitle: T\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encode(t, tt.target, "title", "T"); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeFlow(t *testing.T) {
	target := Target{Model: pageModel(
		lektor.Field{Name: "title", Type: "string"},
		lektor.Field{Name: "body", Type: "flow"},
	)}

	got := encode(t, target,
		"title", "Flow",
		"body-0-text-text", "Hello\nworld",
		"body-0-text-class", "big",
		"body-uuid_ab12-hero-image-image", "cover.jpg",
		"body-uuid_ab12-hero-image-full_width", "on",
	)
	want := "title: Flow\n---\nbody:\n\n" +
		"#### text ####\ntext:\n\nHello\nworld\n----\nclass: big\n" +
		"#### hero-image ####\nimage: cover.jpg\n"
	if got != want {
		t.Errorf("Encode() =\n%q\nwant\n%q", got, want)
	}

	blocks := lektor.ParseFlow(lektor.Tokenize(got)[1].Value)
	if len(blocks) != 2 || blocks[0].Get("class") != "big" || blocks[1].Get("image") != "cover.jpg" {
		t.Errorf("encoded flow does not parse back: %+v", blocks)
	}
}

func TestEncodeFlowKeepsFirstSeenIndexOrder(t *testing.T) {
	target := Target{Model: pageModel(lektor.Field{Name: "body", Type: "flow"})}

	got := encode(t, target,
		"body-7-hero-title", "Seven",
		"body-2-text-text", "Two",
		"body-7-hero-title", "ignored duplicate",
		"body-10-hero-title", "Ten",
	)
	want := "body:\n\n#### hero ####\ntitle: Seven\n#### text ####\ntext:\n\nTwo\n#### hero ####\ntitle: Ten\n"
	if got != want {
		t.Errorf("Encode() =\n%q\nwant\n%q", got, want)
	}
}

func TestEncodeFlowBlockWithoutValues(t *testing.T) {
	target := Target{Model: pageModel(lektor.Field{Name: "body", Type: "flow"})}
	got := encode(t, target, "body-0-text-_block", "", "body-1-hero-title", "T")
	want := "body:\n\n#### text ####\n\n#### hero ####\ntitle: T\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeFlowEscapesNestedDashesAndHeaders(t *testing.T) {
	target := Target{Model: pageModel(lektor.Field{Name: "body", Type: "flow"})}
	got := encode(t, target, "body-0-text-text", "a\n---\n#### fake ####\nb")

	entries := lektor.Tokenize(got)
	if len(entries) != 1 {
		t.Fatalf("Tokenize() = %+v", entries)
	}
	blocks := lektor.ParseFlow(entries[0].Value)
	if len(blocks) != 1 {
		t.Fatalf("ParseFlow() = %+v", blocks)
	}
	if got := blocks[0].Get("text"); got != "a\n---\n#### fake ####\nb" {
		t.Errorf("text after round trip = %q", got)
	}
}

func TestEncodeNestedFlowAsText(t *testing.T) {
	blocks := blockSet{
		"text": testBlocks["text"],
		"list": {ID: "list", Fields: []lektor.Field{{Name: "items", Type: "flow"}}},
	}
	target := Target{Model: pageModel(lektor.Field{Name: "body", Type: "flow"})}

	got, err := NewEncoder(blocks).Encode(target, formdata.New(
		"body-0-list-items", "#### text ####\ntext: nested",
		"items-0-text-text", "top",
	))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := "body:\n\n#### list ####\nitems:\n\n##### text #####\ntext: nested\n"
	if got != want {
		t.Errorf("Encode() =\n%q\nwant\n%q", got, want)
	}

	parsed := lektor.ParseFlow(lektor.Tokenize(got)[0].Value)
	if len(parsed) != 1 || parsed[0].Type != "list" {
		t.Fatalf("ParseFlow() = %+v", parsed)
	}
	if items := parsed[0].Get("items"); items != "#### text ####\ntext: nested" {
		t.Errorf("items after round trip = %q", items)
	}
}

func TestEncodeMixedBlockTypes(t *testing.T) {
	target := Target{Model: pageModel(lektor.Field{Name: "slides", Type: "flow"})}
	_, err := NewEncoder(testBlocks).Encode(target, formdata.New(
		"slides-0-hero-title", "A",
		"slides-0-text-text", "B",
	))
	if !errors.Is(err, ErrMixedBlockTypes) {
		t.Fatalf("Encode() error = %v, want ErrMixedBlockTypes", err)
	}
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("error is not an EncodeError: %T", err)
	}
	if encErr.Field != "slides" || encErr.Index != "0" {
		t.Errorf("EncodeError = %+v", encErr)
	}
	if diff := cmp.Diff([]string{"hero", "text"}, encErr.BlockTypes); diff != "" {
		t.Errorf("BlockTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeUnknownBlockType(t *testing.T) {
	target := Target{Model: pageModel(lektor.Field{Name: "body", Type: "flow"})}
	_, err := NewEncoder(testBlocks).Encode(target, formdata.New("body-0-quote-text", "x"))
	if !errors.Is(err, ErrUnknownBlockType) {
		t.Fatalf("Encode() error = %v, want ErrUnknownBlockType", err)
	}
}

func TestEncodeTranslationSuppressesPrimaryValues(t *testing.T) {
	target := Target{
		Model: pageModel(
			lektor.Field{Name: "title", Type: "string"},
			lektor.Field{Name: "body", Type: "markdown"},
			lektor.Field{Name: "published", Type: "boolean", Default: "no"},
		),
		Primary: rawValues{"title": "About", "body": "Same text", "published": "yes"},
	}

	got := encode(t, target, "title", "Hakkında", "body", "Same text", "published", "on")
	if want := "title: Hakkında\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	got = encode(t, target, "title", "About", "body", "Same text")
	if want := "published: no\n"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	target := Target{Model: pageModel(
		lektor.Field{Name: "title", Type: "string"},
		lektor.Field{Name: "body", Type: "flow"},
	)}
	kv := []string{"body-3-text-text", "x", "title", "t", "body-1-hero-title", "y"}
	first := encode(t, target, kv...)
	for i := 0; i < 20; i++ {
		if got := encode(t, target, kv...); got != first {
			t.Fatalf("run %d produced %q, want %q", i, got, first)
		}
	}
}

// formFromRecord builds the form an unchanged edit page submits for rec.
func formFromRecord(rec *lektor.Record) *formdata.Form {
	form := formdata.New()
	project := rec.Pad().Project()
	for _, f := range rec.Model().Fields {
		if f.Kind() != lektor.KindFlow {
			value, ok := rec.Raw(f.Name)
			addField(form, f, f.Name, value, ok)
			continue
		}
		for i, block := range rec.FlowBlocks(f.Name) {
			model, ok := project.FlowBlock(block.Type)
			if !ok {
				continue
			}
			form.Add(FormKey{Field: f.Name, Index: strconv.Itoa(i), BlockType: block.Type, Subfield: "_block"}.String(), "")
			for _, bf := range model.Fields {
				key := FormKey{Field: f.Name, Index: strconv.Itoa(i), BlockType: block.Type, Subfield: bf.Name}.String()
				value, ok := blockEntry(block, bf.Name)
				addField(form, bf, key, value, ok)
			}
		}
	}
	return form
}

func blockEntry(block lektor.FlowBlock, name string) (string, bool) {
	for _, e := range block.Entries {
		if e.Key == name {
			return e.Value, true
		}
	}
	return "", false
}

func addField(form *formdata.Form, f lektor.Field, key, value string, stored bool) {
	if f.Kind() != lektor.KindBoolean {
		form.Add(key, value)
		return
	}
	if !stored {
		value = f.Default
	}
	if v, _ := ResolveBool(value); v == "yes" {
		form.Add(key, "on")
	}
}

func TestEncodeRecordRoundTrip(t *testing.T) {
	root := testutil.CopyProject(t)
	project, err := lektor.Open(root, logger.NewNoopLogger())
	if err != nil {
		t.Fatal(err)
	}
	actx := lektor.NewAdminContext(project, language.English)

	rec, err := actx.Get("/blog/first-post")
	if err != nil {
		t.Fatal(err)
	}

	got, err := EncodeRecord(actx, rec, formFromRecord(rec))
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	want := testutil.ReadFile(t, root, "content/blog/first-post/contents.lr")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRecordTranslation(t *testing.T) {
	root := testutil.CopyProject(t)
	project, err := lektor.Open(root, logger.NewNoopLogger())
	if err != nil {
		t.Fatal(err)
	}
	actx := lektor.NewAdminContext(project, language.English)
	actx.Alt = "tr"

	rec, err := actx.Get("/about")
	if err != nil {
		t.Fatal(err)
	}

	form := formFromRecord(rec)
	got, err := EncodeRecord(actx, rec, form)
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	if want := "title: Hakkında\n"; got != want {
		t.Errorf("EncodeRecord() = %q, want %q", got, want)
	}
}
