package lektor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []Entry
	}{
		{
			name: "single line values",
			data: "title: Hello\n---\npublished: yes\n",
			want: []Entry{{"title", "Hello"}, {"published", "yes"}},
		},
		{
			name: "multiline value",
			data: "body:\n\nfirst line\nsecond line\n---\ntitle: x\n",
			want: []Entry{{"body", "first line\nsecond line"}, {"title", "x"}},
		},
		{
			name: "escaped dash line",
			data: "body:\n\nabove\n----\nbelow\n",
			want: []Entry{{"body", "above\n---\nbelow"}},
		},
		{
			name: "crlf and separator with trailing spaces",
			data: "title: A\r\n---  \r\nslug: a\r\n",
			want: []Entry{{"title", "A"}, {"slug", "a"}},
		},
		{
			name: "colon in value",
			data: "link: https://example.com/a\n",
			want: []Entry{{"link", "https://example.com/a"}},
		},
		{
			name: "empty value",
			data: "title:\n---\nslug: a\n",
			want: []Entry{{"title", ""}, {"slug", "a"}},
		},
		{
			name: "empty input",
			data: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.data)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEscapeDashes(t *testing.T) {
	got := EscapeDashes("a\n---\n--\n----\nb")
	want := "a\n----\n--\n-----\nb"
	if got != want {
		t.Errorf("EscapeDashes() = %q, want %q", got, want)
	}
}

func TestSerializeTokenizeRoundTrip(t *testing.T) {
	entries := []Entry{
		{"_model", "blog-post"},
		{"title", "Dashes"},
		{"body", "intro\n---\nafter"},
		{"padded", "  spaced  "},
	}
	text := Serialize(entries)
	if diff := cmp.Diff(entries, Tokenize(text)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s\ntext:\n%s", diff, text)
	}
}

func TestParseFlow(t *testing.T) {
	value := "#### text ####\ntext:\n\nWelcome\n---\nclass: centered\n#### hero-image ####\nimage: cover.jpg\n"
	got := ParseFlow(value)
	want := []FlowBlock{
		{Type: "text", Entries: []Entry{{"text", "Welcome"}, {"class", "centered"}}},
		{Type: "hero-image", Entries: []Entry{{"image", "cover.jpg"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseFlow() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlowFromRecordFile(t *testing.T) {
	data := "body:\n\n#### text ####\ntext:\n\nline\n-----\nmore\n----\nclass: big\n"
	entries := Tokenize(data)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	blocks := ParseFlow(entries[0].Value)
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	if got := blocks[0].Get("text"); got != "line\n---\nmore" {
		t.Errorf("text = %q", got)
	}
	if got := blocks[0].Get("class"); got != "big" {
		t.Errorf("class = %q", got)
	}
}

func TestEscapeBlockHeaders(t *testing.T) {
	value := "#### text ####\nplain\n##### kept #####"
	escaped := EscapeBlockHeaders(value)
	want := "##### text #####\nplain\n###### kept ######"
	if escaped != want {
		t.Fatalf("EscapeBlockHeaders() = %q, want %q", escaped, want)
	}

	blocks := ParseFlow("#### text ####\ntext:\n\n" + escaped + "\n")
	if len(blocks) != 1 {
		t.Fatalf("escaped header started a new block: %+v", blocks)
	}
	if got := blocks[0].Get("text"); got != "#### text ####\nplain\n##### kept #####" {
		t.Errorf("unescaped text = %q", got)
	}
}
