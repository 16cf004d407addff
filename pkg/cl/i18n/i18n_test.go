package i18n

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code   string
		want   language.Tag
		wantOK bool
	}{
		{"en", language.English, true},
		{"tr", language.Turkish, true},
		{"tr-TR", language.Turkish, true},
		{"de", language.English, false},
		{"not a tag", language.English, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := Parse(tt.code)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Parse(%q) = %v, %v; want %v, %v", tt.code, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestT(t *testing.T) {
	if got := T(language.English, MsgNoChanges); got != "No changes." {
		t.Errorf("T(en) = %q", got)
	}
	if got := T(language.Turkish, MsgNoChanges); got != "Değişiklik yok." {
		t.Errorf("T(tr) = %q", got)
	}
	if got := T(language.Turkish, MsgUnknownBlock, "hero"); got != "Bilinmeyen akış bloğu türü: hero" {
		t.Errorf("T(tr) with args = %q", got)
	}
	if got := T(language.Turkish, "Untranslated text"); got != "Untranslated text" {
		t.Errorf("expected untranslated key to pass through, got %q", got)
	}
}

func TestSortStringsTurkish(t *testing.T) {
	keys := []string{"Zeytin", "Çiçek", "Cam", "Deniz"}
	SortStrings(language.Turkish, keys)

	want := []string{"Cam", "Çiçek", "Deniz", "Zeytin"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("sorted mismatch (-want +got):\n%s", diff)
	}
}

func TestSortBy(t *testing.T) {
	type item struct{ name string }
	items := []item{{"blog"}, {"Page"}, {"about"}}
	SortBy(language.English, items, func(i item) string { return i.name })

	got := []string{items[0].name, items[1].name, items[2].name}
	want := []string{"about", "blog", "Page"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sorted mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalized(t *testing.T) {
	names := map[string]string{"tr": "Sayfa"}
	if got := Localized(names, language.Turkish, "Page"); got != "Sayfa" {
		t.Errorf("Localized(tr) = %q", got)
	}
	if got := Localized(names, language.English, "Page"); got != "Page" {
		t.Errorf("Localized(en) = %q", got)
	}
}
