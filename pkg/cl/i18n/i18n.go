// Package i18n holds the admin message catalog and language helpers.
package i18n

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys used by handlers. Templates use the English text as key.
const (
	MsgNoOutput        = "No output"
	MsgNoChanges       = "No changes."
	MsgContentSaved    = "Content saved."
	MsgUnsavedChanges  = "There are unsaved changes. Do you want to continue?"
	MsgTitleRequired   = "Every content item must have a title."
	MsgContentExists   = "A content item with this name already exists."
	MsgUploadRequired  = "Please upload a file."
	MsgAttachmentExist = "An attachment with this name already exists."
	MsgMixedBlocks     = "All fields of a flow block must be of the same block type."
	MsgUnknownBlock    = "Unknown flow block type: %s"
	MsgNotFound        = "Content item not found: %s"
	MsgUnknownServer   = "Unknown server: %s"
)

var translations = map[language.Tag]map[string]string{
	language.Turkish: {
		MsgNoOutput:        "Çıktı yok",
		MsgNoChanges:       "Değişiklik yok.",
		MsgContentSaved:    "İçerik kaydedildi.",
		MsgUnsavedChanges:  "Kaydedilmemiş değişiklikler var. Devam etmek istiyor musunuz?",
		MsgTitleRequired:   "Her içerik öğesinin bir başlığı olmalıdır.",
		MsgContentExists:   "Bu isimde bir içerik öğesi zaten var.",
		MsgUploadRequired:  "Lütfen bir dosya yükleyin.",
		MsgAttachmentExist: "Bu isimde bir ek zaten var.",
		MsgMixedBlocks:     "Bir akış bloğunun tüm alanları aynı blok türünde olmalıdır.",
		MsgUnknownBlock:    "Bilinmeyen akış bloğu türü: %s",
		MsgNotFound:        "İçerik öğesi bulunamadı: %s",
		MsgUnknownServer:   "Bilinmeyen sunucu: %s",
		"Overview":         "Genel bakış",
		"Contents":         "İçerik",
		"Pages":            "Sayfalar",
		"Subpages":         "Alt sayfalar",
		"Attachments":      "Ekler",
		"Build":            "Derle",
		"Clean":            "Temizle",
		"Publish":          "Yayınla",
		"Save":             "Kaydet",
		"Cancel":           "Vazgeç",
		"Continue":         "Devam",
		"Delete":           "Sil",
		"Edit":             "Düzenle",
		"Close":            "Kapat",
		"Title":            "Başlık",
		"Slug":             "Kısa ad",
		"Model":            "Model",
		"Output":           "Çıktı",
		"Upload":           "Yükle",
		"Replace":          "Değiştir",
		"Add block":        "Blok ekle",
		"New subpage":      "Yeni alt sayfa",
		"Add attachment":   "Ek ekle",
		"Open folder":      "Klasörü aç",
		"Error":            "Hata",
		"Server":           "Sunucu",
		"Last build":       "Son derleme",
		"Artifacts":        "Çıktı dosyaları",
		"Select a page":    "Bir sayfa seçin",
		"Language":         "Dil",
		"Size":             "Boyut",
		"Modified":         "Değiştirilme",
		"Type":             "Tür",
		"Up":               "Yukarı",
		"Down":             "Aşağı",

		"The following items will be deleted:": "Aşağıdaki öğeler silinecek:",
	},
}

var (
	// Supported lists the admin languages, English first.
	Supported = []language.Tag{language.English, language.Turkish}

	cat = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			b.SetString(tag, key, msg)
		}
	}
	return b
}

// Parse resolves a language code from a URL to a supported tag.
// The second result is false when the code is not a supported language.
func Parse(code string) (language.Tag, bool) {
	tag, err := language.Parse(code)
	if err != nil {
		return language.English, false
	}
	base, _ := tag.Base()
	for _, s := range Supported {
		sb, _ := s.Base()
		if sb == base {
			return s, true
		}
	}
	return language.English, false
}

// Code returns the short language code used in admin URLs.
func Code(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// Printer returns a message printer for tag backed by the admin catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// T translates key for tag, formatting args into the message.
func T(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}

// Name returns the localized display name of a language.
func Name(tag language.Tag) string {
	switch Code(tag) {
	case "tr":
		return "Türkçe"
	default:
		return "English"
	}
}

// Localized picks the value for tag from names keyed by language code,
// falling back to def.
func Localized(names map[string]string, tag language.Tag, def string) string {
	if v, ok := names[Code(tag)]; ok && v != "" {
		return v
	}
	return def
}

// SortStrings sorts keys in place by the collation rules of tag.
func SortStrings(tag language.Tag, keys []string) {
	collate.New(tag, collate.IgnoreCase).SortStrings(keys)
}

// SortBy sorts items in place by the localized key returned by key.
func SortBy[E any](tag language.Tag, items []E, key func(E) string) {
	c := collate.New(tag, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(key(items[i]), key(items[j])) < 0
	})
}
