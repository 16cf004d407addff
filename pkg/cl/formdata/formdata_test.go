package formdata

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseURLEncodedKeepsOrder(t *testing.T) {
	body := "title=Hello+World&body-uuid_b-text-text=second&body-0-text-text=first&tags=a&tags=b%26c"
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := Parse(req)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantKeys := []string{"title", "body-uuid_b-text-text", "body-0-text-text", "tags"}
	if diff := cmp.Diff(wantKeys, f.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if got := f.Value("title"); got != "Hello World" {
		t.Errorf("title = %q", got)
	}
	if diff := cmp.Diff([]string{"a", "b&c"}, f.All("tags")); diff != "" {
		t.Errorf("All(tags) mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
}

func TestParseEmptyValue(t *testing.T) {
	f, err := ParseQuery("a=&b")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := f.Get("a"); !ok || v != "" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}
	if v, ok := f.Get("b"); !ok || v != "" {
		t.Errorf("Get(b) = %q, %v", v, ok)
	}
}

func TestParseInvalidEscape(t *testing.T) {
	if _, err := ParseQuery("a=%zz"); err == nil {
		t.Error("expected error for invalid escape")
	}
}

func TestParseMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("z-first", "1")
	_ = w.WriteField("a-second", "2")
	fw, err := w.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("\x89PNG data"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	f, err := Parse(req)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"z-first", "a-second"}, f.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	file, ok := f.File("file")
	if !ok {
		t.Fatal("expected uploaded file")
	}
	if file.Filename != "photo.png" || string(file.Data) != "\x89PNG data" {
		t.Errorf("file = %+v", file)
	}
}

func TestParseUnsupported(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if _, err := Parse(req); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Parse() error = %v, want ErrUnsupportedType", err)
	}
}
