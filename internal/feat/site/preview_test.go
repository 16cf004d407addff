package site

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cliossg/tekir/internal/testutil"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

func TestInjectEditLink(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"body", "<html><body><p>hi</p></body></html>", "<p>hi</p><a href=\"/edit?path=%2F\""},
		{"upper case body", "<HTML><BODY>hi</BODY></HTML>", "hi<a href=\"/edit?path=%2F\""},
		{"fragment", "<p>hi</p>", "<p>hi</p><a href=\"/edit?path=%2F\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(injectEditLink([]byte(tt.page), "/edit?path=%2F"))
			if !strings.Contains(got, tt.want) {
				t.Errorf("injectEditLink() = %q, want it to contain %q", got, tt.want)
			}
			if strings.Count(got, "<a ") != 1 {
				t.Errorf("injectEditLink() = %q, want exactly one link", got)
			}
		})
	}
}

func newTestPreview(t *testing.T) *PreviewServer {
	t.Helper()
	b, _, _ := newTestBuilder(t)
	out := b.OutputPath()
	testutil.WriteFile(t, out, "index.html", "<html><body>Home</body></html>")
	testutil.WriteFile(t, out, "blog/first-post/index.html", "<html><body>First</body></html>")
	testutil.WriteFile(t, out, "blog/first-post/notes.txt", "notes")
	testutil.WriteFile(t, out, "static/style.css", "body{}")
	testutil.WriteBuildstate(t, out, fixtureArtifacts)

	svc := NewService(b, nil, logger.NewNoopLogger())
	return NewPreviewServer(svc, out, "127.0.0.1:5000", "127.0.0.1:5001", "en", logger.NewNoopLogger())
}

func TestPreviewServer(t *testing.T) {
	s := newTestPreview(t)

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
		absent   string
	}{
		{"home", "/", http.StatusOK, `href="http://127.0.0.1:5001/tekir-admin/en/contents?path=%2F"`, ""},
		{"page", "/blog/first-post/", http.StatusOK, "path=%2Fblog%2Ffirst-post", ""},
		{"directory redirect", "/blog/first-post", http.StatusMovedPermanently, "", ""},
		{"attachment", "/blog/first-post/notes.txt", http.StatusOK, "notes", "tekir-admin"},
		{"asset", "/static/style.css", http.StatusOK, "body{}", "tekir-admin"},
		{"missing", "/nope/", http.StatusNotFound, "", ""},
		{"build state", "/.lektor/buildstate", http.StatusNotFound, "", ""},
		{"escape", "/../../etc/passwd", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			body := w.Body.String()
			if tt.contains != "" && !strings.Contains(body, tt.contains) {
				t.Errorf("body = %q, want it to contain %q", body, tt.contains)
			}
			if tt.absent != "" && strings.Contains(body, tt.absent) {
				t.Errorf("body = %q, must not contain %q", body, tt.absent)
			}
		})
	}
}

func TestPreviewServerWithoutRecord(t *testing.T) {
	s := newTestPreview(t)
	testutil.WriteFile(t, s.outputPath, "404.html", "<body>Not found</body>")

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/404.html", nil))
	if strings.Contains(w.Body.String(), "tekir-admin") {
		t.Errorf("edit link added to a page without a record: %q", w.Body.String())
	}
}
