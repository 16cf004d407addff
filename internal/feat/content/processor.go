package content

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	previewPolicyOnce sync.Once
	previewPolicy     *bluemonday.Policy
)

func previewSanitizer() *bluemonday.Policy {
	previewPolicyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
		previewPolicy = p
	})
	return previewPolicy
}

// Processor renders markdown field values for previews.
type Processor struct {
	parser goldmark.Markdown
}

// NewProcessor creates a markdown processor with GFM extensions.
func NewProcessor() *Processor {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	return &Processor{parser: md}
}

// ToHTML converts markdown to sanitized HTML. Raw HTML in the source is
// passed to the sanitizer rather than dropped by the renderer.
func (p *Processor) ToHTML(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.parser.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}
	return template.HTML(previewSanitizer().SanitizeBytes(buf.Bytes())), nil
}
