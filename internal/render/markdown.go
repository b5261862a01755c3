// Package render turns report markdown into HTML for the browser.
package render

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Markdown converts report markdown to HTML. Raw HTML in the source is not passed through.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// MarkdownOrText renders src, falling back to escaped preformatted text if conversion fails.
func MarkdownOrText(src string) template.HTML {
	out, err := Markdown(src)
	if err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return out
}
