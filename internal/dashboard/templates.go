package dashboard

import (
	"bytes"
	_ "embed"
	"html"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

//go:embed index.html
var indexHTML []byte

// ServeIndex serves the embedded HTML dashboard.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// newMarkdown builds the renderer for customer messages. Raw HTML in model
// output is not passed through.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
	)
}

func (d *Dashboard) renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(src), &buf); err != nil {
		slog.Warn("dashboard: rendering markdown", "error", err)
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return buf.String()
}
