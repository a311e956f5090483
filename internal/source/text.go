package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText reduces a free-text feed field to plain text. Commentary and
// status lines sometimes arrive with inline markup (<b>, <br>, entities);
// renderers expect plain text.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}

	body := doc.Find("body")
	body.Find("br").ReplaceWithHtml(" ")
	body.Find("script, style").Remove()

	return strings.Join(strings.Fields(body.Text()), " ")
}
