package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultIgnoredTags hold content that must not be translated.
var DefaultIgnoredTags = []string{"script", "style", "code", "pre", "textarea", "noscript", "svg", "template", "head"}

// blockTags end a paragraph in the extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "blockquote": true, "table": true, "tr": true,
	"br": true, "hr": true, "main": true, "aside": true, "nav": true, "figcaption": true,
}

// HTML extracts visible text from an HTML document. Ignored tags and
// elements marked data-no-translate are skipped.
type HTML struct {
	ignored map[string]bool
}

// NewHTML creates an extractor with DefaultIgnoredTags.
func NewHTML() *HTML {
	return NewHTMLWithIgnoredTags(DefaultIgnoredTags)
}

// NewHTMLWithIgnoredTags creates an extractor with a custom ignore list.
func NewHTMLWithIgnoredTags(tags []string) *HTML {
	ignored := make(map[string]bool, len(tags))
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &HTML{ignored: ignored}
}

func (p *HTML) ContentType() string { return "html" }

// Extract returns the document text with one paragraph per block element.
func (p *HTML) Extract(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", &ExtractionError{ContentType: "html", Cause: err}
	}

	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if p.skip(n) {
				return
			}
			if blockTags[n.Data] {
				flush()
				defer flush()
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				current = append(current, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}

func (p *HTML) skip(n *html.Node) bool {
	if p.ignored[strings.ToLower(n.Data)] {
		return true
	}
	for _, attr := range n.Attr {
		if attr.Key == "data-no-translate" || (attr.Key == "translate" && attr.Val == "no") {
			return true
		}
	}
	return false
}
