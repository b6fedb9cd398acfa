package loader

import (
	"bytes"
	"html"
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	reTitle      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	reDropBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|template|iframe)(\s[^>]*)?>.*?</(script|style|noscript|head|svg|template|iframe)>`)
	reComments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	reBlockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|header|footer|nav|main|aside|ul|ol)(\s[^>]*)?>`)
	reBlockClose = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|header|footer|nav|main|aside|ul|ol)>`)
	reLineBreak  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	reAnyTag     = regexp.MustCompile(`<[^>]+>`)
	reSpaces     = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

type contentKind int

const (
	kindHTML contentKind = iota
	kindMarkdown
	kindPlain
)

// detectKind picks a normaliser from the response content type, falling back
// to the URL extension and finally to sniffing for markup.
func detectKind(contentType, rawURL string, body []byte) contentKind {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "text/html", "application/xhtml+xml":
			return kindHTML
		case "text/markdown", "text/x-markdown":
			return kindMarkdown
		case "text/plain":
			if isMarkdownPath(rawURL) {
				return kindMarkdown
			}
			return kindPlain
		}
	}
	if isMarkdownPath(rawURL) {
		return kindMarkdown
	}
	head := bytes.ToLower(body[:min(len(body), 512)])
	if bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html")) {
		return kindHTML
	}
	return kindPlain
}

func isMarkdownPath(rawURL string) bool {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	switch strings.ToLower(path.Ext(rawURL)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// normalize converts a fetched page into readable text and a title.
func normalize(p *Page) (title, body string) {
	switch detectKind(p.ContentType, p.URL, p.Body) {
	case kindHTML:
		raw := string(p.Body)
		return htmlTitle(raw), stripHTML(raw)
	case kindMarkdown:
		return markdownText(p.Body)
	default:
		return "", tidyLines(string(p.Body))
	}
}

func htmlTitle(raw string) string {
	m := reTitle.FindStringSubmatch(raw)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// stripHTML drops non-content elements and tags. A closed block element
// ends a paragraph, so page elements come out separated by blank lines.
func stripHTML(raw string) string {
	s := reDropBlocks.ReplaceAllString(raw, "")
	s = reComments.ReplaceAllString(s, "")
	s = reBlockOpen.ReplaceAllString(s, "\n")
	s = reBlockClose.ReplaceAllString(s, "\n\n")
	s = reLineBreak.ReplaceAllString(s, "\n")
	s = reAnyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return tidyLines(s)
}

// tidyLines collapses runs of whitespace and trims every line. Any run of
// blank lines between text becomes a single paragraph break.
func tidyLines(s string) string {
	s = reSpaces.ReplaceAllString(s, " ")
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// markdownText renders the text content of a markdown document, separating
// blocks with blank lines. The first heading becomes the title.
func markdownText(src []byte) (title, body string) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering && title == "" {
				title = strings.TrimSpace(string(nodeText(node, src)))
			}
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
			}
		}
		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			buf.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})

	body = strings.TrimSpace(reBlankLines.ReplaceAllString(buf.String(), "\n\n"))
	return title, body
}

func nodeText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			continue
		}
		buf.Write(nodeText(c, src))
	}
	return buf.Bytes()
}
