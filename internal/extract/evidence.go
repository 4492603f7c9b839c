package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/docket/internal/model"
	"golang.org/x/net/html"
)

// DefaultEvidenceLimit bounds the evidence text passed to a prompt, in runes
const DefaultEvidenceLimit = 4000

// NormalizeEvidence returns a copy of items with markup stripped,
// whitespace collapsed and content bounded to limit runes
func NormalizeEvidence(items []model.EvidenceItem, limit int) []model.EvidenceItem {
	if limit <= 0 {
		limit = DefaultEvidenceLimit
	}

	out := make([]model.EvidenceItem, 0, len(items))
	for _, item := range items {
		out = append(out, model.EvidenceItem{
			Name:    collapseSpace(item.Name),
			Type:    collapseSpace(item.Type),
			Content: truncateRunes(normalizeText(item.Content), limit),
		})
	}
	return out
}

// normalizeText strips HTML when s looks like markup, then collapses whitespace
func normalizeText(s string) string {
	if looksLikeHTML(s) {
		if doc, err := html.Parse(strings.NewReader(s)); err == nil {
			s = extractVisibleText(doc)
		}
	}
	return collapseSpace(s)
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, tag := range []string{"<html", "<body", "<p>", "<p ", "<div", "<br", "<table", "<span"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes keeps at most limit runes of s, marking the cut
func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return strings.TrimSpace(s[:i]) + " [...]"
		}
		n++
	}
	return s
}

// DescribeEvidence renders evidence descriptors for a prompt
func DescribeEvidence(items []model.EvidenceItem) string {
	if len(items) == 0 {
		return "(No evidence provided)"
	}

	var b strings.Builder
	for i, item := range items {
		typ := item.Type
		if typ == "" {
			typ = "unspecified"
		}
		fmt.Fprintf(&b, "%d. %s (type: %s)\n", i+1, item.Name, typ)
		if item.Content != "" {
			fmt.Fprintf(&b, "   Content: %s\n", item.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
