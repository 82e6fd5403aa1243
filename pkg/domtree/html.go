package domtree

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLChildren lists the direct children of an html node
func HTMLChildren(n *html.Node) []*html.Node {
	var kids []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		kids = append(kids, c)
	}
	return kids
}

// FlattenHTML flattens a parsed html document
func FlattenHTML(root *html.Node) *Flat[*html.Node] {
	return Flatten(root, HTMLChildren)
}

// Text returns the concatenated text content of n with whitespace collapsed
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
