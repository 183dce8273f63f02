// Package engine implements the heuristic extraction engine: score
// candidate subtrees of a parsed document, select the article body,
// clean it, and serialize the result.
package engine

import (
	"strings"

	"golang.org/x/net/html"
)

// voidElements never carry children; they are exempt from the
// empty-element drop during cleaning.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// tagName returns the lower-cased tag of n, or "" for non-elements.
func tagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// getAttr returns the value of the named attribute.
func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or replaces the named attribute.
func setAttr(n *html.Node, name, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

// removeAttrs drops every listed attribute from n.
func removeAttrs(n *html.Node, names ...string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		drop := false
		for _, name := range names {
			if a.Key == name {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// extractText concatenates the text content under n. With deep set,
// descendants are included; otherwise only direct text children.
func extractText(n *html.Node, deep bool) string {
	var b strings.Builder
	appendText(&b, n, deep)
	return b.String()
}

func appendText(b *strings.Builder, n *html.Node, deep bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			t := strings.TrimSpace(c.Data)
			if t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		case html.ElementNode:
			if deep {
				appendText(b, c, true)
			}
		}
	}
}

// textLen counts the characters of the text content under n.
func textLen(n *html.Node) int {
	return len([]rune(extractText(n, true)))
}

// findNodes collects every descendant element of n with the given tag.
func findNodes(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				if tagName(c) == tag {
					out = append(out, c)
				}
				walk(c)
			}
		}
	}
	walk(n)
	return out
}

// hasDescendant reports whether n contains any element with a tag from
// tags.
func hasDescendant(n *html.Node, tags map[string]bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if tags[tagName(c)] || hasDescendant(c, tags) {
				return true
			}
		}
	}
	return false
}

// textChildrenCount counts the non-empty direct text children of n.
func textChildrenCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			count++
		}
	}
	return count
}

// children snapshots the child list of n so callers can mutate the tree
// while iterating.
func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// removeNode detaches n from its parent, clearing the upward link.
func removeNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// isEmptyNode reports whether n is an element with no children and no
// text. Void elements are never empty.
func isEmptyNode(n *html.Node) bool {
	if n.Type != html.ElementNode || voidElements[tagName(n)] {
		return false
	}
	if n.FirstChild == nil {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return false
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}
