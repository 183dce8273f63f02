// Package features extracts the fixed-length feature vector the
// readability classifier consumes. Two variants share one accumulation
// policy: a whole-document walk over an already-parsed tree, and a
// streaming extractor fed byte chunks that finalizes into the same
// vector plus the parsed document.
package features

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Count is the fixed length of the feature vector.
const Count = 21

// Vector positions, assigned by name. The ordering is part of the
// classifier contract and must not change.
const (
	IdxImg = iota
	IdxA
	IdxScript
	IdxTextBlocks
	IdxWords
	IdxBlockquote
	IdxDl
	IdxDiv
	IdxOl
	IdxP
	IdxPre
	IdxTable
	IdxUl
	IdxSelect
	IdxArticle
	IdxSection
	IdxURLDepth
	IdxAmphtml
	IdxFbPages
	IdxOgArticle
	IdxSchemaOrg
)

// Vector is the fixed-length feature array. Missing keys are 0.0.
type Vector [Count]float64

// tagIndex maps a counted tag name to its vector position.
var tagIndex = map[string]int{
	"img":        IdxImg,
	"a":          IdxA,
	"script":     IdxScript,
	"blockquote": IdxBlockquote,
	"dl":         IdxDl,
	"div":        IdxDiv,
	"ol":         IdxOl,
	"p":          IdxP,
	"pre":        IdxPre,
	"table":      IdxTable,
	"ul":         IdxUl,
	"select":     IdxSelect,
	"article":    IdxArticle,
	"section":    IdxSection,
}

// textBlockMinWords is the word count a <p> text node must exceed to
// count as a text block, and textBlockMinDepth/textBlockMaxDepth bound
// (exclusively) the parent's depth from the document root.
const (
	textBlockMinWords = 400
	textBlockMinDepth = 1
	textBlockMaxDepth = 11
)

// accumulate walks the tree rooted at n, adding every feature event to
// v. depth is the element depth counted inclusively from the document
// node (document = 1).
func accumulate(v *Vector, n *html.Node, depth int) {
	switch n.Type {
	case html.ElementNode:
		if idx, ok := tagIndex[n.Data]; ok {
			v[idx]++
		}
		switch n.Data {
		case "meta":
			for _, a := range n.Attr {
				if strings.HasPrefix(a.Val, "og:") {
					v[IdxOgArticle] = 1
				}
				if strings.HasPrefix(a.Val, "fb:") {
					v[IdxFbPages] = 1
				}
			}
		case "link":
			for _, a := range n.Attr {
				if a.Val == "amphtml" {
					v[IdxAmphtml] = 1
				}
			}
		}
		for _, a := range n.Attr {
			if strings.HasPrefix(a.Val, "https://schema.org/Article") ||
				strings.HasPrefix(a.Val, "https://schema.org/NewsArticle") {
				v[IdxSchemaOrg] = 1
			}
		}
	case html.TextNode:
		if p := n.Parent; p != nil && p.Type == html.ElementNode && p.Data == "p" {
			words := CountWords(n.Data)
			v[IdxWords] += float64(words)
			if words > textBlockMinWords && depth-1 > textBlockMinDepth && depth-1 < textBlockMaxDepth {
				v[IdxTextBlocks]++
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		accumulate(v, c, depth+1)
	}
}

// CountWords splits s on whitespace after Unicode normalization and
// returns the number of words.
func CountWords(s string) int {
	return len(strings.Fields(norm.NFC.String(s)))
}
