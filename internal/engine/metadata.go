package engine

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Metadata carries the document-level fields scraped before any
// preprocessing mutates the tree.
type Metadata struct {
	Title     string
	Byline    string
	Published string
}

// extractMetadata scrapes the title, byline, and publication date from
// the document head. Open Graph values win over the bare <title> tag;
// the date comes from the article:published_time meta property.
func extractMetadata(doc *goquery.Document) Metadata {
	var meta Metadata

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		meta.Title = strings.TrimSpace(og)
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	for _, sel := range []string{
		`meta[name="author"]`,
		`meta[property="article:author"]`,
		`[rel="author"]`,
	} {
		s := doc.Find(sel).First()
		if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
			meta.Byline = strings.TrimSpace(content)
			break
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			meta.Byline = text
			break
		}
	}

	// The date sits in head metadata that goquery has no reason to
	// index; an XPath probe over the same tree is the cheaper lookup.
	if root := doc.Get(0); root != nil {
		for _, expr := range []string{
			`//meta[@property="article:published_time"]`,
			`//meta[@itemprop="datePublished"]`,
			`//time[@datetime]`,
		} {
			node, err := htmlquery.Query(root, expr)
			if err != nil || node == nil {
				continue
			}
			if v := htmlquery.SelectAttr(node, "content"); v != "" {
				meta.Published = v
				break
			}
			if v := htmlquery.SelectAttr(node, "datetime"); v != "" {
				meta.Published = v
				break
			}
		}
	}

	return meta
}
