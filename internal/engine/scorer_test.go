package engine

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/go-speedreader/speedreader/internal/urlinfo"
)

func parseDoc(t *testing.T, src string) (*goquery.Document, *html.Node) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc, doc.Get(0)
}

func mustURL(t *testing.T, s string) urlinfo.URL {
	t.Helper()
	u, err := urlinfo.Parse(s)
	require.NoError(t, err)
	return u
}

func TestIsCandidate(t *testing.T) {
	_, root := parseDoc(t, `<html><body>
		<p id="long">This paragraph is long enough to qualify as a candidate node.</p>
		<p id="short">short</p>
		<div id="leaf">Another block of text that is long enough to qualify here.</div>
		<div id="nested"><p>Text inside makes this div contain a block child element.</p></div>
	</body></html>`)

	byID := map[string]*html.Node{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if id, ok := getAttr(n, "id"); ok {
			byID[id] = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	assert.True(t, isCandidate(byID["long"]))
	assert.False(t, isCandidate(byID["short"]), "under 20 characters")
	assert.True(t, isCandidate(byID["leaf"]))
	assert.False(t, isCandidate(byID["nested"]), "div with block child")
}

func TestInitContentScore(t *testing.T) {
	tests := []struct {
		html  string
		score float64
	}{
		{`<article>x</article>`, 10},
		{`<div>x</div>`, 5},
		{`<blockquote>x</blockquote>`, 3},
		{`<ul>x</ul>`, -3},
		{`<div class="article-content">x</div>`, 30},
		{`<div class="sidebar">x</div>`, -20},
	}
	for _, tt := range tests {
		_, root := parseDoc(t, "<html><body>"+tt.html+"</body></html>")
		body := root.FirstChild.FirstChild.NextSibling
		node := body.FirstChild
		assert.Equal(t, tt.score, initContentScore(node), tt.html)
	}
}

func TestClassWeight(t *testing.T) {
	_, root := parseDoc(t, `<html><body><div id="story" class="story-body">x</div></body></html>`)
	body := root.FirstChild.FirstChild.NextSibling
	div := body.FirstChild
	// both id and class match the positive pattern
	assert.Equal(t, 50.0, getClassWeight(div))
}

func TestLinkDensity(t *testing.T) {
	_, root := parseDoc(t, `<html><body><div><a href="/x">half</a><span>half</span></div></body></html>`)
	body := root.FirstChild.FirstChild.NextSibling
	div := body.FirstChild
	// "half half" is 9 runes of text, 4 of them under the anchor
	assert.InDelta(t, 4.0/9.0, linkDensity(div), 0.01)

	_, root2 := parseDoc(t, `<html><body><div></div></body></html>`)
	body2 := root2.FirstChild.FirstChild.NextSibling
	assert.Equal(t, 0.0, linkDensity(body2.FirstChild))
}

func TestPreprocessDropsChromeAndCapturesTitle(t *testing.T) {
	_, root := parseDoc(t, `<html><head><title>My Article</title>
		<script>var x;</script><style>p{}</style></head>
		<body><div class="disqus">comments</div><p>body text</p></body></html>`)

	var title string
	preprocess(root, &title)

	assert.Equal(t, "My Article", title)
	out := renderNode(t, root)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<style")
	assert.NotContains(t, out, "comments")
	assert.Contains(t, out, "body text")
}

func TestPreprocessKeepsLikelyCandidates(t *testing.T) {
	// "sidebar" matches UNLIKELY but also LIKELY, so it survives
	_, root := parseDoc(t, `<html><body><div class="sidebar">kept</div></body></html>`)
	var title string
	preprocess(root, &title)
	assert.Contains(t, renderNode(t, root), "kept")
}

func TestPreprocessBrRunsBecomeParagraphs(t *testing.T) {
	_, root := parseDoc(t, `<html><body><div><br><br>promoted text</div></body></html>`)
	var title string
	preprocess(root, &title)
	out := renderNode(t, root)
	assert.Contains(t, out, "<p>promoted text</p>")
}

func TestFindCandidatesScoresAncestors(t *testing.T) {
	_, root := parseDoc(t, `<html><body><article>
		<p>`+strings.Repeat("A paragraph with enough text to score, and more. ", 10)+`</p>
	</article></body></html>`)

	candidates := make(map[string]*candidate)
	nodes := make(map[string]*html.Node)
	findCandidates(rootPath, root, candidates, nodes)

	var articleScore, bodyScore float64
	for _, c := range candidates {
		switch tagName(c.node) {
		case "article":
			articleScore = c.score
		case "body":
			bodyScore = c.score
		}
	}
	assert.Greater(t, articleScore, 10.0, "article takes init 10 plus the paragraph score")
	assert.Greater(t, articleScore, bodyScore, "parent outranks grandparent")
}

func TestExtractSelectsArticleBody(t *testing.T) {
	long := strings.Repeat("Plenty of readable words in this long paragraph here. ", 30)
	doc, _ := parseDoc(t, `<html><head><title>T</title></head><body>
		<article><p>`+long+`</p></article>
		<script>tracking();</script>
	</body></html>`)

	product, err := Extract(doc, mustURL(t, "http://example.org/story/1"))
	require.NoError(t, err)
	assert.Equal(t, "T", product.Title)
	assert.Contains(t, product.Content, "Plenty of readable words")
	assert.NotContains(t, product.Content, "<script")
	assert.NotContains(t, product.Content, "tracking")
	assert.Contains(t, product.Text, "Plenty of readable words")
}

func TestCleanStripsAttributesAndChrome(t *testing.T) {
	doc, _ := parseDoc(t, `<html><body><article id="a" class="c" style="x">
		<p style="color:red">`+strings.Repeat("text content here ", 20)+`</p>
		<iframe src="//ads.example.com"></iframe>
		<noscript>stub</noscript>
	</article></body></html>`)

	product, err := Extract(doc, mustURL(t, "http://example.org/p"))
	require.NoError(t, err)
	assert.NotContains(t, product.Content, "id=")
	assert.NotContains(t, product.Content, "class=")
	assert.NotContains(t, product.Content, "style=")
	assert.NotContains(t, product.Content, "<iframe")
	assert.NotContains(t, product.Content, "<noscript")
}

func TestCleanRewritesRelativeImages(t *testing.T) {
	long := strings.Repeat("words to keep the container from being useless, sure. ", 20)
	doc, _ := parseDoc(t, `<html><body><article>
		<p>`+long+`</p>
		<img src="/images/a.jpg">
		<img src="https://cdn.example.org/b.jpg">
	</article></body></html>`)

	product, err := Extract(doc, mustURL(t, "https://example.org/story/x"))
	require.NoError(t, err)
	assert.Contains(t, product.Content, `src="https://example.org/images/a.jpg"`)
	assert.Contains(t, product.Content, `src="https://cdn.example.org/b.jpg"`)
}

func TestIsUselessLinkDensity(t *testing.T) {
	links := strings.Repeat(`<a href="/x">link text here</a> `, 10)
	_, root := parseDoc(t, `<html><body><div>`+links+`</div></body></html>`)
	body := root.FirstChild.FirstChild.NextSibling
	div := body.FirstChild
	assert.True(t, isUseless("/0/1/0", div, map[string]*candidate{}))
}

func renderNode(t *testing.T, n *html.Node) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, html.Render(&b, n))
	return b.String()
}
