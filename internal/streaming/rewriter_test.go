package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-speedreader/speedreader/internal/registry"
)

func rewrite(t *testing.T, rules registry.SiteRules, origin, input string, chunkSize int) string {
	t.Helper()
	handlers, err := Compile(rules, origin)
	require.NoError(t, err)

	var out []byte
	r := NewRewriter(handlers, func(chunk []byte) {
		out = append(out, chunk...)
	})
	data := []byte(input)
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		require.NoError(t, r.Write(data[i:end]))
	}
	require.NoError(t, r.End())
	return string(out)
}

var articleRules = registry.SiteRules{
	Domain:      "example.com",
	MainContent: []string{".article-main-body"},
	MainContentCleanup: []string{
		".share",
	},
}

func TestRetainsMarkedSubtreeOnly(t *testing.T) {
	input := `<html><body>` +
		`<div class="article-main-body"><p>X</p></div>` +
		`<div class="ad">Y</div>` +
		`</body></html>`
	out := rewrite(t, articleRules, "https://example.com", input, 0)

	assert.Contains(t, out, "X")
	assert.Contains(t, out, `<div class="article-main-body">`)
	assert.NotContains(t, out, "Y")
	assert.NotContains(t, out, "ad")
}

func TestCleanupSelectorRemovesInsideRetained(t *testing.T) {
	input := `<html><body><div class="article-main-body">` +
		`<p>keep</p><div class="share"><a href="/s">share me</a></div>` +
		`</div></body></html>`
	out := rewrite(t, articleRules, "https://example.com", input, 0)

	assert.Contains(t, out, "keep")
	assert.NotContains(t, out, "share me")
	assert.NotContains(t, out, `class="share"`)
}

func TestStyleAttributeStripped(t *testing.T) {
	input := `<html><body><div class="article-main-body">` +
		`<p style="color:red">text</p></div></body></html>`
	out := rewrite(t, articleRules, "https://example.com", input, 0)

	assert.Contains(t, out, "text")
	assert.NotContains(t, out, "style=")
}

func TestDelazify(t *testing.T) {
	rules := articleRules
	rules.Delazify = true
	input := `<html><body><div class="article-main-body">` +
		`<img data-src="/a.jpg" width="10" height="20">` +
		`</div></body></html>`
	out := rewrite(t, rules, "https://www.example.com", input, 0)

	assert.Contains(t, out, `src="https://www.example.com/a.jpg"`)
	assert.NotContains(t, out, "width")
	assert.NotContains(t, out, "height")
}

func TestRelativeLinksAbsolutized(t *testing.T) {
	input := `<html><body><div class="article-main-body">` +
		`<a href="/next">next</a><a href="https://other.com/x">x</a>` +
		`</div></body></html>`
	out := rewrite(t, articleRules, "https://example.com", input, 0)

	assert.Contains(t, out, `href="https://example.com/next"`)
	assert.Contains(t, out, `href="https://other.com/x"`)
}

func TestPreprocessAttributeRewrite(t *testing.T) {
	rules := registry.SiteRules{
		Domain:      "example.com",
		MainContent: []string{"article"},
		Preprocess: []registry.AttributeRewrite{
			{Selector: "div[data-component=image]", Attribute: "data-component", ToAttribute: "data-kind", ElementName: "figure"},
		},
	}
	input := `<html><body><article>` +
		`<div data-component="image">pic</div>` +
		`</article></body></html>`
	out := rewrite(t, rules, "https://example.com", input, 0)

	assert.Contains(t, out, "<figure")
	assert.Contains(t, out, `data-kind="image"`)
	assert.Contains(t, out, "</figure>")
	assert.NotContains(t, out, "<div")
}

func TestContentScriptAppendedToBody(t *testing.T) {
	rules := articleRules
	rules.ContentScript = `<script>fix();</script>`
	input := `<html><body><div class="article-main-body"><p>x</p></div></body></html>`
	out := rewrite(t, rules, "https://example.com", input, 0)

	assert.Contains(t, out, "<script>fix();</script>")
	// appended at the very end of body content
	assert.Regexp(t, `fix\(\);</script>$`, out)
}

func TestFixEmbedsPrependsTwitterScript(t *testing.T) {
	rules := articleRules
	rules.FixEmbeds = true
	rules.MainContent = []string{".twitterContainer"}
	input := `<html><body><div class="twitterContainer"><p>tweet</p></div></body></html>`
	out := rewrite(t, rules, "https://example.com", input, 0)

	assert.Contains(t, out, "platform.twitter.com/widgets.js")
	assert.Contains(t, out, "tweet")
}

func TestCommentsStripped(t *testing.T) {
	input := `<html><body><!-- chrome --><div class="article-main-body">` +
		`<!-- inner --><p>x</p></div></body></html>`
	out := rewrite(t, articleRules, "https://example.com", input, 0)

	assert.NotContains(t, out, "chrome")
	assert.NotContains(t, out, "inner")
	assert.NotContains(t, out, "<!--")
}

func TestScriptTextRetainedVerbatim(t *testing.T) {
	rules := registry.SiteRules{
		Domain:      "example.com",
		MainContent: []string{"body > script:not([src])"},
	}
	input := `<html><body><script>if (a < b) { go(); }</script></body></html>`
	out := rewrite(t, rules, "https://example.com", input, 0)

	assert.Contains(t, out, "if (a < b) { go(); }")
}

func TestChunkedEquivalence(t *testing.T) {
	input := `<html><body><div class="article-main-body">` +
		`<p>Some longer paragraph with <a href="/in">a link</a> and an ` +
		`<img data-src="/img.png"> inside.</p>` +
		`</div><div class="chrome">drop me</div></body></html>`
	rules := articleRules
	rules.Delazify = true

	whole := rewrite(t, rules, "https://example.com", input, 0)
	for _, size := range []int{1, 64} {
		assert.Equal(t, whole, rewrite(t, rules, "https://example.com", input, size), "chunk size %d", size)
	}
	// running the same document twice is byte-identical
	assert.Equal(t, whole, rewrite(t, rules, "https://example.com", input, 0))
}

func TestStateMachine(t *testing.T) {
	handlers, err := Compile(articleRules, "https://example.com")
	require.NoError(t, err)

	r := NewRewriter(handlers, func([]byte) {})
	require.NoError(t, r.Write([]byte("<html><body></body></html>")))
	require.NoError(t, r.End())

	assert.Error(t, r.Write([]byte("more")))
	assert.Error(t, r.End())
}

func TestCompileRejectsBadSelector(t *testing.T) {
	rules := registry.SiteRules{
		Domain:      "example.com",
		MainContent: []string{"div[["},
	}
	_, err := Compile(rules, "https://example.com")
	assert.Error(t, err)
}
