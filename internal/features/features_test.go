package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-speedreader/speedreader/internal/urlinfo"
)

func mustURL(t *testing.T, s string) urlinfo.URL {
	t.Helper()
	u, err := urlinfo.Parse(s)
	require.NoError(t, err)
	return u
}

func TestURLDepth(t *testing.T) {
	tests := []struct {
		url   string
		depth float64
	}{
		{"http://h", 1},
		{"http://h/", 1},
		{"http://h/a/b?x", 3},
		{"https://www.url.com/another/path", 3},
	}
	for _, tt := range tests {
		v, _, err := parseAll([]byte("<html><body></body></html>"), mustURL(t, tt.url))
		require.NoError(t, err)
		assert.Equal(t, tt.depth, v[IdxURLDepth], "url_depth of %s", tt.url)
	}
}

func TestTagCounting(t *testing.T) {
	doc := `<html><body>
		<div><p>one</p><p>two</p></div>
		<article><section><ul><li>x</li></ul></section></article>
		<a href="/x">link</a><img src="/i.png"><script>var x;</script>
	</body></html>`
	v, _, err := parseAll([]byte(doc), mustURL(t, "http://example.org/"))
	require.NoError(t, err)

	assert.Equal(t, 2.0, v[IdxP])
	assert.Equal(t, 1.0, v[IdxDiv])
	assert.Equal(t, 1.0, v[IdxArticle])
	assert.Equal(t, 1.0, v[IdxSection])
	assert.Equal(t, 1.0, v[IdxUl])
	assert.Equal(t, 1.0, v[IdxA])
	assert.Equal(t, 1.0, v[IdxImg])
	assert.Equal(t, 1.0, v[IdxScript])
	assert.Equal(t, 0.0, v[IdxTable])
}

func TestWordsAndTextBlocks(t *testing.T) {
	long := strings.Repeat("word ", 450)
	doc := "<html><body><article><p>" + long + "</p><p>short text</p></article></body></html>"
	v, _, err := parseAll([]byte(doc), mustURL(t, "http://example.org/story"))
	require.NoError(t, err)

	assert.Equal(t, 452.0, v[IdxWords])
	assert.Equal(t, 1.0, v[IdxTextBlocks])
}

func TestTextBlockIgnoresShortParagraphs(t *testing.T) {
	doc := "<html><body><p>" + strings.Repeat("w ", 400) + "</p></body></html>"
	v, _, err := parseAll([]byte(doc), mustURL(t, "http://example.org/"))
	require.NoError(t, err)
	// exactly 400 words does not exceed the threshold
	assert.Equal(t, 0.0, v[IdxTextBlocks])
}

func TestMetadataFlags(t *testing.T) {
	doc := `<html><head>
		<meta property="og:type" content="article">
		<meta property="fb:pages" content="1234">
		<link rel="amphtml" href="https://example.org/amp">
	</head><body>
		<div itemtype="https://schema.org/NewsArticle"></div>
	</body></html>`
	v, _, err := parseAll([]byte(doc), mustURL(t, "http://example.org/"))
	require.NoError(t, err)

	assert.Equal(t, 1.0, v[IdxOgArticle])
	assert.Equal(t, 1.0, v[IdxFbPages])
	assert.Equal(t, 1.0, v[IdxAmphtml])
	assert.Equal(t, 1.0, v[IdxSchemaOrg])
}

func TestChunkedEquivalence(t *testing.T) {
	doc := []byte(`<html><head><meta property="og:title" content="t"></head>
		<body><article><p>` + strings.Repeat("lorem ipsum ", 300) + `</p></article></body></html>`)
	u := mustURL(t, "http://example.org/a/b")

	whole, _, err := parseAll(doc, u)
	require.NoError(t, err)

	for _, size := range []int{1, 7, 64} {
		s := NewStreamingExtractor(u)
		for i := 0; i < len(doc); i += size {
			end := i + size
			if end > len(doc) {
				end = len(doc)
			}
			require.NoError(t, s.Write(doc[i:end]))
		}
		v, gdoc, err := s.End()
		require.NoError(t, err)
		require.NotNil(t, gdoc)
		assert.Equal(t, whole, v, "chunk size %d", size)
	}
}

func TestWholeDocumentMatchesStreaming(t *testing.T) {
	doc := []byte(`<html><body><div><p>some words here</p></div></body></html>`)
	u := mustURL(t, "http://example.org/x")

	streamed, gdoc, err := parseAll(doc, u)
	require.NoError(t, err)
	assert.Equal(t, streamed, ExtractFromDocument(gdoc, u))
}

func TestWriteAfterEnd(t *testing.T) {
	s := NewStreamingExtractor(mustURL(t, "http://example.org/"))
	require.NoError(t, s.Write([]byte("<p>x</p>")))
	_, _, err := s.End()
	require.NoError(t, err)
	assert.Error(t, s.Write([]byte("more")))
}
