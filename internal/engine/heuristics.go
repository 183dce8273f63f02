package engine

import (
	"bytes"
	"log/slog"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/go-speedreader/speedreader/internal/classifier"
	"github.com/go-speedreader/speedreader/internal/features"
	"github.com/go-speedreader/speedreader/internal/urlinfo"
	"github.com/go-speedreader/speedreader/internal/xerrors"
)

// Product is the result of a heuristic extraction: the article HTML
// fragment, its plain-text projection, and the scraped metadata.
type Product struct {
	Title     string
	Byline    string
	Published string
	Content   string
	Text      string
}

type sessionState int

const (
	stateFresh sessionState = iota
	stateWriting
	stateEnded
)

// Heuristics is the buffer-and-parse engine session for unknown
// domains. Chunks fed to Write drive the streaming feature extractor;
// End classifies the document and, when readable, emits the cleaned
// article body to the sink in a single call.
type Heuristics struct {
	url       urlinfo.URL
	sink      func([]byte)
	extractor *features.StreamingExtractor
	state     sessionState
	product   Product
}

// NewHeuristics returns a session extracting the document served from u.
func NewHeuristics(u urlinfo.URL, sink func([]byte)) *Heuristics {
	return &Heuristics{
		url:       u,
		sink:      sink,
		extractor: features.NewStreamingExtractor(u),
	}
}

// Write feeds the next input chunk. No output is produced until End.
func (h *Heuristics) Write(chunk []byte) error {
	switch h.state {
	case stateEnded:
		return xerrors.WrapDocumentParse(xerrors.ErrSessionEnded, "Write", "")
	case stateFresh:
		h.state = stateWriting
	}
	if err := h.extractor.Write(chunk); err != nil {
		h.state = stateEnded
		return err
	}
	return nil
}

// End finalizes the parse, classifies the document, and emits the
// extracted article to the sink. A document classified as not readable
// is not an error: the session succeeds with empty output.
func (h *Heuristics) End() error {
	if h.state == stateEnded {
		return xerrors.WrapDocumentParse(xerrors.ErrSessionEnded, "End", "")
	}
	h.state = stateEnded

	vector, doc, err := h.extractor.End()
	if err != nil {
		return err
	}
	if classifier.Classify(vector) == 0 {
		slog.Debug("document not readable, yielding nothing", "url", h.url.String())
		return nil
	}

	product, err := Extract(doc, h.url)
	if err != nil {
		return err
	}
	h.product = product
	if product.Content != "" {
		h.sink([]byte(product.Content))
	}
	return nil
}

// Product returns the extraction result after a successful End. For a
// document classified as not readable it is the zero value.
func (h *Heuristics) Product() Product {
	return h.product
}

// Extract runs the scorer pipeline over an already-parsed document:
// preprocess, score candidates, select the winner, clean it, and
// serialize it.
func Extract(doc *goquery.Document, u urlinfo.URL) (Product, error) {
	root := doc.Get(0)
	if root == nil {
		return Product{}, xerrors.WrapDocumentParse(xerrors.ErrDocumentParse, "Extract", "empty document")
	}

	meta := extractMetadata(doc)

	var title string
	preprocess(root, &title)
	if title == "" {
		title = meta.Title
	}

	candidates := make(map[string]*candidate)
	nodes := make(map[string]*html.Node)
	findCandidates(rootPath, root, candidates, nodes)

	topID, topNode := selectTop(root, candidates)

	clean(topID, topNode, u, candidates)

	var buf bytes.Buffer
	if err := html.Render(&buf, topNode); err != nil {
		return Product{}, xerrors.WrapDocumentParse(err, "Extract", "serializing winner")
	}

	return Product{
		Title:     title,
		Byline:    meta.Byline,
		Published: meta.Published,
		Content:   buf.String(),
		Text:      extractText(topNode, true),
	}, nil
}

// selectTop adjusts every candidate's score by its link density and
// picks the maximum; ties keep the first encountered in key order.
// With no positive-scoring candidate the document root wins.
func selectTop(root *html.Node, candidates map[string]*candidate) (string, *html.Node) {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	topID, topNode, topScore := rootPath, root, 0.0
	for _, id := range ids {
		c := candidates[id]
		c.score = c.score * (1 - linkDensity(c.node))
		if c.score <= topScore {
			continue
		}
		topID, topNode, topScore = id, c.node, c.score
	}
	return topID, topNode
}
