package features

import (
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/go-speedreader/speedreader/internal/urlinfo"
	"github.com/go-speedreader/speedreader/internal/xerrors"
)

// ExtractFromDocument accumulates the feature vector over an
// already-parsed document. The url contributes the url_depth feature.
func ExtractFromDocument(doc *goquery.Document, u urlinfo.URL) Vector {
	var v Vector
	if root := doc.Get(0); root != nil {
		accumulate(&v, root, 1)
	}
	v[IdxURLDepth] = float64(u.PathSegmentCount())
	return v
}

// ExtractFromReader parses r into a document and accumulates features
// over it in one call.
func ExtractFromReader(r io.Reader, u urlinfo.URL) (Vector, *goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Vector{}, nil, xerrors.WrapDocumentParse(err, "ExtractFromReader", "parsing document")
	}
	return ExtractFromDocument(doc, u), doc, nil
}

type extractorState int

const (
	extractorFresh extractorState = iota
	extractorWriting
	extractorEnded
)

// StreamingExtractor accepts byte chunks and drives the HTML parser
// incrementally; End finalizes and returns the document plus the
// accumulated feature vector. The parser runs on its own goroutine fed
// through a pipe, so a chunk boundary can never split a token.
type StreamingExtractor struct {
	url   urlinfo.URL
	pw    *io.PipeWriter
	done  chan struct{}
	root  *html.Node
	err   error
	state extractorState
}

// NewStreamingExtractor returns an extractor accumulating features for
// a document served from u.
func NewStreamingExtractor(u urlinfo.URL) *StreamingExtractor {
	pr, pw := io.Pipe()
	s := &StreamingExtractor{
		url:  u,
		pw:   pw,
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		root, err := html.Parse(pr)
		if err != nil {
			s.err = err
			pr.CloseWithError(err)
			return
		}
		s.root = root
	}()
	return s
}

// Write feeds the next chunk to the parser. The call blocks until the
// parser has consumed the chunk, so output events stay in input order.
func (s *StreamingExtractor) Write(chunk []byte) error {
	switch s.state {
	case extractorEnded:
		return xerrors.WrapDocumentParse(xerrors.ErrSessionEnded, "Write", "extractor already finalized")
	case extractorFresh:
		s.state = extractorWriting
	}
	if _, err := s.pw.Write(chunk); err != nil {
		if s.err != nil {
			err = s.err
		}
		return xerrors.WrapDocumentParse(err, "Write", "feeding parser")
	}
	return nil
}

// End finalizes the parse and returns the feature vector together with
// the parsed document.
func (s *StreamingExtractor) End() (Vector, *goquery.Document, error) {
	if s.state == extractorEnded {
		return Vector{}, nil, xerrors.WrapDocumentParse(xerrors.ErrSessionEnded, "End", "extractor already finalized")
	}
	s.state = extractorEnded
	s.pw.Close()
	<-s.done
	if s.err != nil {
		return Vector{}, nil, xerrors.WrapDocumentParse(s.err, "End", "finalizing parse")
	}
	var v Vector
	accumulate(&v, s.root, 1)
	v[IdxURLDepth] = float64(s.url.PathSegmentCount())
	return v, goquery.NewDocumentFromNode(s.root), nil
}

// parseAll parses the whole input through the streaming path in one
// write. Used by tests to compare against chunked feeds.
func parseAll(input []byte, u urlinfo.URL) (Vector, *goquery.Document, error) {
	s := NewStreamingExtractor(u)
	if err := s.Write(input); err != nil {
		return Vector{}, nil, err
	}
	return s.End()
}
