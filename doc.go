// Package speedreader reduces arbitrary web article HTML to a minimal,
// read-friendly rendering. It decides whether a page is likely a readable
// article and, if so, strips chrome, ads, lazy-load stubs, and social
// widgets from it.
//
// Two engines share the work. For domains with registered site rules,
// a streaming rule-based rewriter transforms the document using
// CSS-selector-driven handlers without ever building a DOM. For unknown
// domains, a heuristic DOM-based extractor parses the document, scores
// candidate subtrees, and serializes the winner.
//
// Usage:
//
//	sr, err := speedreader.New()
//	if err != nil {
//		// handle configuration error
//	}
//	sess, err := sr.NewSession("https://www.nytimes.com/2024/01/01/world/story.html", func(chunk []byte) {
//		out = append(out, chunk...)
//	}, nil)
//	if err != nil {
//		// handle configuration/URL error
//	}
//	sess.Write(body)
//	sess.End()
package speedreader
