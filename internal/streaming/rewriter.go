package streaming

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/go-speedreader/speedreader/internal/xerrors"
)

// voidElements have no end tag in the input stream.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// rawTextElements hold unescaped character data.
var rawTextElements = map[string]bool{
	"script": true, "style": true,
}

// Element is the mutable view of a matched start tag handed to element
// handlers. The retained mark is the per-match scratch storage that
// survives until the element's end tag.
type Element struct {
	node        *html.Node
	origName    string
	selfClosing bool
	retained    bool
	removed     bool
	unwrapped   bool
	prependHTML string
	appendHTML  string
}

// TagName returns the element's current tag name.
func (el *Element) TagName() string { return el.node.Data }

// SetTagName renames the element; the end tag is renamed to match.
func (el *Element) SetTagName(name string) { el.node.Data = name }

// Attr returns the current value of the named attribute.
func (el *Element) Attr(name string) (string, bool) {
	for _, a := range el.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute.
func (el *Element) SetAttr(name, val string) {
	for i := range el.node.Attr {
		if el.node.Attr[i].Key == name {
			el.node.Attr[i].Val = val
			return
		}
	}
	el.node.Attr = append(el.node.Attr, html.Attribute{Key: name, Val: val})
}

// RemoveAttr drops the named attribute if present.
func (el *Element) RemoveAttr(name string) {
	kept := el.node.Attr[:0]
	for _, a := range el.node.Attr {
		if a.Key != name {
			kept = append(kept, a)
		}
	}
	el.node.Attr = kept
}

// Remove drops the element together with its content.
func (el *Element) Remove() { el.removed = true }

// RemoveAndKeepContent drops the element's tags but keeps its children.
func (el *Element) RemoveAndKeepContent() { el.unwrapped = true }

// MarkRetained flags the element as part of the retained subtree.
func (el *Element) MarkRetained() { el.retained = true }

// Retained reports the retained mark.
func (el *Element) Retained() bool { return el.retained }

// Prepend emits raw HTML right after the element's start tag.
func (el *Element) Prepend(h string) { el.prependHTML = h + el.prependHTML }

// Append emits raw HTML right before the element's end tag.
func (el *Element) Append(h string) { el.appendHTML += h }

// TextChunk is the mutable view of a text token. Matching runs against
// the chunk's parent element.
type TextChunk struct {
	parent   *html.Node
	text     string
	retained bool
	removed  bool
}

// Text returns the chunk's unescaped text.
func (t *TextChunk) Text() string { return t.text }

// Remove drops the chunk from the output.
func (t *TextChunk) Remove() { t.removed = true }

// MarkRetained flags the chunk as part of the retained subtree.
func (t *TextChunk) MarkRetained() { t.retained = true }

// Retained reports the retained mark.
func (t *TextChunk) Retained() bool { return t.retained }

type rewriterState int

const (
	rewriterFresh rewriterState = iota
	rewriterWriting
	rewriterEnded
)

// Rewriter drives the selector-matching token rewriter over chunked
// input. Write and End are synchronous; output bytes reach the sink in
// input order, never reordered. The tokenizer runs on its own
// goroutine fed through a pipe so chunk boundaries cannot split a
// token; Write blocks until the goroutine has consumed the chunk.
type Rewriter struct {
	handlers []Handler
	sink     func([]byte)
	pw       *io.PipeWriter
	done     chan struct{}
	runErr   error
	state    rewriterState
}

// NewRewriter returns a rewriter executing the compiled handler list,
// emitting output through sink.
func NewRewriter(handlers []Handler, sink func([]byte)) *Rewriter {
	pr, pw := io.Pipe()
	r := &Rewriter{
		handlers: handlers,
		sink:     sink,
		pw:       pw,
		done:     make(chan struct{}),
	}
	go r.run(pr)
	return r
}

// Write feeds the next input chunk through the rewriter.
func (r *Rewriter) Write(chunk []byte) error {
	switch r.state {
	case rewriterEnded:
		return xerrors.WrapRewriting(xerrors.ErrSessionEnded, "Write", "")
	case rewriterFresh:
		r.state = rewriterWriting
	}
	if _, err := r.pw.Write(chunk); err != nil {
		r.state = rewriterEnded
		if r.runErr != nil {
			err = r.runErr
		}
		return xerrors.WrapRewriting(err, "Write", "")
	}
	return nil
}

// End finalizes the document. Calling End twice, or Write after End,
// is an error.
func (r *Rewriter) End() error {
	if r.state == rewriterEnded {
		return xerrors.WrapRewriting(xerrors.ErrSessionEnded, "End", "")
	}
	r.state = rewriterEnded
	r.pw.Close()
	<-r.done
	if r.runErr != nil {
		return xerrors.WrapRewriting(r.runErr, "End", "")
	}
	return nil
}

func (r *Rewriter) run(pr *io.PipeReader) {
	defer close(r.done)

	rw := &docRewrite{handlers: r.handlers, sink: r.sink}
	z := html.NewTokenizer(pr)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				r.runErr = err
				pr.CloseWithError(err)
			}
			return
		}
		if err := rw.token(tt, z.Token()); err != nil {
			r.runErr = err
			pr.CloseWithError(err)
			return
		}
	}
}

// openElement is one entry of the rewrite's shadow stack: the parent
// chain the selector matcher walks in place of a built tree.
type openElement struct {
	el          *Element
	suppressing bool
}

// docRewrite holds the per-document rewriting state.
type docRewrite struct {
	handlers []Handler
	sink     func([]byte)
	stack    []*openElement
	suppress int
}

func (d *docRewrite) emit(s string) {
	if s != "" {
		d.sink([]byte(s))
	}
}

func (d *docRewrite) token(tt html.TokenType, tok html.Token) error {
	switch tt {
	case html.StartTagToken:
		return d.startTag(tok, false)
	case html.SelfClosingTagToken:
		return d.startTag(tok, true)
	case html.EndTagToken:
		d.endTag(tok)
	case html.TextToken:
		return d.text(tok)
	case html.CommentToken:
		// comments are stripped by default
	case html.DoctypeToken:
		if d.suppress == 0 {
			d.emit(tok.String())
		}
	}
	return nil
}

// startTag matches the new element against every compiled selector in
// registration order, runs the matching handlers, then emits or
// suppresses per the resulting flags.
func (d *docRewrite) startTag(tok html.Token, selfClosing bool) error {
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tok.Data,
		DataAtom: tok.DataAtom,
		Attr:     tok.Attr,
	}
	if len(d.stack) > 0 {
		node.Parent = d.stack[len(d.stack)-1].el.node
	}
	el := &Element{node: node, origName: tok.Data, selfClosing: selfClosing}

	if d.suppress == 0 {
		for _, h := range d.handlers {
			if h.Element == nil || !h.Selector.Match(node) {
				continue
			}
			if err := h.Element(el); err != nil {
				return err
			}
		}
	}

	hasEndTag := !selfClosing && !voidElements[tok.Data]

	switch {
	case d.suppress > 0:
		if hasEndTag {
			d.stack = append(d.stack, &openElement{el: el})
		}
	case el.removed:
		if hasEndTag {
			d.suppress++
			d.stack = append(d.stack, &openElement{el: el, suppressing: true})
		}
	default:
		if !el.unwrapped {
			d.emit(serializeStartTag(el))
		}
		d.emit(el.prependHTML)
		if hasEndTag {
			d.stack = append(d.stack, &openElement{el: el})
		}
	}
	return nil
}

// endTag pops the shadow stack down to the matching open element,
// implicitly closing anything unterminated above it. A stray end tag
// with no matching open element is dropped.
func (d *docRewrite) endTag(tok html.Token) {
	match := -1
	for i := len(d.stack) - 1; i >= 0; i-- {
		if d.stack[i].el.origName == tok.Data {
			match = i
			break
		}
	}
	if match < 0 {
		return
	}
	for i := len(d.stack) - 1; i >= match; i-- {
		d.closeElement(d.stack[i])
	}
	d.stack = d.stack[:match]
}

func (d *docRewrite) closeElement(open *openElement) {
	if open.suppressing {
		d.suppress--
		return
	}
	if d.suppress > 0 {
		return
	}
	d.emit(open.el.appendHTML)
	if !open.el.unwrapped {
		d.emit("</" + open.el.node.Data + ">")
	}
}

// text runs the text handlers whose selectors match the chunk's parent
// element, then emits the chunk unless a handler removed it. Character
// data inside script and style is passed through unescaped.
func (d *docRewrite) text(tok html.Token) error {
	if d.suppress > 0 {
		return nil
	}
	var parent *html.Node
	raw := false
	if len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		parent = top.el.node
		raw = rawTextElements[top.el.origName]
	}
	chunk := &TextChunk{parent: parent, text: tok.Data}
	if parent != nil {
		for _, h := range d.handlers {
			if h.Text == nil || !h.Selector.Match(parent) {
				continue
			}
			if err := h.Text(chunk); err != nil {
				return err
			}
		}
	}
	if chunk.removed {
		return nil
	}
	if raw {
		d.emit(chunk.text)
	} else {
		d.emit(html.EscapeString(chunk.text))
	}
	return nil
}

func serializeStartTag(el *Element) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(el.node.Data)
	for _, a := range el.node.Attr {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	if el.selfClosing {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}
