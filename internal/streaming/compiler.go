// Package streaming implements the rule-based rewriter engine: a
// selector-matching token rewriter driven over chunked input by a
// compiled, ordered handler list. Registration order is emission
// precedence; handlers run in that order for every matched node.
package streaming

import (
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/go-speedreader/speedreader/internal/registry"
	"github.com/go-speedreader/speedreader/internal/xerrors"
)

// ElementHandler mutates a matched element.
type ElementHandler func(el *Element) error

// TextHandler mutates a matched text chunk.
type TextHandler func(t *TextChunk) error

// Handler binds a compiled selector to exactly one of an element or a
// text handler.
type Handler struct {
	Selector cascadia.Selector
	Element  ElementHandler
	Text     TextHandler
}

// twitterEmbedScript restores stripped twitter widgets inside a
// .twitterContainer block.
const twitterEmbedScript = `
            <script type="text/javascript" src="//platform.twitter.com/widgets.js" async="">
            </script>`

// lazyAttributes are promoted into src/srcset when delazify is on.
var lazyAttributes = []struct {
	selector string
	from     string
	to       string
}{
	{"[data-src]", "data-src", "src"},
	{"[data-srcset]", "data-srcset", "srcset"},
	{"[data-original]", "data-original", "src"},
	{"img[data-src-medium]", "data-src-medium", "src"},
	{"img[data-raw-src]", "data-raw-src", "src"},
	{"img[data-gl-src]", "data-gl-src", "src"},
}

type compiler struct {
	handlers []Handler
	err      error
}

func (c *compiler) compile(selector string) (cascadia.Selector, bool) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		if c.err == nil {
			c.err = xerrors.WrapConfiguration(err, "Compile", "selector "+selector)
		}
		return nil, false
	}
	return sel, true
}

func (c *compiler) element(selector string, handler ElementHandler) {
	if sel, ok := c.compile(selector); ok {
		c.handlers = append(c.handlers, Handler{Selector: sel, Element: handler})
	}
}

func (c *compiler) text(selector string, handler TextHandler) {
	if sel, ok := c.compile(selector); ok {
		c.handlers = append(c.handlers, Handler{Selector: sel, Text: handler})
	}
}

// Compile turns the site rules into the ordered handler list the
// rewriter executes. A selector that fails to parse is a configuration
// error, surfaced here rather than per-document.
func Compile(rules registry.SiteRules, origin string) ([]Handler, error) {
	var c compiler

	for _, rewrite := range rules.Preprocess {
		rewrite := rewrite
		c.element(rewrite.Selector, func(el *Element) error {
			if val, ok := el.Attr(rewrite.Attribute); ok {
				el.SetAttr(rewrite.ToAttribute, val)
			}
			el.SetTagName(rewrite.ElementName)
			return nil
		})
	}

	for _, selector := range rules.MainContent {
		c.element(selector, markRetainedElement)
		c.text(selector, markRetainedText)
		c.element(selector+" *", markRetainedElement)
		c.text(selector+" *", markRetainedText)
	}

	for _, selector := range rules.MainContentCleanup {
		c.element(selector, func(el *Element) error {
			el.Remove()
			return nil
		})
	}

	// Drop everything else.
	c.text("*", removeUnmarkedText)
	c.element("*", unwrapUnmarkedElement)
	c.element("[style]", func(el *Element) error {
		el.RemoveAttr("style")
		return nil
	})

	if rules.Delazify {
		for _, lazy := range lazyAttributes {
			lazy := lazy
			c.element(lazy.selector, func(el *Element) error {
				if val, ok := el.Attr(lazy.from); ok {
					el.SetAttr(lazy.to, val)
				}
				return nil
			})
		}
		c.element("img", func(el *Element) error {
			el.RemoveAttr("height")
			el.RemoveAttr("width")
			return nil
		})
	}

	if rules.FixEmbeds {
		c.element(".twitterContainer", func(el *Element) error {
			el.Prepend(twitterEmbedScript)
			return nil
		})
	}

	c.element("a[href]", fixRelative("href", origin))
	c.element("img[src]", fixRelative("src", origin))

	if rules.ContentScript != "" {
		script := rules.ContentScript
		c.element("body", func(el *Element) error {
			el.Append(script)
			return nil
		})
	}

	return c.handlers, c.err
}

func fixRelative(attr, origin string) ElementHandler {
	return func(el *Element) error {
		val, ok := el.Attr(attr)
		if !ok {
			return nil
		}
		if !strings.HasPrefix(val, "http") {
			el.SetAttr(attr, origin+val)
		}
		return nil
	}
}

func markRetainedElement(el *Element) error {
	el.MarkRetained()
	return nil
}

func markRetainedText(t *TextChunk) error {
	t.MarkRetained()
	return nil
}

func removeUnmarkedText(t *TextChunk) error {
	if !t.Retained() {
		t.Remove()
	}
	return nil
}

func unwrapUnmarkedElement(el *Element) error {
	if !el.Retained() {
		el.RemoveAndKeepContent()
	}
	return nil
}
