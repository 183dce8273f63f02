package speedreader

import (
	"log/slog"

	"github.com/go-speedreader/speedreader/internal/engine"
	"github.com/go-speedreader/speedreader/internal/registry"
	"github.com/go-speedreader/speedreader/internal/streaming"
	"github.com/go-speedreader/speedreader/internal/urlinfo"
	"github.com/go-speedreader/speedreader/internal/urlrules"
	"github.com/go-speedreader/speedreader/internal/xerrors"
)

// Readability is the three-valued answer to "is this URL known to be
// readable?".
type Readability int

const (
	// ReadabilityUnknown means no URL rule matched; the heuristic
	// engine decides per document.
	ReadabilityUnknown Readability = iota
	// NotReadable means an exception rule matched.
	NotReadable
	// Readable means a positive rule matched.
	Readable
)

func (r Readability) String() string {
	switch r {
	case Readable:
		return "readable"
	case NotReadable:
		return "not-readable"
	default:
		return "unknown"
	}
}

// Engine identifies which reduction engine handles a document.
type Engine int

const (
	// EngineUnknown is returned for URLs that cannot be parsed.
	EngineUnknown Engine = iota
	// EngineStreaming is the rule-based rewriter for known domains.
	EngineStreaming
	// EngineHeuristics is the DOM-based extractor for unknown domains.
	EngineHeuristics
)

func (e Engine) String() string {
	switch e {
	case EngineStreaming:
		return "streaming"
	case EngineHeuristics:
		return "heuristics"
	default:
		return "unknown"
	}
}

// SpeedReader dispatches documents to the right engine per URL. It is
// immutable after construction: distinct sessions may run in parallel,
// sharing only the registry and URL classifier.
type SpeedReader struct {
	registry *registry.Registry
	rules    *urlrules.RuleSet
}

// New returns a SpeedReader loaded with the built-in site profiles.
func New() (*SpeedReader, error) {
	reg := registry.New()
	if err := reg.LoadPredefined(); err != nil {
		return nil, err
	}
	return NewFromRegistry(reg)
}

// NewFromRegistry builds a SpeedReader around reg, freezing it and
// compiling its URL rules and selectors. A selector that does not
// parse is a configuration error surfaced here, not per-document.
func NewFromRegistry(reg *registry.Registry) (*SpeedReader, error) {
	reg.Freeze()

	var lines []string
	for _, site := range reg.All() {
		lines = append(lines, site.URLRules...)
		// compile-check every selector now so sessions cannot fail on
		// configuration later
		if _, err := streaming.Compile(site, "https://"+site.Domain); err != nil {
			return nil, err
		}
	}
	rules, err := urlrules.NewRuleSet(lines)
	if err != nil {
		return nil, err
	}

	slog.Debug("speedreader configured", "domains", reg.Len(), "url_rules", len(lines))
	return &SpeedReader{registry: reg, rules: rules}, nil
}

// URLReadable classifies rawurl against the URL rule set. Exception
// rules override positive ones; no match means the heuristic engine
// decides. The answer is total and idempotent.
func (sr *SpeedReader) URLReadable(rawurl string) Readability {
	u, err := urlinfo.Parse(rawurl)
	if err != nil {
		return ReadabilityUnknown
	}
	switch sr.rules.Classify(u) {
	case urlrules.Exception:
		return NotReadable
	case urlrules.Readable:
		return Readable
	default:
		return ReadabilityUnknown
	}
}

// SelectEngine picks the engine for rawurl: streaming when the domain
// has registered site rules that compile to a non-empty handler list,
// heuristics otherwise.
func (sr *SpeedReader) SelectEngine(rawurl string) Engine {
	u, err := urlinfo.Parse(rawurl)
	if err != nil {
		return EngineUnknown
	}
	if rules, ok := sr.registry.Lookup(u.RegistrableDomain()); ok {
		if handlers, err := streaming.Compile(rules, u.Origin()); err == nil && len(handlers) > 0 {
			return EngineStreaming
		}
	}
	return EngineHeuristics
}

// Session is a writer-like view over one document's reduction. It is
// not safe for concurrent use.
type Session struct {
	engine Engine
	stream *streaming.Rewriter
	heur   *engine.Heuristics
}

// NewSession starts reducing the document served from rawurl, emitting
// output chunks through sink. With a nil hint the engine is selected
// per SelectEngine; a non-nil hint forces the given engine.
// Construction fails on URL parse or selector compile errors, and when
// a streaming hint names a domain with no registered site rules.
func (sr *SpeedReader) NewSession(rawurl string, sink func([]byte), hint *Engine) (*Session, error) {
	u, err := urlinfo.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	selected := sr.SelectEngine(rawurl)
	if hint != nil {
		selected = *hint
	}

	if selected == EngineStreaming {
		rules, ok := sr.registry.Lookup(u.RegistrableDomain())
		if !ok {
			return nil, xerrors.WrapConfiguration(xerrors.ErrConfiguration, "NewSession",
				"streaming engine forced for unregistered domain "+u.RegistrableDomain())
		}
		handlers, err := streaming.Compile(rules, u.Origin())
		if err != nil {
			return nil, err
		}
		return &Session{engine: EngineStreaming, stream: streaming.NewRewriter(handlers, sink)}, nil
	}

	return &Session{engine: EngineHeuristics, heur: engine.NewHeuristics(u, sink)}, nil
}

// Engine reports which engine the session runs.
func (s *Session) Engine() Engine { return s.engine }

// Write feeds the next chunk of the document.
func (s *Session) Write(chunk []byte) error {
	if s.engine == EngineStreaming {
		return s.stream.Write(chunk)
	}
	return s.heur.Write(chunk)
}

// End finalizes the document. After End the session is spent; further
// Write or End calls fail.
func (s *Session) End() error {
	if s.engine == EngineStreaming {
		return s.stream.End()
	}
	return s.heur.End()
}

// Product is the result of a one-shot heuristic extraction.
type Product struct {
	Title     string
	Byline    string
	Published string
	Content   string
	Text      string
}

// Extract runs the heuristic engine over a whole document in one call,
// regardless of registered site rules, and returns the article product
// rather than streaming bytes. An unreadable document yields an empty
// Product with no error.
func (sr *SpeedReader) Extract(rawurl string, body []byte) (Product, error) {
	u, err := urlinfo.Parse(rawurl)
	if err != nil {
		return Product{}, err
	}
	var out []byte
	h := engine.NewHeuristics(u, func(chunk []byte) { out = append(out, chunk...) })
	if err := h.Write(body); err != nil {
		return Product{}, err
	}
	if err := h.End(); err != nil {
		return Product{}, err
	}
	if len(out) == 0 {
		return Product{}, nil
	}
	p := h.Product()
	return Product{
		Title:     p.Title,
		Byline:    p.Byline,
		Published: p.Published,
		Content:   p.Content,
		Text:      p.Text,
	}, nil
}
