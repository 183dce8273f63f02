// Package registry holds the per-domain SiteRules used to drive the
// streaming rewriter, plus the built-in table of predefined site profiles.
// It is read-mostly: mutation is only valid before Freeze, after which
// concurrent lookups require no locking.
package registry

import (
	_ "embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/go-speedreader/speedreader/internal/urlinfo"
	"github.com/go-speedreader/speedreader/internal/xerrors"
)

//go:embed predefined.yaml
var predefinedYAML []byte

// AttributeRewrite copies attribute into to_attribute on elements matching
// selector, then renames the element to element_name.
type AttributeRewrite struct {
	Selector     string `yaml:"selector"`
	Attribute    string `yaml:"attribute"`
	ToAttribute  string `yaml:"to_attribute"`
	ElementName  string `yaml:"element_name"`
}

// SiteRules is the immutable per-domain rewrite configuration.
type SiteRules struct {
	Domain             string              `yaml:"domain"`
	MainContent        []string            `yaml:"main_content"`
	MainContentCleanup []string            `yaml:"main_content_cleanup"`
	Delazify           bool                `yaml:"delazify"`
	FixEmbeds          bool                `yaml:"fix_embeds"`
	ContentScript      string              `yaml:"content_script"`
	Preprocess         []AttributeRewrite  `yaml:"preprocess"`
	URLRules           []string            `yaml:"url_rules"`
}

type predefinedFile struct {
	Sites []SiteRules `yaml:"sites"`
}

// Registry maps a normalized domain to its SiteRules.
type Registry struct {
	mu     sync.RWMutex
	byHost map[string]SiteRules
	frozen bool
}

// New returns an empty, mutable registry.
func New() *Registry {
	return &Registry{byHost: make(map[string]SiteRules)}
}

// Add inserts or replaces the rules keyed by rules.Domain. It is only valid
// before Freeze.
func (r *Registry) Add(rules SiteRules) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return xerrors.WrapConfiguration(xerrors.ErrConfiguration, "Add", "registry already frozen")
	}
	if rules.Domain == "" {
		return xerrors.WrapConfiguration(xerrors.ErrConfiguration, "Add", "rules missing domain")
	}
	r.byHost[urlinfo.NormalizeDomain(rules.Domain)] = rules
	return nil
}

// LoadPredefined installs the built-in site profiles. It is only valid
// before Freeze.
func (r *Registry) LoadPredefined() error {
	var file predefinedFile
	if err := yaml.Unmarshal(predefinedYAML, &file); err != nil {
		return xerrors.WrapConfiguration(err, "LoadPredefined", "malformed predefined site table")
	}
	for _, site := range file.Sites {
		site.ContentScript = strings.TrimRight(site.ContentScript, "\n")
		if err := r.Add(site); err != nil {
			return err
		}
	}
	return nil
}

// Freeze stops further mutation. After Freeze, Lookup requires no locking
// discipline beyond the RWMutex's fast read path.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup returns the SiteRules for domain, if any, after normalizing it.
// Lookup is an exact match on the normalized domain; there is no wildcard
// matching.
func (r *Registry) Lookup(domain string) (SiteRules, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules, ok := r.byHost[urlinfo.NormalizeDomain(domain)]
	return rules, ok
}

// All returns every registered SiteRules, in unspecified order.
func (r *Registry) All() []SiteRules {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SiteRules, 0, len(r.byHost))
	for _, rules := range r.byHost {
		out = append(out, rules)
	}
	return out
}

// Len reports how many domains are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHost)
}
