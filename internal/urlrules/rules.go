// Package urlrules implements the adblock-style URL pattern matcher that
// decides whether a URL is a positive ("readable") or exception match. It
// understands the small subset of adblock-filter grammar the whitelist
// actually emits: "||host/path/prefix" for a positive rule and
// "@@||host/path/prefix" for an exception, matched against the request's
// registrable domain and path prefix. The matcher is built as a reversed-
// label domain trie, the same shape used by general-purpose adblock
// engines for O(labels) domain lookup.
package urlrules

import (
	"strings"

	"github.com/go-speedreader/speedreader/internal/urlinfo"
	"github.com/go-speedreader/speedreader/internal/xerrors"
)

// Readability is the three-valued outcome of classifying a URL.
type Readability int

const (
	NoMatch Readability = iota
	Readable
	Exception
)

// Rule is a single parsed adblock-style pattern.
type Rule struct {
	Domain     string // registrable domain, normalized
	PathPrefix string // path prefix to match, "" matches any path
	Exception  bool
}

// ParseRule parses a single filter line, e.g. "||x.com/video" or
// "@@||x.com/video".
func ParseRule(line string) (Rule, error) {
	rule := Rule{}
	s := strings.TrimSpace(line)
	if strings.HasPrefix(s, "@@") {
		rule.Exception = true
		s = s[2:]
	}
	if !strings.HasPrefix(s, "||") {
		return Rule{}, xerrors.WrapConfiguration(xerrors.ErrConfiguration, "ParseRule", "pattern must start with || or @@||: "+line)
	}
	s = s[2:]
	if s == "" {
		return Rule{}, xerrors.WrapConfiguration(xerrors.ErrConfiguration, "ParseRule", "empty pattern: "+line)
	}
	host, path, _ := strings.Cut(s, "/")
	if host == "" {
		return Rule{}, xerrors.WrapConfiguration(xerrors.ErrConfiguration, "ParseRule", "empty host in pattern: "+line)
	}
	rule.Domain = urlinfo.NormalizeDomain(host)
	if path != "" {
		rule.PathPrefix = "/" + path
	}
	return rule, nil
}

type trieNode struct {
	children map[string]*trieNode
	rules    []Rule
}

// RuleSet is an immutable, lookup-only collection of URL rules, organized
// as a trie over reversed domain labels so that "x.com" rules are found
// from a request to "sub.x.com" as well as "x.com" itself.
type RuleSet struct {
	root *trieNode
}

// NewRuleSet compiles the given filter lines into a RuleSet. A malformed
// line is a configuration error.
func NewRuleSet(lines []string) (*RuleSet, error) {
	rs := &RuleSet{root: &trieNode{children: map[string]*trieNode{}}}
	for _, line := range lines {
		rule, err := ParseRule(line)
		if err != nil {
			return nil, err
		}
		rs.insert(rule)
	}
	return rs, nil
}

func (rs *RuleSet) insert(rule Rule) {
	labels := strings.Split(rule.Domain, ".")
	node := rs.root
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		if node.children == nil {
			node.children = map[string]*trieNode{}
		}
		child, ok := node.children[label]
		if !ok {
			child = &trieNode{children: map[string]*trieNode{}}
			node.children[label] = child
		}
		node = child
	}
	node.rules = append(node.rules, rule)
}

// Classify returns the readability classification for u: exception rules
// always override positive matches, and calling with identical inputs
// always yields identical outputs.
func (rs *RuleSet) Classify(u urlinfo.URL) Readability {
	domain := u.RegistrableDomain()
	labels := strings.Split(domain, ".")
	path := pathOf(u)

	node := rs.root
	sawReadable := false
	for i := len(labels) - 1; i >= 0; i-- {
		child, ok := node.children[labels[i]]
		if !ok {
			break
		}
		node = child
		for _, rule := range node.rules {
			if !strings.HasPrefix(path, rule.PathPrefix) {
				continue
			}
			if rule.Exception {
				return Exception
			}
			sawReadable = true
		}
	}
	if sawReadable {
		return Readable
	}
	return NoMatch
}

func pathOf(u urlinfo.URL) string {
	s := u.String()
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		return s[idx:]
	}
	return "/"
}
