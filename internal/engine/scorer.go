package engine

import (
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/go-speedreader/speedreader/internal/urlinfo"
)

// Candidate-quality regexes. The literals are load-bearing, quirks
// included; do not normalize them.
var (
	punctuations = regexp.MustCompile(`([,]\?)`)
	unlikely     = regexp.MustCompile("-ad-|ai2html|banner|breadcrumbs|combx|comment|community|cover-wrap|disqus|extra|foot|gdpr|header|legends|menu|related|remark|replies|rss|shoutbox|sidebar|skyscraper|social|sponsor|supplemental|ad-break|agegate|pagination|pager|popup|yom-remote")
	likely       = regexp.MustCompile("and|article|body|column|main|shadow|a")
	positive     = regexp.MustCompile("article|body|content|entry|hentry|h-entry|main|page|pagination|post|text|blog|story|paragraph|speakable")
	negative     = regexp.MustCompile("hidden|^hid$|hid$|hid|^hid|banner|combx|comment|com-|contact|foot|footer|footnote|gdpr|header|legends|menu|related|remark|replies|rss|shoutbox|sidebar|skyscraper|social|sponsor|supplemental|ad-break|agegate|pagination|pager|popupyom-remote")
)

// blockChildTags disqualify a div/article/center/section from being a
// candidate when any of them appears in its subtree.
var blockChildTags = map[string]bool{
	"a": true, "blockquote": true, "dl": true, "ol": true, "p": true,
	"pre": true, "table": true, "ul": true, "select": true,
}

const decayFactor = 3.0

// candidate pairs a node with its accumulating score. Candidates are
// keyed by the node's path-from-root so identity is stable across the
// scoring and cleaning passes.
type candidate struct {
	node  *html.Node
	score float64
}

const rootPath = "/"

func childPath(id string, i int) string {
	return path.Join(id, strconv.Itoa(i))
}

func parentPath(id string) string {
	if id == rootPath {
		return ""
	}
	return path.Dir(id)
}

// linkDensity is the ratio of anchor-descendant text length to the
// total text length of n, 0 when n has no text.
func linkDensity(n *html.Node) float64 {
	total := float64(textLen(n))
	if total == 0 {
		return 0
	}
	linkLen := 0.0
	for _, link := range findNodes(n, "a") {
		linkLen += float64(textLen(link))
	}
	return linkLen / total
}

// isCandidate reports whether n can seed a content score: text of at
// least 20 characters and either a <p>, or a block container with no
// block children.
func isCandidate(n *html.Node) bool {
	if textLen(n) < 20 {
		return false
	}
	switch tagName(n) {
	case "p":
		return true
	case "div", "article", "center", "section":
		return !hasDescendant(n, blockChildTags)
	default:
		return false
	}
}

// initContentScore seeds a candidate's score from its tag, plus the
// class weight.
func initContentScore(n *html.Node) float64 {
	var score float64
	switch tagName(n) {
	case "article":
		score = 10
	case "div":
		score = 5
	case "h1", "h2", "h3", "h4":
		score = 5
	case "blockquote", "pre", "td":
		score = 3
	case "th":
		score = 5
	case "address", "ol", "ul", "dl", "dd", "dt", "li", "form":
		score = -3
	}
	return score + getClassWeight(n)
}

// calcContentScore scores the text under n: one point flat, one per
// punctuation match, and up to three for length.
func calcContentScore(n *html.Node) float64 {
	score := 1.0
	text := extractText(n, true)
	score += float64(len(punctuations.FindAllString(text, -1)))
	score += math.Min(math.Floor(float64(len([]rune(text)))/100.0), 3.0)
	return score
}

// getClassWeight scores the id and class attributes of n. Each check
// contributes independently.
func getClassWeight(n *html.Node) float64 {
	weight := 0.0
	if n.Type != html.ElementNode {
		return weight
	}
	for _, name := range []string{"id", "class"} {
		val, ok := getAttr(n, name)
		if !ok {
			continue
		}
		if val == "" {
			weight -= 3
		}
		if positive.MatchString(val) {
			weight += 25
		}
		if negative.MatchString(val) {
			weight -= 25
		}
	}
	return weight
}

// preprocess walks the tree depth-first, dropping script/link/style
// subtrees and elements whose id/class/itemProp look unlikely to hold
// content, capturing the document title, and promoting runs of two or
// more <br> followed by text into a synthesized paragraph. Returns
// true when the caller should drop n itself.
func preprocess(n *html.Node, title *string) bool {
	if n.Type == html.ElementNode {
		switch tagName(n) {
		case "script", "link", "style":
			return true
		case "title":
			if *title == "" {
				*title = extractText(n, true)
			}
		}
		for _, name := range []string{"id", "class", "itemprop"} {
			if val, ok := getAttr(n, name); ok {
				if tagName(n) != "body" && unlikely.MatchString(val) && !likely.MatchString(val) {
					return true
				}
			}
		}
	}
	var useless []*html.Node
	var paragraphs []*html.Node
	brCount := 0
	for _, child := range children(n) {
		if preprocess(child, title) {
			useless = append(useless, child)
		}
		switch child.Type {
		case html.ElementNode:
			if tagName(child) == "br" {
				brCount++
			} else {
				brCount = 0
			}
		case html.TextNode:
			if brCount >= 2 && strings.TrimSpace(child.Data) != "" {
				paragraphs = append(paragraphs, child)
				brCount = 0
			}
		}
	}
	for _, node := range useless {
		removeNode(node)
	}
	for _, text := range paragraphs {
		p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
		parent := text.Parent
		parent.InsertBefore(p, text)
		removeNode(text)
		p.AppendChild(text)
	}
	return false
}

// findCandidates scores every candidate node under n and propagates the
// score up the ancestor chain with decay: parent takes the full score,
// grandparent half, and each further ancestor score/(level*3) with
// level starting at 2.
func findCandidates(id string, n *html.Node, candidates map[string]*candidate, nodes map[string]*html.Node) {
	nodes[id] = n

	if isCandidate(n) {
		score := calcContentScore(n)

		if pid := parentPath(id); pid != "" {
			if c := findOrCreateCandidate(pid, candidates, nodes); c != nil {
				c.score += score
			}
			if gpid := parentPath(pid); gpid != "" {
				if c := findOrCreateCandidate(gpid, candidates, nodes); c != nil {
					c.score += score / 2
				}
				level := 2.0
				for aid := parentPath(gpid); aid != "" && aid != rootPath; aid = parentPath(aid) {
					if c := findOrCreateCandidate(aid, candidates, nodes); c != nil {
						c.score += score / (level * decayFactor)
						level++
					}
				}
			}
		}
	}

	for i, child := range children(n) {
		findCandidates(childPath(id, i), child, candidates, nodes)
	}
}

func findOrCreateCandidate(id string, candidates map[string]*candidate, nodes map[string]*html.Node) *candidate {
	node, ok := nodes[id]
	if !ok {
		return nil
	}
	if c, ok := candidates[id]; ok {
		return c
	}
	c := &candidate{node: node, score: initContentScore(node)}
	candidates[id] = c
	return c
}

// fixImgPath absolutizes a relative img src against the article URL.
// Returns false when the image should be dropped: no src at all, or an
// unresolvable one.
func fixImgPath(n *html.Node, u urlinfo.URL) bool {
	src, ok := getAttr(n, "src")
	if !ok {
		return false
	}
	if strings.HasPrefix(src, "//") || strings.HasPrefix(src, "http") {
		return true
	}
	resolved, err := u.ResolveReference(src)
	if err != nil {
		return false
	}
	setAttr(n, "src", resolved)
	return true
}

// clean prunes the winner subtree depth-first: chrome tags go outright,
// suspect containers go through is_useless, images get absolute URLs or
// are dropped, and id/class/style attributes are stripped everywhere.
// Returns true when n itself should be dropped.
func clean(id string, n *html.Node, u urlinfo.URL, candidates map[string]*candidate) bool {
	useless := false
	switch n.Type {
	case html.TextNode:
		useless = strings.TrimSpace(n.Data) == ""
	case html.CommentNode:
		useless = true
	case html.ElementNode:
		switch tagName(n) {
		case "script", "link", "style", "noscript", "meta", "iframe", "object",
			"header", "footer", "aside":
			useless = true
		case "form", "table", "ul", "div":
			useless = isUseless(id, n, candidates)
		case "img":
			useless = !fixImgPath(n, u)
		}
		removeAttrs(n, "id", "class", "style")
	}
	var drop []*html.Node
	for i, child := range children(n) {
		if clean(childPath(id, i), child, u, candidates) {
			drop = append(drop, child)
		}
	}
	for _, node := range drop {
		removeNode(node)
	}
	if isEmptyNode(n) {
		useless = true
	}
	return useless
}

// isUseless decides whether a form/table/ul/div node carries no
// content worth keeping.
func isUseless(id string, n *html.Node, candidates map[string]*candidate) bool {
	weight := getClassWeight(n)
	score := 0.0
	if c, ok := candidates[id]; ok {
		score = c.score
	}
	if weight+score < 0 {
		return true
	}

	tag := tagName(n)
	paraCount := textChildrenCount(n) + len(findNodes(n, "p"))
	imgCount := len(findNodes(n, "img"))
	liCount := len(findNodes(n, "li")) - 100
	inputCount := len(findNodes(n, "input"))
	embedCount := len(findNodes(n, "embed"))
	density := linkDensity(n)
	contentLength := textLen(n)

	if liCount > paraCount && tag != "ul" && tag != "ol" {
		return true
	}
	if float64(inputCount) > math.Floor(float64(paraCount)/3.0) {
		return true
	}
	if contentLength < 10 && (imgCount == 0 || imgCount > 2) {
		return true
	}
	if weight < 10 && density > 0.1 {
		return true
	}
	if (embedCount == 1 && contentLength < 35) || embedCount > 1 {
		return true
	}
	return false
}
