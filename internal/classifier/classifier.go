// Package classifier decides whether a document is a readable article.
// The decision is a pure function of the fixed feature vector: a small
// ensemble of three hand-written threshold trees, voting by majority.
// The thresholds are fixed in this file; they are not weights from a
// trained model. Output 1 means "readable, proceed to extraction"; 0 means
// "not readable, yield nothing".
package classifier

import (
	"github.com/go-speedreader/speedreader/internal/features"
)

// NClasses is the number of output classes.
const NClasses = 2

// Classify runs the ensemble over v and returns 0 or 1.
func Classify(v features.Vector) int {
	votes := tree0(v) + tree1(v) + tree2(v)
	if votes >= 2 {
		return 1
	}
	return 0
}

// tree0 splits on raw prose volume: enough words in paragraph tags is
// the single strongest readability signal.
func tree0(v features.Vector) int {
	words := v[features.IdxWords]
	if words <= 320 {
		if v[features.IdxTextBlocks] >= 1 {
			return 1
		}
		return 0
	}
	if v[features.IdxScript] > 95 {
		return 0
	}
	return 1
}

// tree1 splits on document structure: paragraph density against the
// amount of chrome markup (links, divs, selects).
func tree1(v features.Vector) int {
	p := v[features.IdxP]
	if p < 1 {
		return 0
	}
	a := v[features.IdxA]
	if a > 0 && a/(p+1) > 12 {
		return 0
	}
	if v[features.IdxSelect] > 4 {
		return 0
	}
	if v[features.IdxWords] > 180 || v[features.IdxArticle] >= 1 {
		return 1
	}
	if v[features.IdxPre] >= 1 || v[features.IdxBlockquote] >= 2 {
		return 1
	}
	return 0
}

// tree2 splits on publisher metadata: article markup, AMP and social
// annotations, and shallow URLs typical of landing pages.
func tree2(v features.Vector) int {
	if v[features.IdxSchemaOrg] >= 1 || v[features.IdxAmphtml] >= 1 {
		return 1
	}
	if v[features.IdxOgArticle] >= 1 && v[features.IdxWords] > 120 {
		return 1
	}
	if v[features.IdxURLDepth] >= 2 && v[features.IdxWords] > 250 {
		return 1
	}
	if v[features.IdxTextBlocks] >= 1 {
		return 1
	}
	return 0
}
