// internal/match/engine.go
package match

import (
	"iter"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// Default tuning values. Both are configuration, not constants baked into
// call sites; the engine applies them only when a caller passes zero.
const (
	DefaultThreshold  = 70 // Minimum score a best match must strictly exceed
	DefaultMinOverlap = 5  // Minimum shared tokens for the multi-result mode
)

// Engine scores free-text queries against catalog titles. Scoring is a
// partial-ratio style fuzzy score in [0,100], biased toward substring
// containment: a short query fully contained in a long title scores near
// 100. The reverse comparison is not required to produce the same score.
type Engine struct {
	threshold  int // Acceptance threshold for FindBest
	minOverlap int // Token-overlap floor for AllAbove
}

// NewEngine creates a match engine with the given acceptance threshold and
// token-overlap floor. Zero or negative values select the defaults.
func NewEngine(threshold, minOverlap int) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if minOverlap <= 0 {
		minOverlap = DefaultMinOverlap
	}
	return &Engine{threshold: threshold, minOverlap: minOverlap}
}

// Threshold returns the configured acceptance threshold.
func (e *Engine) Threshold() int { return e.threshold }

// FindBest computes, for each record, the fuzzy similarity between the
// normalized query and the normalized title, and returns the single
// highest-scoring record whose score strictly exceeds the threshold.
// Ties are broken by catalog order: the first occurrence wins. The boolean
// is false when nothing clears the threshold; no match is never an error.
func (e *Engine) FindBest(query string, catalog model.Catalog) (model.MediaRecord, int, bool) {
	nq := Normalize(query)
	if nq == "" {
		return model.MediaRecord{}, 0, false
	}

	var best model.MediaRecord
	bestScore := 0
	found := false
	for _, rec := range catalog {
		nt := Normalize(rec.Title)
		if nt == "" {
			continue
		}
		score := fuzzy.PartialRatio(nq, nt)
		// Strict > keeps the first occurrence on equal scores
		if score > bestScore && score > e.threshold {
			bestScore = score
			best = rec
			found = true
		}
	}
	return best, bestScore, found
}

// AllAbove returns every record whose normalized-title token set shares at
// least minOverlap words with the query's token set, in original catalog
// order. A zero or negative minOverlap selects the configured default. The
// result is a lazy, finite, restartable sequence; callers may range over it
// any number of times.
func (e *Engine) AllAbove(query string, catalog model.Catalog, minOverlap int) iter.Seq[model.MediaRecord] {
	if minOverlap <= 0 {
		minOverlap = e.minOverlap
	}
	queryTokens := TokenSet(query)
	return func(yield func(model.MediaRecord) bool) {
		if len(queryTokens) < minOverlap {
			return
		}
		for _, rec := range catalog {
			overlap := 0
			for tok := range TokenSet(rec.Title) {
				if queryTokens[tok] {
					overlap++
				}
			}
			if overlap >= minOverlap {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// IsDuplicate reports whether the candidate collides with an existing record
// by delivery reference: a non-empty msg_id equal to any existing msg_id, or
// a non-empty file_url equal to any existing file_url. Title similarity is
// deliberately not part of duplicate detection; sequels and reposts may
// share titles legitimately. Candidates must be validated before this check.
func IsDuplicate(candidate model.MediaRecord, existing model.Catalog) bool {
	for _, rec := range existing {
		if candidate.MsgID > 0 && rec.MsgID == candidate.MsgID {
			return true
		}
		if candidate.FileURL != "" && rec.FileURL == candidate.FileURL {
			return true
		}
	}
	return false
}
