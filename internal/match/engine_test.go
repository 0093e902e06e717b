// internal/match/engine_test.go
// Package match provides unit tests for query scoring and duplicate
// detection.
package match

import (
	"testing"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// testCatalog returns a small catalog used across engine tests.
func testCatalog() model.Catalog {
	return model.Catalog{
		{Title: "Inception (2010) 1080p BluRay", MsgID: 101},
		{Title: "Interstellar 2014 720p", MsgID: 102},
		{Title: "The Dark Knight [2008]", FileURL: "https://example.com/tdk"},
		{Title: "Inception Documentary: Dream Within a Dream", MsgID: 104},
	}
}

// TestFindBestHit verifies that a noisy query still resolves to the right
// record once both sides are normalized, and that the score clears the
// acceptance threshold.
func TestFindBestHit(t *testing.T) {
	engine := NewEngine(0, 0)

	rec, score, found := engine.FindBest("inception 2010", testCatalog())
	if !found {
		t.Fatal("expected a match for inception query, got none")
	}
	if rec.MsgID != 101 {
		t.Errorf("matched wrong record: got msg_id %d, want 101", rec.MsgID)
	}
	if score <= DefaultThreshold {
		t.Errorf("score %d does not clear threshold %d", score, DefaultThreshold)
	}
}

// TestFindBestMiss verifies that a query for an absent title reports no
// match rather than an error or a low-confidence result.
func TestFindBestMiss(t *testing.T) {
	engine := NewEngine(0, 0)

	_, _, found := engine.FindBest("zzqx vbnmt qwerty", testCatalog())
	if found {
		t.Error("expected no match for gibberish query")
	}
}

// TestFindBestEmptyQuery verifies that a blank query never matches.
func TestFindBestEmptyQuery(t *testing.T) {
	engine := NewEngine(0, 0)

	_, _, found := engine.FindBest("   ", testCatalog())
	if found {
		t.Error("expected no match for blank query")
	}
}

// TestFindBestFirstWinsOnTie verifies that when two records score equally,
// the one earlier in the catalog is returned.
func TestFindBestFirstWinsOnTie(t *testing.T) {
	engine := NewEngine(0, 0)
	catalog := model.Catalog{
		{Title: "Tenet", MsgID: 1},
		{Title: "Tenet", MsgID: 2},
	}

	rec, _, found := engine.FindBest("tenet", catalog)
	if !found {
		t.Fatal("expected a match")
	}
	if rec.MsgID != 1 {
		t.Errorf("tie broken wrong: got msg_id %d, want 1", rec.MsgID)
	}
}

// TestFindBestEmptyCatalog verifies the engine handles an empty corpus.
func TestFindBestEmptyCatalog(t *testing.T) {
	engine := NewEngine(0, 0)

	_, _, found := engine.FindBest("inception", model.Catalog{})
	if found {
		t.Error("expected no match against an empty catalog")
	}
}

// TestAllAboveOverlap verifies the multi-result mode: records sharing at
// least minOverlap normalized tokens with the query are returned in catalog
// order, and short queries yield nothing.
func TestAllAboveOverlap(t *testing.T) {
	engine := NewEngine(0, 0)
	catalog := model.Catalog{
		{Title: "The Quick Brown Fox Jumps Over Dogs", MsgID: 1},
		{Title: "Completely Unrelated Title Here", MsgID: 2},
		{Title: "Quick Brown Fox Jumps Over Lazy Dogs Again", MsgID: 3},
	}

	var got []int64
	for rec := range engine.AllAbove("quick brown fox jumps over dogs", catalog, 5) {
		got = append(got, rec.MsgID)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("AllAbove returned msg_ids %v, want [1 3]", got)
	}

	// A query with fewer tokens than the floor yields nothing.
	for rec := range engine.AllAbove("quick fox", catalog, 5) {
		t.Errorf("AllAbove yielded %q for a short query", rec.Title)
	}
}

// TestAllAboveRestartable verifies the returned sequence can be ranged over
// more than once with identical results.
func TestAllAboveRestartable(t *testing.T) {
	engine := NewEngine(0, 0)
	catalog := model.Catalog{
		{Title: "Alpha Beta Gamma Delta Epsilon Movie", MsgID: 1},
	}

	seq := engine.AllAbove("alpha beta gamma delta epsilon", catalog, 5)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 1 || second != 1 {
		t.Errorf("sequence not restartable: first pass %d, second pass %d", first, second)
	}
}

// TestIsDuplicateByReference verifies duplicate detection compares delivery
// references only. Matching titles with distinct references are not
// duplicates; distinct titles with a shared reference are.
func TestIsDuplicateByReference(t *testing.T) {
	existing := model.Catalog{
		{Title: "Inception", MsgID: 101},
		{Title: "The Dark Knight", FileURL: "https://example.com/tdk"},
	}

	// Shared msg_id, different title: duplicate.
	if !IsDuplicate(model.MediaRecord{Title: "Totally Different", MsgID: 101}, existing) {
		t.Error("expected duplicate by msg_id")
	}

	// Shared file_url, different title: duplicate.
	if !IsDuplicate(model.MediaRecord{Title: "Another Name", FileURL: "https://example.com/tdk"}, existing) {
		t.Error("expected duplicate by file_url")
	}

	// Same title, fresh reference: not a duplicate.
	if IsDuplicate(model.MediaRecord{Title: "Inception", MsgID: 999}, existing) {
		t.Error("title similarity must not trigger duplicate detection")
	}
}
