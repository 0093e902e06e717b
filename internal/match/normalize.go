// internal/match/normalize.go
// Package match implements the duplicate & normalization engine and the
// match & ranking engine: it canonicalizes free text, detects duplicate
// records by delivery reference, and scores queries against catalog titles
// with substring-containment-biased fuzzy matching.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stopwords dropped during normalization: articles, release-quality tags,
// and structural series words. Structural words also swallow a trailing
// number token ("part 2" disappears entirely).
var stopwords = map[string]bool{
	// Articles
	"the": true, "a": true, "an": true,

	// Quality / release tags
	"480p": true, "720p": true, "1080p": true, "2160p": true, "4k": true,
	"uhd": true, "hd": true, "fhd": true, "hdr": true,
	"bluray": true, "brrip": true, "bdrip": true, "webrip": true, "webdl": true,
	"hdrip": true, "dvdrip": true, "camrip": true, "hdcam": true, "hdtc": true,
	"x264": true, "x265": true, "hevc": true,
}

// structural words whose numeric suffix is dropped along with the word itself.
var structural = map[string]bool{
	"part": true, "season": true, "episode": true, "ep": true,
}

// Normalize canonicalizes free text for matching and scoring: NFKD unicode
// fold, lowercase, punctuation and bracket characters stripped, stopwords
// and structural words (with their numeric suffix) removed, bare 4-digit
// year tokens removed, whitespace collapsed. The function is deterministic
// and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens returns the normalized token sequence of text, in original order.
func Tokens(text string) []string {
	// Normalize unicode
	text = norm.NFKD.String(text)

	// Fold case and replace punctuation, brackets, and unicode spaces with
	// regular spaces. Letters and digits survive.
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, text)

	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		if stopwords[w] || isYear(w) {
			continue
		}
		if structural[w] {
			// Swallow the numeric suffix too ("season 3", "part 2")
			if i+1 < len(words) && isNumeric(words[i+1]) {
				i++
			}
			continue
		}
		if base, ok := splitStructuralSuffix(w); ok && structural[base] {
			// Fused forms like "part2" or "ep05"
			continue
		}
		out = append(out, w)
	}
	return out
}

// TokenSet returns the normalized tokens of text as a set.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokens(text) {
		set[tok] = true
	}
	return set
}

// isYear reports whether a token is a bare 4-digit year.
func isYear(w string) bool {
	if len(w) != 4 || !isNumeric(w) {
		return false
	}
	return w[0] == '1' || w[0] == '2'
}

// isNumeric reports whether a token consists solely of ASCII digits.
func isNumeric(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitStructuralSuffix splits a fused word-number token ("part2") into its
// alphabetic base and reports whether a digit suffix was present.
func splitStructuralSuffix(w string) (string, bool) {
	i := len(w)
	for i > 0 && w[i-1] >= '0' && w[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(w) {
		return w, false
	}
	return w[:i], true
}
