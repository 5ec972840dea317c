// Package sentence splits a text into ordered, non-overlapping sentence
// ranges that cover the whole text exactly. Boundary detection is a
// deterministic heuristic, not an NLP parser; the strategy is pluggable so
// it can be replaced without touching anything that consumes ranges.
package sentence

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Range is the half-open byte range [Start, End) of one sentence.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the byte length of the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether offset falls inside [Start, End).
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Boundary decides whether the terminator rune starting at byte offset i
// ends a sentence. Implementations must be deterministic and side-effect
// free; false positives and negatives are tolerated, nondeterminism is not.
type Boundary interface {
	IsBoundary(text string, i int) bool
}

// BoundaryFunc adapts a plain function to the Boundary interface.
type BoundaryFunc func(text string, i int) bool

// IsBoundary calls f.
func (f BoundaryFunc) IsBoundary(text string, i int) bool { return f(text, i) }

// Segmenter produces sentence ranges using a boundary strategy.
type Segmenter struct {
	boundary Boundary
}

// New returns a segmenter with the default heuristic boundary.
func New() *Segmenter {
	return &Segmenter{boundary: BoundaryFunc(defaultBoundary)}
}

// NewWithBoundary returns a segmenter using a custom boundary strategy.
func NewWithBoundary(b Boundary) *Segmenter {
	if b == nil {
		return New()
	}
	return &Segmenter{boundary: b}
}

// Segment returns a lazy, restartable sequence of sentence ranges. Ranges
// come out left to right, never overlap, never have zero length, and their
// union is exactly [0, len(text)).
func (s *Segmenter) Segment(text string) iter.Seq[Range] {
	return func(yield func(Range) bool) {
		start := 0
		i := 0
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if isTerminator(r) && s.boundary.IsBoundary(text, i) {
				end := i + size
				// Fold trailing terminators and closers ("?!", `."`, `.)`)
				// into the same sentence.
				for end < len(text) {
					nr, nsize := utf8.DecodeRuneInString(text[end:])
					if !isTerminator(nr) && !isCloser(nr) {
						break
					}
					end += nsize
				}
				if end > start {
					if !yield(Range{Start: start, End: end}) {
						return
					}
				}
				start = end
				i = end
				continue
			}
			i += size
		}
		if start < len(text) {
			yield(Range{Start: start, End: len(text)})
		}
	}
}

// Ranges materializes Segment into a slice.
func (s *Segmenter) Ranges(text string) []Range {
	var out []Range
	for r := range s.Segment(text) {
		out = append(out, r)
	}
	return out
}

// FindSentenceAt returns the range containing offset. An offset exactly at
// a boundary belongs to the following sentence, which half-open ranges give
// for free. Returns false when ranges is empty or offset is outside the
// covered text.
func FindSentenceAt(ranges []Range, offset int) (Range, bool) {
	lo, hi := 0, len(ranges)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case offset < ranges[mid].Start:
			hi = mid
		case offset >= ranges[mid].End:
			lo = mid + 1
		default:
			return ranges[mid], true
		}
	}
	return Range{}, false
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isCloser matches punctuation that may trail a terminator while still
// belonging to the sentence.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// abbreviations that commonly precede a period without ending a sentence.
// Lowercased, without the trailing period.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "approx": {}, "dept": {}, "est": {},
	"fig": {}, "no": {}, "al": {}, "inc": {}, "ltd": {}, "co": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {},
	"aug": {}, "sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
}

// defaultBoundary implements the stock heuristic: a terminator ends a
// sentence when followed by whitespace or end of text, unless it is the
// period of an abbreviation, an initial, or a decimal number.
func defaultBoundary(text string, i int) bool {
	r, size := utf8.DecodeRuneInString(text[i:])

	// Must be followed by whitespace, a closer that is itself followed by
	// whitespace/EOT, or end of text.
	j := i + size
	for j < len(text) {
		nr, nsize := utf8.DecodeRuneInString(text[j:])
		if isTerminator(nr) || isCloser(nr) {
			j += nsize
			continue
		}
		if !unicode.IsSpace(nr) {
			return false
		}
		break
	}

	if r != '.' {
		return true
	}

	// Decimal numbers ("3.14") never reach here because the '.' is not
	// followed by whitespace; "No. 5" style is handled as an abbreviation.
	word := wordBefore(text, i)
	if word == "" {
		return true
	}
	lower := strings.ToLower(word)
	if _, ok := abbreviations[lower]; ok {
		return false
	}
	// Single capital letter reads as an initial ("J. Smith").
	if utf8.RuneCountInString(word) == 1 {
		first, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

// wordBefore returns the run of letters/digits immediately preceding byte
// offset i, or "" when i is not preceded by one.
func wordBefore(text string, i int) string {
	end := i
	start := i
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		start -= size
	}
	return text[start:end]
}
