package textdiff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// alignment tags produced by difflib's sequence matcher.
const (
	opEqual   = 'e'
	opReplace = 'r'
	opDelete  = 'd'
	opInsert  = 'i'
)

// align runs the token-level edit script between two texts. Autojunk stays
// off: separator tokens repeat heavily and junking them would break the
// alignment of otherwise identical texts.
func align(a, b []token) []difflib.OpCode {
	m := difflib.NewMatcherWithJunk(tokenStrings(a), tokenStrings(b), false, nil)
	return m.GetOpCodes()
}

// Extract diffs original against corrected and returns one issue per
// contiguous run of changed tokens, positioned by byte offsets into
// original. Adjacent replace/insert/delete operations with no equal tokens
// between them collapse into a single issue, so a two-word replacement is
// reported once. Identical inputs yield no issues.
func Extract(original, corrected string) []Issue {
	if original == corrected {
		return nil
	}

	aTokens := tokenize(original)
	bTokens := tokenize(corrected)
	opcodes := align(aTokens, bTokens)

	var issues []Issue
	i := 0
	for i < len(opcodes) {
		if opcodes[i].Tag == opEqual {
			i++
			continue
		}
		// Merge the contiguous run of non-equal opcodes starting here.
		j := i
		for j+1 < len(opcodes) && opcodes[j+1].Tag != opEqual {
			j++
		}
		start := offsetAt(aTokens, opcodes[i].I1, len(original))
		end := offsetAt(aTokens, opcodes[j].I2, len(original))
		sugStart := offsetAt(bTokens, opcodes[i].J1, len(corrected))
		sugEnd := offsetAt(bTokens, opcodes[j].J2, len(corrected))
		issues = append(issues, Issue{
			Original:       original[start:end],
			Suggestion:     corrected[sugStart:sugEnd],
			Start:          start,
			End:            end,
			SentenceAnchor: start,
		})
		i = j + 1
	}
	return issues
}
