// Package textdiff turns a pair of text versions into positioned correction
// issues and keeps previously reported issues positionally valid as the
// underlying text changes. Offsets are byte offsets into the UTF-8 text and
// always refer to one specific text version; an issue detached from the text
// it was computed against is meaningless.
package textdiff

import "fmt"

// Issue is a single proposed correction against one text version.
type Issue struct {
	// Original is the substring of the analyzed text being replaced.
	// Empty for a pure insertion.
	Original string `json:"original"`
	// Suggestion is the replacement text. Empty for a pure deletion.
	Suggestion string `json:"suggestion"`
	// Start and End delimit the half-open byte range [Start, End) in the
	// text version the issue currently applies to. Start == End denotes an
	// insertion point.
	Start int `json:"start"`
	End   int `json:"end"`
	// SentenceAnchor locates the owning sentence after the issue has been
	// resolved and the surrounding offsets may have moved.
	SentenceAnchor int `json:"sentenceAnchor"`
}

// IsInsertion reports whether the issue inserts text at a point rather than
// replacing an existing span.
func (is Issue) IsInsertion() bool {
	return is.Start == is.End
}

// IsDeletion reports whether the issue removes text without replacement.
func (is Issue) IsDeletion() bool {
	return is.Suggestion == "" && is.Start < is.End
}

// Validate checks the issue's range against the text it claims to apply to.
func (is Issue) Validate(text string) error {
	if is.Start < 0 || is.Start > is.End || is.End > len(text) {
		return fmt.Errorf("issue range [%d,%d) out of bounds for text of length %d", is.Start, is.End, len(text))
	}
	if text[is.Start:is.End] != is.Original {
		return fmt.Errorf("issue original %q does not match text span %q", is.Original, text[is.Start:is.End])
	}
	return nil
}

// Apply returns text with every issue's suggestion substituted over its
// span, left to right, adjusting later offsets for earlier length changes.
// Issues must be expressed against text and must not overlap.
func Apply(text string, issues []Issue) (string, error) {
	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	out := make([]byte, 0, len(text))
	pos := 0
	for _, is := range sorted {
		if err := is.Validate(text); err != nil {
			return "", err
		}
		if is.Start < pos {
			return "", fmt.Errorf("overlapping issues at offset %d", is.Start)
		}
		out = append(out, text[pos:is.Start]...)
		out = append(out, is.Suggestion...)
		pos = is.End
	}
	out = append(out, text[pos:]...)
	return string(out), nil
}
