package textdiff

// stableSpan is a run of tokens the edit left untouched, expressed as byte
// ranges in both text versions.
type stableSpan struct {
	prevStart, prevEnd int
	shift              int  // currStart - prevStart
	openLeft           bool // span begins at the start of the text, no edit before it
	openRight          bool // span reaches the end of the text, no edit after it
}

// stableSpans aligns previous against current and returns the unchanged
// spans with their offset shifts.
func stableSpans(previous, current string) []stableSpan {
	aTokens := tokenize(previous)
	bTokens := tokenize(current)
	opcodes := align(aTokens, bTokens)

	var spans []stableSpan
	for idx, op := range opcodes {
		if op.Tag != opEqual {
			continue
		}
		prevStart := offsetAt(aTokens, op.I1, len(previous))
		spans = append(spans, stableSpan{
			prevStart: prevStart,
			prevEnd:   offsetAt(aTokens, op.I2, len(previous)),
			shift:     offsetAt(bTokens, op.J1, len(current)) - prevStart,
			openLeft:  idx == 0,
			openRight: idx == len(opcodes)-1,
		})
	}
	return spans
}

// Rebase recomputes which of previousIssues still apply after the text
// changed from previousText to currentText, and at what offsets. An issue
// survives only when its whole [Start, End) sits inside one unchanged span
// without touching an edited region on either side; surviving issues keep
// their Original and Suggestion and move by that span's shift. Everything
// else is dropped: a suggestion against text that moved through an edit can
// no longer be trusted to apply cleanly. Issues are judged independently.
//
// Boundary policy: an issue whose span is merely adjacent to an edit (an
// insertion exactly at Start or End, with zero overlap) is dropped as well.
func Rebase(previousText string, previousIssues []Issue, currentText string) []Issue {
	if len(previousIssues) == 0 {
		return nil
	}
	if previousText == currentText {
		out := make([]Issue, len(previousIssues))
		copy(out, previousIssues)
		return out
	}

	spans := stableSpans(previousText, currentText)
	var kept []Issue
	for _, is := range previousIssues {
		if span, ok := containingSpan(spans, is); ok {
			is.Start += span.shift
			is.End += span.shift
			is.SentenceAnchor += span.shift
			kept = append(kept, is)
		}
	}
	return kept
}

func containingSpan(spans []stableSpan, is Issue) (stableSpan, bool) {
	for _, span := range spans {
		if is.Start < span.prevStart || is.End > span.prevEnd {
			continue
		}
		if is.Start == span.prevStart && !span.openLeft {
			return stableSpan{}, false
		}
		if is.End == span.prevEnd && !span.openRight {
			return stableSpan{}, false
		}
		return span, true
	}
	return stableSpan{}, false
}
