package textdiff

import (
	"testing"
)

func TestExtractSingleWordReplacement(t *testing.T) {
	issues := Extract("  Hello world", "  Hello worlds")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	is := issues[0]
	if is.Original != "world" || is.Suggestion != "worlds" {
		t.Errorf("unexpected texts: original %q suggestion %q", is.Original, is.Suggestion)
	}
	if is.Start != 8 || is.End != 13 {
		t.Errorf("expected span [8,13), got [%d,%d)", is.Start, is.End)
	}
}

func TestExtractAcrossLineBreak(t *testing.T) {
	issues := Extract("Hello\nworld", "Hello\nWorld")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	is := issues[0]
	if is.Original != "world" || is.Suggestion != "World" {
		t.Errorf("unexpected texts: original %q suggestion %q", is.Original, is.Suggestion)
	}
	if is.Start != 6 || is.End != 11 {
		t.Errorf("expected span [6,11), got [%d,%d)", is.Start, is.End)
	}
}

func TestExtractInsertion(t *testing.T) {
	issues := Extract("Hello world", "Hello brave world")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	is := issues[0]
	if is.Original != "" || is.Suggestion != "brave " {
		t.Errorf("unexpected texts: original %q suggestion %q", is.Original, is.Suggestion)
	}
	if is.Start != 6 || is.End != 6 {
		t.Errorf("expected insertion point [6,6), got [%d,%d)", is.Start, is.End)
	}
	if !is.IsInsertion() {
		t.Error("expected IsInsertion")
	}
}

func TestExtractDeletion(t *testing.T) {
	issues := Extract("a very big dog", "a big dog")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %+v", len(issues), issues)
	}
	is := issues[0]
	if is.Suggestion != "" {
		t.Errorf("expected empty suggestion, got %q", is.Suggestion)
	}
	if !is.IsDeletion() {
		t.Error("expected IsDeletion")
	}
}

func TestExtractIdenticalTexts(t *testing.T) {
	for _, text := range []string{"", "x", "Hello world.", "a\nb\tc  d"} {
		if issues := Extract(text, text); len(issues) != 0 {
			t.Errorf("Extract(%q, same) = %d issues, want 0", text, len(issues))
		}
	}
}

func TestExtractEverythingDiffers(t *testing.T) {
	issues := Extract("cat", "dog")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	is := issues[0]
	if is.Start != 0 || is.End != 3 || is.Original != "cat" || is.Suggestion != "dog" {
		t.Errorf("unexpected issue %+v", is)
	}
}

func TestExtractSeparateEditsStaySeparate(t *testing.T) {
	// Edits with an unchanged separator token between them must not merge.
	issues := Extract("one two three", "one 2 3")
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Original != "two" || issues[0].Suggestion != "2" {
		t.Errorf("unexpected first issue %+v", issues[0])
	}
	if issues[1].Original != "three" || issues[1].Suggestion != "3" {
		t.Errorf("unexpected second issue %+v", issues[1])
	}
}

func TestExtractMergesAdjacentOperations(t *testing.T) {
	// A two-word replacement is one issue, not two.
	issues := Extract("He dont knows it", "He does not know it")
	for _, is := range issues {
		if err := is.Validate("He dont knows it"); err != nil {
			t.Errorf("issue fails fidelity: %v", err)
		}
	}
	applied, err := Apply("He dont knows it", issues)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied != "He does not know it" {
		t.Errorf("round trip got %q", applied)
	}
}

func TestExtractOffsetFidelity(t *testing.T) {
	cases := [][2]string{
		{"  Hello world", "  Hello worlds"},
		{"Hello\nworld", "Hello\nWorld"},
		{"Hello world", "Hello brave world"},
		{"I cant beleive it", "I can't believe it"},
		{"Thier going to be suprised.", "They're going to be surprised."},
		{"tab\tand  spaces stay", "tab\tand  spaces remain"},
		{"café au lait", "cafe au lait"},
		{"word", ""},
		{"", "word"},
	}
	for _, c := range cases {
		original, corrected := c[0], c[1]
		issues := Extract(original, corrected)
		for _, is := range issues {
			if err := is.Validate(original); err != nil {
				t.Errorf("Extract(%q, %q): %v", original, corrected, err)
			}
		}
	}
}

func TestExtractRoundTrip(t *testing.T) {
	cases := [][2]string{
		{"  Hello world", "  Hello worlds"},
		{"Hello world", "Hello brave world"},
		{"I use to make alot of mistakes", "I used to make a lot of mistakes"},
		{"Its been a lifesaver for my dayly work.", "It's been a lifesaver for my daily work."},
		{"one two three", "one 2 3"},
		{"line one\nline twoo\nline three", "line one\nline two\nline three"},
		{"", "something"},
		{"something", ""},
	}
	for _, c := range cases {
		original, corrected := c[0], c[1]
		applied, err := Apply(original, Extract(original, corrected))
		if err != nil {
			t.Errorf("Apply(%q -> %q): %v", original, corrected, err)
			continue
		}
		if applied != corrected {
			t.Errorf("round trip of (%q, %q) produced %q", original, corrected, applied)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	original := "The the quick brown fox fox jumps"
	corrected := "The quick brown fox jumps high"
	first := Extract(original, corrected)
	for i := 0; i < 5; i++ {
		again := Extract(original, corrected)
		if len(again) != len(first) {
			t.Fatalf("nondeterministic issue count: %d vs %d", len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("nondeterministic issue %d: %+v vs %+v", j, again[j], first[j])
			}
		}
	}
}

func TestTokenizeCoversEveryByte(t *testing.T) {
	for _, text := range []string{"", "x", "Hello, world!  ", "\n\t", "café ☕ done", "a'b c-d"} {
		tokens := tokenize(text)
		rebuilt := ""
		pos := 0
		for _, tok := range tokens {
			if tok.start != pos {
				t.Errorf("tokenize(%q): token %q starts at %d, want %d", text, tok.text, tok.start, pos)
			}
			rebuilt += tok.text
			pos += len(tok.text)
		}
		if rebuilt != text {
			t.Errorf("tokenize(%q) loses bytes: %q", text, rebuilt)
		}
	}
}
