package textdiff

import "unicode"

// token is a run of word characters or a run of separator characters, with
// its exact byte span in the source text. Concatenating all tokens in order
// reproduces the text byte for byte.
type token struct {
	text  string
	start int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// tokenize splits text into alternating word and separator runs. Whitespace
// and punctuation form their own tokens so that matching word tokens on
// either side of an edit keep their exact offsets.
func tokenize(text string) []token {
	if text == "" {
		return nil
	}
	tokens := make([]token, 0, len(text)/4+1)
	start := 0
	var prevWord bool
	for i, r := range text {
		word := isWordRune(r)
		if i == 0 {
			prevWord = word
			continue
		}
		if word != prevWord {
			tokens = append(tokens, token{text: text[start:i], start: start})
			start = i
			prevWord = word
		}
	}
	tokens = append(tokens, token{text: text[start:], start: start})
	return tokens
}

// tokenStrings projects tokens to the string slice the matcher consumes.
func tokenStrings(tokens []token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.text
	}
	return out
}

// offsetAt returns the byte offset of token i's first character, or the end
// of the text when i == len(tokens).
func offsetAt(tokens []token, i int, textLen int) int {
	if i >= len(tokens) {
		return textLen
	}
	return tokens[i].start
}
