package querycache

import "testing"

func TestKeyCanonical(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{Key{"model", "fix", "text"}, "model:fix:text"},
		{Key{"a", nil, "b"}, "a:b"},
		{Key{"a", "", "b"}, "a:b"},
		{Key{"a", 3, true}, "a:3:true"},
		{Key{"a", int64(7), 1.5}, "a:7:1.5"},
		{Key{}, ""},
		{Key{nil}, ""},
	}
	for _, c := range cases {
		if got := c.key.Canonical(); got != c.want {
			t.Errorf("Canonical(%v) = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestKeyCanonicalStructPart(t *testing.T) {
	type params struct {
		Tone string `json:"tone"`
	}
	k := Key{"fix", params{Tone: "formal"}}
	want := `fix:{"tone":"formal"}`
	if got := k.Canonical(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestKeyCanonicalDeterministic(t *testing.T) {
	k := Key{"fix", "casual", "Their going home."}
	first := k.Canonical()
	for i := 0; i < 10; i++ {
		if got := k.Canonical(); got != first {
			t.Fatalf("canonicalization unstable: %q vs %q", got, first)
		}
	}
}
