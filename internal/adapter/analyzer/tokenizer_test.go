package analyzer

import (
	"reflect"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"abcd", 1},
		{strings.Repeat("x", 400), 100},
		{strings.Repeat("x", 120), 30},
		{"§§§§", 1},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q): expected %d, got %d", tt.text, tt.want, got)
		}
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("The court held that the statute shall apply")
	want := []string{"court", "held", "statute", "shall", "apply"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected %v, got %v", want, tokens)
	}
}

func TestTokenizer_Lowercases(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("PLAINTIFF Appellee")
	if len(tokens) != 2 || tokens[0] != "plaintiff" || tokens[1] != "appellee" {
		t.Errorf("expected lowercase tokens, got %v", tokens)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("The court held.  The motion was denied! Was it error?\nNo")
	want := []string{"The court held.", "The motion was denied!", "Was it error?", "No"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSplitSentences_NoTerminalWhitespace(t *testing.T) {
	got := SplitSentences("Affirmed.")
	if len(got) != 1 || got[0] != "Affirmed." {
		t.Errorf("expected single sentence, got %v", got)
	}

	if got := SplitSentences("   "); len(got) != 0 {
		t.Errorf("expected no sentences for whitespace, got %v", got)
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("First para.\nstill first.\n\n  \nSecond para.\n \t\nThird.")
	want := []string{"First para.\nstill first.", "Second para.", "Third."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizeSpace(t *testing.T) {
	if got := NormalizeSpace("  a \n\n b\tc "); got != "a b c" {
		t.Errorf("expected 'a b c', got %q", got)
	}
}
