package embedding

import "testing"

func TestSimpleTokenizer(t *testing.T) {
	tok := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tok.Tokenize("annual fee waived", 8)
	if len(inputIDs) != 8 || len(attentionMask) != 8 || len(tokenTypeIDs) != 8 {
		t.Fatalf("lengths: %d %d %d", len(inputIDs), len(attentionMask), len(tokenTypeIDs))
	}
	if inputIDs[0] != 101 {
		t.Errorf("expected [CLS] at position 0, got %d", inputIDs[0])
	}
	if attentionMask[0] != 1 || attentionMask[1] != 1 {
		t.Error("attention mask should cover tokens")
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a\tb\nc ")
	if len(words) != 3 || words[0] != "a" || words[2] != "c" {
		t.Errorf("SplitWords=%v", words)
	}
}

func TestHashStringStable(t *testing.T) {
	if HashString("visa") != HashString("visa") {
		t.Error("hash must be stable")
	}
	if HashString("visa") < 0 {
		t.Error("hash must be non-negative")
	}
}
