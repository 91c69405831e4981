package engine

import "testing"

func TestSimilarityIdentical(t *testing.T) {
	if got := Similarity("emirates steel", "emirates steel"); got != 1.0 {
		t.Fatalf("expected 1.0 for identical strings, got %v", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", "abc"); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
	if got := Similarity("abc", ""); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
}

func TestSimilaritySymmetricRange(t *testing.T) {
	pairs := [][2]string{
		{"al futtaim electric", "al futtaim electrical"},
		{"gulf lighting co", "gulf lights company"},
		{"abc", "xyz"},
	}
	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab < 0 || ab > 1 {
			t.Fatalf("ratio out of range for %q/%q: %v", p[0], p[1], ab)
		}
		if ab != ba {
			t.Fatalf("ratio not symmetric for %q/%q: %v vs %v", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarityNearDuplicateSuppliers(t *testing.T) {
	// The fuzzy PO duplicate rule keys off 0.85; these vectors must stay on
	// their respective sides of it.
	if got := Similarity("emirates steel industries", "emirates steel industry"); got < SimilarityThreshold {
		t.Fatalf("near-identical suppliers scored %v, want >= %v", got, SimilarityThreshold)
	}
	if got := Similarity("emirates steel industries", "dubai cable company"); got >= SimilarityThreshold {
		t.Fatalf("unrelated suppliers scored %v, want < %v", got, SimilarityThreshold)
	}
}

func TestSimilarityNoCommonCharacters(t *testing.T) {
	if got := Similarity("aaa", "bbb"); got != 0 {
		t.Fatalf("expected 0 without common substring, got %v", got)
	}
}
