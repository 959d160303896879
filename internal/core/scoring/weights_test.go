package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultWeightsAreValid(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
}

func TestLoadWeightsOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	body := "similarity:\n  jaccard: 0.35\n  semantic_cosine: 0.20\nvalidation:\n  max_answer_runes: 300\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	if w.Similarity.Jaccard != 0.35 || w.Similarity.SemanticCosine != 0.20 {
		t.Fatalf("overrides not applied: %+v", w.Similarity)
	}
	if w.Similarity.LexicalCosine != 0.20 || w.Validation.MaxAnswerRunes != 300 {
		t.Fatalf("unexpected values: %+v", w)
	}
	if w.Fusion != DefaultWeights().Fusion {
		t.Fatalf("fusion weights should keep defaults")
	}
}

func TestLoadWeightsRejectsInvalidTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte("ngram:\n  unigram: 0.9\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWeights(path); err == nil {
		t.Fatalf("expected error for ngram weights not summing to 1")
	}
}

func TestLoadWeightsEmptyPathUsesDefaults(t *testing.T) {
	w, err := LoadWeights("")
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	if w != DefaultWeights() {
		t.Fatalf("expected defaults")
	}
}
