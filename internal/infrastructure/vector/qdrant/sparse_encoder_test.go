package qdrant

import "testing"

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	v1 := encodeSparseQuery("Risk level for DOC_0001")
	v2 := encodeSparseQuery("Risk level for DOC_0001")
	if len(v1.Indices) != len(v2.Indices) || len(v1.Values) != len(v2.Values) {
		t.Fatalf("vector sizes mismatch: v1=%d/%d v2=%d/%d", len(v1.Indices), len(v1.Values), len(v2.Indices), len(v2.Values))
	}
	for i := range v1.Indices {
		if v1.Indices[i] != v2.Indices[i] {
			t.Fatalf("indices mismatch at %d: %d vs %d", i, v1.Indices[i], v2.Indices[i])
		}
		if v1.Values[i] != v2.Values[i] {
			t.Fatalf("values mismatch at %d: %f vs %f", i, v1.Values[i], v2.Values[i])
		}
	}
}

func TestEncodeSparseQuerySortsIndices(t *testing.T) {
	v := encodeSparseQuery("zulu alpha beta gamma")
	if len(v.Indices) == 0 {
		t.Fatalf("expected non-empty sparse vector")
	}
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] > v.Indices[i] {
			t.Fatalf("indices not sorted at %d: %d > %d", i, v.Indices[i-1], v.Indices[i])
		}
	}
}

func TestEncodeSparseQueryEmptyNoiseInput(t *testing.T) {
	v := encodeSparseQuery("___---!!!")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
}

func TestSparseTermsFoldArabicAndDropStopWords(t *testing.T) {
	a := encodeSparseQuery("ما هي عاصمة فرنسا؟")
	b := encodeSparseQuery("عاصمه فرنسا")
	if len(a.Indices) != 2 || len(b.Indices) != 2 {
		t.Fatalf("expected two content terms, got %v and %v", a.Indices, b.Indices)
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			t.Fatalf("folded forms should hash alike: %v vs %v", a.Indices, b.Indices)
		}
	}
}

func TestEncodeSparseDocumentBoostsSourceTerms(t *testing.T) {
	plain := encodeSparseDocument("paris capital", "")
	withSource := encodeSparseDocument("paris capital", "geography")
	if len(withSource.Indices) != len(plain.Indices)+1 {
		t.Fatalf("expected source term added, got %d vs %d", len(withSource.Indices), len(plain.Indices))
	}
}
