package domain

// Passage is one entry of the read-only passage collection.
type Passage struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
	Position int    `json:"position"`
}

// ScoredID is a vector index hit before the passage text is resolved.
type ScoredID struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// ScoredText is a retrieval hit keyed by passage text.
type ScoredText struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// RetrievedPassage is a fused and re-scored retrieval result.
type RetrievedPassage struct {
	Text           string  `json:"text"`
	VectorScore    float64 `json:"vector_score"`
	LexicalScore   float64 `json:"lexical_score"`
	FusedScore     float64 `json:"fused_score"`
	FusedRank      int     `json:"fused_rank"`
	TextSimilarity float64 `json:"text_similarity"`
	EntityOverlap  int     `json:"entity_overlap"`
	FinalScore     float64 `json:"final_score"`
}

// QuestionRequest is the broker payload for one question.
type QuestionRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	Source     string `json:"source"`
	Received   int    `json:"received"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Indexed    int    `json:"indexed"`
}
