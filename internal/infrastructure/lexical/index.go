package lexical

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

type passageDoc struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Index is a keyword index over passage text. Scores are divided by the best
// hit of each query so they fall in [0,1].
type Index struct {
	idx bleve.Index
	*Analyzer
}

// NewMemIndex builds an in-memory index. It starts empty.
func NewMemIndex() (*Index, error) {
	im, err := newIndexMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return wrap(idx)
}

// Open opens the index at path, creating it when missing.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) || errors.Is(err, os.ErrNotExist) {
		im, mErr := newIndexMapping()
		if mErr != nil {
			return nil, mErr
		}
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return wrap(idx)
}

func wrap(idx bleve.Index) (*Index, error) {
	im, err := newIndexMapping()
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	a, err := analyzerFrom(im)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	return &Index{idx: idx, Analyzer: a}, nil
}

func (i *Index) Close() error {
	return i.idx.Close()
}

func (i *Index) IndexTexts(ctx context.Context, passages []domain.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := i.idx.NewBatch()
	for _, p := range passages {
		if err := batch.Index(p.ID, passageDoc{Text: p.Text, Source: p.Source}); err != nil {
			return fmt.Errorf("batch passage %s: %w", p.ID, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("index passages: %w", err)
	}
	return nil
}

func (i *Index) SearchLexical(ctx context.Context, text string, k int) ([]domain.ScoredText, error) {
	if k <= 0 {
		return nil, nil
	}
	query := bleve.NewMatchQuery(text)
	query.SetField("text")
	query.Analyzer = passageAnalyzer

	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	req.Fields = []string{"text"}
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	maxScore := 0.0
	for _, hit := range res.Hits {
		maxScore = max(maxScore, hit.Score)
	}
	out := make([]domain.ScoredText, 0, len(res.Hits))
	for _, hit := range res.Hits {
		text, _ := hit.Fields["text"].(string)
		if text == "" {
			continue
		}
		score := 0.0
		if maxScore > 0 {
			score = hit.Score / maxScore
		}
		out = append(out, domain.ScoredText{Text: text, Score: score})
	}
	return out, nil
}

// Count reports how many passages are indexed.
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}
