// Package loader reads raw passages from source files: one passage per line
// for text, one per row for csv and xlsx, and chunked page text for pdf.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/answer-engine/internal/core/domain"
	"github.com/kirillkom/answer-engine/internal/core/ports"
)

const DefaultColumn = "context"

type Loader struct {
	column  string
	chunker ports.Chunker
}

type Option func(*Loader)

// WithColumn names the csv/xlsx header holding passage text.
func WithColumn(name string) Option {
	return func(l *Loader) {
		if strings.TrimSpace(name) != "" {
			l.column = name
		}
	}
}

// WithChunker sets how pdf page text is cut into passages.
func WithChunker(c ports.Chunker) Option {
	return func(l *Loader) { l.chunker = c }
}

func New(opts ...Option) *Loader {
	l := &Loader{column: DefaultColumn}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Load(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text", "":
		return loadLines(path)
	case ".csv":
		return loadCSV(path, l.column)
	case ".xlsx":
		return loadXLSX(path, l.column)
	case ".pdf":
		return l.loadPDF(ctx, path)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "load source", fmt.Errorf("unsupported file type %q", ext))
	}
}

func columnIndex(header []string, column string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			return i, nil
		}
	}
	return -1, domain.WrapError(domain.ErrInvalidInput, "load source", fmt.Errorf("column %q not found", column))
}
