package loader

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

func (l *Loader) loadPDF(ctx context.Context, path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var out []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if l.chunker == nil {
			out = append(out, text)
			continue
		}
		out = append(out, l.chunker.Split(text)...)
	}
	return out, nil
}
