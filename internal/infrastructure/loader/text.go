package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !utf8.Valid(line) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load source", fmt.Errorf("%s is not utf-8 text", path))
		}
		if text := strings.TrimSpace(string(line)); text != "" {
			out = append(out, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return out, nil
}

func loadCSV(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx, err := columnIndex(header, column)
	if err != nil {
		return nil, err
	}

	var out []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if idx < len(record) {
			out = append(out, record[idx])
		}
	}
	return out, nil
}
