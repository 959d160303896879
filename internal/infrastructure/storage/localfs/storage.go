package localfs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

const passagesFile = "passages.jsonl"

// Storage keeps the passage collection as a JSON-lines file under basePath.
// The file is loaded once and rewritten whole on every save.
type Storage struct {
	basePath string

	mu       sync.RWMutex
	loaded   bool
	passages map[string]domain.Passage
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) SavePassages(_ context.Context, passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	for _, p := range passages {
		s.passages[p.ID] = p
	}
	return s.writeLocked()
}

func (s *Storage) Passages(_ context.Context, ids []string) (map[string]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if p, ok := s.passages[id]; ok {
			out[id] = p.Text
		}
	}
	return out, nil
}

func (s *Storage) ListPassages(_ context.Context) ([]domain.Passage, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

func (s *Storage) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Storage) loadLocked() error {
	if s.loaded {
		return nil
	}
	s.passages = make(map[string]domain.Passage)

	f, err := os.Open(filepath.Join(s.basePath, passagesFile))
	if errors.Is(err, os.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open passages file: %w", err)
	}
	defer f.Close()

	if err := s.decode(f); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *Storage) decode(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p domain.Passage
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return fmt.Errorf("decode passage line %d: %w", line, err)
		}
		s.passages[p.ID] = p
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read passages file: %w", err)
	}
	return nil
}

func (s *Storage) writeLocked() error {
	tmp, err := os.CreateTemp(s.basePath, passagesFile+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, p := range s.sortedLocked() {
		if err := enc.Encode(p); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encode passage %s: %w", p.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.basePath, passagesFile)); err != nil {
		return fmt.Errorf("replace passages file: %w", err)
	}
	return nil
}

func (s *Storage) sortedLocked() []domain.Passage {
	out := make([]domain.Passage, 0, len(s.passages))
	for _, p := range s.passages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}
