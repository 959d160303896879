package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func TestIndexPassagesEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var upserted []point
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/passages":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/passages/points":
			var body struct {
				Points []point `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode upsert: %v", err)
			}
			upserted = append(upserted, body.Points...)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	passages := []domain.Passage{{ID: "id-1", Text: "Paris is the capital"}, {ID: "id-2", Text: "Lyon"}}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	for i := 0; i < 2; i++ {
		if err := client.IndexPassages(context.Background(), passages, vectors); err != nil {
			t.Fatalf("IndexPassages() call %d error = %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(upserted) != 4 || upserted[0].ID != "id-1" || upserted[0].Payload["text"] != "Paris is the capital" {
		t.Fatalf("unexpected points: %+v", upserted)
	}
	if _, ok := upserted[0].Vector[sparseVectorName]; !ok {
		t.Fatalf("expected sparse vector on point")
	}
}

func TestEnsureCollectionTreatsConflictAsExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/passages" {
			http.Error(w, "exists", http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := New(server.URL, "passages").IndexPassages(context.Background(),
		[]domain.Passage{{ID: "a", Text: "a"}}, [][]float32{{1}})
	if err != nil {
		t.Fatalf("expected conflict to be ignored, got %v", err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/passages" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	err := New(server.URL, "passages").IndexPassages(context.Background(),
		[]domain.Passage{{ID: "a", Text: "a"}}, [][]float32{{0.1, 0.2}})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestSearchVectorsDecodesIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		vec, _ := body["vector"].(map[string]any)
		if vec["name"] != denseVectorName {
			t.Errorf("expected dense vector query, got %v", body["vector"])
		}
		_, _ = w.Write([]byte(`{"result":[{"id":"id-1","score":0.9},{"id":7,"score":0.4}]}`))
	}))
	defer server.Close()

	hits, err := New(server.URL, "passages").SearchVectors(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("SearchVectors() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "id-1" || hits[1].ID != "7" || hits[0].Score != 0.9 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchLexicalNormalizesByBestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"score":4,"payload":{"text":"a"}},{"score":1,"payload":{"text":"b"}}]}`))
	}))
	defer server.Close()

	hits, err := New(server.URL, "passages").SearchLexical(context.Background(), "capital city", 5)
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if len(hits) != 2 || hits[0].Score != 1 || hits[1].Score != 0.25 || hits[1].Text != "b" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchLexicalSkipsStopWordOnlyQuery(t *testing.T) {
	hits, err := New("http://127.0.0.1:1", "passages").SearchLexical(context.Background(), "what is the", 5)
	if err != nil || hits != nil {
		t.Fatalf("expected no request and no hits, got %v %v", hits, err)
	}
}

func TestPassagesAndListPassages(t *testing.T) {
	var scrolls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/passages/points":
			_, _ = w.Write([]byte(`{"result":[{"id":"id-1","payload":{"text":"Paris"}}]}`))
		case "/collections/passages/points/scroll":
			if atomic.AddInt32(&scrolls, 1) == 1 {
				_, _ = w.Write([]byte(`{"result":{"points":[{"id":"id-1","payload":{"text":"Paris","source":"geo","position":2}}],"next_page_offset":"id-2"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"result":{"points":[{"id":"id-2","payload":{"text":"Lyon"}}],"next_page_offset":null}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	texts, err := client.Passages(context.Background(), []string{"id-1", "missing"})
	if err != nil || len(texts) != 1 || texts["id-1"] != "Paris" {
		t.Fatalf("unexpected passages: %v %v", texts, err)
	}

	all, err := client.ListPassages(context.Background())
	if err != nil {
		t.Fatalf("ListPassages() error = %v", err)
	}
	if len(all) != 2 || all[0].Source != "geo" || all[0].Position != 2 || all[1].Text != "Lyon" {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestTemporaryStatusIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, "passages").SearchVectors(context.Background(), []float32{1}, 1)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
