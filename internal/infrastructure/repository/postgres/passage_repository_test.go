package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*PassageRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewPassageRepository(db), mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavePassagesUpsertsInTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO passages").WithArgs("p1", "Paris", "geo", 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO passages").WithArgs("p2", "Lyon", "geo", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SavePassages(context.Background(), []domain.Passage{
		{ID: "p1", Text: "Paris", Source: "geo", Position: 0},
		{ID: "p2", Text: "Lyon", Source: "geo", Position: 1},
	})
	if err != nil {
		t.Fatalf("SavePassages() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavePassagesRollsBackOnError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO passages").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.SavePassages(context.Background(), []domain.Passage{{ID: "p1", Text: "x"}}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIndexPassagesStoresVector(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO passages").
		WithArgs("p1", "Paris", "", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.IndexPassages(context.Background(), []domain.Passage{{ID: "p1", Text: "Paris"}}, [][]float32{{0.1, 0.2}})
	if err != nil {
		t.Fatalf("IndexPassages() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIndexPassagesRejectsMismatch(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	if err := repo.IndexPassages(context.Background(), []domain.Passage{{ID: "p1"}}, nil); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestSearchVectorsScansScores(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, 1 - \\(embedding <=> \\$1\\) AS score").
		WithArgs(sqlmock.AnyArg(), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "score"}).AddRow("p1", 0.9).AddRow("p2", 0.5))

	hits, err := repo.SearchVectors(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("SearchVectors() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "p1" || hits[1].Score != 0.5 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPassagesOmitsUnknownIDs(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, text FROM passages WHERE id IN \\(\\$1,\\$2\\)").
		WithArgs("p1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow("p1", "Paris"))

	got, err := repo.Passages(context.Background(), []string{"p1", "missing"})
	if err != nil {
		t.Fatalf("Passages() error = %v", err)
	}
	if len(got) != 1 || got["p1"] != "Paris" {
		t.Fatalf("unexpected passages: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListPassagesOrdersBySource(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, text, source, position").
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "source", "position"}).
			AddRow("p1", "Paris", "geo", 0).
			AddRow("p2", "Lyon", "geo", 1))

	got, err := repo.ListPassages(context.Background())
	if err != nil {
		t.Fatalf("ListPassages() error = %v", err)
	}
	if len(got) != 2 || got[1].Position != 1 {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestPassageReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, text, source, position FROM passages WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Passage(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrPassageNotFound) {
		t.Fatalf("expected ErrPassageNotFound, got %v", err)
	}
}
