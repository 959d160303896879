package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadTextSkipsBlankLines(t *testing.T) {
	path := writeFile(t, "contexts.txt", "Paris is the capital.\n\n  Lyon is a city.  \n")
	got, err := New().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 || got[1] != "Lyon is a city." {
		t.Fatalf("unexpected passages %q", got)
	}
}

func TestLoadTextRejectsBinary(t *testing.T) {
	path := writeFile(t, "blob.txt", "ok\n\xff\xfe\n")
	if _, err := New().Load(context.Background(), path); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadCSVReadsContextColumn(t *testing.T) {
	path := writeFile(t, "qa.csv", "\ufeffquestion,Context\nq1,\"Paris, the capital\"\nq2,Lyon\n")
	got, err := New().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 || got[0] != "Paris, the capital" {
		t.Fatalf("unexpected passages %q", got)
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	path := writeFile(t, "qa.csv", "question,answer\nq,a\n")
	if _, err := New(WithColumn("passage")).Load(context.Background(), path); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadXLSXReadsFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "id")
	_ = f.SetCellValue(sheet, "B1", "context")
	_ = f.SetCellValue(sheet, "A2", 1)
	_ = f.SetCellValue(sheet, "B2", "Paris is the capital.")
	path := filepath.Join(t.TempDir(), "contexts.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = f.Close()

	got, err := New().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0] != "Paris is the capital." {
		t.Fatalf("unexpected passages %q", got)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := New().Load(context.Background(), "notes.docx"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
