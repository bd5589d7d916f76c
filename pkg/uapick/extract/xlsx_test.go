package extract

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

// writeXLSX saves a workbook prepared by build
func writeXLSX(t *testing.T, build func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func setCells(t *testing.T, f *excelize.File, sheet string, cells map[string]string) {
	t.Helper()
	for ref, v := range cells {
		if err := f.SetCellValue(sheet, ref, v); err != nil {
			t.Fatalf("set %s!%s: %v", sheet, ref, err)
		}
	}
}

func TestXLSXFirstSheetAndRichText(t *testing.T) {
	path := writeXLSX(t, func(f *excelize.File) {
		if err := f.SetSheetName("Sheet1", "Requests"); err != nil {
			t.Fatal(err)
		}
		if _, err := f.NewSheet("Other"); err != nil {
			t.Fatal(err)
		}
		setCells(t, f, "Other", map[string]string{"A1": "wrong sheet " + pixelUA})
		setCells(t, f, "Requests", map[string]string{
			"A1": "ip", "C1": "Client",
			"A2": "10.0.0.1", "C2": chromeUA,
			"A3": "10.0.0.2",
		})
		runs := []excelize.RichTextRun{{Text: "Mozilla/5.0 "}, {Text: "(iPad)"}}
		if err := f.SetCellRichText("Requests", "C3", runs); err != nil {
			t.Fatal(err)
		}
		setCells(t, f, "Requests", map[string]string{"C5": "  "})
	})

	got, err := collect(t, XLSX{}, path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"Client", chromeUA, "Mozilla/5.0 (iPad)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestXLSXColumnFallback(t *testing.T) {
	t.Run("last column of last row", func(t *testing.T) {
		path := writeXLSX(t, func(f *excelize.File) {
			setCells(t, f, "Sheet1", map[string]string{
				"A1": "a", "D1": "d",
				"A2": "b", "E2": "e",
			})
		})
		got, err := collect(t, XLSX{}, path)
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"e"}) {
			t.Errorf("got %q, want column E", got)
		}
	})

	t.Run("G when sheet has no cells", func(t *testing.T) {
		f := excelize.NewFile()
		defer f.Close()

		col, err := detectColumn(context.Background(), f, "Sheet1")
		if err != nil {
			t.Fatalf("detectColumn: %v", err)
		}
		if col != "G" {
			t.Errorf("got column %q, want G", col)
		}
	})
}

func TestXLSXDetectionPrefersHighestScore(t *testing.T) {
	path := writeXLSX(t, func(f *excelize.File) {
		setCells(t, f, "Sheet1", map[string]string{
			"A1": chromeUA, "B1": pixelUA,
			"A2": "-", "B2": curlUA,
		})
	})

	got, err := collect(t, XLSX{}, path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(got, []string{pixelUA, curlUA}) {
		t.Errorf("got %q, want column B", got)
	}
}

func TestXLSXDetectionTieGoesToFirstScored(t *testing.T) {
	path := writeXLSX(t, func(f *excelize.File) {
		setCells(t, f, "Sheet1", map[string]string{"A1": chromeUA, "B1": pixelUA})
	})

	got, err := collect(t, XLSX{}, path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(got, []string{chromeUA}) {
		t.Errorf("got %q, want column A", got)
	}
}

func TestXLSXDetectionLimitedToLeadingRows(t *testing.T) {
	path := writeXLSX(t, func(f *excelize.File) {
		cells := make(map[string]string, 2*detectRows+5)
		for i := 1; i <= detectRows; i++ {
			cells[fmt.Sprintf("A%d", i)] = chromeUA
			cells[fmt.Sprintf("B%d", i)] = "note"
		}
		for i := detectRows + 1; i <= detectRows+5; i++ {
			cells[fmt.Sprintf("B%d", i)] = pixelUA
		}
		setCells(t, f, "Sheet1", cells)
	})

	got, err := collect(t, XLSX{}, path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != detectRows || got[0] != chromeUA {
		t.Errorf("expected %d values from column A, got %d", detectRows, len(got))
	}
}

func TestXLSXCancelled(t *testing.T) {
	path := writeXLSX(t, func(f *excelize.File) {
		setCells(t, f, "Sheet1", map[string]string{"A1": chromeUA})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var err error
	for _, e := range (XLSX{}).Extract(ctx, path) {
		err = e
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestXLSXErrors(t *testing.T) {
	notZip := writeFile(t, "broken.xlsx", "this is not a zip archive")
	if _, err := collect(t, XLSX{}, notZip); !errors.Is(err, internalerr.ErrExtraction) {
		t.Errorf("not a zip: expected ErrExtraction, got %v", err)
	}

	// a valid archive that carries no workbook at all
	empty := filepath.Join(t.TempDir(), "empty.xlsx")
	f, err := os.Create(empty)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if _, err := zw.Create("docProps/app.xml"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if _, err := collect(t, XLSX{}, empty); !errors.Is(err, internalerr.ErrExtraction) {
		t.Errorf("no workbook: expected ErrExtraction, got %v", err)
	}
}
