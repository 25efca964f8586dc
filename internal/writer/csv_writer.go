package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/library-seeder/internal/schema"
	"github.com/vitebski/library-seeder/pkg/models"
)

// File names written for each table
var FileNames = map[string]string{
	models.BookTable:            "library_books.csv",
	models.BorrowingRecordTable: "library_borrowing_records.csv",
	models.MemberTable:          "library_members.csv",
}

// CSVWriter serializes datasets to comma-separated files
type CSVWriter struct {
	OutputDir string
	Logger    *logrus.Logger
}

// NewCSVWriter creates a writer that places files in outputDir
func NewCSVWriter(outputDir string, logger *logrus.Logger) *CSVWriter {
	return &CSVWriter{OutputDir: outputDir, Logger: logger}
}

// PathFor returns the file path used for a table
func (w *CSVWriter) PathFor(table string) string {
	return filepath.Join(w.OutputDir, FileNames[table])
}

// WriteDataset writes one file per table and returns the paths keyed by table name
func (w *CSVWriter) WriteDataset(ds *models.Dataset) (map[string]string, error) {
	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tables := []struct {
		name string
		rows [][]string
	}{
		{models.BookTable, BookRows(ds.Books)},
		{models.BorrowingRecordTable, BorrowingRecordRows(ds.BorrowingRecords)},
		{models.MemberTable, MemberRows(ds.Members)},
	}

	paths := make(map[string]string, len(tables))
	for _, t := range tables {
		def, _ := schema.Lookup(t.name)
		path := w.PathFor(t.name)
		if err := WriteTable(path, def.ColumnNames(), t.rows); err != nil {
			return nil, err
		}
		w.Logger.Infof("Wrote %d rows for %s to %s", len(t.rows), t.name, path)
		paths[t.name] = path
	}

	return paths, nil
}

// WriteTable writes a header row followed by the data rows
func WriteTable(path string, header []string, rows [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows to %s: %w", path, err)
	}
	return nil
}

// BookRows converts books to CSV rows in Book column order
func BookRows(books []models.Book) [][]string {
	rows := make([][]string, len(books))
	for i, b := range books {
		var category, condition string
		if b.Category != nil {
			category = string(*b.Category)
		}
		if b.Condition != nil {
			condition = string(*b.Condition)
		}
		rows[i] = []string{
			b.ID,
			b.ISBN,
			b.Author,
			category,
			condition,
			strconv.Itoa(b.PublicationYear),
			formatReal(b.Price),
		}
	}
	return rows
}

// BorrowingRecordRows converts borrowing records to CSV rows in BorrowingRecord column order
func BorrowingRecordRows(records []models.BorrowingRecord) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		var returned string
		if r.ReturnDate != nil {
			returned = r.ReturnDate.Format(schema.DateLayout)
		}
		rows[i] = []string{
			r.ID,
			r.Borrower,
			r.DueDate.Format(schema.DateLayout),
			returned,
			r.BookID,
		}
	}
	return rows
}

// MemberRows converts members to CSV rows in Member column order
func MemberRows(members []models.Member) [][]string {
	rows := make([][]string, len(members))
	for i, m := range members {
		rows[i] = []string{m.ID, m.Name, m.Postcode, formatReal(m.Fine)}
	}
	return rows
}

func formatReal(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
