package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/library-seeder/pkg/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteDataset(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	fiction := models.Fiction
	good := models.Good
	price := 45.5
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	returned := due.AddDate(0, 0, -3)

	ds := &models.Dataset{
		Books: []models.Book{
			{ID: "LIBabc12", ISBN: "001-002-003-004", Author: "Jane Doe", Category: &fiction, Condition: &good, PublicationYear: 1999, Price: &price},
			{ID: "LIBzzz99", ISBN: "005-006-007-008", Author: "John, Jr.", PublicationYear: 1850},
		},
		BorrowingRecords: []models.BorrowingRecord{
			{ID: "00001", Borrower: "Ann Lee", DueDate: due, ReturnDate: &returned, BookID: "LIBabc12"},
		},
		Members: []models.Member{
			{ID: "00001", Name: "Bo Chan", Postcode: "12345"},
		},
	}

	dir := filepath.Join(t.TempDir(), "out")
	w := NewCSVWriter(dir, logger)
	paths, err := w.WriteDataset(ds)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	books := readCSV(t, paths[models.BookTable])
	assert.Equal(t, []string{"id", "isbn", "author", "category", "condition", "publication_year", "price"}, books[0])
	assert.Equal(t, []string{"LIBabc12", "001-002-003-004", "Jane Doe", "Fiction", "Good", "1999", "45.50"}, books[1])
	assert.Equal(t, []string{"LIBzzz99", "005-006-007-008", "John, Jr.", "", "", "1850", ""}, books[2])

	records := readCSV(t, filepath.Join(dir, "library_borrowing_records.csv"))
	assert.Equal(t, []string{"id", "borrower", "due_date", "return_date", "book_id"}, records[0])
	assert.Equal(t, []string{"00001", "Ann Lee", "2024-03-01", "2024-02-27", "LIBabc12"}, records[1])

	members := readCSV(t, paths[models.MemberTable])
	assert.Equal(t, []string{"id", "name", "postcode", "fine"}, members[0])
	assert.Equal(t, []string{"00001", "Bo Chan", "12345", ""}, members[1])
}
