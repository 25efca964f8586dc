package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vitebski/library-seeder/pkg/models"
)

// DateLayout is the on-disk and in-store representation of DATE columns
const DateLayout = "2006-01-02"

// ColumnType is the storage class of a column
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	Real
	Date
)

func (ct ColumnType) String() string {
	switch ct {
	case Text:
		return "TEXT"
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Date:
		return "DATE"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(ct))
	}
}

// Range is an inclusive numeric bound enforced by a CHECK constraint
type Range struct {
	Min float64
	Max float64
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Table            string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	OnDeleteCascade  bool
}

// ColumnDef represents a destination column with its constraints
type ColumnDef struct {
	Name       string
	Type       ColumnType
	Length     int // key length for dialects that cannot index unbounded text
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	Enum       []string
	Range      *Range
}

// Nullable reports whether NULL is an accepted value
func (c ColumnDef) Nullable() bool {
	return !c.NotNull && !c.PrimaryKey
}

// Parse converts a raw CSV field into the Go value inserted for this column.
// An empty field maps to NULL.
func (c ColumnDef) Parse(raw string) (interface{}, error) {
	if raw == "" {
		return nil, nil
	}

	switch c.Type {
	case Integer:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not an integer", c.Name, raw)
		}
		return v, nil
	case Real:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not a real number", c.Name, raw)
		}
		return v, nil
	case Date:
		t, err := parseDate(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not a date", c.Name, raw)
		}
		return t.Format(DateLayout), nil
	default:
		return raw, nil
	}
}

// parseDate accepts plain dates and the midnight timestamps some writers emit
func parseDate(raw string) (time.Time, error) {
	layouts := []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// TableDef represents a destination table with its constraints
type TableDef struct {
	Name        string
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
}

// ColumnNames returns the column names in declaration order
func (t TableDef) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column definition
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDef{}, false
}

func categoryValues() []string {
	values := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		values[i] = string(c)
	}
	return values
}

func conditionValues() []string {
	values := make([]string, len(models.Conditions))
	for i, c := range models.Conditions {
		values[i] = string(c)
	}
	return values
}

// BookTable is the destination definition of Book
func BookTable() TableDef {
	return TableDef{
		Name: models.BookTable,
		Columns: []ColumnDef{
			{Name: "id", Type: Text, Length: 32, PrimaryKey: true},
			{Name: "isbn", Type: Text, Length: 32, NotNull: true, Unique: true},
			{Name: "author", Type: Text, Length: 255, NotNull: true},
			{Name: "category", Type: Text, Length: 32, Enum: categoryValues()},
			{Name: "condition", Type: Text, Length: 32, Enum: conditionValues()},
			{Name: "publication_year", Type: Integer, NotNull: true, Range: &Range{Min: 1800, Max: 2023}},
			{Name: "price", Type: Real, Range: &Range{Min: 10, Max: 100}},
		},
	}
}

// BorrowingRecordTable is the destination definition of BorrowingRecord
func BorrowingRecordTable() TableDef {
	return TableDef{
		Name: models.BorrowingRecordTable,
		Columns: []ColumnDef{
			{Name: "id", Type: Text, Length: 32, PrimaryKey: true},
			{Name: "borrower", Type: Text, Length: 255, NotNull: true},
			{Name: "due_date", Type: Date, NotNull: true},
			{Name: "return_date", Type: Date},
			{Name: "book_id", Type: Text, Length: 32, NotNull: true},
		},
		ForeignKeys: []ForeignKey{
			{
				Table:            models.BorrowingRecordTable,
				Column:           "book_id",
				ReferencedTable:  models.BookTable,
				ReferencedColumn: "id",
				OnDeleteCascade:  true,
			},
		},
	}
}

// MemberTable is the destination definition of Member
func MemberTable() TableDef {
	return TableDef{
		Name: models.MemberTable,
		Columns: []ColumnDef{
			{Name: "id", Type: Text, Length: 32, PrimaryKey: true},
			{Name: "name", Type: Text, Length: 255, NotNull: true},
			{Name: "postcode", Type: Text, Length: 32, NotNull: true},
			{Name: "fine", Type: Real, Range: &Range{Min: 0, Max: 10}},
		},
	}
}

// Tables returns every destination table definition
func Tables() []TableDef {
	return []TableDef{BookTable(), BorrowingRecordTable(), MemberTable()}
}

// Lookup resolves a table definition by entity name, case-insensitively
func Lookup(name string) (TableDef, bool) {
	for _, t := range Tables() {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return TableDef{}, false
}
