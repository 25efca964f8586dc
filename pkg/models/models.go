package models

import "time"

// Table names as they appear in the destination store
const (
	BookTable            = "Book"
	BorrowingRecordTable = "BorrowingRecord"
	MemberTable          = "Member"
)

// Category is the nominal genre of a book
type Category string

const (
	Fiction    Category = "Fiction"
	NonFiction Category = "Non-Fiction"
	Science    Category = "Science"
	History    Category = "History"
	Biography  Category = "Biography"
)

// Categories lists every valid category
var Categories = []Category{Fiction, NonFiction, Science, History, Biography}

// Condition is the ordinal physical state of a book, best first
type Condition string

const (
	Excellent Condition = "Excellent"
	Good      Condition = "Good"
	Fair      Condition = "Fair"
	Poor      Condition = "Poor"
)

// Conditions lists every valid condition, ordered from best to worst
var Conditions = []Condition{Excellent, Good, Fair, Poor}

// Rank returns the ordinal position of the condition (0 is best), or -1 if unknown
func (c Condition) Rank() int {
	for i, cond := range Conditions {
		if cond == c {
			return i
		}
	}
	return -1
}

// Book represents a row of the Book table
type Book struct {
	ID              string     `db:"id"`
	ISBN            string     `db:"isbn"`
	Author          string     `db:"author"`
	Category        *Category  `db:"category"`
	Condition       *Condition `db:"condition"`
	PublicationYear int        `db:"publication_year"`
	Price           *float64   `db:"price"`
}

// BorrowingRecord represents a row of the BorrowingRecord table
type BorrowingRecord struct {
	ID         string     `db:"id"`
	Borrower   string     `db:"borrower"`
	DueDate    time.Time  `db:"due_date"`
	ReturnDate *time.Time `db:"return_date"`
	BookID     string     `db:"book_id"`
}

// Member represents a row of the Member table
type Member struct {
	ID       string   `db:"id"`
	Name     string   `db:"name"`
	Postcode string   `db:"postcode"`
	Fine     *float64 `db:"fine"`
}

// Dataset holds one generated set of all three entities
type Dataset struct {
	Books            []Book
	BorrowingRecords []BorrowingRecord
	Members          []Member
}

// RowCounts returns the number of records per table
func (d *Dataset) RowCounts() map[string]int {
	return map[string]int{
		BookTable:            len(d.Books),
		BorrowingRecordTable: len(d.BorrowingRecords),
		MemberTable:          len(d.Members),
	}
}

// LoadResult represents the outcome of loading one file into one table
type LoadResult struct {
	Table string
	Path  string
	Rows  int
}

// PopulationResult represents the result of the population process
type PopulationResult struct {
	SuccessfulTables []string
	FailedTables     []string
	TotalRecords     int
}

// VerificationResult represents the result of the verification process
type VerificationResult struct {
	Success          bool
	EmptyTables      []string
	MismatchedTables map[string]int
}
