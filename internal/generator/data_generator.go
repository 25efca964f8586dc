package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/library-seeder/pkg/models"
)

const (
	bookIDPrefix = "LIB"
	bookIDLength = 8
	idAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	minPublicationYear = 1800
	maxPublicationYear = 2022 // inclusive
	minPrice           = 10.0
	maxPrice           = 100.0 // exclusive before rounding to cents
	maxFine            = 10.0  // exclusive before rounding to cents

	// Days between a return date and its due date, both inclusive
	minReturnOffset = 1
	maxReturnOffset = 29

	// Retries before giving up on finding an unused identifier
	maxUniqueAttempts = 1000
)

// FirstDueDate is the due date of the first borrowing record; each
// following record is due one day later
var FirstDueDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

// conditionWeights matches models.Conditions
var conditionWeights = []float64{0.4, 0.3, 0.2, 0.1}

// Options controls the shape of generated data
type Options struct {
	Seed                  int64
	NullRate              float64 // probability that a nullable column is left empty
	DuplicatePostcodeRate float64 // probability that a member reuses an earlier postcode
}

// Counts is the number of records generated per entity
type Counts struct {
	Books            int
	BorrowingRecords int
	Members          int
}

// DataGenerator generates synthetic library records
type DataGenerator struct {
	Faker   faker.Faker
	Rand    *rand.Rand
	Options Options
	Logger  *logrus.Logger
}

// NewDataGenerator creates a new data generator. Two generators built with
// the same seed produce the same records.
func NewDataGenerator(opts Options, logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Faker:   faker.NewWithSeed(rand.NewSource(opts.Seed)),
		Rand:    rand.New(rand.NewSource(opts.Seed)),
		Options: opts,
		Logger:  logger,
	}
}

// Generate builds a complete dataset. Borrowing records reference the
// generated books.
func (dg *DataGenerator) Generate(counts Counts) (*models.Dataset, error) {
	books, err := dg.GenerateBooks(counts.Books)
	if err != nil {
		return nil, err
	}

	records, err := dg.GenerateBorrowingRecords(counts.BorrowingRecords, books)
	if err != nil {
		return nil, err
	}

	members := dg.GenerateMembers(counts.Members)

	dg.Logger.Infof("Generated %d books, %d borrowing records and %d members",
		len(books), len(records), len(members))

	return &models.Dataset{
		Books:            books,
		BorrowingRecords: records,
		Members:          members,
	}, nil
}

// GenerateBooks generates n books with unique identifiers and ISBNs
func (dg *DataGenerator) GenerateBooks(n int) ([]models.Book, error) {
	books := make([]models.Book, 0, n)
	usedIDs := make(map[string]bool, n)
	usedISBNs := make(map[string]bool, n)

	for i := 0; i < n; i++ {
		id, err := dg.unique(usedIDs, dg.generateBookID)
		if err != nil {
			return nil, fmt.Errorf("book %d: %w", i+1, err)
		}
		isbn, err := dg.unique(usedISBNs, dg.generateISBN)
		if err != nil {
			return nil, fmt.Errorf("book %d: %w", i+1, err)
		}

		book := models.Book{
			ID:              id,
			ISBN:            isbn,
			Author:          dg.Faker.Person().Name(),
			PublicationYear: minPublicationYear + dg.Rand.Intn(maxPublicationYear-minPublicationYear+1),
		}

		if !dg.isNull() {
			category := dg.generateCategory()
			book.Category = &category
		}
		if !dg.isNull() {
			condition := dg.generateCondition()
			book.Condition = &condition
		}
		if !dg.isNull() {
			price := roundCents(minPrice + dg.Rand.Float64()*(maxPrice-minPrice))
			book.Price = &price
		}

		books = append(books, book)
	}

	dg.Logger.Debugf("Generated %d books", len(books))
	return books, nil
}

// GenerateBorrowingRecords generates n borrowing records, each lending one
// of the given books
func (dg *DataGenerator) GenerateBorrowingRecords(n int, books []models.Book) ([]models.BorrowingRecord, error) {
	if n > 0 && len(books) == 0 {
		return nil, fmt.Errorf("cannot generate borrowing records without books")
	}

	records := make([]models.BorrowingRecord, 0, n)
	for i := 0; i < n; i++ {
		due := FirstDueDate.AddDate(0, 0, i)
		returned := due.AddDate(0, 0, -(minReturnOffset + dg.Rand.Intn(maxReturnOffset-minReturnOffset+1)))

		records = append(records, models.BorrowingRecord{
			ID:         sequenceID(i + 1),
			Borrower:   dg.Faker.Person().Name(),
			DueDate:    due,
			ReturnDate: &returned,
			BookID:     books[dg.Rand.Intn(len(books))].ID,
		})
	}

	dg.Logger.Debugf("Generated %d borrowing records", len(records))
	return records, nil
}

// GenerateMembers generates n members. A share of members, set by
// DuplicatePostcodeRate, reuse the postcode of an earlier member.
func (dg *DataGenerator) GenerateMembers(n int) []models.Member {
	members := make([]models.Member, 0, n)
	duplicates := 0

	for i := 0; i < n; i++ {
		member := models.Member{
			ID:   sequenceID(i + 1),
			Name: dg.Faker.Person().Name(),
		}

		if len(members) > 0 && dg.Rand.Float64() < dg.Options.DuplicatePostcodeRate {
			member.Postcode = members[dg.Rand.Intn(len(members))].Postcode
			duplicates++
		} else {
			member.Postcode = dg.Faker.Address().PostCode()
		}

		if !dg.isNull() {
			fine := roundCents(dg.Rand.Float64() * maxFine)
			member.Fine = &fine
		}

		members = append(members, member)
	}

	dg.Logger.Debugf("Generated %d members (%d with duplicated postcodes)", len(members), duplicates)
	return members
}

// unique calls gen until it returns a value not yet in used
func (dg *DataGenerator) unique(used map[string]bool, gen func() string) (string, error) {
	for attempt := 0; attempt < maxUniqueAttempts; attempt++ {
		value := gen()
		if !used[value] {
			used[value] = true
			return value, nil
		}
	}
	return "", fmt.Errorf("no unused value after %d attempts", maxUniqueAttempts)
}

// generateBookID returns the fixed prefix followed by random alphanumerics
func (dg *DataGenerator) generateBookID() string {
	suffix := make([]byte, bookIDLength-len(bookIDPrefix))
	for i := range suffix {
		suffix[i] = idAlphabet[dg.Rand.Intn(len(idAlphabet))]
	}
	return bookIDPrefix + string(suffix)
}

// generateISBN returns four dash-joined, zero-padded three digit groups
func (dg *DataGenerator) generateISBN() string {
	return fmt.Sprintf("%03d-%03d-%03d-%03d",
		dg.Rand.Intn(999), dg.Rand.Intn(999), dg.Rand.Intn(999), dg.Rand.Intn(999))
}

func (dg *DataGenerator) generateCategory() models.Category {
	return models.Categories[dg.Rand.Intn(len(models.Categories))]
}

// generateCondition samples a condition with conditionWeights
func (dg *DataGenerator) generateCondition() models.Condition {
	r := dg.Rand.Float64()
	for i, w := range conditionWeights {
		if r < w {
			return models.Conditions[i]
		}
		r -= w
	}
	return models.Conditions[len(models.Conditions)-1]
}

func (dg *DataGenerator) isNull() bool {
	return dg.Options.NullRate > 0 && dg.Rand.Float64() < dg.Options.NullRate
}

// sequenceID returns a five digit zero-padded identifier
func sequenceID(n int) string {
	return fmt.Sprintf("%05d", n)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
