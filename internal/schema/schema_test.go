package schema

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/library-seeder/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func TestNewSchemaAnalyzer(t *testing.T) {
	logger := quietLogger()
	analyzer := NewSchemaAnalyzer(Tables(), logger)

	require.NotNil(t, analyzer)
	assert.Equal(t, logger, analyzer.Logger)
	assert.Equal(t, []string{models.BookTable, models.BorrowingRecordTable, models.MemberTable}, analyzer.Tables)
	assert.NotNil(t, analyzer.ForeignKeys)
	assert.NotNil(t, analyzer.TableIndexMap)
	assert.NotNil(t, analyzer.IndexTableMap)
}

func TestGetTableInsertionOrder(t *testing.T) {
	// Declare the dependent table first so the sort has to move it
	defs := []TableDef{BorrowingRecordTable(), MemberTable(), BookTable()}
	analyzer := NewSchemaAnalyzer(defs, quietLogger())
	require.NoError(t, analyzer.AnalyzeSchema())

	order, err := analyzer.GetTableInsertionOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)

	position := make(map[string]int)
	for i, table := range order {
		position[table] = i
	}
	assert.Less(t, position[models.BookTable], position[models.BorrowingRecordTable])
	assert.Empty(t, analyzer.GetCircularTables())
	assert.Len(t, analyzer.ForeignKeys[models.BorrowingRecordTable], 1)
}

func TestGetTableInsertionOrderDetectsCycle(t *testing.T) {
	a := TableDef{
		Name:        "a",
		Columns:     []ColumnDef{{Name: "id", Type: Text, PrimaryKey: true}, {Name: "b_id", Type: Text}},
		ForeignKeys: []ForeignKey{{Table: "a", Column: "b_id", ReferencedTable: "b", ReferencedColumn: "id"}},
	}
	b := TableDef{
		Name:        "b",
		Columns:     []ColumnDef{{Name: "id", Type: Text, PrimaryKey: true}, {Name: "a_id", Type: Text}},
		ForeignKeys: []ForeignKey{{Table: "b", Column: "a_id", ReferencedTable: "a", ReferencedColumn: "id"}},
	}
	analyzer := NewSchemaAnalyzer([]TableDef{a, b}, quietLogger())
	require.NoError(t, analyzer.AnalyzeSchema())

	_, err := analyzer.GetTableInsertionOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a, b")
	assert.Equal(t, map[string]bool{"a": true, "b": true}, analyzer.GetCircularTables())
}

func TestAnalyzeSchemaUnknownReference(t *testing.T) {
	analyzer := NewSchemaAnalyzer([]TableDef{BorrowingRecordTable()}, quietLogger())
	err := analyzer.AnalyzeSchema()
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.BookTable)
}

func TestInsertionOrderSubset(t *testing.T) {
	order, err := InsertionOrder([]string{"borrowingrecord", "book"}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{models.BookTable, models.BorrowingRecordTable}, order)

	// Without Book selected the foreign key is not an ordering constraint
	order, err = InsertionOrder([]string{models.BorrowingRecordTable}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{models.BorrowingRecordTable}, order)

	_, err = InsertionOrder([]string{"Shelf"}, quietLogger())
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	def, ok := Lookup("member")
	require.True(t, ok)
	assert.Equal(t, models.MemberTable, def.Name)
	assert.Equal(t, []string{"id", "name", "postcode", "fine"}, def.ColumnNames())

	_, ok = Lookup("Shelf")
	assert.False(t, ok)
}

func TestColumnParse(t *testing.T) {
	book := BookTable()

	year, _ := book.Column("publication_year")
	v, err := year.Parse("1999")
	require.NoError(t, err)
	assert.Equal(t, int64(1999), v)
	_, err = year.Parse("nineteen")
	assert.Error(t, err)

	price, _ := book.Column("price")
	v, err = price.Parse("45.50")
	require.NoError(t, err)
	assert.Equal(t, 45.5, v)

	v, err = price.Parse("")
	require.NoError(t, err)
	assert.Nil(t, v)

	due, _ := BorrowingRecordTable().Column("due_date")
	v, err = due.Parse("2024-03-01 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", v)
	_, err = due.Parse("03/01/2024")
	assert.Error(t, err)
}

func TestCreateTableSQLSQLite(t *testing.T) {
	d, err := NewDialect(SQLite)
	require.NoError(t, err)

	ddl := CreateTableSQL(d, BookTable())
	assert.True(t, strings.HasPrefix(ddl, `CREATE TABLE "Book" (`))
	assert.Contains(t, ddl, `"id" TEXT PRIMARY KEY NOT NULL`)
	assert.Contains(t, ddl, `"isbn" TEXT NOT NULL UNIQUE`)
	assert.Contains(t, ddl, `"category" IS NULL OR "category" IN ('Fiction', 'Non-Fiction', 'Science', 'History', 'Biography')`)
	assert.Contains(t, ddl, `CHECK ("publication_year" BETWEEN 1800 AND 2023)`)
	assert.Contains(t, ddl, `CHECK ("price" IS NULL OR "price" BETWEEN 10 AND 100)`)

	ddl = CreateTableSQL(d, BorrowingRecordTable())
	assert.Contains(t, ddl, `FOREIGN KEY ("book_id") REFERENCES "Book"("id") ON DELETE CASCADE`)

	assert.Equal(t, []string{`DROP TABLE IF EXISTS "Member"`}, d.DropTableStatements(models.MemberTable))
}

func TestCreateTableSQLMySQL(t *testing.T) {
	d, err := NewDialect(MySQL)
	require.NoError(t, err)

	ddl := CreateTableSQL(d, BookTable())
	assert.Contains(t, ddl, "`id` VARCHAR(32) PRIMARY KEY NOT NULL")
	assert.Contains(t, ddl, "`condition` VARCHAR(32)")
	assert.Contains(t, ddl, "`publication_year` INT NOT NULL")
	assert.Contains(t, ddl, "`price` DOUBLE")
	assert.True(t, strings.HasSuffix(ddl, "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"))

	drops := d.DropTableStatements(models.BookTable)
	require.Len(t, drops, 3)
	assert.Equal(t, "DROP TABLE IF EXISTS `Book`", drops[1])

	_, err = NewDialect("oracle")
	assert.Error(t, err)
}
