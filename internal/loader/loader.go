package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/library-seeder/internal/connector"
	"github.com/vitebski/library-seeder/internal/schema"
	"github.com/vitebski/library-seeder/pkg/models"
)

const defaultBatchSize = 100

// Loader replaces destination tables with the contents of CSV files
type Loader struct {
	Driver    string
	DSN       string
	BatchSize int
	Logger    *logrus.Logger
}

// NewLoader creates a loader for the given destination store
func NewLoader(driver, dsn string, logger *logrus.Logger) *Loader {
	return &Loader{
		Driver:    driver,
		DSN:       dsn,
		BatchSize: defaultBatchSize,
		Logger:    logger,
	}
}

// row is one parsed data line of a source file
type row struct {
	line   int
	values []interface{}
}

// LoadFile performs a full replace of table with the rows of the CSV file at
// path: an existing table is dropped, recreated with its constraints and
// filled. Nothing is merged with prior contents. Inserts run in a single
// transaction, so a rejected row leaves the new table empty.
func (l *Loader) LoadFile(ctx context.Context, path, table string) (*models.LoadResult, error) {
	def, ok := schema.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("unknown table: %s", table)
	}

	dialect, err := schema.NewDialect(l.Driver)
	if err != nil {
		return nil, err
	}

	rows, err := readRows(path, def)
	if err != nil {
		return nil, err
	}

	db := connector.NewDatabaseConnector(l.Driver, l.DSN, l.Logger)
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	defer db.Disconnect()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := ReplaceTable(ctx, db, conn, dialect, def); err != nil {
		return nil, err
	}

	if err := l.insertRows(ctx, db, conn, dialect, def, rows); err != nil {
		return nil, err
	}

	l.Logger.Infof("Loaded %d rows from %s into %s", len(rows), path, def.Name)
	return &models.LoadResult{Table: def.Name, Path: path, Rows: len(rows)}, nil
}

// ReplaceTable drops the table if it exists and creates it with every
// declared constraint. This is destructive and cannot be undone.
func ReplaceTable(ctx context.Context, db *connector.DatabaseConnector, conn *sqlx.Conn, dialect schema.Dialect, def schema.TableDef) error {
	for _, stmt := range dialect.DropTableStatements(def.Name) {
		if _, err := db.ExecuteStatement(ctx, conn, stmt); err != nil {
			return fmt.Errorf("drop table %s: %w", def.Name, err)
		}
	}
	if _, err := db.ExecuteStatement(ctx, conn, schema.CreateTableSQL(dialect, def)); err != nil {
		return fmt.Errorf("create table %s: %w", def.Name, err)
	}
	return nil
}

// insertRows inserts every row in one transaction, one multi-row INSERT per batch
func (l *Loader) insertRows(ctx context.Context, db *connector.DatabaseConnector, conn *sqlx.Conn, dialect schema.Dialect, def schema.TableDef, rows []row) error {
	columns := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		columns[i] = dialect.Quote(col.Name)
	}

	batchSize := l.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var statements []connector.Statement
	var batches [][]row
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		qb := squirrel.Insert(dialect.Quote(def.Name)).
			Columns(columns...).
			PlaceholderFormat(squirrel.Question)
		for _, r := range batch {
			qb = qb.Values(r.values...)
		}

		query, args, err := qb.ToSql()
		if err != nil {
			return fmt.Errorf("build insert for %s: %w", def.Name, err)
		}
		statements = append(statements, connector.Statement{Query: query, Args: args})
		batches = append(batches, batch)
	}

	if _, err := db.ExecuteMany(ctx, conn, statements); err != nil {
		if !connector.IsConstraintError(err) {
			return fmt.Errorf("insert into %s: %w", def.Name, err)
		}

		violation := &ConstraintViolation{Table: def.Name, Err: err}
		var stmtErr *connector.StatementError
		if errors.As(err, &stmtErr) {
			batch := batches[stmtErr.Index]
			violation.FirstLine = batch[0].line
			violation.LastLine = batch[len(batch)-1].line
			violation.Err = stmtErr.Err
		}
		l.Logger.Errorf("Rejected %v", violation)
		return violation
	}

	l.Logger.Debugf("Inserted %d rows into %s in %d batch(es)", len(rows), def.Name, len(statements))
	return nil
}

// readRows parses the whole file before the store is touched, so a
// malformed file never replaces an existing table
func readRows(path string, def schema.TableDef) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &FormatError{Path: path, Line: 1, Reason: "missing header row"}
	}
	if err != nil {
		return nil, csvFormatError(path, err)
	}

	positions, err := mapHeader(header, def)
	if err != nil {
		return nil, &FormatError{Path: path, Line: 1, Reason: err.Error()}
	}

	var rows []row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvFormatError(path, err)
		}

		// Line of the record's first field, which is where the record starts
		line, _ := reader.FieldPos(0)
		values := make([]interface{}, len(def.Columns))
		for i, col := range def.Columns {
			v, err := col.Parse(record[positions[i]])
			if err != nil {
				return nil, &FormatError{Path: path, Line: line, Reason: err.Error(), Err: err}
			}
			values[i] = v
		}
		rows = append(rows, row{line: line, values: values})
	}

	return rows, nil
}

// mapHeader returns, for each column of def, its position in the header.
// Every column must appear exactly once and nothing else may appear.
func mapHeader(header []string, def schema.TableDef) ([]int, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if _, known := def.Column(name); !known {
			return nil, fmt.Errorf("unexpected column %q for table %s", name, def.Name)
		}
		index[name] = i
	}

	positions := make([]int, len(def.Columns))
	var missing []string
	for i, col := range def.Columns {
		pos, ok := index[col.Name]
		if !ok {
			missing = append(missing, col.Name)
			continue
		}
		positions[i] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return positions, nil
}

func csvFormatError(path string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		reason := parseErr.Err.Error()
		if errors.Is(parseErr.Err, csv.ErrFieldCount) {
			reason = "wrong number of columns"
		}
		return &FormatError{Path: path, Line: parseErr.Line, Reason: reason, Err: err}
	}
	return &FormatError{Path: path, Reason: "unreadable file", Err: err}
}
