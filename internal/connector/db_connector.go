package connector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/library-seeder/internal/schema"
)

// DatabaseConnector handles the destination store connection and statement execution
type DatabaseConnector struct {
	Driver string
	DSN    string
	DB     *sqlx.DB
	Logger *logrus.Logger
}

// NewDatabaseConnector creates a new database connector. For sqlite3 the DSN
// may be a plain file path; an empty DSN falls back to SEEDER_DB_PATH.
func NewDatabaseConnector(driver, dsn string, logger *logrus.Logger) *DatabaseConnector {
	if driver == "" {
		driver = getEnvOrDefault("SEEDER_DRIVER", schema.SQLite)
	}
	if dsn == "" {
		if driver == schema.MySQL {
			dsn = getEnvOrDefault("SEEDER_DSN", "")
		} else {
			dsn = getEnvOrDefault("SEEDER_DB_PATH", "library.db")
		}
	}

	return &DatabaseConnector{
		Driver: driver,
		DSN:    dsn,
		Logger: logger,
	}
}

// Connect establishes a connection to the destination store
func (dc *DatabaseConnector) Connect(ctx context.Context) error {
	dsn, err := dc.dataSourceName()
	if err != nil {
		return err
	}

	db, err := sqlx.Open(dc.Driver, dsn)
	if err != nil {
		dc.Logger.Errorf("Error opening %s database: %v", dc.Driver, err)
		return err
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Driver, err)
		db.Close()
		return err
	}

	dc.DB = db
	dc.Logger.Debugf("Connected to %s database", dc.Driver)
	return nil
}

// dataSourceName normalizes the DSN so that the store enforces foreign keys
func (dc *DatabaseConnector) dataSourceName() (string, error) {
	switch dc.Driver {
	case schema.SQLite:
		if dc.DSN == "" {
			return "", fmt.Errorf("sqlite database path must be provided")
		}
		if strings.HasPrefix(dc.DSN, "file:") || strings.Contains(dc.DSN, "?") {
			return enforceForeignKeys(dc.DSN)
		}
		// Ensure directory exists so first-run succeeds
		if dir := filepath.Dir(dc.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create db dir: %w", err)
			}
		}
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dc.DSN), nil
	case schema.MySQL:
		cfg, err := mysql.ParseDSN(dc.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		if cfg.DBName == "" {
			return "", fmt.Errorf("mysql dsn must name a database")
		}
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", dc.Driver)
	}
}

// enforceForeignKeys turns foreign key enforcement on in a caller-supplied
// sqlite DSN, overriding any _fk or _foreign_keys setting it carries
func enforceForeignKeys(dsn string) (string, error) {
	base, query, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("invalid sqlite dsn: %w", err)
	}
	params.Del("_fk")
	params.Set("_foreign_keys", "1")
	return base + "?" + params.Encode(), nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Debugf("%s connection closed", dc.Driver)
		}
		dc.DB = nil
	}
}

// Conn returns a single dedicated connection so that session state (MySQL
// variables, SQLite pragmas) holds for every statement run on it
func (dc *DatabaseConnector) Conn(ctx context.Context) (*sqlx.Conn, error) {
	if dc.DB == nil {
		if err := dc.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return dc.DB.Connx(ctx)
}

// Statement is one query with its arguments
type Statement struct {
	Query string
	Args  []interface{}
}

// StatementError reports which statement of a batch failed
type StatementError struct {
	Index int
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d: %v", e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// ExecuteStatement executes a SQL statement on conn and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(ctx context.Context, conn *sqlx.Conn, query string, params ...interface{}) (int64, error) {
	result, err := conn.ExecContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		dc.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// ExecuteMany executes the statements on conn inside one transaction. Any
// failure rolls back every statement; the failing one is reported as a
// *StatementError.
func (dc *DatabaseConnector) ExecuteMany(ctx context.Context, conn *sqlx.Conn, statements []Statement) (int64, error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		dc.Logger.Errorf("Error starting transaction: %v", err)
		return 0, err
	}

	var totalAffected int64

	for i, stmt := range statements {
		result, err := tx.ExecContext(ctx, stmt.Query, stmt.Args...)
		if err != nil {
			dc.Logger.Errorf("Error executing batch statement %d: %v", i, err)
			tx.Rollback()
			return 0, &StatementError{Index: i, Err: err}
		}

		affected, err := result.RowsAffected()
		if err != nil {
			dc.Logger.Errorf("Error getting affected rows: %v", err)
			tx.Rollback()
			return 0, err
		}

		totalAffected += affected
	}

	if err := tx.Commit(); err != nil {
		dc.Logger.Errorf("Error committing transaction: %v", err)
		return 0, err
	}

	return totalAffected, nil
}

// CountRows returns the number of rows in a table
func (dc *DatabaseConnector) CountRows(ctx context.Context, table string) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(ctx); err != nil {
			return 0, err
		}
	}

	dialect, err := schema.NewDialect(dc.Driver)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", dialect.Quote(table))
	if err := dc.DB.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}
	return count, nil
}

// MySQL server error numbers raised by constraint checks
const (
	mysqlErrBadNull         = 1048
	mysqlErrDupEntry        = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
	mysqlErrCheckViolated   = 3819
)

// IsConstraintError reports whether err was raised by a primary key, unique,
// not-null, check or foreign key constraint of the store
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrBadNull, mysqlErrDupEntry, mysqlErrRowIsReferenced, mysqlErrNoReferencedRow, mysqlErrCheckViolated:
			return true
		}
	}

	return false
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
