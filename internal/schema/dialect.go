package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported destination drivers
const (
	SQLite = "sqlite3"
	MySQL  = "mysql"
)

// Dialect renders DDL for one destination store
type Dialect interface {
	Name() string
	Quote(ident string) string
	ColumnType(col ColumnDef) string
	TableOptions() string
	DropTableStatements(table string) []string
}

// NewDialect returns the dialect for a driver name
func NewDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", SQLite, "sqlite":
		return sqliteDialect{}, nil
	case MySQL:
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return SQLite }

func (sqliteDialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) ColumnType(col ColumnDef) string {
	return col.Type.String()
}

func (sqliteDialect) TableOptions() string { return "" }

func (d sqliteDialect) DropTableStatements(table string) []string {
	return []string{"DROP TABLE IF EXISTS " + d.Quote(table)}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return MySQL }

func (mysqlDialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) ColumnType(col ColumnDef) string {
	switch col.Type {
	case Text:
		length := col.Length
		if length <= 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length)
	case Integer:
		return "INT"
	case Real:
		return "DOUBLE"
	case Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

func (mysqlDialect) TableOptions() string {
	return " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
}

// MySQL refuses to drop a table that is still referenced, so checks are
// switched off for the session around the drop.
func (d mysqlDialect) DropTableStatements(table string) []string {
	return []string{
		"SET FOREIGN_KEY_CHECKS = 0",
		"DROP TABLE IF EXISTS " + d.Quote(table),
		"SET FOREIGN_KEY_CHECKS = 1",
	}
}

// CreateTableSQL renders the CREATE TABLE statement for a table definition
func CreateTableSQL(d Dialect, t TableDef) string {
	var defs []string

	for _, col := range t.Columns {
		parts := []string{d.Quote(col.Name), d.ColumnType(col)}
		// SQLite accepts NULL in a non-INTEGER primary key unless told otherwise
		if col.PrimaryKey {
			parts = append(parts, "PRIMARY KEY NOT NULL")
		} else if col.NotNull {
			parts = append(parts, "NOT NULL")
		}
		if col.Unique {
			parts = append(parts, "UNIQUE")
		}
		if check := checkExpr(d, col); check != "" {
			parts = append(parts, "CHECK ("+check+")")
		}
		defs = append(defs, strings.Join(parts, " "))
	}

	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
			d.Quote(fk.Column), d.Quote(fk.ReferencedTable), d.Quote(fk.ReferencedColumn))
		if fk.OnDeleteCascade {
			clause += " ON DELETE CASCADE"
		}
		defs = append(defs, clause)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)%s",
		d.Quote(t.Name), strings.Join(defs, ",\n\t"), d.TableOptions())
}

func checkExpr(d Dialect, col ColumnDef) string {
	name := d.Quote(col.Name)

	var cond string
	switch {
	case len(col.Enum) > 0:
		quoted := make([]string, len(col.Enum))
		for i, v := range col.Enum {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		cond = fmt.Sprintf("%s IN (%s)", name, strings.Join(quoted, ", "))
	case col.Range != nil:
		cond = fmt.Sprintf("%s BETWEEN %s AND %s", name, formatBound(col.Range.Min), formatBound(col.Range.Max))
	default:
		return ""
	}

	if col.Nullable() {
		return fmt.Sprintf("%s IS NULL OR %s", name, cond)
	}
	return cond
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
