package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourbasic/graph"
)

// SchemaAnalyzer builds the dependency graph between destination tables and
// sorts them for loading
type SchemaAnalyzer struct {
	Definitions     map[string]TableDef
	Tables          []string
	ForeignKeys     map[string][]ForeignKey
	DependencyGraph *graph.Mutable
	TableIndexMap   map[string]int
	IndexTableMap   map[int]string
	Logger          *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(defs []TableDef, logger *logrus.Logger) *SchemaAnalyzer {
	sa := &SchemaAnalyzer{
		Definitions:   make(map[string]TableDef),
		ForeignKeys:   make(map[string][]ForeignKey),
		TableIndexMap: make(map[string]int),
		IndexTableMap: make(map[int]string),
		Logger:        logger,
	}
	for _, def := range defs {
		sa.Definitions[def.Name] = def
		sa.Tables = append(sa.Tables, def.Name)
	}
	return sa
}

// AnalyzeSchema builds the dependency graph. An edge points from a
// referenced table to the table holding the foreign key.
func (sa *SchemaAnalyzer) AnalyzeSchema() error {
	for i, table := range sa.Tables {
		sa.TableIndexMap[table] = i
		sa.IndexTableMap[i] = table
	}

	sa.DependencyGraph = graph.New(len(sa.Tables))

	for _, table := range sa.Tables {
		for _, fk := range sa.Definitions[table].ForeignKeys {
			sa.ForeignKeys[table] = append(sa.ForeignKeys[table], fk)

			// Self-references do not constrain the order
			if fk.ReferencedTable == table {
				continue
			}

			refIdx, ok := sa.TableIndexMap[fk.ReferencedTable]
			if !ok {
				return fmt.Errorf("table %s references unknown table %s", table, fk.ReferencedTable)
			}
			sa.DependencyGraph.Add(refIdx, sa.TableIndexMap[table])
			sa.Logger.Debugf("Dependency: %s.%s -> %s.%s", table, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
		}
	}

	return nil
}

// GetCircularTables returns the tables that are part of a dependency cycle
func (sa *SchemaAnalyzer) GetCircularTables() map[string]bool {
	circular := make(map[string]bool)
	if sa.DependencyGraph == nil {
		return circular
	}
	for _, component := range graph.StrongComponents(sa.DependencyGraph) {
		if len(component) < 2 {
			continue
		}
		for _, idx := range component {
			circular[sa.IndexTableMap[idx]] = true
		}
	}
	return circular
}

// GetTableInsertionOrder returns the tables sorted so that every referenced
// table comes before the tables that reference it
func (sa *SchemaAnalyzer) GetTableInsertionOrder() ([]string, error) {
	if sa.DependencyGraph == nil {
		if err := sa.AnalyzeSchema(); err != nil {
			return nil, err
		}
	}

	order, ok := graph.TopSort(sa.DependencyGraph)
	if !ok {
		var cycle []string
		for table := range sa.GetCircularTables() {
			cycle = append(cycle, table)
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("circular dependency between tables: %s", strings.Join(cycle, ", "))
	}

	orderedTables := make([]string, 0, len(order))
	for _, idx := range order {
		orderedTables = append(orderedTables, sa.IndexTableMap[idx])
	}
	return orderedTables, nil
}

// InsertionOrder sorts the given table names by their dependencies
func InsertionOrder(names []string, logger *logrus.Logger) ([]string, error) {
	var defs []TableDef
	for _, name := range names {
		def, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown table: %s", name)
		}
		defs = append(defs, def)
	}

	// Only keep foreign keys between the selected tables
	selected := make(map[string]bool)
	for _, def := range defs {
		selected[def.Name] = true
	}
	for i := range defs {
		var fks []ForeignKey
		for _, fk := range defs[i].ForeignKeys {
			if selected[fk.ReferencedTable] {
				fks = append(fks, fk)
			}
		}
		defs[i].ForeignKeys = fks
	}

	sa := NewSchemaAnalyzer(defs, logger)
	if err := sa.AnalyzeSchema(); err != nil {
		return nil, err
	}
	return sa.GetTableInsertionOrder()
}
