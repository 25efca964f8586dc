package populator

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/library-seeder/internal/generator"
	"github.com/vitebski/library-seeder/internal/loader"
	"github.com/vitebski/library-seeder/internal/schema"
	"github.com/vitebski/library-seeder/internal/writer"
	"github.com/vitebski/library-seeder/pkg/models"
)

// DatabasePopulator runs the generate, write and load steps once
type DatabasePopulator struct {
	Generator    *generator.DataGenerator
	Writer       *writer.CSVWriter
	Loader       *loader.Loader
	Counts       generator.Counts
	Paths        map[string]string
	Expected     map[string]int
	LoadResults  []models.LoadResult
	FailedTables map[string]bool
	Logger       *logrus.Logger
}

// NewDatabasePopulator creates a new database populator
func NewDatabasePopulator(
	dataGenerator *generator.DataGenerator,
	csvWriter *writer.CSVWriter,
	tableLoader *loader.Loader,
	counts generator.Counts,
	logger *logrus.Logger,
) *DatabasePopulator {
	return &DatabasePopulator{
		Generator:    dataGenerator,
		Writer:       csvWriter,
		Loader:       tableLoader,
		Counts:       counts,
		Paths:        make(map[string]string),
		Expected:     make(map[string]int),
		FailedTables: make(map[string]bool),
		Logger:       logger,
	}
}

// GenerateFiles generates a dataset and writes one CSV file per table
func (dp *DatabasePopulator) GenerateFiles() error {
	dataset, err := dp.Generator.Generate(dp.Counts)
	if err != nil {
		return fmt.Errorf("generate dataset: %w", err)
	}

	paths, err := dp.Writer.WriteDataset(dataset)
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	dp.Paths = paths
	dp.Expected = dataset.RowCounts()
	return nil
}

// UseExistingFiles points the populator at files written by an earlier run
func (dp *DatabasePopulator) UseExistingFiles() error {
	paths := make(map[string]string)
	var missing []string

	for _, def := range schema.Tables() {
		path := dp.Writer.PathFor(def.Name)
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
			continue
		}
		paths[def.Name] = path
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing source files: %v", missing)
	}

	dp.Paths = paths
	dp.Expected = make(map[string]int)
	return nil
}

// PopulateDatabase loads every file into its table, referenced tables first.
// The first failure ends the run; tables after it are not attempted.
func (dp *DatabasePopulator) PopulateDatabase(ctx context.Context) (*models.PopulationResult, error) {
	tables := make([]string, 0, len(dp.Paths))
	for table := range dp.Paths {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	orderedTables, err := schema.InsertionOrder(tables, dp.Logger)
	if err != nil {
		return nil, err
	}

	result := &models.PopulationResult{}

	for _, table := range orderedTables {
		dp.Logger.Infof("Loading table: %s", table)

		loaded, err := dp.Loader.LoadFile(ctx, dp.Paths[table], table)
		if err != nil {
			dp.FailedTables[table] = true
			result.FailedTables = append(result.FailedTables, table)
			dp.Logger.Errorf("Error loading table %s: %v", table, err)
			return result, err
		}

		dp.LoadResults = append(dp.LoadResults, *loaded)
		result.SuccessfulTables = append(result.SuccessfulTables, table)
		result.TotalRecords += loaded.Rows

		// Files from an earlier run carry no generated counts
		if _, ok := dp.Expected[table]; !ok {
			dp.Expected[table] = loaded.Rows
		}
	}

	return result, nil
}
