package utils

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/library-seeder/internal/connector"
	"github.com/vitebski/library-seeder/internal/schema"
	"github.com/vitebski/library-seeder/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("SEEDER_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file.
// Variables already set in the environment take precedence.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
		logger.Debugf("No %s file found, using existing environment variables", envFile)
		return false
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return false
	}
	logger.Infof("Loaded environment variables from %s", envFile)

	// Log all available SEEDER_* environment variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "SEEDER_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					// Mask DSN, it may carry a password
					if parts[0] == "SEEDER_DSN" {
						logger.Debugf("%s=********", parts[0])
					} else {
						logger.Debugf("%s=%s", parts[0], parts[1])
					}
				}
			}
		}
	}

	return true
}

// PrintSchemaAnalysis prints the destination tables, their relationships and the load order
func PrintSchemaAnalysis(sa *schema.SchemaAnalyzer, dialect schema.Dialect) error {
	orderedTables, err := sa.GetTableInsertionOrder()
	if err != nil {
		return err
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("DESTINATION SCHEMA ANALYSIS REPORT")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("\n1. BASIC STATISTICS")
	fmt.Printf("   Dialect: %s\n", dialect.Name())
	fmt.Printf("   Total tables: %d\n", len(sa.Tables))
	fmt.Printf("   Tables with foreign keys: %d\n", len(sa.ForeignKeys))

	fmt.Println("\n2. FOREIGN KEYS")
	for _, table := range sa.Tables {
		for _, fk := range sa.ForeignKeys[table] {
			action := ""
			if fk.OnDeleteCascade {
				action = " ON DELETE CASCADE"
			}
			fmt.Printf("   %s.%s -> %s.%s%s\n", fk.Table, fk.Column, fk.ReferencedTable, fk.ReferencedColumn, action)
		}
	}

	fmt.Println("\n3. TABLE LOAD ORDER")
	for i, table := range orderedTables {
		category := "Standalone"
		if _, hasFKs := sa.ForeignKeys[table]; hasFKs {
			category = "Dependent"
		}
		fmt.Printf("   %3d. %s (%s)\n", i+1, table, category)
	}

	fmt.Println("\n4. TABLE DEFINITIONS")
	for _, table := range orderedTables {
		fmt.Printf("\n%s;\n", schema.CreateTableSQL(dialect, sa.Definitions[table]))
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	return nil
}

// PrintSummary prints a summary of the population process
func PrintSummary(result *models.PopulationResult) {
	totalSuccessful := len(result.SuccessfulTables)
	totalFailed := len(result.FailedTables)

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("DATABASE POPULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Total tables processed: %d\n", totalSuccessful+totalFailed)
	fmt.Printf("Successfully loaded tables: %s\n", color.GreenString("%d", totalSuccessful))
	if totalFailed > 0 {
		fmt.Printf("Failed tables: %s\n", color.RedString("%d", totalFailed))
	} else {
		fmt.Printf("Failed tables: %d\n", totalFailed)
	}
	fmt.Printf("Total records inserted: %d\n", result.TotalRecords)

	if len(result.FailedTables) > 0 {
		fmt.Println("\nFailed tables:")
		for _, table := range result.FailedTables {
			fmt.Printf("  - %s\n", color.RedString(table))
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// VerifyTablePopulation checks that every table holds exactly the expected number of records
func VerifyTablePopulation(ctx context.Context, db *connector.DatabaseConnector, expected map[string]int, logger *logrus.Logger) *models.VerificationResult {
	logger.Infof("Verifying row counts of %d table(s)...", len(expected))

	result := &models.VerificationResult{
		EmptyTables:      []string{},
		MismatchedTables: make(map[string]int),
	}

	tables := make([]string, 0, len(expected))
	for table := range expected {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		want := expected[table]
		count, err := db.CountRows(ctx, table)
		if err != nil {
			logger.Warningf("Could not verify record count for table %s: %v", table, err)
			result.EmptyTables = append(result.EmptyTables, table)
			continue
		}

		if count == 0 && want > 0 {
			logger.Warningf("Table %s has no records", table)
			result.EmptyTables = append(result.EmptyTables, table)
		} else if count != int64(want) {
			logger.Warningf("Table %s has %d/%d expected records", table, count, want)
			result.MismatchedTables[table] = int(count)
		}
	}

	result.Success = len(result.EmptyTables) == 0 && len(result.MismatchedTables) == 0

	if result.Success {
		logger.Info("Verification successful: All tables hold the expected number of records")
	} else {
		if len(result.EmptyTables) > 0 {
			logger.Errorf("Verification failed: %d tables have no records", len(result.EmptyTables))
		}
		if len(result.MismatchedTables) > 0 {
			logger.Errorf("Verification failed: %d tables have unexpected record counts", len(result.MismatchedTables))
		}
	}

	return result
}

// PrintVerificationResults prints the results of the table population verification
func PrintVerificationResults(result *models.VerificationResult, expected map[string]int) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("TABLE POPULATION VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if result.Success {
		color.Green("✅ All tables hold the expected number of records")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	if len(result.EmptyTables) > 0 {
		color.Red("❌ %d tables have no records:", len(result.EmptyTables))
		for _, table := range result.EmptyTables {
			fmt.Printf("  - %s\n", table)
		}
		fmt.Println()
	}

	if len(result.MismatchedTables) > 0 {
		color.Yellow("⚠️  %d tables have unexpected record counts:", len(result.MismatchedTables))
		for table, count := range result.MismatchedTables {
			fmt.Printf("  - %s: %d/%d records\n", table, count, expected[table])
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 50))
}
