package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vitebski/library-seeder/internal/config"
	"github.com/vitebski/library-seeder/internal/connector"
	"github.com/vitebski/library-seeder/internal/generator"
	"github.com/vitebski/library-seeder/internal/loader"
	"github.com/vitebski/library-seeder/internal/populator"
	"github.com/vitebski/library-seeder/internal/schema"
	"github.com/vitebski/library-seeder/internal/utils"
	"github.com/vitebski/library-seeder/internal/writer"
)

func main() {
	var (
		envFile    string
		configFile string
	)

	rootCmd := &cobra.Command{
		Use:   "library-seeder",
		Short: "Generate library CSV files and load them into a relational store",
		Long: `Library Seeder

Generates synthetic Book, BorrowingRecord and Member data, writes one CSV
file per table and loads each file into SQLite or MySQL with the declared
constraints enforced. Every file is loaded all-or-nothing.`,
		Run: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")

			// Setup logging
			logger := utils.SetupLogging(logLevel)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, logger)

			v := config.NewViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				logger.Errorf("Failed to bind flags: %v", err)
				os.Exit(1)
			}

			cfg, err := config.Load(v, configFile)
			if err != nil {
				logger.Errorf("Failed to load configuration: %v", err)
				os.Exit(1)
			}
			if err := cfg.Validate(); err != nil {
				logger.Errorf("Invalid configuration: %v", err)
				os.Exit(1)
			}

			dialect, err := schema.NewDialect(cfg.Driver)
			if err != nil {
				logger.Errorf("Failed to select dialect: %v", err)
				os.Exit(1)
			}

			// If analyze-only mode, print the destination schema and exit here
			if cfg.AnalyzeOnly {
				schemaAnalyzer := schema.NewSchemaAnalyzer(schema.Tables(), logger)
				if err := schemaAnalyzer.AnalyzeSchema(); err != nil {
					logger.Errorf("Failed to analyze schema: %v", err)
					os.Exit(1)
				}
				if err := utils.PrintSchemaAnalysis(schemaAnalyzer, dialect); err != nil {
					logger.Errorf("Failed to print schema analysis: %v", err)
					os.Exit(1)
				}
				logger.Info("Analyze-only mode, exiting without generating data")
				return
			}

			counts := generator.Counts{
				Books:            cfg.Books,
				BorrowingRecords: cfg.BorrowingRecords,
				Members:          cfg.Members,
			}

			dataGenerator := generator.NewDataGenerator(generator.Options{
				Seed:                  cfg.Seed,
				NullRate:              cfg.NullRate,
				DuplicatePostcodeRate: cfg.DuplicatePostcodeRate,
			}, logger)

			dbPopulator := populator.NewDatabasePopulator(
				dataGenerator,
				writer.NewCSVWriter(cfg.OutputDir, logger),
				loader.NewLoader(cfg.Driver, cfg.Destination(), logger),
				counts,
				logger,
			)

			if cfg.LoadOnly {
				if err := dbPopulator.UseExistingFiles(); err != nil {
					logger.Errorf("Failed to find source files: %v", err)
					os.Exit(1)
				}
			} else {
				logger.Infof("Generating data with seed %d", cfg.Seed)
				if err := dbPopulator.GenerateFiles(); err != nil {
					logger.Errorf("Failed to generate files: %v", err)
					os.Exit(1)
				}
			}

			if cfg.GenerateOnly {
				logger.Info("Generate-only mode, exiting without loading data")
				return
			}

			ctx := context.Background()

			// Populate database
			logger.Info("Starting database population...")
			result, err := dbPopulator.PopulateDatabase(ctx)
			if result != nil {
				utils.PrintSummary(result)
			}
			if err != nil {
				logger.Errorf("Database population failed: %v", err)
				os.Exit(1)
			}

			// Verify table population if requested
			if cfg.Verify {
				db := connector.NewDatabaseConnector(cfg.Driver, cfg.Destination(), logger)
				if err := db.Connect(ctx); err != nil {
					logger.Errorf("Failed to connect to database: %v", err)
					os.Exit(1)
				}
				defer db.Disconnect()

				verification := utils.VerifyTablePopulation(ctx, db, dbPopulator.Expected, logger)
				utils.PrintVerificationResults(verification, dbPopulator.Expected)
				if !verification.Success {
					db.Disconnect()
					os.Exit(1)
				}
			}
		},
	}

	// Define flags
	rootCmd.Flags().StringP("out-dir", "o", ".", "Directory the CSV files are written to and read from")
	rootCmd.Flags().String("driver", schema.SQLite, "Store driver (sqlite3, mysql)")
	rootCmd.Flags().String("db", "library.db", "SQLite database file")
	rootCmd.Flags().String("dsn", "", "MySQL data source name (user:pass@tcp(host:port)/dbname)")
	rootCmd.Flags().IntP("books", "b", 1000, "Number of books to generate")
	rootCmd.Flags().IntP("borrowing-records", "r", 1000, "Number of borrowing records to generate")
	rootCmd.Flags().IntP("members", "m", 1000, "Number of members to generate")
	rootCmd.Flags().Int64P("seed", "s", 0, "Random seed (0 picks a time-based seed)")
	rootCmd.Flags().Float64("null-rate", 0, "Probability of leaving an optional field empty")
	rootCmd.Flags().Float64("duplicate-postcode-rate", 0.1, "Probability of reusing an earlier member postcode")
	rootCmd.Flags().BoolP("generate-only", "g", false, "Only write the CSV files")
	rootCmd.Flags().BoolP("load-only", "L", false, "Only load CSV files written by an earlier run")
	rootCmd.Flags().BoolP("verify", "v", false, "Verify that all tables hold the expected number of records")
	rootCmd.Flags().BoolP("analyze-only", "a", false, "Only print the destination schema and load order")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a config file (yaml, toml or json)")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
