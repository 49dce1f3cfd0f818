package cmd

import (
	"fmt"
	"os"

	"building-payment-reconciler/cmd/reconciler/config"
	"building-payment-reconciler/internal/memory"
	"building-payment-reconciler/internal/parsers"
	"building-payment-reconciler/internal/reconciler"
	"building-payment-reconciler/internal/reporter"
	"building-payment-reconciler/pkg/errors"
	"building-payment-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rosterFile           string
	statementFile        string
	memoryDBFile         string
	outputFormat         string
	outputFile           string
	sheetName            string
	matchingProfile      string
	workers              int
	showProgress         bool
	keepDebits           bool
	includeAutoConfirmed bool
	autoConfirmThreshold float64
	reviewThreshold      float64
	fuzzyMinSimilarity   float64
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement against the tenant roster",
	Long: `Reconcile parses a bank statement export (XLSX) and a tenant roster
(CSV), matches each incoming payment to a tenant through the name-matching
cascade, and writes a report of confirmed, review-needed and unmatched
payments.

When a match memory database is given (--memory-db), previously confirmed
payer-name mappings short-circuit the cascade and new confirmations persist
across runs.

Examples:
  reconciler reconcile --roster tenants.csv --statement statement.xlsx
  reconciler reconcile -r tenants.csv -s statement.xlsx -m mappings.db -f json
  reconciler reconcile -r tenants.csv -s statement.xlsx --profile strict --workers 4`,
	PreRunE: validateReconcileFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runReconciliation(cmd); err != nil {
			handler := NewCLIErrorHandler()
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&rosterFile, "roster", "r", "", "tenant roster CSV file (required)")
	reconcileCmd.Flags().StringVarP(&statementFile, "statement", "s", "", "bank statement XLSX file (required)")
	reconcileCmd.Flags().StringVarP(&memoryDBFile, "memory-db", "m", "", "match memory SQLite database (optional)")
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format (console, json, csv)")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file (default: stdout)")
	reconcileCmd.Flags().StringVar(&sheetName, "sheet", "", "statement worksheet name (default: first sheet)")
	reconcileCmd.Flags().StringVar(&matchingProfile, "profile", "default", "matching profile (default, strict, relaxed)")
	reconcileCmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent matching workers")
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "log progress during batch processing")
	reconcileCmd.Flags().BoolVar(&keepDebits, "keep-debits", false, "include outgoing transactions as negative amounts")
	reconcileCmd.Flags().BoolVar(&includeAutoConfirmed, "include-auto-confirmed", false, "list auto-confirmed matches in console output")
	reconcileCmd.Flags().Float64Var(&autoConfirmThreshold, "auto-confirm-threshold", 0, "override the auto-confirm confidence threshold")
	reconcileCmd.Flags().Float64Var(&reviewThreshold, "review-threshold", 0, "override the review confidence threshold")
	reconcileCmd.Flags().Float64Var(&fuzzyMinSimilarity, "fuzzy-min-similarity", 0, "override the minimum fuzzy similarity")

	reconcileCmd.MarkFlagRequired("roster")
	reconcileCmd.MarkFlagRequired("statement")

	viper.BindPFlag("roster", reconcileCmd.Flags().Lookup("roster"))
	viper.BindPFlag("statement", reconcileCmd.Flags().Lookup("statement"))
	viper.BindPFlag("memory-db", reconcileCmd.Flags().Lookup("memory-db"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("profile", reconcileCmd.Flags().Lookup("profile"))
}

// validateReconcileFlags validates flag values before the command runs
func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(viper.GetString("roster"), "roster file"); err != nil {
		return err
	}
	if err := validateFileExists(viper.GetString("statement"), "statement file"); err != nil {
		return err
	}

	format := reporter.OutputFormat(viper.GetString("output-format"))
	if !format.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", format, nil).
			WithSuggestion("use one of: console, json, csv")
	}

	if workers < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "workers", workers, nil).
			WithSuggestion("workers must be zero or a positive number")
	}

	return nil
}

// validateFileExists checks that a flag names a readable regular file
func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, description, nil, nil)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, filePath, err).
				WithContext("flag", description)
		}
		return errors.FileError(errors.CodeFilePermission, filePath, err).
			WithContext("flag", description)
	}

	if info.IsDir() {
		return errors.New(errors.CategoryFile, errors.CodeFilePermission,
			fmt.Sprintf("%s is a directory, not a file: %s", description, filePath)).
			WithSuggestion("point the flag at the exported file itself")
	}

	return nil
}

func runReconciliation(cmd *cobra.Command) error {
	log, err := setupLogger()
	if err != nil {
		return err
	}
	log = log.WithComponent("cli")

	// Parse the tenant roster
	rosterParser := parsers.NewRosterParser(config.CreateRosterParserConfig())
	roster, rosterStats, err := rosterParser.ParseRoster(rosterFile)
	if err != nil {
		return err
	}
	if rosterStats.HasErrors() {
		log.Warnf("Roster parsed with errors: %s", rosterStats)
		for _, sample := range rosterStats.GetSampleErrors(5) {
			log.Warn(sample)
		}
	}

	// Parse the bank statement
	statementParser := parsers.NewStatementParser(config.CreateStatementParserConfig(sheetName, keepDebits))
	transactions, statementStats, err := statementParser.ParseStatement(statementFile)
	if err != nil {
		return err
	}
	if statementStats.HasErrors() {
		log.Warnf("Statement parsed with errors: %s", statementStats)
		for _, sample := range statementStats.GetSampleErrors(5) {
			log.Warn(sample)
		}
	}

	log.WithFields(logger.Fields{
		"roster_entries": len(roster),
		"transactions":   len(transactions),
		"expected_total": reconciler.ExpectedTotal(roster).StringFixed(2),
	}).Info("Input files parsed")

	// Open the match memory store
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	// Build the reconciliation engine
	matchingConfig, err := config.CreateMatchingConfig(matchingProfile, config.MatchingOverrides{
		AutoConfirmThreshold: autoConfirmThreshold,
		ReviewThreshold:      reviewThreshold,
		FuzzyMinSimilarity:   fuzzyMinSimilarity,
	})
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "profile", matchingProfile, err)
	}

	engine, err := reconciler.NewEngine(matchingConfig, store, config.CreateEngineConfig(workers, showProgress))
	if err != nil {
		return err
	}

	loadResult, err := engine.LoadRoster(roster)
	if err != nil {
		return err
	}
	if len(loadResult.Skipped) > 0 {
		log.Warnf("Skipped %d invalid roster entries", len(loadResult.Skipped))
	}

	// Run the batch
	result, err := engine.Reconcile(cmd.Context(), transactions)
	if err != nil {
		return err
	}

	// Write the report
	reportConfig, err := config.CreateReportConfig(outputFormat, includeAutoConfirmed)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", outputFormat, err)
	}

	rep, err := reporter.NewReporter(reportConfig, engine)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputFile != "" {
		f, createErr := os.Create(outputFile)
		if createErr != nil {
			return errors.FileError(errors.CodeFilePermission, outputFile, createErr)
		}
		defer f.Close()
		out = f
	}

	if err := rep.WriteReport(out, result); err != nil {
		return err
	}

	if outputFile != "" {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
		fmt.Fprintf(os.Stderr, "%s\n", result.Summary)
	}

	return nil
}

// openStore opens the persistent match memory when --memory-db is set and
// falls back to an in-process store otherwise.
func openStore() (memory.Store, func(), error) {
	if memoryDBFile == "" {
		return memory.NewInMemoryStore(), func() {}, nil
	}

	store, err := memory.NewSQLiteStore(memoryDBFile)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// setupLogger installs the global logger per the verbosity flags
func setupLogger() (logger.Logger, error) {
	log, err := logger.NewLogger(config.CreateLoggerConfig(viper.GetBool("verbose"), viper.GetBool("quiet")))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "logging", nil, err)
	}
	logger.SetGlobalLogger(log)
	return log, nil
}
