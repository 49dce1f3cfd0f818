package cmd

import (
	"fmt"
	"os"

	"building-payment-reconciler/cmd/reconciler/config"
	"building-payment-reconciler/internal/matcher"
	"building-payment-reconciler/internal/normalizer"
	"building-payment-reconciler/internal/parsers"
	"building-payment-reconciler/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	suggestRosterFile string
	suggestProfile    string
	suggestTop        int
)

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest <payer-name>",
	Short: "Show ranked tenant suggestions for a payer name",
	Long: `Suggest runs every matching strategy against the roster and prints the
best-scoring tenants for a payer name. Useful when triaging an unmatched
payment by hand before confirming a mapping.

Examples:
  reconciler suggest --roster tenants.csv "כהן יעקב"
  reconciler suggest -r tenants.csv --top 5 "Y. Cohen"`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFileExists(suggestRosterFile, "roster file")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runSuggest(args[0]); err != nil {
			handler := NewCLIErrorHandler()
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringVarP(&suggestRosterFile, "roster", "r", "", "tenant roster CSV file (required)")
	suggestCmd.Flags().StringVar(&suggestProfile, "profile", "default", "matching profile (default, strict, relaxed)")
	suggestCmd.Flags().IntVar(&suggestTop, "top", 0, "number of suggestions to show (default: profile maximum)")

	suggestCmd.MarkFlagRequired("roster")
}

func runSuggest(payerName string) error {
	if _, err := setupLogger(); err != nil {
		return err
	}

	matchingConfig, err := config.CreateMatchingConfig(suggestProfile, config.MatchingOverrides{})
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "profile", suggestProfile, err)
	}

	rosterParser := parsers.NewRosterParser(config.CreateRosterParserConfig())
	roster, _, err := rosterParser.ParseRoster(suggestRosterFile)
	if err != nil {
		return err
	}

	engine := matcher.NewMatchingEngine(matchingConfig)
	if err := engine.LoadRoster(roster); err != nil {
		return err
	}

	normalized := normalizer.Normalize(payerName)
	if normalized == "" {
		return errors.ValidationError(errors.CodeMissingField, "payer-name", payerName, nil).
			WithSuggestion("the payer name is empty after normalization, check for title-only input")
	}

	suggestions := engine.SuggestMatches(normalized, suggestTop)
	if len(suggestions) == 0 {
		fmt.Printf("No suggestions for %q (normalized %q)\n", payerName, normalized)
		return nil
	}

	fmt.Printf("Suggestions for %q (normalized %q):\n", payerName, normalized)
	for i, s := range suggestions {
		fmt.Printf("  %d. %s (%s) score %.1f via %s\n", i+1, s.DisplayName, s.TenantID, s.Score, s.Strategy)
	}
	return nil
}
