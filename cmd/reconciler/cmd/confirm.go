package cmd

import (
	"fmt"
	"os"

	"building-payment-reconciler/cmd/reconciler/config"
	"building-payment-reconciler/internal/memory"
	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/normalizer"
	"building-payment-reconciler/internal/parsers"
	"building-payment-reconciler/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	confirmMemoryDB   string
	confirmRosterFile string
)

// confirmCmd represents the confirm command
var confirmCmd = &cobra.Command{
	Use:     "confirm <payer-name> <tenant-id>",
	Aliases: []string{"override"},
	Short:   "Record a confirmed payer-name mapping in the match memory",
	Long: `Confirm teaches the match memory that a payer name belongs to a tenant.
Future reconciliation runs using the same database resolve that payer name
immediately, skipping the matching cascade.

Confirming a payer name that is already mapped to a different tenant
replaces the old mapping, so the command doubles as an override (the
'override' alias does the same thing). The payer name is normalized before
storage, so spelling variants that normalize identically share one mapping.

Examples:
  reconciler confirm -m mappings.db "חשבון משותף כהן" t-042
  reconciler confirm -m mappings.db --roster tenants.csv "Y. Cohen" t-001`,
	Args:    cobra.ExactArgs(2),
	PreRunE: validateConfirmFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runConfirm(cmd, args[0], args[1]); err != nil {
			handler := NewCLIErrorHandler()
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(confirmCmd)

	confirmCmd.Flags().StringVarP(&confirmMemoryDB, "memory-db", "m", "", "match memory SQLite database (required)")
	confirmCmd.Flags().StringVar(&confirmRosterFile, "roster", "", "tenant roster CSV used to verify the tenant ID (optional)")

	confirmCmd.MarkFlagRequired("memory-db")
}

// validateConfirmFlags validates flag values before the command runs
func validateConfirmFlags(cmd *cobra.Command, args []string) error {
	if confirmMemoryDB == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "memory-db", nil, nil)
	}
	if confirmRosterFile != "" {
		return validateFileExists(confirmRosterFile, "roster file")
	}
	return nil
}

func runConfirm(cmd *cobra.Command, payerName, tenantID string) error {
	if _, err := setupLogger(); err != nil {
		return err
	}

	normalized := normalizer.Normalize(payerName)
	if normalized == "" {
		return errors.ValidationError(errors.CodeMissingField, "payer-name", payerName, nil).
			WithSuggestion("the payer name is empty after normalization, check for title-only input")
	}

	if confirmRosterFile != "" {
		if err := verifyTenantOnRoster(tenantID); err != nil {
			return err
		}
	}

	store, err := memory.NewSQLiteStore(confirmMemoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Record(cmd.Context(), normalized, tenantID, models.MappingCreatedManual); err != nil {
		return errors.MemoryError(errors.CodeStoreUnavailable, "record mapping", err)
	}

	fmt.Printf("Recorded mapping: %q -> %s\n", normalized, tenantID)
	return nil
}

// verifyTenantOnRoster fails when the tenant ID does not appear in the
// roster file
func verifyTenantOnRoster(tenantID string) error {
	rosterParser := parsers.NewRosterParser(config.CreateRosterParserConfig())
	roster, _, err := rosterParser.ParseRoster(confirmRosterFile)
	if err != nil {
		return err
	}

	for _, entry := range roster {
		if entry.TenantID == tenantID {
			return nil
		}
	}

	return errors.MatchingError(errors.CodeUnknownTenant,
		fmt.Sprintf("tenant %s not found on roster %s", tenantID, confirmRosterFile), nil).
		WithSuggestion("check the tenant ID against the roster file")
}
