package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		description string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			description: "test file",
			expectError: false,
		},
		{
			name:        "empty path",
			filePath:    "",
			description: "test file",
			expectError: true,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/file.csv",
			description: "test file",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			description: "test file",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, tt.description)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateReconcileFlags(t *testing.T) {
	tmpDir := t.TempDir()
	rosterPath := filepath.Join(tmpDir, "tenants.csv")
	statementPath := filepath.Join(tmpDir, "statement.xlsx")

	if err := os.WriteFile(rosterPath, []byte("tenant_id,display_name,expected_amount\nt-001,יעקב כהן,1500"), 0644); err != nil {
		t.Fatalf("failed to create roster file: %v", err)
	}
	if err := os.WriteFile(statementPath, []byte("placeholder"), 0644); err != nil {
		t.Fatalf("failed to create statement file: %v", err)
	}

	tests := []struct {
		name          string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name: "valid flags",
			setupFlags: func() {
				viper.Set("roster", rosterPath)
				viper.Set("statement", statementPath)
				viper.Set("output-format", "console")
			},
			expectError: false,
		},
		{
			name: "missing roster",
			setupFlags: func() {
				viper.Set("roster", "")
				viper.Set("statement", statementPath)
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "roster file",
		},
		{
			name: "missing statement",
			setupFlags: func() {
				viper.Set("roster", rosterPath)
				viper.Set("statement", "")
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "statement file",
		},
		{
			name: "non-existent roster",
			setupFlags: func() {
				viper.Set("roster", filepath.Join(tmpDir, "missing.csv"))
				viper.Set("statement", statementPath)
				viper.Set("output-format", "console")
			},
			expectError:   true,
			errorContains: "file not found",
		},
		{
			name: "invalid output format",
			setupFlags: func() {
				viper.Set("roster", rosterPath)
				viper.Set("statement", statementPath)
				viper.Set("output-format", "xml")
			},
			expectError:   true,
			errorContains: "output-format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			workers = 0
			tt.setupFlags()

			cmd := &cobra.Command{}
			err := validateReconcileFlags(cmd, []string{})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestValidateReconcileFlagsNegativeWorkers(t *testing.T) {
	tmpDir := t.TempDir()
	rosterPath := filepath.Join(tmpDir, "tenants.csv")
	statementPath := filepath.Join(tmpDir, "statement.xlsx")
	os.WriteFile(rosterPath, []byte("tenant_id,display_name\nt-001,כהן"), 0644)
	os.WriteFile(statementPath, []byte("placeholder"), 0644)

	viper.Reset()
	viper.Set("roster", rosterPath)
	viper.Set("statement", statementPath)
	viper.Set("output-format", "console")
	workers = -2
	defer func() { workers = 0 }()

	err := validateReconcileFlags(&cobra.Command{}, []string{})
	if err == nil || !strings.Contains(err.Error(), "workers") {
		t.Errorf("expected workers validation error, got: %v", err)
	}
}

func TestReconcileCommandHelp(t *testing.T) {
	cmd := reconcileCmd

	for _, flagName := range []string{"roster", "statement", "memory-db", "output-format", "profile"} {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("%s flag not found", flagName)
		}
	}

	var helpOutput bytes.Buffer
	cmd.SetOut(&helpOutput)
	cmd.Help()

	helpText := helpOutput.String()

	expectedSections := []string{
		"Usage:",
		"Examples:",
		"Flags:",
		"--roster",
		"--statement",
		"--output-format",
	}

	for _, section := range expectedSections {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}
