package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

func resetSuggestFlags() {
	viper.Reset()
	dbPath = ""
	companyID = ""
	entryKind = ""
	maxSuggestions = 0
	dateTolerance = 0
	outputFormat = "console"
	outputFile = ""
}

func TestValidateSuggestFlagsRequired(t *testing.T) {
	resetSuggestFlags()

	if err := validateSuggestFlags(suggestCmd, nil); err == nil {
		t.Error("Expected error when db is missing")
	}

	dbPath = "ledger.db"
	if err := validateSuggestFlags(suggestCmd, nil); err == nil {
		t.Error("Expected error when company is missing")
	}

	companyID = "acme"
	if err := validateSuggestFlags(suggestCmd, nil); err != nil {
		t.Errorf("Expected valid flags, got %v", err)
	}
}

func TestValidateSuggestFlagsKind(t *testing.T) {
	resetSuggestFlags()
	dbPath = "ledger.db"
	companyID = "acme"

	entryKind = "invoice"
	if err := validateSuggestFlags(suggestCmd, nil); err == nil {
		t.Error("Expected error for invalid kind")
	}

	entryKind = "payable"
	if err := validateSuggestFlags(suggestCmd, nil); err != nil {
		t.Errorf("Expected payable kind accepted, got %v", err)
	}
}

func TestValidateSuggestFlagsOutputFormat(t *testing.T) {
	resetSuggestFlags()
	dbPath = "ledger.db"
	companyID = "acme"

	outputFormat = "xml"
	if err := validateSuggestFlags(suggestCmd, nil); err == nil {
		t.Error("Expected error for unsupported output format")
	}

	outputFormat = "json"
	if err := validateSuggestFlags(suggestCmd, nil); err != nil {
		t.Errorf("Expected json format accepted, got %v", err)
	}
}

func TestValidateSuggestFlagsViperOverride(t *testing.T) {
	resetSuggestFlags()
	viper.Set("db", "from-config.db")
	viper.Set("company", "acme")

	if err := validateSuggestFlags(suggestCmd, nil); err != nil {
		t.Errorf("Expected viper values honored, got %v", err)
	}
	if dbPath != "from-config.db" {
		t.Errorf("Expected db from config, got %q", dbPath)
	}
}
