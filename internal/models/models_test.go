package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEntryKindIsValid(t *testing.T) {
	if !EntryPayable.IsValid() || !EntryReceivable.IsValid() {
		t.Error("Expected built-in kinds to be valid")
	}
	if EntryKind("invoice").IsValid() {
		t.Error("Expected unknown kind to be invalid")
	}
}

func TestMatchTypeIsValid(t *testing.T) {
	valid := []MatchType{MatchReference, MatchExactOneToOne, MatchAggregation, MatchValueOnly, MatchRule}
	for _, mt := range valid {
		if !mt.IsValid() {
			t.Errorf("Expected %s to be valid", mt)
		}
	}
	if MatchType("fuzzy").IsValid() {
		t.Error("Expected unknown match type to be invalid")
	}
}

func TestBankTransactionValidate(t *testing.T) {
	valid := &BankTransaction{
		ID:     "TX1",
		Date:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromFloat(-100.50),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid transaction, got %v", err)
	}

	tests := []struct {
		name string
		tx   BankTransaction
	}{
		{"empty id", BankTransaction{Date: valid.Date, Amount: valid.Amount}},
		{"zero amount", BankTransaction{ID: "TX1", Date: valid.Date}},
		{"zero date", BankTransaction{ID: "TX1", Amount: valid.Amount}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tx.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestBankTransactionDirection(t *testing.T) {
	debit := &BankTransaction{Amount: decimal.NewFromFloat(-250.00)}
	if !debit.IsDebit() {
		t.Error("Expected negative amount to be a debit")
	}
	if !debit.AbsAmount().Equal(decimal.NewFromFloat(250.00)) {
		t.Errorf("Expected abs 250.00, got %s", debit.AbsAmount().String())
	}

	credit := &BankTransaction{Amount: decimal.NewFromFloat(250.00)}
	if credit.IsDebit() {
		t.Error("Expected positive amount to be a credit")
	}
}

func TestFinancialEntryValidate(t *testing.T) {
	valid := &FinancialEntry{
		ID:      "P1",
		Amount:  decimal.NewFromFloat(100),
		DueDate: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		Kind:    EntryPayable,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid entry, got %v", err)
	}

	negative := *valid
	negative.Amount = decimal.NewFromFloat(-100)
	if err := negative.Validate(); err == nil {
		t.Error("Expected error for non-positive amount")
	}

	badKind := *valid
	badKind.Kind = "invoice"
	if err := badKind.Validate(); err == nil {
		t.Error("Expected error for invalid kind")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1234.56", 1234.56},
		{"-1234.56", -1234.56},
		{"R$ 1,234.56", 1234.56},
		{"  100  ", 100},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tt.input, err)
			continue
		}
		if !got.Equal(decimal.NewFromFloat(tt.expected)) {
			t.Errorf("ParseAmount(%q) = %s, expected %f", tt.input, got.String(), tt.expected)
		}
	}

	if _, err := ParseAmount(""); err == nil {
		t.Error("Expected error for empty amount")
	}
	if _, err := ParseAmount("abc"); err == nil {
		t.Error("Expected error for non-numeric amount")
	}
}

func TestParseDate(t *testing.T) {
	tests := []string{
		"2026-03-15T10:30:00Z",
		"2026-03-15 10:30:00",
		"2026-03-15",
		"15/03/2026",
	}

	for _, input := range tests {
		got, err := ParseDate(input)
		if err != nil {
			t.Errorf("ParseDate(%q) failed: %v", input, err)
			continue
		}
		if got.Year() != 2026 || got.Month() != time.March || got.Day() != 15 {
			t.Errorf("ParseDate(%q) = %s, expected 2026-03-15", input, got)
		}
	}

	if _, err := ParseDate("not a date"); err == nil {
		t.Error("Expected error for unparseable date")
	}
}

func TestDayOffset(t *testing.T) {
	base := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		a, b     time.Time
		expected int
	}{
		{"same day", base, base, 0},
		{"a after b", base.AddDate(0, 0, 3), base, 3},
		{"a before b", base, base.AddDate(0, 0, 3), -3},
		{"time of day ignored", base.Add(23 * time.Hour), base, 0},
		{"across months", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), base, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayOffset(tt.a, tt.b); got != tt.expected {
				t.Errorf("DayOffset = %d, expected %d", got, tt.expected)
			}
		})
	}
}
