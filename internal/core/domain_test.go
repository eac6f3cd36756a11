package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Type: Expense, Amount: 12.5, Category: "Food", Date: NewDate(2025, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mod  func(*Transaction)
		want error
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"negative amount", func(tx *Transaction) { tx.Amount = -1 }, ErrInvalidAmount},
		{"nan amount", func(tx *Transaction) { tx.Amount = math.NaN() }, ErrInvalidAmount},
		{"inf amount", func(tx *Transaction) { tx.Amount = math.Inf(1) }, ErrInvalidAmount},
		{"huge amount", func(tx *Transaction) { tx.Amount = 1e308 }, ErrInvalidAmount},
		{"just over max", func(tx *Transaction) { tx.Amount = MaxAmount * 1.000001 }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mod(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestZeroAmountIsAllowed(t *testing.T) {
	tx := Transaction{Type: Income, Amount: 0, Category: "Other", Date: NewDate(2025, 1, 1)}
	if err := tx.Validate(); err != nil {
		t.Fatalf("zero amount should be valid: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	tx := Transaction{Type: Expense, Amount: 3}
	tx.ApplyDefaults()
	if tx.Category != DefaultCategory {
		t.Fatalf("category = %q, want %q", tx.Category, DefaultCategory)
	}
	if tx.Date.String() != Today().String() {
		t.Fatalf("date = %s, want today", tx.Date)
	}

	kept := Transaction{Type: Expense, Category: "Food", Date: NewDate(2024, 2, 29)}
	kept.ApplyDefaults()
	if kept.Category != "Food" || kept.Date.String() != "2024-02-29" {
		t.Fatalf("defaults overwrote values: %+v", kept)
	}
}

func TestValidateBudgets(t *testing.T) {
	if err := ValidateBudgets([]CategoryBudget{{Category: "Food", Limit: 0}, {Category: "Rent", Limit: 900}}); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	err := ValidateBudgets([]CategoryBudget{{Category: "Food", Limit: 10}, {Category: "Rent", Limit: -1}})
	var be *BudgetError
	if !errors.As(err, &be) || be.Index != 1 || !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, limit := range []float64{1e-6, 1e308, math.Inf(1)} {
		if err := ValidateBudgets([]CategoryBudget{{Category: "Food", Limit: limit}}); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("limit %v: got %v, want ErrInvalidLimit", limit, err)
		}
	}
	if err := ValidateBudgets([]CategoryBudget{{Category: "Food", Limit: MaxAmount}, {Category: "Rent", Limit: MinBudgetLimit}}); err != nil {
		t.Fatalf("bounds should be valid: %v", err)
	}
	if err := ValidateBudgets([]CategoryBudget{{Category: "", Limit: 10}}); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected empty category error, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	var tx Transaction
	if err := json.Unmarshal([]byte(`{"id":"a","type":"expense","amount":4.2,"category":"Food","date":"2025-03-14"}`), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.Date.String() != "2025-03-14" {
		t.Fatalf("date = %s", tx.Date)
	}
	out, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"date":"2025-03-14"`) {
		t.Fatalf("unexpected json: %s", out)
	}

	if err := json.Unmarshal([]byte(`{"date":"14/03/2025"}`), &tx); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSortByDateDesc(t *testing.T) {
	txns := []Transaction{
		{ID: "a", Date: NewDate(2025, 1, 1)},
		{ID: "b", Date: NewDate(2025, 3, 1)},
		{ID: "c", Date: NewDate(2025, 1, 1)},
		{ID: "d", Date: NewDate(2025, 2, 1)},
	}
	SortByDateDesc(txns)
	var ids []string
	for _, tx := range txns {
		ids = append(ids, tx.ID)
	}
	if strings.Join(ids, ",") != "b,d,a,c" {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestIsValidationError(t *testing.T) {
	if !IsValidationError(ErrInvalidAmount) {
		t.Error("sentinel should be a validation error")
	}
	if !IsValidationError(&BudgetError{Index: 2, Err: ErrInvalidLimit}) {
		t.Error("wrapped budget error should be a validation error")
	}
	if IsValidationError(errors.New("disk full")) || IsValidationError(nil) {
		t.Error("unrelated errors are not validation errors")
	}
}
