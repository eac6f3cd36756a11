package core

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCategory is assigned to transactions created without a category.
const DefaultCategory = "Other"

const dateLayout = "2006-01-02"

type (
	TransactionType string

	// UserScope identifies the owner of a record set. Every read and write of
	// transactions or budgets is made on behalf of exactly one scope.
	UserScope string

	// Date is a calendar day without time-of-day, serialized as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      float64         `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
	}

	// CategoryBudget is a spending limit for one category. A zero limit means
	// no real budget is set.
	CategoryBudget struct {
		Category string  `json:"category"`
		Limit    float64 `json:"limit"`
	}

	// BudgetAlert is derived from transactions and budgets and never stored.
	BudgetAlert struct {
		ID           string  `json:"id"`
		Category     string  `json:"category"`
		BudgetLimit  float64 `json:"budgetLimit"`
		CurrentSpent float64 `json:"currentSpent"`
		Percentage   float64 `json:"percentage"`
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidLimit       = errors.New("invalid budget limit")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// IsValidationError reports whether err (or anything it wraps) is one of the
// validation sentinels above.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrInvalidType, ErrInvalidAmount, ErrInvalidLimit, ErrEmptyCategory, ErrInvalidDate, ErrDescriptionTooLong} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

func (s UserScope) String() string {
	return string(s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MaxAmount bounds amounts and limits so that sums and percentages stay finite.
const MaxAmount = 1e12

// MinBudgetLimit is the smallest non-zero limit; anything below it would
// turn ordinary spending into percentages no client can display.
const MinBudgetLimit = 0.01

func validAmount(v float64) bool {
	return v >= 0 && v <= MaxAmount && !math.IsNaN(v)
}

// ApplyDefaults fills the fields the API treats as optional at creation.
func (t *Transaction) ApplyDefaults() {
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	if t.Date.IsZero() {
		t.Date = Today()
	}
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if !validAmount(t.Amount) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (b CategoryBudget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !validAmount(b.Limit) || (b.Limit > 0 && b.Limit < MinBudgetLimit) {
		return ErrInvalidLimit
	}
	return nil
}

// ValidateBudgets checks every budget and reports the first failure with its index.
func ValidateBudgets(budgets []CategoryBudget) error {
	for i, b := range budgets {
		if err := b.Validate(); err != nil {
			return &BudgetError{Index: i, Err: err}
		}
	}
	return nil
}

// BudgetError locates an invalid entry in a budget list.
type BudgetError struct {
	Index int
	Err   error
}

func (e *BudgetError) Error() string {
	return "budget " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *BudgetError) Unwrap() error { return e.Err }

// SortByDateDesc orders transactions newest first; same-day entries keep
// their relative order.
func SortByDateDesc(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date.Time)
	})
}
