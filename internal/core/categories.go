package core

import "strings"

// DefaultCategories are offered to every user before any record exists.
var DefaultCategories = []string{
	"Food",
	"Transport",
	"Leisure",
	"Education",
	"Housing",
	"Health",
	DefaultCategory,
}

// MergeCategories returns the default categories followed by any other
// category used in transactions or budgets, in first-seen order.
func MergeCategories(transactions []Transaction, budgets []CategoryBudget) []string {
	seen := make(map[string]struct{}, len(DefaultCategories))
	out := make([]string, 0, len(DefaultCategories))
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range DefaultCategories {
		add(c)
	}
	for _, t := range transactions {
		add(t.Category)
	}
	for _, b := range budgets {
		add(b.Category)
	}
	return out
}
