package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount is the total of one category for one transaction type.
type CategoryAmount struct {
	Type     TransactionType `json:"type"`
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// Summary aggregates an owner's transactions by type and category.
type Summary struct {
	Income     decimal.Decimal  `json:"income"`
	Expense    decimal.Decimal  `json:"expense"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// Summarize groups transactions. ByCategory is ordered by type, then by
// descending amount, then by category name.
func Summarize(txs []Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero, ByCategory: []CategoryAmount{}}
	type key struct {
		t TransactionType
		c Category
	}
	idx := make(map[key]int)
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expense = s.Expense.Add(t.Amount)
		default:
			continue
		}
		k := key{t.Type, t.Category}
		i, ok := idx[k]
		if !ok {
			i = len(s.ByCategory)
			idx[k] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Type: t.Type, Category: t.Category, Amount: decimal.Zero})
		}
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(t.Amount)
		s.ByCategory[i].Count++
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if a.Type != b.Type {
			return a.Type == Income
		}
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})
	return s
}
