package core

import "github.com/shopspring/decimal"

// NetWorth is a snapshot derived from every ledger entity of one owner.
type NetWorth struct {
	Wallet      decimal.Decimal `json:"wallet"`
	Savings     decimal.Decimal `json:"savings"`
	Debt        decimal.Decimal `json:"debt"`
	TotalAssets decimal.Decimal `json:"totalAssets"`
	NetWorth    decimal.Decimal `json:"netWorth"`
}

// ComputeNetWorth folds the three entity sets into a snapshot.
//
// Every expense reduces the wallet whatever its category. Remaining debt is
// floored at zero per debt so a stale overpayment never inflates net worth.
func ComputeNetWorth(txs []Transaction, goals []Goal, debts []Debt) NetWorth {
	wallet := decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Income:
			wallet = wallet.Add(t.Amount)
		case Expense:
			wallet = wallet.Sub(t.Amount)
		}
	}

	savings := decimal.Zero
	for _, g := range goals {
		savings = savings.Add(g.CurrentAmount)
	}

	debt := decimal.Zero
	for _, d := range debts {
		if d.RemainingAmount.IsPositive() {
			debt = debt.Add(d.RemainingAmount)
		}
	}

	total := wallet.Add(savings)
	return NetWorth{
		Wallet:      wallet,
		Savings:     savings,
		Debt:        debt,
		TotalAssets: total,
		NetWorth:    total.Sub(debt),
	}
}
