package core

import "github.com/shopspring/decimal"

var (
	needsRatio   = decimal.RequireFromString("0.58")
	livingRatio  = decimal.RequireFromString("0.13")
	playingRatio = decimal.RequireFromString("0.17")
)

// Allocation splits one income figure into the weekly buckets.
type Allocation struct {
	Needs       decimal.Decimal `json:"needs"`
	Living      decimal.Decimal `json:"living"`
	Playing     decimal.Decimal `json:"playing"`
	Booster     decimal.Decimal `json:"booster"`
	TotalIncome decimal.Decimal `json:"totalIncome"`
}

// Allocate applies the 58/13/17 split. Booster takes the remainder so the
// four parts always sum to income.
func Allocate(income decimal.Decimal) (Allocation, error) {
	if income.IsNegative() {
		return Allocation{}, NewValidationError("income", "income must not be negative")
	}
	if err := CheckMagnitude("income", income); err != nil {
		return Allocation{}, err
	}
	if income.GreaterThanOrEqual(MaxAmount) {
		return Allocation{}, NewValidationError("income", "income is too large")
	}
	needs := income.Mul(needsRatio)
	living := income.Mul(livingRatio)
	playing := income.Mul(playingRatio)
	return Allocation{
		Needs:       needs,
		Living:      living,
		Playing:     playing,
		Booster:     income.Sub(needs.Add(living).Add(playing)),
		TotalIncome: income,
	}, nil
}
