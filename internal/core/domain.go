package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CategoryNeeds       Category = "needs"
	CategoryLiving      Category = "living"
	CategoryPlaying     Category = "playing"
	CategoryBooster     Category = "booster"
	CategoryDebtPayment Category = "debt_payment"
	CategorySavings     Category = "savings"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalClaimed   GoalStatus = "claimed"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
)

type (
	TransactionType string
	Category        string
	GoalStatus      string

	Transaction struct {
		ID          int64           `json:"id"`
		OwnerID     string          `json:"userId"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
	}

	Goal struct {
		ID            int64           `json:"id"`
		OwnerID       string          `json:"userId"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		IsDumpBin     bool            `json:"isDumpBin"`
		Status        GoalStatus      `json:"status"`
		CreatedAt     time.Time       `json:"createdAt"`
		ClaimedAt     *time.Time      `json:"claimedAt,omitempty"`
	}

	Debt struct {
		ID              int64           `json:"id"`
		OwnerID         string          `json:"userId"`
		Name            string          `json:"name"`
		TotalAmount     decimal.Decimal `json:"totalAmount"`
		RemainingAmount decimal.Decimal `json:"remainingAmount"`
		PaidOff         bool            `json:"paidOff"`
		CreatedAt       time.Time       `json:"createdAt"`
	}

	// NewTransaction is the client-supplied part of a Transaction.
	NewTransaction struct {
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
	}

	// NewGoal is the client-supplied part of a Goal. CurrentAmount always
	// starts at zero.
	NewGoal struct {
		Name         string          `json:"name"`
		TargetAmount decimal.Decimal `json:"targetAmount"`
		IsDumpBin    bool            `json:"isDumpBin"`
	}

	// GoalUpdate is a partial edit. Nil fields are left unchanged.
	GoalUpdate struct {
		Name          *string          `json:"name"`
		TargetAmount  *decimal.Decimal `json:"targetAmount"`
		CurrentAmount *decimal.Decimal `json:"currentAmount"`
		IsDumpBin     *bool            `json:"isDumpBin"`
	}

	// NewDebt is the client-supplied part of a Debt. RemainingAmount always
	// starts equal to TotalAmount.
	NewDebt struct {
		Name        string          `json:"name"`
		TotalAmount decimal.Decimal `json:"totalAmount"`
	}
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryNeeds, CategoryLiving, CategoryPlaying, CategoryBooster, CategoryDebtPayment, CategorySavings:
		return true
	}
	return false
}

func (n NewTransaction) Validate() error {
	if err := ValidatePositive("amount", n.Amount); err != nil {
		return err
	}
	if !n.Type.IsValid() {
		return NewValidationError("type", "type must be income or expense")
	}
	if !n.Category.IsValid() {
		return NewValidationError("category", "unknown category "+string(n.Category))
	}
	return validateText("description", n.Description, maxDescriptionLength)
}

func (n NewGoal) Validate() error {
	if err := validateText("name", n.Name, maxNameLength); err != nil {
		return err
	}
	return ValidatePositive("targetAmount", n.TargetAmount)
}

// Empty reports whether the update changes nothing.
func (u GoalUpdate) Empty() bool {
	return u.Name == nil && u.TargetAmount == nil && u.CurrentAmount == nil && u.IsDumpBin == nil
}

func (u GoalUpdate) Validate() error {
	if u.Empty() {
		return NewValidationError("", "no fields to update")
	}
	if u.Name != nil {
		if err := validateText("name", *u.Name, maxNameLength); err != nil {
			return err
		}
	}
	if u.TargetAmount != nil {
		if err := ValidatePositive("targetAmount", *u.TargetAmount); err != nil {
			return err
		}
	}
	if u.CurrentAmount != nil {
		if err := ValidateNonNegative("currentAmount", *u.CurrentAmount); err != nil {
			return err
		}
	}
	return nil
}

func (n NewDebt) Validate() error {
	if err := validateText("name", n.Name, maxNameLength); err != nil {
		return err
	}
	return ValidatePositive("totalAmount", n.TotalAmount)
}

// Funded reports whether the goal has reached its target.
func (g Goal) Funded() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// ResolveStatus derives Status from the claim marker and the balances.
// Stores call it after loading a row.
func (g *Goal) ResolveStatus() {
	switch {
	case g.ClaimedAt != nil:
		g.Status = GoalClaimed
	case g.Funded():
		g.Status = GoalCompleted
	default:
		g.Status = GoalActive
	}
}

// ResolvePaidOff derives PaidOff from the remaining balance.
func (d *Debt) ResolvePaidOff() {
	d.PaidOff = !d.RemainingAmount.IsPositive()
}

func validateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, field+" is required")
	}
	if len(value) > max {
		return NewValidationError(field, field+" is too long")
	}
	return nil
}

// SavingsRecord is the expense written alongside a goal contribution.
func SavingsRecord(amount decimal.Decimal, description string) NewTransaction {
	return NewTransaction{Amount: amount, Type: Expense, Category: CategorySavings, Description: description}
}

// DebtPaymentRecord is the expense written alongside a debt payment.
func DebtPaymentRecord(amount decimal.Decimal, description string) NewTransaction {
	return NewTransaction{Amount: amount, Type: Expense, Category: CategoryDebtPayment, Description: description}
}

// WithDefaultDescription fills an empty description.
func (n NewTransaction) WithDefaultDescription(fallback string) NewTransaction {
	if strings.TrimSpace(n.Description) == "" {
		n.Description = fallback
	}
	return n
}
