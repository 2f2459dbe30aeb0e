package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{Amount: d(100), Type: Expense, Category: CategoryNeeds, Description: "groceries"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name  string
		tx    NewTransaction
		field string
	}{
		{"zero amount", NewTransaction{Amount: decimal.Zero, Type: Income, Category: CategoryNeeds, Description: "x"}, "amount"},
		{"negative amount", NewTransaction{Amount: d(-5), Type: Income, Category: CategoryNeeds, Description: "x"}, "amount"},
		{"sub-cent amount", NewTransaction{Amount: decimal.RequireFromString("1.005"), Type: Income, Category: CategoryNeeds, Description: "x"}, "amount"},
		{"bad type", NewTransaction{Amount: d(1), Type: "transfer", Category: CategoryNeeds, Description: "x"}, "type"},
		{"bad category", NewTransaction{Amount: d(1), Type: Income, Category: "food", Description: "x"}, "category"},
		{"blank description", NewTransaction{Amount: d(1), Type: Income, Category: CategoryNeeds, Description: "  "}, "description"},
		{"long description", NewTransaction{Amount: d(1), Type: Income, Category: CategoryNeeds, Description: strings.Repeat("a", 201)}, "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr, ok := AsValidationError(tc.tx.Validate())
			if !ok {
				t.Fatalf("expected validation error")
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestNewGoalAndDebtValidate(t *testing.T) {
	if err := (NewGoal{Name: "Bike", TargetAmount: d(500000)}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if verr, ok := AsValidationError(NewGoal{Name: "Bike"}.Validate()); !ok || verr.Field != "targetAmount" {
		t.Fatalf("expected targetAmount error, got %v", verr)
	}
	if verr, ok := AsValidationError(NewGoal{TargetAmount: d(1)}.Validate()); !ok || verr.Field != "name" {
		t.Fatalf("expected name error, got %v", verr)
	}
	if err := (NewDebt{Name: "Card", TotalAmount: d(1000)}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if verr, ok := AsValidationError(NewDebt{Name: "Card", TotalAmount: d(0)}.Validate()); !ok || verr.Field != "totalAmount" {
		t.Fatalf("expected totalAmount error, got %v", verr)
	}
}

func TestGoalUpdateValidate(t *testing.T) {
	zero := decimal.Zero
	neg := d(-1)
	if err := (GoalUpdate{CurrentAmount: &zero}).Validate(); err != nil {
		t.Fatalf("currentAmount 0 should be allowed: %v", err)
	}
	if verr, ok := AsValidationError(GoalUpdate{CurrentAmount: &neg}.Validate()); !ok || verr.Field != "currentAmount" {
		t.Fatalf("expected currentAmount error, got %v", verr)
	}
	if verr, ok := AsValidationError(GoalUpdate{TargetAmount: &zero}.Validate()); !ok || verr.Field != "targetAmount" {
		t.Fatalf("expected targetAmount error, got %v", verr)
	}
	if err := (GoalUpdate{}).Validate(); err == nil {
		t.Fatalf("empty update should fail")
	}
}

func TestGoalResolveStatus(t *testing.T) {
	g := Goal{TargetAmount: d(500000), CurrentAmount: d(220000)}
	g.ResolveStatus()
	if g.Status != GoalActive {
		t.Fatalf("status = %s", g.Status)
	}
	g.CurrentAmount = d(500000)
	g.ResolveStatus()
	if g.Status != GoalCompleted {
		t.Fatalf("status = %s", g.Status)
	}
	now := g.CreatedAt
	g.ClaimedAt = &now
	g.ResolveStatus()
	if g.Status != GoalClaimed {
		t.Fatalf("status = %s", g.Status)
	}
}

func TestAmountsMarshalAsNumbers(t *testing.T) {
	b, err := json.Marshal(Allocation{Needs: decimal.RequireFromString("417600.00")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"needs":417600`) {
		t.Fatalf("unexpected json %s", b)
	}

	var in NewGoal
	if err := json.Unmarshal([]byte(`{"name":"Trip","targetAmount":150.5}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.TargetAmount.Equal(decimal.RequireFromString("150.50")) {
		t.Fatalf("targetAmount = %s", in.TargetAmount)
	}
}

func TestCentsRoundTrip(t *testing.T) {
	got := decimal.RequireFromString("12.34")
	if Cents(got) != 1234 {
		t.Fatalf("cents = %d", Cents(got))
	}
	if !FromCents(1234).Equal(got) {
		t.Fatalf("round trip mismatch")
	}
}

func TestValidateRejectsHugeExponents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1e20000000", "amount is too large"},
		{"1e-20000000", "amount has too many decimal places"},
		{"123456789012345678901234567890123", "amount has too many digits"},
		{"1e15", "amount is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start := time.Now()
			err := ValidatePositive("amount", decimal.RequireFromString(tt.in))
			if time.Since(start) > time.Second {
				t.Fatalf("validation took %s", time.Since(start))
			}
			verr, ok := AsValidationError(err)
			if !ok || verr.Field != "amount" || verr.Message != tt.want {
				t.Fatalf("ValidatePositive(%s) = %v, want %q", tt.in, err, tt.want)
			}
		})
	}

	if err := ValidatePositive("amount", decimal.RequireFromString("2.50e3")); err != nil {
		t.Fatalf("exponent notation within range: %v", err)
	}
}
