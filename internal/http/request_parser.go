package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"dompet/internal/core"
	"dompet/internal/services"
)

const (
	maxBodyBytes = 1 << 20
	// Longest accepted textual amount, well above any value under MaxAmount.
	maxAmountChars = 64
)

// decodeJSON reads a single JSON object into dst. Decoding problems come
// back as ValidationErrors naming the field when one is known.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewValidationError("", "request body is required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return core.NewValidationError(typeErr.Field, typeErr.Field+" has the wrong type")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return core.NewValidationError("", "malformed JSON body")
		case errors.As(err, &maxErr):
			return core.NewValidationError("", "request body is too large")
		default:
			return core.NewValidationError("", "invalid request body")
		}
	}
	if dec.More() {
		return core.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

// amount parses a JSON number or numeric string. An absent or null value is
// reported as required.
func amount(field string, raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, core.NewValidationError(field, field+" is required")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, core.NewValidationError(field, field+" must be a number")
		}
		text = strings.TrimSpace(text)
	}
	if len(text) > maxAmountChars {
		return decimal.Zero, core.NewValidationError(field, field+" has too many digits")
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, core.NewValidationError(field, field+" must be a number")
	}
	if err := core.CheckMagnitude(field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// optionalAmount is amount for partial updates: absent or null yields nil.
func optionalAmount(field string, raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	d, err := amount(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type createTransactionRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

func (req createTransactionRequest) toDomain() (core.NewTransaction, error) {
	amt, err := amount("amount", req.Amount)
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Amount:      amt,
		Type:        core.TransactionType(strings.TrimSpace(req.Type)),
		Category:    core.Category(strings.TrimSpace(req.Category)),
		Description: strings.TrimSpace(req.Description),
	}, nil
}

type createGoalRequest struct {
	Name         string          `json:"name"`
	TargetAmount json.RawMessage `json:"targetAmount"`
	IsDumpBin    bool            `json:"isDumpBin"`
}

func (req createGoalRequest) toDomain() (core.NewGoal, error) {
	target, err := amount("targetAmount", req.TargetAmount)
	if err != nil {
		return core.NewGoal{}, err
	}
	return core.NewGoal{
		Name:         strings.TrimSpace(req.Name),
		TargetAmount: target,
		IsDumpBin:    req.IsDumpBin,
	}, nil
}

type updateGoalRequest struct {
	Name          *string         `json:"name"`
	TargetAmount  json.RawMessage `json:"targetAmount"`
	CurrentAmount json.RawMessage `json:"currentAmount"`
	IsDumpBin     *bool           `json:"isDumpBin"`
}

func (req updateGoalRequest) toDomain() (core.GoalUpdate, error) {
	target, err := optionalAmount("targetAmount", req.TargetAmount)
	if err != nil {
		return core.GoalUpdate{}, err
	}
	current, err := optionalAmount("currentAmount", req.CurrentAmount)
	if err != nil {
		return core.GoalUpdate{}, err
	}
	u := core.GoalUpdate{
		TargetAmount:  target,
		CurrentAmount: current,
		IsDumpBin:     req.IsDumpBin,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		u.Name = &name
	}
	return u, nil
}

type createDebtRequest struct {
	Name        string          `json:"name"`
	TotalAmount json.RawMessage `json:"totalAmount"`
}

func (req createDebtRequest) toDomain() (core.NewDebt, error) {
	total, err := amount("totalAmount", req.TotalAmount)
	if err != nil {
		return core.NewDebt{}, err
	}
	return core.NewDebt{Name: strings.TrimSpace(req.Name), TotalAmount: total}, nil
}

// movementRequest is the body of contribute and pay.
type movementRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Record      bool            `json:"record"`
	Description string          `json:"description"`
}

func (req movementRequest) toMovement() (services.Movement, error) {
	amt, err := amount("amount", req.Amount)
	if err != nil {
		return services.Movement{}, err
	}
	return services.Movement{Amount: amt, Record: req.Record, Description: strings.TrimSpace(req.Description)}, nil
}

type allocateRequest struct {
	Income json.RawMessage `json:"income"`
}

func (req allocateRequest) income() (decimal.Decimal, error) {
	return amount("income", req.Income)
}

// recordedHeader carries the id of a transaction written alongside a
// contribution or payment.
const recordedHeader = "X-Recorded-Transaction-ID"

func setRecorded(w http.ResponseWriter, id int64) {
	w.Header().Set(recordedHeader, fmt.Sprint(id))
}
