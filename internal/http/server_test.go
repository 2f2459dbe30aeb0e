package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/services"
	"dompet/internal/storage/memory"
)

const testSecret = "test-secret"

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T, ledger Ledger) *testAPI {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	srv := NewServer(Config{Addr: ":0", APIPrefix: "/api"}, ledger, auth.NewJWTAuthenticator(testSecret), logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testAPI{t: t, handler: srv.Handler}
}

func newLedger() *services.LedgerService {
	return services.NewLedgerService(memory.New(), nil)
}

func (a *testAPI) do(owner, method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		token, err := auth.IssueToken(testSecret, owner, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + "/" + strconv.FormatInt(id, 10) + suffix
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "%s: want %d, got %s", msg, want, got)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, newLedger())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := api.do("", http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestUnauthorized(t *testing.T) {
	api := newTestAPI(t, newLedger())

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/goals"},
		{http.MethodPost, "/api/debts/1/pay"},
		{http.MethodGet, "/api/analytics/net-worth"},
		{http.MethodPost, "/api/analytics/allocator"},
	} {
		rec := api.do("", route.method, route.path, `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Equal(t, "unauthorized", decode[errorBody](t, rec).Message)
	}
}

func TestTransactionsAndNetWorth(t *testing.T) {
	api := newTestAPI(t, newLedger())

	rec := api.do("alice", http.MethodGet, "/api/analytics/net-worth", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"wallet":0,"savings":0,"debt":0,"totalAssets":0,"netWorth":0}`, rec.Body.String())

	rec = api.do("alice", http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do("alice", http.MethodPost, "/api/transactions", map[string]any{
		"amount": 720000, "type": "income", "category": "needs", "description": "salary",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Transaction](t, rec)
	assert.Equal(t, "alice", created.OwnerID)
	assert.Equal(t, idPath("/api/transactions", created.ID, ""), rec.Header().Get("Location"))

	rec = api.do("alice", http.MethodPost, "/api/transactions", map[string]any{
		"amount": "100000", "type": "expense", "category": "playing", "description": "concert",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	nw := decode[core.NetWorth](t, api.do("alice", http.MethodGet, "/api/analytics/net-worth", nil))
	assertAmount(t, 620000, nw.Wallet, "wallet")
	assertAmount(t, 620000, nw.NetWorth, "net worth")

	txs := decode[[]core.Transaction](t, api.do("alice", http.MethodGet, "/api/transactions", nil))
	assert.Len(t, txs, 2)

	rec = api.do("alice", http.MethodGet, idPath("/api/transactions", created.ID, ""), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do("alice", http.MethodDelete, idPath("/api/transactions", created.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do("alice", http.MethodDelete, idPath("/api/transactions", created.ID, ""), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationErrorsCarryField(t *testing.T) {
	api := newTestAPI(t, newLedger())

	tests := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{"missing amount", "/api/transactions", `{"type":"income","category":"needs","description":"x"}`, "amount"},
		{"non-numeric amount", "/api/transactions", `{"amount":"ten","type":"income","category":"needs","description":"x"}`, "amount"},
		{"negative amount", "/api/transactions", `{"amount":-5,"type":"income","category":"needs","description":"x"}`, "amount"},
		{"bad type", "/api/transactions", `{"amount":5,"type":"gift","category":"needs","description":"x"}`, "type"},
		{"bad category", "/api/transactions", `{"amount":5,"type":"income","category":"fun","description":"x"}`, "category"},
		{"wrong json type", "/api/transactions", `{"amount":5,"type":1,"category":"needs","description":"x"}`, "type"},
		{"too many decimals", "/api/goals", `{"name":"Bike","targetAmount":10.001}`, "targetAmount"},
		{"goal without name", "/api/goals", `{"targetAmount":10}`, "name"},
		{"debt zero total", "/api/debts", `{"name":"Card","totalAmount":0}`, "totalAmount"},
		{"negative income", "/api/analytics/allocator", `{"income":-1}`, "income"},
		{"missing income", "/api/analytics/allocator", `{}`, "income"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do("alice", http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.field, body.Field)
			assert.NotEmpty(t, body.Message)
		})
	}

	rec := api.do("alice", http.MethodPost, "/api/goals", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed JSON body", decode[errorBody](t, rec).Message)
}

func TestGoalLifecycle(t *testing.T) {
	api := newTestAPI(t, newLedger())

	rec := api.do("alice", http.MethodPost, "/api/goals", map[string]any{
		"name": "Bike", "targetAmount": 500000, "currentAmount": 999,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	g := decode[core.Goal](t, rec)
	assert.True(t, g.CurrentAmount.IsZero(), "client currentAmount is ignored")
	assert.Equal(t, core.GoalActive, g.Status)

	contribute := idPath("/api/goals", g.ID, "/contribute")
	rec = api.do("alice", http.MethodPatch, contribute, map[string]any{"amount": 200000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do("alice", http.MethodPatch, contribute, map[string]any{"amount": 20000})
	require.Equal(t, http.StatusOK, rec.Code)
	g = decode[core.Goal](t, rec)
	assertAmount(t, 220000, g.CurrentAmount, "current amount")
	assert.Equal(t, core.GoalActive, g.Status)
	assert.Empty(t, rec.Header().Get(recordedHeader))

	rec = api.do("alice", http.MethodPatch, contribute, map[string]any{"amount": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount", decode[errorBody](t, rec).Field)

	rec = api.do("alice", http.MethodPost, idPath("/api/goals", g.ID, "/claim"), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "currentAmount", decode[errorBody](t, rec).Field)

	rec = api.do("alice", http.MethodPatch, contribute, map[string]any{"amount": 280000, "record": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(recordedHeader))
	assert.Equal(t, core.GoalCompleted, decode[core.Goal](t, rec).Status)

	rec = api.do("alice", http.MethodPost, idPath("/api/goals", g.ID, "/claim"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.GoalClaimed, decode[core.Goal](t, rec).Status)

	rec = api.do("alice", http.MethodPatch, contribute, map[string]any{"amount": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status", decode[errorBody](t, rec).Field)

	nw := decode[core.NetWorth](t, api.do("alice", http.MethodGet, "/api/analytics/net-worth", nil))
	assertAmount(t, 500000, nw.Savings, "savings")
	assertAmount(t, -280000, nw.Wallet, "recorded contribution reduces wallet")

	rec = api.do("alice", http.MethodDelete, idPath("/api/goals", g.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateGoal(t *testing.T) {
	api := newTestAPI(t, newLedger())
	g := decode[core.Goal](t, api.do("alice", http.MethodPost, "/api/goals", map[string]any{"name": "Trip", "targetAmount": 1000}))

	rec := api.do("alice", http.MethodPatch, idPath("/api/goals", g.ID, ""), map[string]any{"currentAmount": "250.50", "isDumpBin": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g = decode[core.Goal](t, rec)
	assert.True(t, g.CurrentAmount.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, g.IsDumpBin)
	assert.Equal(t, "Trip", g.Name)

	rec = api.do("alice", http.MethodPatch, idPath("/api/goals", g.ID, ""), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDebtPayments(t *testing.T) {
	api := newTestAPI(t, newLedger())

	rec := api.do("alice", http.MethodPost, "/api/debts", map[string]any{"name": "Card", "totalAmount": 1000, "remainingAmount": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	d := decode[core.Debt](t, rec)
	assertAmount(t, 1000, d.RemainingAmount, "remaining starts at total")

	pay := idPath("/api/debts", d.ID, "/pay")
	for i := 0; i < 3; i++ {
		rec = api.do("alice", http.MethodPost, pay, map[string]any{"amount": 400})
		require.Equal(t, http.StatusOK, rec.Code)
		d = decode[core.Debt](t, rec)
		assert.False(t, d.RemainingAmount.IsNegative())
	}
	assert.True(t, d.RemainingAmount.IsZero())
	assert.True(t, d.PaidOff)

	rec = api.do("alice", http.MethodGet, "/api/debts", nil)
	assert.Len(t, decode[[]core.Debt](t, rec), 1, "paid-off debts stay until deleted")

	rec = api.do("alice", http.MethodDelete, idPath("/api/debts", d.ID, ""), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCrossOwnerIsolation(t *testing.T) {
	api := newTestAPI(t, newLedger())

	g := decode[core.Goal](t, api.do("bob", http.MethodPost, "/api/goals", map[string]any{"name": "Bike", "targetAmount": 100}))
	d := decode[core.Debt](t, api.do("bob", http.MethodPost, "/api/debts", map[string]any{"name": "Loan", "totalAmount": 100}))
	tx := decode[core.Transaction](t, api.do("bob", http.MethodPost, "/api/transactions", map[string]any{
		"amount": 5, "type": "income", "category": "needs", "description": "x",
	}))

	attempts := []struct {
		method, path string
		body         any
	}{
		{http.MethodPatch, idPath("/api/goals", g.ID, "/contribute"), map[string]any{"amount": 1}},
		{http.MethodGet, idPath("/api/goals", g.ID, ""), nil},
		{http.MethodDelete, idPath("/api/goals", g.ID, ""), nil},
		{http.MethodPost, idPath("/api/debts", d.ID, "/pay"), map[string]any{"amount": 1}},
		{http.MethodGet, idPath("/api/debts", d.ID, ""), nil},
		{http.MethodDelete, idPath("/api/debts", d.ID, ""), nil},
		{http.MethodGet, idPath("/api/transactions", tx.ID, ""), nil},
		{http.MethodDelete, idPath("/api/transactions", tx.ID, ""), nil},
	}

	absent := api.do("alice", http.MethodGet, "/api/goals/999999", nil)
	require.Equal(t, http.StatusNotFound, absent.Code)

	for _, a := range attempts {
		rec := api.do("alice", a.method, a.path, a.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", a.method, a.path)
		assert.Equal(t, absent.Body.String(), rec.Body.String(), "foreign and absent look the same")
	}

	// bob's data is untouched
	g = decode[core.Goal](t, api.do("bob", http.MethodGet, idPath("/api/goals", g.ID, ""), nil))
	assert.True(t, g.CurrentAmount.IsZero())
}

func TestAllocator(t *testing.T) {
	api := newTestAPI(t, newLedger())

	rec := api.do("alice", http.MethodPost, "/api/analytics/allocator", map[string]any{"income": 720000})
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[core.Allocation](t, rec)
	assertAmount(t, 417600, a.Needs, "needs")
	assertAmount(t, 93600, a.Living, "living")
	assertAmount(t, 122400, a.Playing, "playing")
	assertAmount(t, 86400, a.Booster, "booster")
	assertAmount(t, 720000, a.TotalIncome, "total")
}

func TestSummary(t *testing.T) {
	api := newTestAPI(t, newLedger())
	for _, body := range []map[string]any{
		{"amount": 100, "type": "income", "category": "needs", "description": "a"},
		{"amount": 30, "type": "expense", "category": "playing", "description": "b"},
		{"amount": 20, "type": "expense", "category": "playing", "description": "c"},
	} {
		require.Equal(t, http.StatusCreated, api.do("alice", http.MethodPost, "/api/transactions", body).Code)
	}

	s := decode[core.Summary](t, api.do("alice", http.MethodGet, "/api/analytics/summary", nil))
	assertAmount(t, 100, s.Income, "income")
	assertAmount(t, 50, s.Expense, "expense")
	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, 2, s.ByCategory[1].Count)
}

func TestRoutingErrors(t *testing.T) {
	api := newTestAPI(t, newLedger())

	rec := api.do("alice", http.MethodGet, "/api/goals/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/goals"},
		{http.MethodPut, "/api/analytics/net-worth"},
		{http.MethodGet, "/api/analytics/allocator"},
		{http.MethodPost, "/api/goals/1"},
		{http.MethodPut, "/api/debts/1"},
		{http.MethodPut, "/healthz"},
	} {
		rec = api.do("alice", tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
		assert.JSONEq(t, `{"message":"method not allowed"}`, rec.Body.String())
	}

	rec = api.do("alice", http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"not found"}`, rec.Body.String())
}

func TestOversizedAmountsAreRejectedQuickly(t *testing.T) {
	api := newTestAPI(t, newLedger())
	g := decode[core.Goal](t, api.do("alice", http.MethodPost, "/api/goals", map[string]any{"name": "Bike", "targetAmount": 100}))

	tests := []struct {
		method, path, body, field string
	}{
		{http.MethodPost, "/api/analytics/allocator", `{"income":1e20000000}`, "income"},
		{http.MethodPost, "/api/analytics/allocator", `{"income":"1e-20000000"}`, "income"},
		{http.MethodPost, "/api/analytics/allocator", `{"income":100000000000000}`, "income"},
		{http.MethodPatch, idPath("/api/goals", g.ID, "/contribute"), `{"amount":1e20000000}`, "amount"},
		{http.MethodPost, "/api/transactions", `{"amount":"` + strings.Repeat("9", 100) + `","type":"income","category":"needs","description":"x"}`, "amount"},
	}
	for _, tt := range tests {
		start := time.Now()
		rec := api.do("alice", tt.method, tt.path, tt.body)
		assert.Less(t, time.Since(start), time.Second, tt.body)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, tt.field, decode[errorBody](t, rec).Field)
	}
}

func TestRecordedContributionValidatesDescription(t *testing.T) {
	api := newTestAPI(t, newLedger())
	g := decode[core.Goal](t, api.do("alice", http.MethodPost, "/api/goals", map[string]any{"name": "Bike", "targetAmount": 100}))

	rec := api.do("alice", http.MethodPatch, idPath("/api/goals", g.ID, "/contribute"), map[string]any{
		"amount": 10, "record": true, "description": strings.Repeat("d", 201),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "description", decode[errorBody](t, rec).Field)
	assert.Empty(t, rec.Header().Get(recordedHeader))
}

func TestRateLimitAppliesToAPIRoutes(t *testing.T) {
	logger := log.New(log.Config{Output: io.Discard})
	srv := NewServer(Config{Addr: ":0", APIPrefix: "/api", RateLimitPerMinute: 1}, newLedger(), auth.NewJWTAuthenticator(testSecret), logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	api := &testAPI{t: t, handler: srv.Handler}

	assert.Equal(t, http.StatusOK, api.do("alice", http.MethodGet, "/api/goals", nil).Code)
	rec := api.do("alice", http.MethodGet, "/api/goals", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// health checks are not limited
	assert.Equal(t, http.StatusOK, api.do("", http.MethodGet, "/healthz", nil).Code)
}

// brokenLedger fails every read with an infrastructure error.
type brokenLedger struct {
	*services.LedgerService
}

func (brokenLedger) NetWorth(context.Context, string) (core.NetWorth, error) {
	return core.NetWorth{}, errors.New("compute net worth: load debts: connection reset")
}

func (brokenLedger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestInternalErrorsHideDetail(t *testing.T) {
	api := newTestAPI(t, brokenLedger{newLedger()})

	rec := api.do("alice", http.MethodGet, "/api/analytics/net-worth", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"internal server error"}`, rec.Body.String())

	rec = api.do("", http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	api := newTestAPI(t, newLedger())

	rec := api.do("alice", http.MethodGet, "/api/goals", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
