package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dompet/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := log.New(log.Config{Format: "json", Output: buf})
	return NewMiddleware(logger,
		func(*http.Request) string { return "10.0.0.9" },
		func(*http.Request) string { return "/api/goals/{id}" })
}

func TestGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	var inCtx string
	h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/goals/7", nil))

	id := rec.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, inCtx)

	logged := buf.String()
	assert.Contains(t, logged, `"status_code":404`)
	assert.Contains(t, logged, `"route":"/api/goals/{id}"`)
	assert.Contains(t, logged, `"level":"WARN"`)
}

func TestKeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "upstream-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "upstream-1", rec.Header().Get(HeaderRequestID))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.NotEqual(t, strings.Repeat("x", 200), rec.Header().Get(HeaderRequestID))
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := &StatusRecorder{ResponseWriter: httptest.NewRecorder(), Status: http.StatusOK}
	_, _ = rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, rec.Status)
}
