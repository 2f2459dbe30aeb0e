package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/services"
)

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps domain errors onto the public error shape. Anything
// unclassified is logged and reported as a bare 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := core.AsValidationError(err); ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Message: verr.Message, Field: verr.Field})
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Message: "not found"})
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, services.ErrNoOwner):
		respondJSON(w, http.StatusUnauthorized, errorBody{Message: "unauthorized"})
	default:
		ctx := r.Context()
		route := routeTemplate(r)
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
			log.ComponentHTTP, r.Method+" "+route,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, route, r.UserAgent()))
		respondJSON(w, http.StatusInternalServerError, errorBody{Message: "internal server error"})
	}
}

// pathID reads the {id} route variable. The route pattern only admits
// digits, so the remaining failure is overflow, reported as not found.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// owner returns the caller set by the auth middleware.
func owner(r *http.Request) (string, error) {
	return auth.OwnerFromContext(r.Context())
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
