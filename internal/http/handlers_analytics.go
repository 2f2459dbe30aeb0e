package http

import (
	"net/http"
)

// handleNetWorth recomputes the snapshot on every call.
func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	nw, err := s.ledger.NetWorth(r.Context(), ownerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nw)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), ownerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// handleAllocate is pure but still sits behind auth like every /api route.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	income, err := req.income()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	alloc, err := s.ledger.Allocate(income)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alloc)
}
