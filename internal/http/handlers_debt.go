package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	debts, err := s.ledger.ListDebts(r.Context(), ownerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(debts))
}

// handleCreateDebt ignores any client-sent remainingAmount; it starts at
// totalAmount.
func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req createDebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := req.toDomain()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.ledger.CreateDebt(r.Context(), ownerID, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, d.ID))
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	d, err := s.ledger.GetDebt(r.Context(), ownerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handlePayDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req movementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	m, err := req.toMovement()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	d, written, err := s.ledger.PayDebt(r.Context(), ownerID, id, m)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if written != nil {
		setRecorded(w, written.ID)
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.ledger.DeleteDebt(r.Context(), ownerID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
