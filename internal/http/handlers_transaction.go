package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), ownerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := req.toDomain()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), ownerID, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, tx.ID))
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
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
	tx, err := s.ledger.GetTransaction(r.Context(), ownerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
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
	if err := s.ledger.DeleteTransaction(r.Context(), ownerID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
