package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	goals, err := s.ledger.ListGoals(r.Context(), ownerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(goals))
}

// handleCreateGoal ignores any client-sent currentAmount; goals start at 0.
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := req.toDomain()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	g, err := s.ledger.CreateGoal(r.Context(), ownerID, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, g.ID))
	respondJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
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
	g, err := s.ledger.GetGoal(r.Context(), ownerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
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

	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := req.toDomain()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	g, err := s.ledger.UpdateGoal(r.Context(), ownerID, id, u)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
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

	g, written, err := s.ledger.ContributeToGoal(r.Context(), ownerID, id, m)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if written != nil {
		setRecorded(w, written.ID)
	}
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleClaimGoal(w http.ResponseWriter, r *http.Request) {
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
	g, err := s.ledger.ClaimGoal(r.Context(), ownerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
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
	if err := s.ledger.DeleteGoal(r.Context(), ownerID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
