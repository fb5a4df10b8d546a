package server

import (
	"net/http"

	"github.com/jonathan/cv-builder/internal/types"
)

// handleUsage reports the daily counters and the subscription
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary, err := s.tracker(id).Summary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

// handleActivateSubscription lifts the daily limits for a number of months
func (s *Server) handleActivateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req types.SubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	info, err := s.tracker(id).ActivatePremium(r.Context(), req.Months)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}

// handleCancelSubscription restores the free limits
func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tracker := s.tracker(id)
	if err := tracker.CancelPremium(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	info, err := tracker.SubscriptionInfo(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}
