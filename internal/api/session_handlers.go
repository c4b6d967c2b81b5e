package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/errors"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/services"
)

const defaultSessionListLimit = 20

// Limits and mode are checked when the session is built, so they are not
// validated here.
type startSessionRequest struct {
	IncludeSubdecks bool     `json:"include_subdecks"`
	ReviewLimit     *int     `json:"review_limit"`
	Mode            string   `json:"mode"`
	Seed            *int64   `json:"seed"`
	Tags            []string `json:"tags" validate:"max=50,dive,required"`
	FlaggedOnly     bool     `json:"flagged_only"`
	NewCardLimit    *int     `json:"new_card_limit" validate:"omitempty,gte=0"`
	NewCardSpacing  *int     `json:"new_card_spacing" validate:"omitempty,gte=0"`
}

type reviewRequest struct {
	CardID       uuid.UUID `json:"card_id" validate:"required"`
	Rating       string    `json:"rating" validate:"required"`
	ResponseTime float64   `json:"response_time" validate:"gte=0"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	deckID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req startSessionRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	session, err := s.StudyService.StartSession(r.Context(), deckID, services.StartParams{
		IncludeSubdecks: req.IncludeSubdecks,
		ReviewLimit:     req.ReviewLimit,
		Mode:            models.StudyMode(req.Mode),
		Seed:            req.Seed,
		Tags:            req.Tags,
		FlaggedOnly:     req.FlaggedOnly,
		NewCardLimit:    req.NewCardLimit,
		NewCardSpacing:  req.NewCardSpacing,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	deckID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultSessionListLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	sessions, err := s.StudyService.ListSessions(r.Context(), deckID, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	session, err := s.StudyService.GetSession(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

// handleNextCard answers 204 once the session has nothing left to show.
func (s *Server) handleNextCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	next, err := s.StudyService.NextCard(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if next == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, next)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req reviewRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	rating, err := models.ParseReviewRating(req.Rating)
	if err != nil {
		handleError(w, r, errors.NewValidationError("rating", "must be one of again, hard, good, easy"))
		return
	}

	result, err := s.StudyService.ReviewCard(r.Context(), id, req.CardID, rating, req.ResponseTime)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	session, err := s.StudyService.EndSession(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, session)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	stats, err := s.StudyService.SessionStats(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}
