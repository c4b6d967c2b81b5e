package api

import (
	"fmt"
	"net/http"

	"github.com/vytor/studydeck/internal/errors"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/services"
)

type createCardRequest struct {
	Question       string   `json:"question" validate:"required,max=4000"`
	Answer         string   `json:"answer" validate:"required,max=4000"`
	AdditionalInfo *string  `json:"additional_info" validate:"omitempty,max=4000"`
	Tags           []string `json:"tags" validate:"max=50,dive,required,max=64"`
	IsFlagged      bool     `json:"is_flagged"`
}

type updateCardRequest struct {
	Question       *string   `json:"question" validate:"omitempty,min=1,max=4000"`
	Answer         *string   `json:"answer" validate:"omitempty,min=1,max=4000"`
	AdditionalInfo *string   `json:"additional_info" validate:"omitempty,max=4000"`
	Tags           *[]string `json:"tags" validate:"omitempty,max=50"`
	IsFlagged      *bool     `json:"is_flagged"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	deckID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	filter, err := s.cardFilterFromQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	cards, err := s.DeckService.ListCards(r.Context(), deckID, filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cards)
}

// cardFilterFromQuery reads tags, flagged, due, mastery, limit and offset.
func (s *Server) cardFilterFromQuery(r *http.Request) (models.CardFilter, error) {
	var filter models.CardFilter
	var err error

	filter.Tags = queryList(r, "tags")
	if filter.FlaggedOnly, err = queryBool(r, "flagged"); err != nil {
		return filter, err
	}
	due, err := queryBool(r, "due")
	if err != nil {
		return filter, err
	}
	if due {
		now := s.Clock.Now()
		filter.DueBefore = &now
	}
	if raw := r.URL.Query().Get("mastery"); raw != "" {
		level, err := models.ParseMasteryLevel(raw)
		if err != nil {
			return filter, errors.NewBadRequestError(fmt.Sprintf("invalid mastery: %v", err))
		}
		filter.Mastery = &level
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	deckID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req createCardRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.DeckService.AddCard(r.Context(), deckID, services.CardInput{
		Question:       req.Question,
		Answer:         req.Answer,
		AdditionalInfo: req.AdditionalInfo,
		Tags:           req.Tags,
		IsFlagged:      req.IsFlagged,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, card)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.DeckService.GetCard(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req updateCardRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.DeckService.UpdateCard(r.Context(), id, services.CardUpdate{
		Question:       req.Question,
		Answer:         req.Answer,
		AdditionalInfo: req.AdditionalInfo,
		Tags:           req.Tags,
		IsFlagged:      req.IsFlagged,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.DeckService.DeleteCard(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.DeckService.ResetCard(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleCardStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	stats, err := s.StudyService.CardStats(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}
