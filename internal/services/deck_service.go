package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/clock"
	"github.com/vytor/studydeck/internal/errors"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
	"github.com/vytor/studydeck/internal/selection"
)

// DeckInput carries the editable fields of a deck.
type DeckInput struct {
	Name        string
	Description string
	Icon        string
	ColorName   string
	ParentID    *uuid.UUID
}

// CardInput carries the content of a new card.
type CardInput struct {
	Question       string
	Answer         string
	AdditionalInfo *string
	Tags           []string
	IsFlagged      bool
}

// CardUpdate changes only the fields that are set.
type CardUpdate struct {
	Question       *string
	Answer         *string
	AdditionalInfo *string
	Tags           *[]string
	IsFlagged      *bool
}

// DeckSummary is a deck with its own card counts, subdecks excluded.
type DeckSummary struct {
	models.Deck
	CardCount    int `json:"card_count"`
	DueCardCount int `json:"due_card_count"`
}

// DeckService handles decks, their cards and deck-level statistics
type DeckService interface {
	CreateDeck(ctx context.Context, input DeckInput) (*models.Deck, error)
	GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error)
	ListDecks(ctx context.Context) ([]models.Deck, error)
	UpdateDeck(ctx context.Context, id uuid.UUID, input DeckInput) (*models.Deck, error)
	DeleteDeck(ctx context.Context, id uuid.UUID) error
	DeckSummaries(ctx context.Context) ([]DeckSummary, error)
	AddCard(ctx context.Context, deckID uuid.UUID, input CardInput) (*models.Card, error)
	ListCards(ctx context.Context, deckID uuid.UUID, filter models.CardFilter) ([]models.Card, error)
	GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error)
	UpdateCard(ctx context.Context, id uuid.UUID, update CardUpdate) (*models.Card, error)
	ResetCard(ctx context.Context, id uuid.UUID) (*models.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	DeckStats(ctx context.Context, id uuid.UUID) (*models.DeckStats, error)
}

type deckService struct {
	deckRepo    repository.DeckRepository
	cardRepo    repository.CardRepository
	reviewRepo  repository.ReviewRepository
	sessionRepo repository.SessionRepository
	clock       clock.Clock
}

// NewDeckService creates a new DeckService
func NewDeckService(
	deckRepo repository.DeckRepository,
	cardRepo repository.CardRepository,
	reviewRepo repository.ReviewRepository,
	sessionRepo repository.SessionRepository,
	clk clock.Clock,
) DeckService {
	return &deckService{deckRepo: deckRepo, cardRepo: cardRepo, reviewRepo: reviewRepo, sessionRepo: sessionRepo, clock: clk}
}

func (s *deckService) CreateDeck(ctx context.Context, input DeckInput) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("creating deck: name=%s", input.Name)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "cannot be empty")
	}
	if input.ParentID != nil {
		if _, err := s.deckRepo.Get(ctx, *input.ParentID); err != nil {
			log.Debug("parent deck lookup failed: %v", err)
			return nil, repoError(err, "parent deck", *input.ParentID)
		}
	}

	now := s.clock.Now()
	deck := models.Deck{
		ID:          uuid.New(),
		ParentID:    input.ParentID,
		Name:        name,
		Description: input.Description,
		Icon:        input.Icon,
		ColorName:   input.ColorName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deckRepo.Insert(ctx, deck); err != nil {
		log.Error("failed to create deck: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("deck created: id=%s, name=%s", deck.ID, deck.Name)
	return &deck, nil
}

func (s *deckService) GetDeck(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("getting deck: id=%s", id)

	deck, err := s.deckRepo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err, "deck", id)
	}
	return deck, nil
}

func (s *deckService) ListDecks(ctx context.Context) ([]models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("listing decks")

	decks, err := s.deckRepo.List(ctx)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if decks == nil {
		decks = []models.Deck{}
	}
	return decks, nil
}

func (s *deckService) UpdateDeck(ctx context.Context, id uuid.UUID, input DeckInput) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("updating deck: id=%s", id)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "cannot be empty")
	}
	decks, err := s.deckRepo.List(ctx)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, errors.NewInternalError(err)
	}
	current, ok := findDeck(decks, id)
	if !ok {
		return nil, errors.NewNotFoundError("deck", id)
	}

	updated := current
	updated.Name = name
	updated.Description = input.Description
	updated.Icon = input.Icon
	updated.ColorName = input.ColorName
	updated.ParentID = input.ParentID
	updated.UpdatedAt = s.clock.Now()

	if updated.ParentID != nil {
		if _, ok := findDeck(decks, *updated.ParentID); !ok {
			return nil, errors.NewNotFoundError("parent deck", *updated.ParentID)
		}
		// Walking the new parent chain rejects moves under a descendant.
		moved := make([]models.Deck, len(decks))
		for i, d := range decks {
			if d.ID == id {
				d = updated
			}
			moved[i] = d
		}
		if _, err := selection.DeckScope(moved, id, false); err != nil {
			return nil, errors.NewValidationError("parent_id", "would create a cycle")
		}
	}

	if err := s.deckRepo.Update(ctx, updated); err != nil {
		log.Error("failed to update deck: %v", err)
		return nil, repoError(err, "deck", id)
	}
	return &updated, nil
}

func (s *deckService) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("deleting deck: id=%s", id)

	decks, err := s.deckRepo.List(ctx)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return errors.NewInternalError(err)
	}
	scope, err := selection.DeckScope(decks, id, true)
	if err != nil {
		if _, ok := findDeck(decks, id); !ok {
			return errors.NewNotFoundError("deck", id)
		}
		log.Error("invalid deck hierarchy: %v", err)
		return errors.NewInternalError(err)
	}
	// Sessions of the deleted decks cascade with them.
	if err := s.ensureNotPending(ctx, nil, scope); err != nil {
		return err
	}

	if err := s.deckRepo.Delete(ctx, id); err != nil {
		return repoError(err, "deck", id)
	}
	log.Info("deck deleted: id=%s", id)
	return nil
}

func (s *deckService) DeckSummaries(ctx context.Context) ([]DeckSummary, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")

	decks, err := s.ListDecks(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	summaries := make([]DeckSummary, 0, len(decks))
	for _, d := range decks {
		ids := []uuid.UUID{d.ID}
		total, err := s.cardRepo.CountByDeck(ctx, ids, nil)
		if err != nil {
			log.Error("failed to count cards: deck_id=%s: %v", d.ID, err)
			return nil, errors.NewInternalError(err)
		}
		due, err := s.cardRepo.CountByDeck(ctx, ids, &now)
		if err != nil {
			log.Error("failed to count due cards: deck_id=%s: %v", d.ID, err)
			return nil, errors.NewInternalError(err)
		}
		summaries = append(summaries, DeckSummary{Deck: d, CardCount: total, DueCardCount: due})
	}
	return summaries, nil
}

func (s *deckService) AddCard(ctx context.Context, deckID uuid.UUID, input CardInput) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("adding card: deck_id=%s", deckID)

	question := strings.TrimSpace(input.Question)
	answer := strings.TrimSpace(input.Answer)
	if question == "" {
		return nil, errors.NewValidationError("question", "cannot be empty")
	}
	if answer == "" {
		return nil, errors.NewValidationError("answer", "cannot be empty")
	}
	if _, err := s.deckRepo.Get(ctx, deckID); err != nil {
		return nil, repoError(err, "deck", deckID)
	}

	card := models.NewCard(deckID, question, answer, s.clock.Now()).WithTags(input.Tags)
	card.AdditionalInfo = input.AdditionalInfo
	card.IsFlagged = input.IsFlagged

	if err := s.cardRepo.Insert(ctx, card); err != nil {
		log.Error("failed to insert card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Debug("card added: id=%s", card.ID)
	return &card, nil
}

func (s *deckService) ListCards(ctx context.Context, deckID uuid.UUID, filter models.CardFilter) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("listing cards: deck_id=%s", deckID)

	if _, err := s.deckRepo.Get(ctx, deckID); err != nil {
		return nil, repoError(err, "deck", deckID)
	}
	filter.DeckIDs = []uuid.UUID{deckID}
	cards, err := s.cardRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if cards == nil {
		cards = []models.Card{}
	}
	return cards, nil
}

func (s *deckService) GetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("getting card: id=%s", id)

	card, err := s.cardRepo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err, "card", id)
	}
	return card, nil
}

func (s *deckService) UpdateCard(ctx context.Context, id uuid.UUID, update CardUpdate) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("updating card: id=%s", id)

	card, err := s.cardRepo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err, "card", id)
	}

	if update.Question != nil {
		q := strings.TrimSpace(*update.Question)
		if q == "" {
			return nil, errors.NewValidationError("question", "cannot be empty")
		}
		card.Question = q
	}
	if update.Answer != nil {
		a := strings.TrimSpace(*update.Answer)
		if a == "" {
			return nil, errors.NewValidationError("answer", "cannot be empty")
		}
		card.Answer = a
	}
	if update.AdditionalInfo != nil {
		if *update.AdditionalInfo == "" {
			card.AdditionalInfo = nil
		} else {
			card.AdditionalInfo = update.AdditionalInfo
		}
	}
	if update.Tags != nil {
		*card = card.WithTags(*update.Tags)
	}
	if update.IsFlagged != nil {
		card.IsFlagged = *update.IsFlagged
	}
	card.UpdatedAt = s.clock.Now()

	if err := s.cardRepo.Update(ctx, *card); err != nil {
		log.Error("failed to update card: %v", err)
		return nil, repoError(err, "card", id)
	}
	return card, nil
}

func (s *deckService) ResetCard(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("resetting card: id=%s", id)

	card, err := s.cardRepo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err, "card", id)
	}
	reset := card.Reset(s.clock.Now())
	if err := s.cardRepo.Update(ctx, reset); err != nil {
		log.Error("failed to reset card: %v", err)
		return nil, repoError(err, "card", id)
	}
	log.Info("card reset: id=%s", id)
	return &reset, nil
}

func (s *deckService) DeleteCard(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("deleting card: id=%s", id)

	if err := s.ensureNotPending(ctx, []uuid.UUID{id}, nil); err != nil {
		return err
	}
	if err := s.cardRepo.Delete(ctx, id); err != nil {
		return repoError(err, "card", id)
	}
	return nil
}

func (s *deckService) ensureNotPending(ctx context.Context, cardIDs, deckIDs []uuid.UUID) error {
	n, err := s.sessionRepo.CountOpenWithPending(ctx, cardIDs, deckIDs)
	if err != nil {
		logger.FromContext(ctx).WithPrefix("deck_service").Error("failed to count open sessions: %v", err)
		return errors.NewInternalError(err)
	}
	if n > 0 {
		return errors.NewConflictError(fmt.Sprintf("%d open study session(s) still have cards pending here; end them first", n))
	}
	return nil
}

// DeckStats aggregates over the deck and all of its subdecks.
func (s *deckService) DeckStats(ctx context.Context, id uuid.UUID) (*models.DeckStats, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_service")
	log.Debug("computing deck stats: id=%s", id)

	decks, err := s.deckRepo.List(ctx)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, errors.NewInternalError(err)
	}
	scope, err := selection.DeckScope(decks, id, true)
	if err != nil {
		if _, ok := findDeck(decks, id); !ok {
			return nil, errors.NewNotFoundError("deck", id)
		}
		log.Error("invalid deck hierarchy: %v", err)
		return nil, errors.NewInternalError(err)
	}

	cards, err := s.cardRepo.List(ctx, models.CardFilter{DeckIDs: scope})
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	now := s.clock.Now()
	reviews, err := s.reviewRepo.ListByDecksSince(ctx, scope, startOfDay(now))
	if err != nil {
		log.Error("failed to list today's reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}

	stats := computeDeckStats(id, cards, reviews, now)
	return &stats, nil
}

func computeDeckStats(deckID uuid.UUID, cards []models.Card, today []models.Review, now time.Time) models.DeckStats {
	stats := models.DeckStats{
		DeckID:          deckID,
		CardCount:       len(cards),
		ByMastery:       make(map[string]int),
		ByLearningState: make(map[models.LearningState]int),
	}
	for level := models.MasteryNovice; level <= models.MasteryExpert; level++ {
		stats.ByMastery[level.String()] = 0
	}

	var easeSum, accuracySum float64
	var reviewed int
	for _, c := range cards {
		if c.IsDue(now) {
			stats.DueCardCount++
		}
		stats.ByMastery[c.MasteryLevel.String()]++
		stats.ByLearningState[c.LearningState(now)]++
		easeSum += c.Ease
		if c.ReviewCount > 0 {
			reviewed++
			accuracySum += c.Accuracy()
		}
		if c.LastReviewedAt != nil && (stats.LastStudyDate == nil || c.LastReviewedAt.After(*stats.LastStudyDate)) {
			last := *c.LastReviewedAt
			stats.LastStudyDate = &last
		}
	}
	if len(cards) > 0 {
		stats.AverageEase = easeSum / float64(len(cards))
	}
	if reviewed > 0 {
		stats.AverageAccuracy = accuracySum / float64(reviewed)
	}

	studied := make(map[uuid.UUID]bool)
	for _, r := range today {
		studied[r.CardID] = true
		stats.StudyTimeToday += r.ResponseTime
	}
	stats.CardsStudiedToday = len(studied)
	return stats
}

func findDeck(decks []models.Deck, id uuid.UUID) (models.Deck, bool) {
	for _, d := range decks {
		if d.ID == id {
			return d, true
		}
	}
	return models.Deck{}, false
}
