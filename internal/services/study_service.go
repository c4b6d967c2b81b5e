package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/clock"
	"github.com/vytor/studydeck/internal/errors"
	"github.com/vytor/studydeck/internal/flashcard"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
	"github.com/vytor/studydeck/internal/selection"
	"github.com/vytor/studydeck/internal/study"
)

// StudyDefaults fill in whatever a StartParams leaves unset. Zero means no limit.
type StudyDefaults struct {
	ReviewLimit    int
	NewCardLimit   int
	NewCardSpacing int
}

// StartParams are the caller's choices for a new session. Nil fields fall back
// to the service's StudyDefaults.
type StartParams struct {
	IncludeSubdecks bool
	ReviewLimit     *int
	Mode            models.StudyMode
	Seed            *int64
	Tags            []string
	FlaggedOnly     bool
	NewCardLimit    *int
	NewCardSpacing  *int
}

// ReviewResult is returned after an accepted review.
type ReviewResult struct {
	Session    models.StudySession `json:"session"`
	Review     models.Review       `json:"review"`
	Card       models.Card         `json:"card"`
	NextCardID *uuid.UUID          `json:"next_card_id,omitempty"`
}

// Projection is where a card would land if reviewed now with one rating.
type Projection struct {
	Interval       int                 `json:"interval"`
	Ease           float64             `json:"ease"`
	MasteryLevel   models.MasteryLevel `json:"mastery_level"`
	NextReviewDate time.Time           `json:"next_review_date"`
}

// NextCardView is the card to show next plus the outcome of each rating, keyed by rating name.
type NextCardView struct {
	Card        models.Card           `json:"card"`
	Projections map[string]Projection `json:"projections"`
}

// StudyService runs study sessions against stored decks and cards
type StudyService interface {
	StartSession(ctx context.Context, deckID uuid.UUID, params StartParams) (*models.StudySession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.StudySession, error)
	ListSessions(ctx context.Context, deckID uuid.UUID, limit int) ([]models.StudySession, error)
	NextCard(ctx context.Context, sessionID uuid.UUID) (*NextCardView, error)
	ReviewCard(ctx context.Context, sessionID, cardID uuid.UUID, rating models.ReviewRating, responseTime float64) (*ReviewResult, error)
	EndSession(ctx context.Context, id uuid.UUID) (*models.StudySession, error)
	SessionStats(ctx context.Context, id uuid.UUID) (*models.SessionStats, error)
	CardStats(ctx context.Context, cardID uuid.UUID) (*models.CardStudyStats, error)
}

type studyService struct {
	manager     *study.Manager
	deckRepo    repository.DeckRepository
	cardRepo    repository.CardRepository
	reviewRepo  repository.ReviewRepository
	sessionRepo repository.SessionRepository
	store       repository.StudyStore
	clock       clock.Clock
	defaults    StudyDefaults
	locks       *keyedMutex
}

// NewStudyService creates a new StudyService
func NewStudyService(
	manager *study.Manager,
	deckRepo repository.DeckRepository,
	cardRepo repository.CardRepository,
	reviewRepo repository.ReviewRepository,
	sessionRepo repository.SessionRepository,
	store repository.StudyStore,
	clk clock.Clock,
	defaults StudyDefaults,
) StudyService {
	return &studyService{
		manager:     manager,
		deckRepo:    deckRepo,
		cardRepo:    cardRepo,
		reviewRepo:  reviewRepo,
		sessionRepo: sessionRepo,
		store:       store,
		clock:       clk,
		defaults:    defaults,
		locks:       newKeyedMutex(),
	}
}

func (s *studyService) StartSession(ctx context.Context, deckID uuid.UUID, params StartParams) (*models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("starting session: deck_id=%s, mode=%s, subdecks=%v", deckID, params.Mode, params.IncludeSubdecks)

	deck, err := s.deckRepo.Get(ctx, deckID)
	if err != nil {
		return nil, repoError(err, "deck", deckID)
	}
	decks, err := s.deckRepo.List(ctx)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, errors.NewInternalError(err)
	}

	now := s.clock.Now()

	// An unresolvable hierarchy leaves the pool empty; the manager reports why.
	var pool []models.Card
	if scope, err := selection.DeckScope(decks, deckID, params.IncludeSubdecks); err == nil {
		pool, err = s.cardRepo.List(ctx, models.CardFilter{DeckIDs: scope, DueBefore: &now})
		if err != nil {
			log.Error("failed to load card pool: %v", err)
			return nil, errors.NewInternalError(err)
		}
	}

	req := study.StartRequest{
		Deck:            *deck,
		Decks:           decks,
		Pool:            pool,
		IncludeSubdecks: params.IncludeSubdecks,
		ReviewLimit:     params.ReviewLimit,
		Mode:            params.Mode,
		Tags:            params.Tags,
		FlaggedOnly:     params.FlaggedOnly,
		NewCardLimit:    s.defaults.NewCardLimit,
		NewCardSpacing:  s.defaults.NewCardSpacing,
	}
	if req.ReviewLimit == nil && s.defaults.ReviewLimit > 0 {
		limit := s.defaults.ReviewLimit
		req.ReviewLimit = &limit
	}
	if params.NewCardLimit != nil {
		req.NewCardLimit = *params.NewCardLimit
	}
	if params.NewCardSpacing != nil {
		req.NewCardSpacing = *params.NewCardSpacing
	}
	if params.Seed != nil {
		req.Seed = *params.Seed
	} else {
		req.Seed = now.UnixNano()
	}

	session, err := s.manager.Start(req, now)
	if err != nil {
		log.Warn("session not started: deck_id=%s: %v", deckID, err)
		return nil, err
	}

	if err := s.sessionRepo.Insert(ctx, session); err != nil {
		log.Error("failed to save session: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("session started: id=%s, deck_id=%s, cards=%d", session.ID, deckID, len(session.ScheduledCards))
	return &session, nil
}

func (s *studyService) GetSession(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("getting session: id=%s", id)

	return s.loadSession(ctx, id)
}

func (s *studyService) ListSessions(ctx context.Context, deckID uuid.UUID, limit int) ([]models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("listing sessions: deck_id=%s, limit=%d", deckID, limit)

	if _, err := s.deckRepo.Get(ctx, deckID); err != nil {
		return nil, repoError(err, "deck", deckID)
	}
	sessions, err := s.sessionRepo.ListByDeck(ctx, deckID, limit)
	if err != nil {
		log.Error("failed to list sessions: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if sessions == nil {
		sessions = []models.StudySession{}
	}
	return sessions, nil
}

// NextCard returns nil once the session is ended or exhausted.
func (s *studyService) NextCard(ctx context.Context, sessionID uuid.UUID) (*NextCardView, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("next card: session_id=%s", sessionID)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cardID, ok := study.NextCardID(*session)
	if !ok {
		return nil, nil
	}
	card, err := s.cardRepo.Get(ctx, cardID)
	if err != nil {
		return nil, repoError(err, "card", cardID)
	}
	return &NextCardView{Card: *card, Projections: s.projections(*card)}, nil
}

func (s *studyService) projections(card models.Card) map[string]Projection {
	now := s.clock.Now()
	preview := s.manager.Scheduler().Preview(flashcard.StateOf(card))
	out := make(map[string]Projection, len(preview))
	for rating, res := range preview {
		out[rating.String()] = Projection{
			Interval:       res.Interval,
			Ease:           res.Ease,
			MasteryLevel:   res.MasteryLevel,
			NextReviewDate: flashcard.NextReviewDate(now, res.Interval),
		}
	}
	return out
}

func (s *studyService) ReviewCard(ctx context.Context, sessionID, cardID uuid.UUID, rating models.ReviewRating, responseTime float64) (*ReviewResult, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("reviewing card: session_id=%s, card_id=%s, rating=%s", sessionID, cardID, rating)

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	card, err := s.cardRepo.Get(ctx, cardID)
	switch {
	case err == nil:
	case stderrors.Is(err, sql.ErrNoRows) && !session.IsScheduled(cardID):
		// Let the manager report closed or unscheduled for unknown cards.
		card = &models.Card{ID: cardID}
	default:
		return nil, repoError(err, "card", cardID)
	}

	outcome, err := s.manager.RecordReview(*session, *card, rating, responseTime, s.clock.Now())
	if err != nil {
		log.Debug("review rejected: %v", err)
		return nil, err
	}

	if err := s.store.SaveReview(ctx, outcome.Card, outcome.Review, outcome.Session); err != nil {
		log.Error("failed to save review: %v", err)
		return nil, errors.NewInternalError(err)
	}

	result := &ReviewResult{Session: outcome.Session, Review: outcome.Review, Card: outcome.Card}
	if next, ok := study.NextCardID(outcome.Session); ok {
		result.NextCardID = &next
	}
	if outcome.Session.IsEnded() {
		log.Info("session finished: id=%s, correct=%d, incorrect=%d",
			sessionID, outcome.Session.CorrectCount, outcome.Session.IncorrectCount)
	}
	return result, nil
}

// EndSession is idempotent; an ended session is returned without a write.
func (s *studyService) EndSession(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("ending session: id=%s", id)

	unlock := s.locks.Lock(id)
	defer unlock()

	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsEnded() {
		return session, nil
	}

	ended := s.manager.End(*session, s.clock.Now())
	if err := s.sessionRepo.Update(ctx, ended); err != nil {
		log.Error("failed to end session: %v", err)
		return nil, repoError(err, "session", id)
	}
	log.Info("session ended: id=%s, status=%s", id, ended.Status())
	return &ended, nil
}

func (s *studyService) SessionStats(ctx context.Context, id uuid.UUID) (*models.SessionStats, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("session stats: id=%s", id)

	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListBySession(ctx, id)
	if err != nil {
		log.Error("failed to list session reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}
	stats := study.Stats(*session, reviews, s.clock.Now())
	return &stats, nil
}

func (s *studyService) CardStats(ctx context.Context, cardID uuid.UUID) (*models.CardStudyStats, error) {
	log := logger.FromContext(ctx).WithPrefix("study_service")
	log.Debug("card stats: id=%s", cardID)

	if _, err := s.cardRepo.Get(ctx, cardID); err != nil {
		return nil, repoError(err, "card", cardID)
	}
	reviews, err := s.reviewRepo.ListByCard(ctx, cardID)
	if err != nil {
		log.Error("failed to list card reviews: %v", err)
		return nil, errors.NewInternalError(err)
	}
	stats := models.NewCardStudyStats(cardID, reviews)
	return &stats, nil
}

func (s *studyService) loadSession(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err, "session", id)
	}
	if err := study.Validate(*session); err != nil {
		logger.FromContext(ctx).WithPrefix("study_service").Error("stored session is inconsistent: %v", err)
		return nil, err
	}
	return session, nil
}
