// Package study runs the study-session state machine. Sessions are values:
// every operation takes a session and returns a new one, leaving the input
// untouched. Callers serialise mutations of a given session.
package study

import (
	stderrors "errors"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/errors"
	"github.com/vytor/studydeck/internal/flashcard"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/selection"
)

// StartRequest describes the session a caller wants to begin.
type StartRequest struct {
	Deck models.Deck
	// Decks is the known hierarchy used to resolve subdecks. Deck is always
	// part of it, even when Decks is empty.
	Decks           []models.Deck
	Pool            []models.Card
	IncludeSubdecks bool
	ReviewLimit     *int
	Mode            models.StudyMode
	Seed            int64
	Tags            []string
	FlaggedOnly     bool
	NewCardLimit    int
	NewCardSpacing  int
}

// Outcome is everything a caller must persist after an accepted review.
type Outcome struct {
	Session models.StudySession
	Review  models.Review
	Card    models.Card
}

// Manager starts sessions and applies reviews to them. It holds no session
// state and is safe for concurrent use.
type Manager struct {
	scheduler *flashcard.Scheduler
	newID     func() uuid.UUID
}

type Option func(*Manager)

// WithIDGenerator replaces uuid.New for session and review ids.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

func NewManager(scheduler *flashcard.Scheduler, opts ...Option) *Manager {
	if scheduler == nil {
		scheduler = flashcard.DefaultScheduler()
	}
	m := &Manager{scheduler: scheduler, newID: uuid.New}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Scheduler() *flashcard.Scheduler { return m.scheduler }

// Start builds the session queue from the due cards of the deck (and its
// subdecks when requested).
func (m *Manager) Start(req StartRequest, now time.Time) (models.StudySession, error) {
	if req.ReviewLimit != nil && *req.ReviewLimit <= 0 {
		return models.StudySession{}, errors.NewInvalidConfigurationError("review limit must be positive, got %d", *req.ReviewLimit)
	}
	mode, err := models.ParseStudyMode(string(req.Mode))
	if err != nil {
		return models.StudySession{}, errors.NewInvalidConfigurationError("%v", err)
	}

	decks := req.Decks
	if !slices.ContainsFunc(decks, func(d models.Deck) bool { return d.ID == req.Deck.ID }) {
		decks = append(slices.Clone(decks), req.Deck)
	}
	scope, err := selection.DeckScope(decks, req.Deck.ID, req.IncludeSubdecks)
	if err != nil {
		ae := errors.NewInvalidConfigurationError("cannot resolve deck %s", req.Deck.ID)
		ae.Err = err
		return models.StudySession{}, ae
	}

	opts := selection.Options{
		Mode:           mode,
		Seed:           req.Seed,
		Tags:           req.Tags,
		FlaggedOnly:    req.FlaggedOnly,
		NewCardLimit:   req.NewCardLimit,
		NewCardSpacing: req.NewCardSpacing,
	}
	if req.ReviewLimit != nil {
		opts.Limit = *req.ReviewLimit
	}
	queue := selection.Build(selection.InScope(req.Pool, scope), now, opts)
	if len(queue) == 0 {
		return models.StudySession{}, errors.NewInvalidConfigurationError("no cards due in deck %s", req.Deck.ID)
	}

	var limit *int
	if req.ReviewLimit != nil {
		l := *req.ReviewLimit
		limit = &l
	}

	return models.StudySession{
		ID:              m.newID(),
		DeckID:          req.Deck.ID,
		Mode:            mode,
		StartDate:       now,
		ScheduledCards:  queue,
		ReviewedCards:   []uuid.UUID{},
		IncludeSubdecks: req.IncludeSubdecks,
		ReviewLimit:     limit,
	}, nil
}

// RecordReview applies rating to card within session. The card must be the
// caller's current copy; the returned Card carries the new schedule.
func (m *Manager) RecordReview(session models.StudySession, card models.Card, rating models.ReviewRating, responseTime float64, now time.Time) (Outcome, error) {
	if session.IsEnded() {
		return Outcome{}, errors.NewSessionClosedError(session.ID)
	}
	if !rating.Valid() {
		return Outcome{}, errors.NewValidationError("rating", "must be one of again, hard, good, easy")
	}
	if !session.IsScheduled(card.ID) {
		return Outcome{}, errors.NewCardNotScheduledError(card.ID, "is not scheduled in this session")
	}
	if session.IsReviewed(card.ID) {
		return Outcome{}, errors.NewCardNotScheduledError(card.ID, "was already reviewed in this session")
	}
	if err := checkOpenSession(session); err != nil {
		return Outcome{}, err
	}

	if responseTime < 0 || math.IsNaN(responseTime) || math.IsInf(responseTime, 0) {
		responseTime = 0
	}

	updated := m.scheduler.ApplyReview(card, rating, now)

	sessionID := session.ID
	review := models.Review{
		ID:              m.newID(),
		CardID:          card.ID,
		SessionID:       &sessionID,
		Timestamp:       now,
		Rating:          rating,
		ResponseTime:    responseTime,
		NewInterval:     updated.Interval,
		NewEase:         updated.Ease,
		NewMasteryLevel: updated.MasteryLevel,
	}

	next := clone(session)
	next.ReviewedCards = append(next.ReviewedCards, card.ID)
	if rating.IsCorrect() {
		next.CorrectCount++
	} else {
		next.IncorrectCount++
	}
	next.TotalStudyTime += responseTime
	if next.RemainingCount() == 0 || next.LimitReached() {
		end := now
		next.EndDate = &end
	}

	return Outcome{Session: next, Review: review, Card: updated}, nil
}

// End closes the session. Ending an ended session returns it unchanged.
func (m *Manager) End(session models.StudySession, now time.Time) models.StudySession {
	next := clone(session)
	if next.EndDate == nil {
		end := now
		next.EndDate = &end
	}
	return next
}

// NextCardID returns the first scheduled card not yet reviewed. It reports
// false once the session is ended or exhausted.
func NextCardID(session models.StudySession) (uuid.UUID, bool) {
	if session.IsEnded() {
		return uuid.Nil, false
	}
	for _, id := range session.ScheduledCards {
		if !session.IsReviewed(id) {
			return id, true
		}
	}
	return uuid.Nil, false
}

func Status(session models.StudySession) models.SessionStatus {
	return session.Status()
}

// Validate checks the structural invariants of a session loaded from storage.
func Validate(session models.StudySession) error {
	var errs []error
	if len(session.ReviewedCards) > len(session.ScheduledCards) {
		errs = append(errs, errors.NewInvariantViolationError("session %s reviewed %d of %d scheduled cards",
			session.ID, len(session.ReviewedCards), len(session.ScheduledCards)))
	}
	if session.ReviewLimit != nil && len(session.ReviewedCards) > *session.ReviewLimit {
		errs = append(errs, errors.NewInvariantViolationError("session %s reviewed %d cards past its limit of %d",
			session.ID, len(session.ReviewedCards), *session.ReviewLimit))
	}
	if session.CorrectCount+session.IncorrectCount != len(session.ReviewedCards) {
		errs = append(errs, errors.NewInvariantViolationError("session %s counts %d answers for %d reviewed cards",
			session.ID, session.CorrectCount+session.IncorrectCount, len(session.ReviewedCards)))
	}
	for _, id := range session.ReviewedCards {
		if !session.IsScheduled(id) {
			errs = append(errs, errors.NewInvariantViolationError("session %s reviewed unscheduled card %s", session.ID, id))
		}
	}
	return stderrors.Join(errs...)
}

// checkOpenSession rejects an open session that should already have closed.
func checkOpenSession(session models.StudySession) error {
	if session.RemainingCount() <= 0 {
		return errors.NewInvariantViolationError("session %s is open with no remaining cards", session.ID)
	}
	if session.LimitReached() {
		return errors.NewInvariantViolationError("session %s is open past its review limit", session.ID)
	}
	return nil
}

func clone(s models.StudySession) models.StudySession {
	s.ScheduledCards = slices.Clone(s.ScheduledCards)
	s.ReviewedCards = slices.Clone(s.ReviewedCards)
	if s.ReviewedCards == nil {
		s.ReviewedCards = []uuid.UUID{}
	}
	if s.EndDate != nil {
		end := *s.EndDate
		s.EndDate = &end
	}
	if s.ReviewLimit != nil {
		l := *s.ReviewLimit
		s.ReviewLimit = &l
	}
	return s
}
