package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
	"github.com/vytor/studydeck/internal/repository/sqlite"
	"github.com/vytor/studydeck/internal/testutil"
)

type SessionRepositorySuite struct {
	suite.Suite
	db      *sql.DB
	repo    repository.SessionRepository
	cards   repository.CardRepository
	reviews repository.ReviewRepository
	store   repository.StudyStore
	deck    models.Deck
	queue   []models.Card
}

func (s *SessionRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewSessionRepository(s.db)
	s.cards = sqlite.NewCardRepository(s.db)
	s.reviews = sqlite.NewReviewRepository(s.db)
	s.store = sqlite.NewStudyStore(s.db)

	s.deck = newDeck("Capitals", nil)
	testutil.InsertDeck(s.T(), s.db, s.deck)

	s.queue = nil
	for i, q := range []string{"France", "Peru", "Japan"} {
		c := models.NewCard(s.deck.ID, q, "?", testutil.Now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.cards.Insert(context.Background(), c))
		s.queue = append(s.queue, c)
	}
}

func (s *SessionRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *SessionRepositorySuite) session() models.StudySession {
	limit := 2
	return models.StudySession{
		ID:             uuid.New(),
		DeckID:         s.deck.ID,
		Mode:           models.StudyModeQuiz,
		StartDate:      testutil.Now,
		ScheduledCards: []uuid.UUID{s.queue[2].ID, s.queue[0].ID, s.queue[1].ID},
		ReviewedCards:  []uuid.UUID{},
		ReviewLimit:    &limit,
	}
}

func (s *SessionRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()
	session := s.session()

	s.Require().NoError(s.repo.Insert(ctx, session))

	got, err := s.repo.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Assert().Equal(session.ScheduledCards, got.ScheduledCards)
	s.Assert().Empty(got.ReviewedCards)
	s.Assert().Equal(models.StudyModeQuiz, got.Mode)
	s.Assert().True(testutil.Now.Equal(got.StartDate))
	s.Assert().Nil(got.EndDate)
	s.Require().NotNil(got.ReviewLimit)
	s.Assert().Equal(2, *got.ReviewLimit)
	s.Assert().Equal(models.SessionInProgress, got.Status())
}

func (s *SessionRepositorySuite) TestGetMissing() {
	_, err := s.repo.Get(context.Background(), uuid.New())
	s.Assert().ErrorIs(err, sql.ErrNoRows)
}

func (s *SessionRepositorySuite) TestUpdateKeepsReviewOrder() {
	ctx := context.Background()
	session := s.session()
	s.Require().NoError(s.repo.Insert(ctx, session))

	end := testutil.Now.Add(5 * time.Minute)
	session.ReviewedCards = []uuid.UUID{s.queue[0].ID, s.queue[2].ID}
	session.CorrectCount = 1
	session.IncorrectCount = 1
	session.TotalStudyTime = 12.5
	session.EndDate = &end
	s.Require().NoError(s.repo.Update(ctx, session))

	got, err := s.repo.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Assert().Equal([]uuid.UUID{s.queue[0].ID, s.queue[2].ID}, got.ReviewedCards)
	s.Assert().Equal(12.5, got.TotalStudyTime)
	s.Require().NotNil(got.EndDate)
	s.Assert().True(end.Equal(*got.EndDate))
	s.Assert().Equal(models.SessionCompleted, got.Status())
}

func (s *SessionRepositorySuite) TestUpdateRejectsUnscheduledCard() {
	ctx := context.Background()
	session := s.session()
	s.Require().NoError(s.repo.Insert(ctx, session))

	session.ReviewedCards = []uuid.UUID{uuid.New()}
	s.Assert().ErrorIs(s.repo.Update(ctx, session), sql.ErrNoRows)

	got, err := s.repo.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Assert().Empty(got.ReviewedCards, "failed update is rolled back")
}

func (s *SessionRepositorySuite) TestListByDeck() {
	ctx := context.Background()
	older := s.session()
	older.StartDate = testutil.Now.Add(-24 * time.Hour)
	newer := s.session()
	s.Require().NoError(s.repo.Insert(ctx, older))
	s.Require().NoError(s.repo.Insert(ctx, newer))

	sessions, err := s.repo.ListByDeck(ctx, s.deck.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Assert().Equal(newer.ID, sessions[0].ID)
	s.Assert().Equal(older.ID, sessions[1].ID)
	s.Assert().Len(sessions[1].ScheduledCards, 3)
}

func (s *SessionRepositorySuite) review(card models.Card, session models.StudySession, rating models.ReviewRating, at time.Time) models.Review {
	sessionID := session.ID
	return models.Review{
		ID:              uuid.New(),
		CardID:          card.ID,
		SessionID:       &sessionID,
		Timestamp:       at,
		Rating:          rating,
		ResponseTime:    3.5,
		NewInterval:     1,
		NewEase:         2.5,
		NewMasteryLevel: models.MasteryBeginner,
	}
}

func (s *SessionRepositorySuite) TestSaveReviewIsAtomic() {
	ctx := context.Background()
	session := s.session()
	s.Require().NoError(s.repo.Insert(ctx, session))

	card := s.queue[2]
	card.ReviewCount = 1
	card.CorrectCount = 1
	card.Interval = 1
	at := testutil.Now.Add(time.Minute)
	rv := s.review(card, session, models.RatingGood, at)

	session.ReviewedCards = []uuid.UUID{card.ID}
	session.CorrectCount = 1
	s.Require().NoError(s.store.SaveReview(ctx, card, rv, session))

	gotCard, err := s.cards.Get(ctx, card.ID)
	s.Require().NoError(err)
	s.Assert().Equal(1, gotCard.ReviewCount)

	gotSession, err := s.repo.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Assert().Equal([]uuid.UUID{card.ID}, gotSession.ReviewedCards)

	reviews, err := s.reviews.ListBySession(ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Len(reviews, 1)
	s.Assert().Equal(rv.ID, reviews[0].ID)
	s.Assert().Equal(models.RatingGood, reviews[0].Rating)
	s.Assert().Equal(3.5, reviews[0].ResponseTime)
	s.Assert().Equal(models.MasteryBeginner, reviews[0].NewMasteryLevel)
	s.Assert().True(at.Equal(reviews[0].Timestamp))

	// A failing session write must leave card and review untouched.
	second := s.queue[0]
	second.ReviewCount = 1
	bad := session
	bad.ReviewedCards = []uuid.UUID{card.ID, uuid.New()}
	err = s.store.SaveReview(ctx, second, s.review(second, session, models.RatingAgain, at.Add(time.Minute)), bad)
	s.Require().Error(err)

	gotSecond, err := s.cards.Get(ctx, second.ID)
	s.Require().NoError(err)
	s.Assert().Zero(gotSecond.ReviewCount)

	byCard, err := s.reviews.ListByCard(ctx, second.ID)
	s.Require().NoError(err)
	s.Assert().Empty(byCard)
}

func (s *SessionRepositorySuite) TestListByDecksSince() {
	ctx := context.Background()
	session := s.session()
	s.Require().NoError(s.repo.Insert(ctx, session))

	early := s.review(s.queue[0], session, models.RatingHard, testutil.Now.Add(-48*time.Hour))
	late := s.review(s.queue[1], session, models.RatingEasy, testutil.Now.Add(time.Hour))
	session.ReviewedCards = []uuid.UUID{s.queue[0].ID}
	s.Require().NoError(s.store.SaveReview(ctx, s.queue[0], early, session))
	session.ReviewedCards = []uuid.UUID{s.queue[0].ID, s.queue[1].ID}
	s.Require().NoError(s.store.SaveReview(ctx, s.queue[1], late, session))

	reviews, err := s.reviews.ListByDecksSince(ctx, []uuid.UUID{s.deck.ID}, testutil.Now)
	s.Require().NoError(err)
	s.Require().Len(reviews, 1)
	s.Assert().Equal(late.ID, reviews[0].ID)

	none, err := s.reviews.ListByDecksSince(ctx, []uuid.UUID{uuid.New()}, testutil.Now.Add(-72*time.Hour))
	s.Require().NoError(err)
	s.Assert().Empty(none)
}

func (s *SessionRepositorySuite) TestCountOpenWithPending() {
	ctx := context.Background()
	session := s.session()
	session.ReviewedCards = []uuid.UUID{s.queue[2].ID}
	s.Require().NoError(s.repo.Insert(ctx, session))

	count := func(cardIDs, deckIDs []uuid.UUID) int {
		n, err := s.repo.CountOpenWithPending(ctx, cardIDs, deckIDs)
		s.Require().NoError(err)
		return n
	}

	s.Assert().Equal(1, count([]uuid.UUID{s.queue[0].ID}, nil))
	s.Assert().Equal(0, count([]uuid.UUID{s.queue[2].ID}, nil), "reviewed card")
	s.Assert().Equal(0, count(nil, []uuid.UUID{s.deck.ID}), "session belongs to the deck")
	s.Assert().Equal(0, count(nil, nil))

	parent := newDeck("World", nil)
	testutil.InsertDeck(s.T(), s.db, parent)
	outer := s.session()
	outer.DeckID = parent.ID
	outer.IncludeSubdecks = true
	s.Require().NoError(s.repo.Insert(ctx, outer))

	s.Assert().Equal(1, count(nil, []uuid.UUID{s.deck.ID}))
	s.Assert().Equal(2, count([]uuid.UUID{s.queue[1].ID}, nil))
	s.Assert().Equal(0, count(nil, []uuid.UUID{parent.ID, s.deck.ID}))

	end := testutil.Now.Add(time.Hour)
	outer.EndDate = &end
	s.Require().NoError(s.repo.Update(ctx, outer))
	s.Assert().Equal(0, count(nil, []uuid.UUID{s.deck.ID}))
	s.Assert().Equal(1, count([]uuid.UUID{s.queue[1].ID}, nil))
}

func TestSessionRepositorySuite(t *testing.T) {
	suite.Run(t, new(SessionRepositorySuite))
}
