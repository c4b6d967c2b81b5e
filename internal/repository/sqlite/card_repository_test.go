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

type CardRepositorySuite struct {
	suite.Suite
	db     *sql.DB
	repo   repository.CardRepository
	deck   models.Deck
	second models.Deck
}

func (s *CardRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewCardRepository(s.db)

	s.deck = newDeck("Spanish", nil)
	s.second = newDeck("French", nil)
	testutil.InsertDeck(s.T(), s.db, s.deck)
	testutil.InsertDeck(s.T(), s.db, s.second)
}

func (s *CardRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *CardRepositorySuite) card(deckID uuid.UUID, q string, offset time.Duration) models.Card {
	return models.NewCard(deckID, q, q+"!", testutil.Now.Add(offset))
}

func (s *CardRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()
	info := "irregular"
	c := s.card(s.deck.ID, "ser", 0).WithTags([]string{"Verbs", "a1"})
	c.AdditionalInfo = &info
	c.IsFlagged = true

	s.Require().NoError(s.repo.Insert(ctx, c))

	got, err := s.repo.Get(ctx, c.ID)
	s.Require().NoError(err)
	s.Assert().Equal(c.ID, got.ID)
	s.Assert().Equal(s.deck.ID, got.DeckID)
	s.Assert().Equal("ser", got.Question)
	s.Assert().Equal("ser!", got.Answer)
	s.Require().NotNil(got.AdditionalInfo)
	s.Assert().Equal("irregular", *got.AdditionalInfo)
	s.Assert().Equal([]string{"a1", "verbs"}, got.Tags)
	s.Assert().Equal(models.DefaultEase, got.Ease)
	s.Assert().Equal(models.MasteryNovice, got.MasteryLevel)
	s.Assert().True(got.IsFlagged)
	s.Assert().Nil(got.NextReviewDate)
	s.Assert().Nil(got.LastReviewedAt)
}

func (s *CardRepositorySuite) TestGetMissing() {
	_, err := s.repo.Get(context.Background(), uuid.New())
	s.Assert().ErrorIs(err, sql.ErrNoRows)
}

func (s *CardRepositorySuite) TestUpdateSchedulingAndTags() {
	ctx := context.Background()
	c := s.card(s.deck.ID, "estar", 0).WithTags([]string{"verbs"})
	s.Require().NoError(s.repo.Insert(ctx, c))

	reviewed := testutil.Now.Add(time.Hour)
	due := reviewed.AddDate(0, 0, 6)
	c.Interval = 6
	c.Ease = 2.35
	c.MasteryLevel = models.MasteryIntermediate
	c.ReviewCount = 3
	c.CorrectCount = 2
	c.IncorrectCount = 1
	c.ConsecutiveCorrect = 2
	c.LastReviewedAt = &reviewed
	c.NextReviewDate = &due
	c.UpdatedAt = reviewed
	c = c.WithTags([]string{"grammar"})

	s.Require().NoError(s.repo.Update(ctx, c))

	got, err := s.repo.Get(ctx, c.ID)
	s.Require().NoError(err)
	s.Assert().Equal(6, got.Interval)
	s.Assert().Equal(2.35, got.Ease)
	s.Assert().Equal(models.MasteryIntermediate, got.MasteryLevel)
	s.Assert().Equal(3, got.ReviewCount)
	s.Assert().Equal(2, got.ConsecutiveCorrect)
	s.Require().NotNil(got.NextReviewDate)
	s.Assert().True(due.Equal(*got.NextReviewDate))
	s.Require().NotNil(got.LastReviewedAt)
	s.Assert().True(reviewed.Equal(*got.LastReviewedAt))
	s.Assert().Equal([]string{"grammar"}, got.Tags)

	s.Assert().ErrorIs(s.repo.Update(ctx, s.card(s.deck.ID, "ghost", 0)), sql.ErrNoRows)
}

func (s *CardRepositorySuite) TestListFilters() {
	ctx := context.Background()

	past := testutil.Now.Add(-time.Hour)
	future := testutil.Now.Add(48 * time.Hour)

	fresh := s.card(s.deck.ID, "uno", 0).WithTags([]string{"numbers"})
	due := s.card(s.deck.ID, "dos", time.Minute).WithTags([]string{"numbers", "a1"})
	due.ReviewCount = 1
	due.NextReviewDate = &past
	due.MasteryLevel = models.MasteryBeginner
	later := s.card(s.deck.ID, "tres", 2*time.Minute)
	later.ReviewCount = 1
	later.NextReviewDate = &future
	later.IsFlagged = true
	french := s.card(s.second.ID, "un", 3*time.Minute).WithTags([]string{"numbers"})

	for _, c := range []models.Card{fresh, due, later, french} {
		s.Require().NoError(s.repo.Insert(ctx, c))
	}

	questions := func(filter models.CardFilter) []string {
		cards, err := s.repo.List(ctx, filter)
		s.Require().NoError(err)
		out := make([]string, len(cards))
		for i, c := range cards {
			out[i] = c.Question
		}
		return out
	}
	beginner := models.MasteryBeginner
	now := testutil.Now

	s.Assert().Equal([]string{"uno", "dos", "tres", "un"}, questions(models.CardFilter{}))
	s.Assert().Equal([]string{"uno", "dos", "tres"}, questions(models.CardFilter{DeckIDs: []uuid.UUID{s.deck.ID}}))
	s.Assert().Equal([]string{"uno", "dos", "un"}, questions(models.CardFilter{Tags: []string{"Numbers"}}))
	s.Assert().Equal([]string{"dos"}, questions(models.CardFilter{Tags: []string{"a1"}}))
	s.Assert().Equal([]string{"tres"}, questions(models.CardFilter{FlaggedOnly: true}))
	s.Assert().Equal([]string{"uno", "dos"}, questions(models.CardFilter{DeckIDs: []uuid.UUID{s.deck.ID}, DueBefore: &now}))
	s.Assert().Equal([]string{"dos"}, questions(models.CardFilter{Mastery: &beginner}))
	s.Assert().Equal([]string{"dos", "tres"}, questions(models.CardFilter{Limit: 2, Offset: 1}))

	all, err := s.repo.List(ctx, models.CardFilter{DeckIDs: []uuid.UUID{s.deck.ID}})
	s.Require().NoError(err)
	s.Assert().Equal([]string{"a1", "numbers"}, all[1].Tags)
	s.Assert().Equal([]string{}, all[2].Tags)
}

func (s *CardRepositorySuite) TestCountByDeck() {
	ctx := context.Background()
	future := testutil.Now.Add(time.Hour)

	notDue := s.card(s.deck.ID, "b", 0)
	notDue.NextReviewDate = &future
	for _, c := range []models.Card{s.card(s.deck.ID, "a", 0), notDue, s.card(s.second.ID, "c", 0)} {
		s.Require().NoError(s.repo.Insert(ctx, c))
	}

	total, err := s.repo.CountByDeck(ctx, []uuid.UUID{s.deck.ID}, nil)
	s.Require().NoError(err)
	s.Assert().Equal(2, total)

	now := testutil.Now
	dueCount, err := s.repo.CountByDeck(ctx, []uuid.UUID{s.deck.ID, s.second.ID}, &now)
	s.Require().NoError(err)
	s.Assert().Equal(2, dueCount)
}

func (s *CardRepositorySuite) TestDelete() {
	ctx := context.Background()
	c := s.card(s.deck.ID, "adios", 0).WithTags([]string{"farewell"})
	s.Require().NoError(s.repo.Insert(ctx, c))

	s.Require().NoError(s.repo.Delete(ctx, c.ID))

	_, err := s.repo.Get(ctx, c.ID)
	s.Assert().ErrorIs(err, sql.ErrNoRows)

	var tags int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM card_tags`).Scan(&tags))
	s.Assert().Zero(tags)

	s.Assert().ErrorIs(s.repo.Delete(ctx, c.ID), sql.ErrNoRows)
}

func TestCardRepositorySuite(t *testing.T) {
	suite.Run(t, new(CardRepositorySuite))
}
