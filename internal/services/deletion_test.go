package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studydeck/internal/clock"
	"github.com/vytor/studydeck/internal/errors"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository/sqlite"
	"github.com/vytor/studydeck/internal/study"
	"github.com/vytor/studydeck/internal/testutil"
)

func TestDelete_KeepsOpenSessionIntact(t *testing.T) {
	sqlDB := testutil.NewTestDB(t)
	defer testutil.MustClose(t, sqlDB)

	clk := clock.NewFixed(testutil.Now)
	deckRepo := sqlite.NewDeckRepository(sqlDB)
	cardRepo := sqlite.NewCardRepository(sqlDB)
	reviewRepo := sqlite.NewReviewRepository(sqlDB)
	sessionRepo := sqlite.NewSessionRepository(sqlDB)
	decks := NewDeckService(deckRepo, cardRepo, reviewRepo, sessionRepo, clk)
	studies := NewStudyService(study.NewManager(nil), deckRepo, cardRepo, reviewRepo, sessionRepo,
		sqlite.NewStudyStore(sqlDB), clk, StudyDefaults{})

	parent, err := decks.CreateDeck(ctx, DeckInput{Name: "Languages"})
	require.NoError(t, err)
	child, err := decks.CreateDeck(ctx, DeckInput{Name: "Spanish", ParentID: &parent.ID})
	require.NoError(t, err)
	for _, q := range []string{"hola", "adiós"} {
		_, err := decks.AddCard(ctx, child.ID, CardInput{Question: q, Answer: q + "?"})
		require.NoError(t, err)
	}

	session, err := studies.StartSession(ctx, parent.ID, StartParams{IncludeSubdecks: true})
	require.NoError(t, err)
	require.Len(t, session.ScheduledCards, 2)
	first, second := session.ScheduledCards[0], session.ScheduledCards[1]

	err = decks.DeleteCard(ctx, first)
	assert.ErrorIs(t, err, errors.ErrConflict)
	err = decks.DeleteDeck(ctx, child.ID)
	assert.ErrorIs(t, err, errors.ErrConflict)

	next, err := studies.NextCard(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first, next.Card.ID)

	result, err := studies.ReviewCard(ctx, session.ID, first, models.RatingGood, 1)
	require.NoError(t, err)
	require.NotNil(t, result.NextCardID)
	assert.Equal(t, second, *result.NextCardID)

	// Reviewed cards are no longer pending.
	require.NoError(t, decks.DeleteCard(ctx, first))
	assert.ErrorIs(t, decks.DeleteCard(ctx, second), errors.ErrConflict)

	_, err = studies.EndSession(ctx, session.ID)
	require.NoError(t, err)
	require.NoError(t, decks.DeleteDeck(ctx, child.ID))

	_, err = studies.GetSession(ctx, session.ID)
	require.NoError(t, err)
}
