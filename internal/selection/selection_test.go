package selection_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/selection"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func reviewCard(n int, overdue time.Duration, level models.MasteryLevel) models.Card {
	due := now.Add(-overdue)
	return models.Card{
		ID:             id(n),
		Ease:           2.5,
		Interval:       3,
		ReviewCount:    2,
		CorrectCount:   2,
		MasteryLevel:   level,
		NextReviewDate: &due,
	}
}

func newCard(n int, created time.Time) models.Card {
	return models.Card{ID: id(n), Ease: 2.5, CreatedAt: created}
}

func TestBuild_SkipsCardsNotDue(t *testing.T) {
	future := now.Add(time.Hour)
	notDue := reviewCard(1, 0, models.MasteryNovice)
	notDue.NextReviewDate = &future

	queue := selection.Build([]models.Card{notDue, reviewCard(2, 0, models.MasteryNovice)}, now, selection.Options{})

	assert.Equal(t, []uuid.UUID{id(2)}, queue, "a card due exactly now is included")
}

func TestBuild_DefaultOrdering(t *testing.T) {
	cards := []models.Card{
		reviewCard(5, time.Hour, models.MasteryAdvanced),
		reviewCard(4, time.Hour, models.MasteryNovice),
		reviewCard(3, 48*time.Hour, models.MasteryExpert),
		reviewCard(2, time.Hour, models.MasteryNovice),
		newCard(1, now.Add(-time.Minute)),
	}

	queue := selection.Build(cards, now, selection.Options{})

	assert.Equal(t, []uuid.UUID{id(3), id(2), id(4), id(5), id(1)}, queue)
}

func TestBuild_Deterministic(t *testing.T) {
	cards := []models.Card{
		reviewCard(3, time.Hour, models.MasteryBeginner),
		reviewCard(1, time.Hour, models.MasteryBeginner),
		newCard(2, now),
	}
	reversed := []models.Card{cards[2], cards[1], cards[0]}

	assert.Equal(t,
		selection.Build(cards, now, selection.Options{}),
		selection.Build(reversed, now, selection.Options{}),
	)
}

func TestBuild_NewCardInterleaving(t *testing.T) {
	cards := []models.Card{
		reviewCard(1, 4*time.Hour, models.MasteryNovice),
		reviewCard(2, 3*time.Hour, models.MasteryNovice),
		reviewCard(3, 2*time.Hour, models.MasteryNovice),
		reviewCard(4, time.Hour, models.MasteryNovice),
		newCard(5, now.Add(-3*time.Minute)),
		newCard(6, now.Add(-2*time.Minute)),
		newCard(7, now.Add(-time.Minute)),
	}

	tests := []struct {
		name     string
		opts     selection.Options
		expected []uuid.UUID
	}{
		{
			name:     "new cards last by default",
			opts:     selection.Options{},
			expected: []uuid.UUID{id(1), id(2), id(3), id(4), id(5), id(6), id(7)},
		},
		{
			name:     "one new card after every two reviews",
			opts:     selection.Options{NewCardSpacing: 2},
			expected: []uuid.UUID{id(1), id(2), id(5), id(3), id(4), id(6), id(7)},
		},
		{
			name:     "new card cap",
			opts:     selection.Options{NewCardSpacing: 2, NewCardLimit: 2},
			expected: []uuid.UUID{id(1), id(2), id(5), id(3), id(4), id(6)},
		},
		{
			name:     "limit truncates after ordering",
			opts:     selection.Options{NewCardSpacing: 2, Limit: 3},
			expected: []uuid.UUID{id(1), id(2), id(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, selection.Build(cards, now, tt.opts))
		})
	}
}

func TestBuild_QuizOrdersByAccuracy(t *testing.T) {
	half := reviewCard(1, time.Hour, models.MasteryNovice)
	half.CorrectCount, half.IncorrectCount = 1, 1
	perfect := reviewCard(2, 5*time.Hour, models.MasteryNovice)
	perfect.CorrectCount = 3
	never := reviewCard(3, time.Hour, models.MasteryNovice)
	never.CorrectCount, never.IncorrectCount = 0, 2

	queue := selection.Build([]models.Card{half, perfect, never}, now, selection.Options{Mode: models.StudyModeQuiz})

	assert.Equal(t, []uuid.UUID{id(3), id(1), id(2)}, queue)
}

func TestBuild_DifficultKeepsHardOrFlagged(t *testing.T) {
	hard := reviewCard(1, time.Hour, models.MasteryNovice)
	hard.Ease = 1.8
	easy := reviewCard(2, time.Hour, models.MasteryNovice)
	flagged := reviewCard(3, time.Hour, models.MasteryNovice)
	flagged.IsFlagged = true

	queue := selection.Build(
		[]models.Card{hard, easy, flagged, newCard(4, now)},
		now,
		selection.Options{Mode: models.StudyModeDifficult},
	)

	assert.Equal(t, []uuid.UUID{id(1), id(3)}, queue)
}

func TestBuild_ShuffleIsSeeded(t *testing.T) {
	var cards []models.Card
	for i := 1; i <= 20; i++ {
		cards = append(cards, reviewCard(i, time.Duration(i)*time.Hour, models.MasteryNovice))
	}
	opts := selection.Options{Mode: models.StudyModeShuffle, Seed: 42}

	first := selection.Build(cards, now, opts)
	second := selection.Build(cards, now, opts)

	assert.Equal(t, first, second)
	assert.ElementsMatch(t, selection.Build(cards, now, selection.Options{}), first)
}

func TestBuild_Filters(t *testing.T) {
	spanish := reviewCard(1, time.Hour, models.MasteryNovice).WithTags([]string{"Spanish", "verbs"})
	french := reviewCard(2, time.Hour, models.MasteryNovice).WithTags([]string{"french"})
	flagged := reviewCard(3, time.Hour, models.MasteryNovice)
	flagged.IsFlagged = true

	cards := []models.Card{spanish, french, flagged}

	assert.Equal(t, []uuid.UUID{id(1)}, selection.Build(cards, now, selection.Options{Tags: []string{" spanish "}}))
	assert.Equal(t, []uuid.UUID{id(1), id(2)}, selection.Build(cards, now, selection.Options{Tags: []string{"verbs", "french"}}))
	assert.Equal(t, []uuid.UUID{id(3)}, selection.Build(cards, now, selection.Options{FlaggedOnly: true}))
}

func TestBuild_EmptyPool(t *testing.T) {
	assert.Empty(t, selection.Build(nil, now, selection.Options{}))
}

func deck(n int, name string, parent *uuid.UUID) models.Deck {
	return models.Deck{ID: id(n), Name: name, ParentID: parent}
}

func ptr(u uuid.UUID) *uuid.UUID { return &u }

func TestDeckScope(t *testing.T) {
	decks := []models.Deck{
		deck(100, "Languages", nil),
		deck(101, "Spanish", ptr(id(100))),
		deck(102, "French", ptr(id(100))),
		deck(103, "Verbs", ptr(id(101))),
		deck(200, "Math", nil),
	}

	scope, err := selection.DeckScope(decks, id(100), true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id(100), id(102), id(101), id(103)}, scope)

	scope, err = selection.DeckScope(decks, id(100), false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id(100)}, scope)

	scope, err = selection.DeckScope(decks, id(101), true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id(101), id(103)}, scope)
}

func TestDeckScope_UnknownDeck(t *testing.T) {
	_, err := selection.DeckScope([]models.Deck{deck(1, "a", nil)}, id(2), false)
	assert.ErrorIs(t, err, selection.ErrUnknownDeck)
}

func TestDeckScope_Cycle(t *testing.T) {
	decks := []models.Deck{
		deck(1, "a", ptr(id(3))),
		deck(2, "b", ptr(id(1))),
		deck(3, "c", ptr(id(2))),
	}

	_, err := selection.DeckScope(decks, id(1), true)
	assert.ErrorIs(t, err, selection.ErrDeckCycle)

	_, err = selection.DeckScope(decks, id(2), false)
	assert.ErrorIs(t, err, selection.ErrDeckCycle)
}

func TestInScope(t *testing.T) {
	a := models.Card{ID: id(1), DeckID: id(100)}
	b := models.Card{ID: id(2), DeckID: id(200)}
	c := models.Card{ID: id(3), DeckID: id(101)}

	got := selection.InScope([]models.Card{a, b, c}, []uuid.UUID{id(100), id(101)})

	assert.Equal(t, []models.Card{a, c}, got)
}
