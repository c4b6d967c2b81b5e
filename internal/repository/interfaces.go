package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/models"
)

// Get methods return sql.ErrNoRows (possibly wrapped) when the row is missing.

// DeckRepository handles deck data access
type DeckRepository interface {
	Insert(ctx context.Context, deck models.Deck) error
	Get(ctx context.Context, id uuid.UUID) (*models.Deck, error)
	List(ctx context.Context) ([]models.Deck, error)
	Update(ctx context.Context, deck models.Deck) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CardRepository handles card data access, tags included
type CardRepository interface {
	Insert(ctx context.Context, card models.Card) error
	Get(ctx context.Context, id uuid.UUID) (*models.Card, error)
	Update(ctx context.Context, card models.Card) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.CardFilter) ([]models.Card, error)
	CountByDeck(ctx context.Context, deckIDs []uuid.UUID, dueBefore *time.Time) (int, error)
}

// ReviewRepository reads the append-only review log
type ReviewRepository interface {
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]models.Review, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Review, error)
	ListByDecksSince(ctx context.Context, deckIDs []uuid.UUID, since time.Time) ([]models.Review, error)
}

// SessionRepository handles study session data access
type SessionRepository interface {
	Insert(ctx context.Context, session models.StudySession) error
	Get(ctx context.Context, id uuid.UUID) (*models.StudySession, error)
	Update(ctx context.Context, session models.StudySession) error
	ListByDeck(ctx context.Context, deckID uuid.UUID, limit int) ([]models.StudySession, error)
	// CountOpenWithPending counts open sessions, other than those of deckIDs
	// themselves, that still have an unreviewed card among cardIDs or stored
	// in one of deckIDs.
	CountOpenWithPending(ctx context.Context, cardIDs, deckIDs []uuid.UUID) (int, error)
}

// StudyStore persists the outcome of one review atomically: the card's new
// schedule, the review record and the session snapshot.
type StudyStore interface {
	SaveReview(ctx context.Context, card models.Card, review models.Review, session models.StudySession) error
}
