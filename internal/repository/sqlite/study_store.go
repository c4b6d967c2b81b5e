package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
)

type studyStore struct {
	db *sql.DB
}

// NewStudyStore creates a StudyStore writing each review in one transaction
func NewStudyStore(db *sql.DB) repository.StudyStore {
	return &studyStore{db: db}
}

func (s *studyStore) SaveReview(ctx context.Context, card models.Card, review models.Review, session models.StudySession) error {
	log := logger.FromContext(ctx).WithPrefix("study_store")
	log.Debug("saving review: card_id=%s, session_id=%s, rating=%s", card.ID, session.ID, review.Rating)

	err := tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := updateCard(ctx, tx, card); err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		if err := insertReview(ctx, tx, review); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		if err := updateSession(ctx, tx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save review: %v", err)
	}
	return err
}
