package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new ReviewRepository implementation
func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

var reviewColumns = []string{
	"r.id", "r.card_id", "r.session_id", "r.reviewed_at", "r.rating", "r.response_time",
	"r.new_interval", "r.new_ease", "r.new_mastery_level",
}

func insertReview(ctx context.Context, q querier, rv models.Review) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO reviews (id, card_id, session_id, reviewed_at, rating, response_time, new_interval, new_ease, new_mastery_level)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rv.ID, rv.CardID, nullUUID(rv.SessionID), rv.Timestamp, rv.Rating, rv.ResponseTime, rv.NewInterval, rv.NewEase, rv.NewMasteryLevel)
	return err
}

func (r *reviewRepository) ListByCard(ctx context.Context, cardID uuid.UUID) ([]models.Review, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("listing reviews: card_id=%s", cardID)
	return r.list(ctx, squirrel.Eq{"r.card_id": cardID.String()})
}

func (r *reviewRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Review, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("listing reviews: session_id=%s", sessionID)
	return r.list(ctx, squirrel.Eq{"r.session_id": sessionID.String()})
}

func (r *reviewRepository) ListByDecksSince(ctx context.Context, deckIDs []uuid.UUID, since time.Time) ([]models.Review, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")
	log.Debug("listing reviews: decks=%d, since=%s", len(deckIDs), since.Format(time.RFC3339))
	return r.list(ctx, squirrel.And{
		squirrel.Eq{"c.deck_id": idStrings(deckIDs)},
		squirrel.GtOrEq{"r.reviewed_at": since},
	})
}

func (r *reviewRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]models.Review, error) {
	log := logger.FromContext(ctx).WithPrefix("review_repo")

	sqlStr, args, err := sqlBuilder.Select(reviewColumns...).
		From("reviews r").
		Join("cards c ON c.id = r.card_id").
		Where(where).
		OrderBy("r.reviewed_at ASC", "r.id ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list reviews: %v", err)
		return nil, err
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		var session uuid.NullUUID
		if err := rows.Scan(&rv.ID, &rv.CardID, &session, &rv.Timestamp, &rv.Rating, &rv.ResponseTime,
			&rv.NewInterval, &rv.NewEase, &rv.NewMasteryLevel); err != nil {
			log.Error("failed to scan review row: %v", err)
			return nil, err
		}
		rv.SessionID = uuidPtr(session)
		reviews = append(reviews, rv)
	}
	log.Debug("found %d reviews", len(reviews))
	return reviews, rows.Err()
}
