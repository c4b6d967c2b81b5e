package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
)

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository implementation
func NewCardRepository(db *sql.DB) repository.CardRepository {
	return &cardRepository{db: db}
}

var cardColumns = []string{
	"id", "deck_id", "question", "answer", "additional_info", "mastery_level",
	"interval_days", "ease", "review_count", "correct_count", "incorrect_count",
	"consecutive_correct", "last_reviewed_at", "next_review_date", "is_flagged",
	"created_at", "updated_at",
}

func scanCard(row interface{ Scan(...any) error }) (models.Card, error) {
	var c models.Card
	var info sql.NullString
	var lastReviewed, nextReview sql.NullTime
	err := row.Scan(&c.ID, &c.DeckID, &c.Question, &c.Answer, &info, &c.MasteryLevel,
		&c.Interval, &c.Ease, &c.ReviewCount, &c.CorrectCount, &c.IncorrectCount,
		&c.ConsecutiveCorrect, &lastReviewed, &nextReview, &c.IsFlagged,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.Card{}, err
	}
	c.AdditionalInfo = stringPtr(info)
	c.LastReviewedAt = timePtr(lastReviewed)
	c.NextReviewDate = timePtr(nextReview)
	c.Tags = []string{}
	return c, nil
}

func (r *cardRepository) Insert(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("inserting card: id=%s, deck_id=%s", c.ID, c.DeckID)

	c.Tags = models.NormalizeTags(c.Tags)
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		query, args, err := sqlBuilder.Insert("cards").Columns(cardColumns...).Values(
			c.ID, c.DeckID, c.Question, c.Answer, nullString(c.AdditionalInfo), c.MasteryLevel,
			c.Interval, c.Ease, c.ReviewCount, c.CorrectCount, c.IncorrectCount,
			c.ConsecutiveCorrect, nullTime(c.LastReviewedAt), nullTime(c.NextReviewDate), c.IsFlagged,
			c.CreatedAt, c.UpdatedAt,
		).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		return replaceTags(ctx, tx, c.ID, c.Tags)
	})
	if err != nil {
		log.Error("failed to insert card: %v", err)
	}
	return err
}

func (r *cardRepository) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("getting card: id=%s", id)

	query, args, err := sqlBuilder.Select(cardColumns...).From("cards").Where(squirrel.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found: id=%s", id)
		} else {
			log.Error("failed to get card: %v", err)
		}
		return nil, err
	}

	cards := []models.Card{c}
	if err := loadTags(ctx, r.db, cards); err != nil {
		log.Error("failed to load card tags: %v", err)
		return nil, err
	}
	return &cards[0], nil
}

func (r *cardRepository) Update(ctx context.Context, c models.Card) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("updating card: id=%s, interval=%d, ease=%.2f", c.ID, c.Interval, c.Ease)

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		return updateCard(ctx, tx, c)
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to update card: %v", err)
	}
	return err
}

func updateCard(ctx context.Context, q querier, c models.Card) error {
	query, args, err := sqlBuilder.Update("cards").SetMap(map[string]any{
		"deck_id":             c.DeckID.String(),
		"question":            c.Question,
		"answer":              c.Answer,
		"additional_info":     nullString(c.AdditionalInfo),
		"mastery_level":       c.MasteryLevel,
		"interval_days":       c.Interval,
		"ease":                c.Ease,
		"review_count":        c.ReviewCount,
		"correct_count":       c.CorrectCount,
		"incorrect_count":     c.IncorrectCount,
		"consecutive_correct": c.ConsecutiveCorrect,
		"last_reviewed_at":    nullTime(c.LastReviewedAt),
		"next_review_date":    nullTime(c.NextReviewDate),
		"is_flagged":          c.IsFlagged,
		"updated_at":          c.UpdatedAt,
	}).Where(squirrel.Eq{"id": c.ID.String()}).ToSql()
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return replaceTags(ctx, q, c.ID, models.NormalizeTags(c.Tags))
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Info("deleting card: id=%s", id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete card: %v", err)
		return err
	}
	return requireAffected(res)
}

func applyCardFilter(query squirrel.SelectBuilder, filter models.CardFilter) squirrel.SelectBuilder {
	if len(filter.DeckIDs) > 0 {
		query = query.Where(squirrel.Eq{"deck_id": idStrings(filter.DeckIDs)})
	}
	if tags := models.NormalizeTags(filter.Tags); len(tags) > 0 {
		sub := sqlBuilder.Select("card_id").From("card_tags").Where(squirrel.Eq{"tag": tags})
		subSQL, subArgs, _ := sub.ToSql()
		query = query.Where("id IN ("+subSQL+")", subArgs...)
	}
	if filter.FlaggedOnly {
		query = query.Where(squirrel.Eq{"is_flagged": true})
	}
	if filter.DueBefore != nil {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"next_review_date": nil},
			squirrel.LtOrEq{"next_review_date": *filter.DueBefore},
		})
	}
	if filter.Mastery != nil {
		query = query.Where(squirrel.Eq{"mastery_level": int(*filter.Mastery)})
	}
	return query
}

func (r *cardRepository) List(ctx context.Context, filter models.CardFilter) ([]models.Card, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")
	log.Debug("listing cards with filter: decks=%d, tags=%v, flagged=%t", len(filter.DeckIDs), filter.Tags, filter.FlaggedOnly)

	query := applyCardFilter(sqlBuilder.Select(cardColumns...).From("cards"), filter).
		OrderBy("created_at ASC", "id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row: %v", err)
			return nil, err
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := loadTags(ctx, r.db, cards); err != nil {
		log.Error("failed to load card tags: %v", err)
		return nil, err
	}
	log.Debug("found %d cards", len(cards))
	return cards, nil
}

func (r *cardRepository) CountByDeck(ctx context.Context, deckIDs []uuid.UUID, dueBefore *time.Time) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("card_repo")

	query := applyCardFilter(sqlBuilder.Select("COUNT(*)").From("cards"), models.CardFilter{
		DeckIDs:   deckIDs,
		DueBefore: dueBefore,
	})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return 0, err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Error("failed to count cards: %v", err)
		return 0, err
	}
	return count, nil
}

func replaceTags(ctx context.Context, q querier, cardID uuid.UUID, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM card_tags WHERE card_id = ?`, cardID); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	insert := sqlBuilder.Insert("card_tags").Columns("card_id", "tag")
	for _, tag := range tags {
		insert = insert.Values(cardID.String(), tag)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

// loadTags fills in Tags for every card in place, in sorted order.
func loadTags(ctx context.Context, q querier, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(cards))
	ids := make([]string, len(cards))
	for i, c := range cards {
		index[c.ID] = i
		ids[i] = c.ID.String()
	}

	query, args, err := sqlBuilder.Select("card_id", "tag").From("card_tags").
		Where(squirrel.Eq{"card_id": ids}).OrderBy("tag").ToSql()
	if err != nil {
		return err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cardID uuid.UUID
		var tag string
		if err := rows.Scan(&cardID, &tag); err != nil {
			return err
		}
		if i, ok := index[cardID]; ok {
			cards[i].Tags = append(cards[i].Tags, tag)
		}
	}
	return rows.Err()
}
