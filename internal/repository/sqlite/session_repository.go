package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
)

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, deck_id, mode, start_date, end_date, correct_count, incorrect_count, include_subdecks, review_limit, total_study_time`

func (r *sessionRepository) Insert(ctx context.Context, s models.StudySession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("inserting session: id=%s, deck_id=%s, scheduled=%d", s.ID, s.DeckID, len(s.ScheduledCards))

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO study_sessions (`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, s.ID, s.DeckID, s.Mode, s.StartDate, nullTime(s.EndDate), s.CorrectCount, s.IncorrectCount,
			s.IncludeSubdecks, nullLimit(s.ReviewLimit), s.TotalStudyTime); err != nil {
			return err
		}

		if len(s.ScheduledCards) > 0 {
			insert := sqlBuilder.Insert("session_cards").Columns("session_id", "position", "card_id")
			for i, cardID := range s.ScheduledCards {
				insert = insert.Values(s.ID.String(), i, cardID.String())
			}
			query, args, err := insert.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return markReviewed(ctx, tx, s)
	})
	if err != nil {
		log.Error("failed to insert session: %v", err)
	}
	return err
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: id=%s", id)

	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found: id=%s", id)
		} else {
			log.Error("failed to get session: %v", err)
		}
		return nil, err
	}
	if err := loadSessionCards(ctx, r.db, &s); err != nil {
		log.Error("failed to load session cards: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Update(ctx context.Context, s models.StudySession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session: id=%s, reviewed=%d", s.ID, len(s.ReviewedCards))

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		return updateSession(ctx, tx, s)
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to update session: %v", err)
	}
	return err
}

func (r *sessionRepository) ListByDeck(ctx context.Context, deckID uuid.UUID, limit int) ([]models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("listing sessions: deck_id=%s, limit=%d", deckID, limit)

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM study_sessions
WHERE deck_id = ?
ORDER BY start_date DESC, id
LIMIT ?
`, deckID, limit)
	if err != nil {
		log.Error("failed to list sessions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var sessions []models.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			log.Error("failed to scan session row: %v", err)
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range sessions {
		if err := loadSessionCards(ctx, r.db, &sessions[i]); err != nil {
			log.Error("failed to load session cards: %v", err)
			return nil, err
		}
	}
	log.Debug("found %d sessions", len(sessions))
	return sessions, nil
}

func (r *sessionRepository) CountOpenWithPending(ctx context.Context, cardIDs, deckIDs []uuid.UUID) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("counting open sessions with pending cards: cards=%d, decks=%d", len(cardIDs), len(deckIDs))

	if len(cardIDs) == 0 && len(deckIDs) == 0 {
		return 0, nil
	}
	pending := squirrel.Or{}
	if len(cardIDs) > 0 {
		pending = append(pending, squirrel.Eq{"sc.card_id": idStrings(cardIDs)})
	}
	query := sqlBuilder.
		Select("COUNT(DISTINCT s.id)").
		From("study_sessions s").
		Join("session_cards sc ON sc.session_id = s.id").
		Where(squirrel.Eq{"s.end_date": nil, "sc.reviewed_seq": nil})
	if len(deckIDs) > 0 {
		decks := idStrings(deckIDs)
		query = query.LeftJoin("cards c ON c.id = sc.card_id").
			Where(squirrel.NotEq{"s.deck_id": decks})
		pending = append(pending, squirrel.Eq{"c.deck_id": decks})
	}
	query = query.Where(pending)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		log.Error("failed to count open sessions: %v", err)
		return 0, err
	}
	return n, nil
}

func updateSession(ctx context.Context, q querier, s models.StudySession) error {
	res, err := q.ExecContext(ctx, `
UPDATE study_sessions
SET end_date = ?, correct_count = ?, incorrect_count = ?, total_study_time = ?
WHERE id = ?
`, nullTime(s.EndDate), s.CorrectCount, s.IncorrectCount, s.TotalStudyTime, s.ID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return markReviewed(ctx, q, s)
}

// markReviewed records the order of s.ReviewedCards against the stored queue.
func markReviewed(ctx context.Context, q querier, s models.StudySession) error {
	if _, err := q.ExecContext(ctx, `UPDATE session_cards SET reviewed_seq = NULL WHERE session_id = ?`, s.ID); err != nil {
		return err
	}
	for seq, cardID := range s.ReviewedCards {
		res, err := q.ExecContext(ctx, `UPDATE session_cards SET reviewed_seq = ? WHERE session_id = ? AND card_id = ?`, seq, s.ID, cardID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return fmt.Errorf("reviewed card %s is not in session %s: %w", cardID, s.ID, err)
		}
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (models.StudySession, error) {
	var s models.StudySession
	var end sql.NullTime
	var limit sql.NullInt64
	if err := row.Scan(&s.ID, &s.DeckID, &s.Mode, &s.StartDate, &end, &s.CorrectCount, &s.IncorrectCount,
		&s.IncludeSubdecks, &limit, &s.TotalStudyTime); err != nil {
		return models.StudySession{}, err
	}
	s.EndDate = timePtr(end)
	if limit.Valid {
		l := int(limit.Int64)
		s.ReviewLimit = &l
	}
	return s, nil
}

func loadSessionCards(ctx context.Context, q querier, s *models.StudySession) error {
	rows, err := q.QueryContext(ctx, `
SELECT card_id, reviewed_seq
FROM session_cards
WHERE session_id = ?
ORDER BY position
`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type reviewed struct {
		seq int64
		id  uuid.UUID
	}
	var done []reviewed
	s.ScheduledCards = []uuid.UUID{}
	for rows.Next() {
		var cardID uuid.UUID
		var seq sql.NullInt64
		if err := rows.Scan(&cardID, &seq); err != nil {
			return err
		}
		s.ScheduledCards = append(s.ScheduledCards, cardID)
		if seq.Valid {
			done = append(done, reviewed{seq: seq.Int64, id: cardID})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(done, func(i, j int) bool { return done[i].seq < done[j].seq })
	s.ReviewedCards = make([]uuid.UUID, len(done))
	for i, d := range done {
		s.ReviewedCards[i] = d.id
	}
	return nil
}

func nullLimit(limit *int) sql.NullInt64 {
	if limit == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*limit), Valid: true}
}
