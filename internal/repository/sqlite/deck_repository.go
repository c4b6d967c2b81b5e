package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/models"
	"github.com/vytor/studydeck/internal/repository"
)

type deckRepository struct {
	db *sql.DB
}

// NewDeckRepository creates a new DeckRepository implementation
func NewDeckRepository(db *sql.DB) repository.DeckRepository {
	return &deckRepository{db: db}
}

const deckColumns = `id, parent_id, name, description, icon, color_name, created_at, updated_at`

func scanDeck(row interface{ Scan(...any) error }) (models.Deck, error) {
	var d models.Deck
	var parent uuid.NullUUID
	if err := row.Scan(&d.ID, &parent, &d.Name, &d.Description, &d.Icon, &d.ColorName, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return models.Deck{}, err
	}
	d.ParentID = uuidPtr(parent)
	return d, nil
}

func (r *deckRepository) Insert(ctx context.Context, d models.Deck) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("inserting deck: id=%s, name=%s", d.ID, d.Name)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO decks (`+deckColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, d.ID, nullUUID(d.ParentID), d.Name, d.Description, d.Icon, d.ColorName, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		log.Error("failed to insert deck: %v", err)
	}
	return err
}

func (r *deckRepository) Get(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("getting deck: id=%s", id)

	d, err := scanDeck(r.db.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found: id=%s", id)
		} else {
			log.Error("failed to get deck: %v", err)
		}
		return nil, err
	}
	return &d, nil
}

func (r *deckRepository) List(ctx context.Context) ([]models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("listing decks")

	rows, err := r.db.QueryContext(ctx, `SELECT `+deckColumns+` FROM decks ORDER BY name, id`)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, err
	}
	defer rows.Close()

	var decks []models.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			log.Error("failed to scan deck row: %v", err)
			return nil, err
		}
		decks = append(decks, d)
	}
	log.Debug("found %d decks", len(decks))
	return decks, rows.Err()
}

func (r *deckRepository) Update(ctx context.Context, d models.Deck) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("updating deck: id=%s", d.ID)

	res, err := r.db.ExecContext(ctx, `
UPDATE decks
SET parent_id = ?, name = ?, description = ?, icon = ?, color_name = ?, updated_at = ?
WHERE id = ?
`, nullUUID(d.ParentID), d.Name, d.Description, d.Icon, d.ColorName, d.UpdatedAt, d.ID)
	if err != nil {
		log.Error("failed to update deck: %v", err)
		return err
	}
	return requireAffected(res)
}

// Delete removes the deck; subdecks, cards and sessions cascade.
func (r *deckRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Info("deleting deck: id=%s", id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete deck: %v", err)
		return err
	}
	return requireAffected(res)
}
