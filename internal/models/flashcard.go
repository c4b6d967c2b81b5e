package models

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultEase = 2.5
	MinEase     = 1.3
)

type Card struct {
	ID                 uuid.UUID    `json:"id"`
	DeckID             uuid.UUID    `json:"deck_id"`
	Question           string       `json:"question"`
	Answer             string       `json:"answer"`
	AdditionalInfo     *string      `json:"additional_info,omitempty"`
	Tags               []string     `json:"tags"`
	MasteryLevel       MasteryLevel `json:"mastery_level"`
	Interval           int          `json:"interval"`
	Ease               float64      `json:"ease"`
	ReviewCount        int          `json:"review_count"`
	CorrectCount       int          `json:"correct_count"`
	IncorrectCount     int          `json:"incorrect_count"`
	ConsecutiveCorrect int          `json:"consecutive_correct"`
	LastReviewedAt     *time.Time   `json:"last_reviewed_at,omitempty"`
	NextReviewDate     *time.Time   `json:"next_review_date,omitempty"`
	IsFlagged          bool         `json:"is_flagged"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// NewCard returns an unreviewed card with default scheduling state.
func NewCard(deckID uuid.UUID, question, answer string, now time.Time) Card {
	return Card{
		ID:           uuid.New(),
		DeckID:       deckID,
		Question:     question,
		Answer:       answer,
		Tags:         []string{},
		MasteryLevel: MasteryNovice,
		Ease:         DefaultEase,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsNew reports whether the card has never been scheduled.
func (c Card) IsNew() bool {
	return c.NextReviewDate == nil
}

// IsDue reports whether the card should be shown at now. New cards are always due.
func (c Card) IsDue(now time.Time) bool {
	return c.NextReviewDate == nil || !c.NextReviewDate.After(now)
}

// Overdue is how long past its due date the card is at now; zero for new or future cards.
func (c Card) Overdue(now time.Time) time.Duration {
	if c.NextReviewDate == nil || c.NextReviewDate.After(now) {
		return 0
	}
	return now.Sub(*c.NextReviewDate)
}

func (c Card) LearningState(now time.Time) LearningState {
	switch {
	case c.ReviewCount == 0 && c.NextReviewDate == nil:
		return LearningStateNew
	case c.IsDue(now):
		return LearningStateDueForReview
	case c.MasteryLevel >= MasteryAdvanced:
		return LearningStateMastered
	default:
		return LearningStateLearning
	}
}

func (c Card) Difficulty() DifficultyLevel {
	switch {
	case c.ReviewCount == 0:
		return DifficultyMedium
	case c.Ease < 2.0 || c.IncorrectCount > c.CorrectCount:
		return DifficultyHard
	case c.Ease < DefaultEase:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}

// Accuracy is correct reviews over all reviews, or 0 for an unreviewed card.
func (c Card) Accuracy() float64 {
	total := c.CorrectCount + c.IncorrectCount
	if total == 0 {
		return 0
	}
	return float64(c.CorrectCount) / float64(total)
}

func (c Card) HasTag(tag string) bool {
	return slices.Contains(c.Tags, normalizeTag(tag))
}

// WithTags returns a copy of c whose tags are trimmed, lowercased, sorted and unique.
func (c Card) WithTags(tags []string) Card {
	c.Tags = NormalizeTags(tags)
	return c
}

// Reset clears all scheduling state, returning the card to a never-studied state.
func (c Card) Reset(now time.Time) Card {
	c.MasteryLevel = MasteryNovice
	c.Interval = 0
	c.Ease = DefaultEase
	c.ReviewCount = 0
	c.CorrectCount = 0
	c.IncorrectCount = 0
	c.ConsecutiveCorrect = 0
	c.LastReviewedAt = nil
	c.NextReviewDate = nil
	c.UpdatedAt = now
	return c
}

func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = normalizeTag(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

type CardFilter struct {
	DeckIDs     []uuid.UUID
	Tags        []string
	FlaggedOnly bool
	DueBefore   *time.Time
	Mastery     *MasteryLevel
	Limit       int
	Offset      int
}
