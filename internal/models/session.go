package models

import (
	"time"

	"github.com/google/uuid"
)

// StudySession is a bounded, ordered run of reviews over a deck's due cards.
// ScheduledCards is fixed at start; ReviewedCards grows by one per accepted review.
type StudySession struct {
	ID              uuid.UUID   `json:"id"`
	DeckID          uuid.UUID   `json:"deck_id"`
	Mode            StudyMode   `json:"mode"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         *time.Time  `json:"end_date,omitempty"`
	ScheduledCards  []uuid.UUID `json:"scheduled_cards"`
	ReviewedCards   []uuid.UUID `json:"reviewed_cards"`
	CorrectCount    int         `json:"correct_count"`
	IncorrectCount  int         `json:"incorrect_count"`
	IncludeSubdecks bool        `json:"include_subdecks"`
	ReviewLimit     *int        `json:"review_limit,omitempty"`
	TotalStudyTime  float64     `json:"total_study_time"`
}

func (s StudySession) RemainingCount() int {
	return len(s.ScheduledCards) - len(s.ReviewedCards)
}

// SuccessRate is correct over answered reviews, 0 when nothing was answered.
func (s StudySession) SuccessRate() float64 {
	total := s.CorrectCount + s.IncorrectCount
	if total == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(total)
}

// Duration measures from start to end, or to now while the session is open.
func (s StudySession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndDate != nil {
		end = *s.EndDate
	}
	return end.Sub(s.StartDate)
}

func (s StudySession) IsEnded() bool { return s.EndDate != nil }

// LimitReached reports whether the review limit, if any, has been used up.
func (s StudySession) LimitReached() bool {
	return s.ReviewLimit != nil && len(s.ReviewedCards) >= *s.ReviewLimit
}

func (s StudySession) Status() SessionStatus {
	switch {
	case s.StartDate.IsZero():
		return SessionNotStarted
	case s.EndDate == nil:
		return SessionInProgress
	case s.RemainingCount() == 0 || s.LimitReached():
		return SessionCompleted
	default:
		return SessionAbandoned
	}
}

func (s StudySession) IsScheduled(cardID uuid.UUID) bool {
	for _, id := range s.ScheduledCards {
		if id == cardID {
			return true
		}
	}
	return false
}

func (s StudySession) IsReviewed(cardID uuid.UUID) bool {
	for _, id := range s.ReviewedCards {
		if id == cardID {
			return true
		}
	}
	return false
}

type SessionStats struct {
	SessionID           uuid.UUID      `json:"session_id"`
	Status              SessionStatus  `json:"status"`
	ScheduledCount      int            `json:"scheduled_count"`
	ReviewedCount       int            `json:"reviewed_count"`
	RemainingCount      int            `json:"remaining_count"`
	CorrectCount        int            `json:"correct_count"`
	IncorrectCount      int            `json:"incorrect_count"`
	SuccessRate         float64        `json:"success_rate"`
	Progress            float64        `json:"progress"`
	DurationSeconds     float64        `json:"duration_seconds"`
	TotalStudyTime      float64        `json:"total_study_time"`
	AverageResponseTime float64        `json:"average_response_time"`
	RatingCounts        map[string]int `json:"rating_counts"`
}
