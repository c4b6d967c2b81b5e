package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID              uuid.UUID    `json:"id"`
	CardID          uuid.UUID    `json:"card_id"`
	SessionID       *uuid.UUID   `json:"session_id,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
	Rating          ReviewRating `json:"rating"`
	ResponseTime    float64      `json:"response_time"`
	NewInterval     int          `json:"new_interval"`
	NewEase         float64      `json:"new_ease"`
	NewMasteryLevel MasteryLevel `json:"new_mastery_level"`
}

func (r Review) IsCorrect() bool { return r.Rating.IsCorrect() }

type CardStudyStats struct {
	CardID              uuid.UUID  `json:"card_id"`
	TotalReviews        int        `json:"total_reviews"`
	CorrectReviews      int        `json:"correct_reviews"`
	IncorrectReviews    int        `json:"incorrect_reviews"`
	SuccessRate         float64    `json:"success_rate"`
	AverageResponseTime float64    `json:"average_response_time"`
	FirstStudyDate      *time.Time `json:"first_study_date,omitempty"`
	LastStudyDate       *time.Time `json:"last_study_date,omitempty"`
}

// NewCardStudyStats aggregates a card's review history. Reviews may be in any order.
func NewCardStudyStats(cardID uuid.UUID, reviews []Review) CardStudyStats {
	stats := CardStudyStats{CardID: cardID}
	var totalTime float64
	for _, r := range reviews {
		stats.TotalReviews++
		if r.IsCorrect() {
			stats.CorrectReviews++
		} else {
			stats.IncorrectReviews++
		}
		totalTime += r.ResponseTime
		ts := r.Timestamp
		if stats.FirstStudyDate == nil || ts.Before(*stats.FirstStudyDate) {
			stats.FirstStudyDate = &ts
		}
		if stats.LastStudyDate == nil || ts.After(*stats.LastStudyDate) {
			stats.LastStudyDate = &ts
		}
	}
	if stats.TotalReviews > 0 {
		stats.SuccessRate = float64(stats.CorrectReviews) / float64(stats.TotalReviews)
		stats.AverageResponseTime = totalTime / float64(stats.TotalReviews)
	}
	return stats
}
