package study

import (
	"time"

	"github.com/vytor/studydeck/internal/models"
)

// Stats summarises a session. Reviews that do not belong to the session are
// ignored, so callers may pass a card's full history.
func Stats(session models.StudySession, reviews []models.Review, now time.Time) models.SessionStats {
	stats := models.SessionStats{
		SessionID:      session.ID,
		Status:         session.Status(),
		ScheduledCount: len(session.ScheduledCards),
		ReviewedCount:  len(session.ReviewedCards),
		RemainingCount: session.RemainingCount(),
		CorrectCount:   session.CorrectCount,
		IncorrectCount: session.IncorrectCount,
		SuccessRate:    session.SuccessRate(),
		TotalStudyTime: session.TotalStudyTime,
		RatingCounts:   make(map[string]int, len(models.Ratings)),
	}
	for _, r := range models.Ratings {
		stats.RatingCounts[r.String()] = 0
	}

	if stats.ScheduledCount > 0 {
		stats.Progress = float64(stats.ReviewedCount) / float64(stats.ScheduledCount)
	}
	if !session.StartDate.IsZero() {
		stats.DurationSeconds = session.Duration(now).Seconds()
	}

	for _, r := range reviews {
		if r.SessionID == nil || *r.SessionID != session.ID {
			continue
		}
		stats.RatingCounts[r.Rating.String()]++
	}
	if stats.ReviewedCount > 0 {
		stats.AverageResponseTime = session.TotalStudyTime / float64(stats.ReviewedCount)
	}
	return stats
}
