package flashcard

import (
	"math"
	"time"

	"github.com/vytor/studydeck/internal/models"
)

// Rating is the review outcome fed to the scheduler.
type Rating = models.ReviewRating

const (
	Again = models.RatingAgain
	Hard  = models.RatingHard
	Good  = models.RatingGood
	Easy  = models.RatingEasy
)

// State is the slice of a card's scheduling state the algorithm reads.
type State struct {
	Interval           int
	Ease               float64
	MasteryLevel       models.MasteryLevel
	ReviewCount        int
	ConsecutiveCorrect int
}

// Result is the scheduling state produced by one review.
type Result struct {
	Interval           int
	Ease               float64
	MasteryLevel       models.MasteryLevel
	ConsecutiveCorrect int
}

// StateOf extracts the scheduler input from a card.
func StateOf(c models.Card) State {
	return State{
		Interval:           c.Interval,
		Ease:               c.Ease,
		MasteryLevel:       c.MasteryLevel,
		ReviewCount:        c.ReviewCount,
		ConsecutiveCorrect: c.ConsecutiveCorrect,
	}
}

// Scheduler applies an SM-2 variant driven by a Policy. It holds no mutable
// state and is safe for concurrent use.
type Scheduler struct {
	policy Policy
}

// NewScheduler validates p and returns a scheduler using it.
func NewScheduler(p Policy) (*Scheduler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{policy: p}, nil
}

// DefaultScheduler uses DefaultPolicy.
func DefaultScheduler() *Scheduler {
	return &Scheduler{policy: DefaultPolicy()}
}

func (s *Scheduler) Policy() Policy { return s.policy }

// ComputeNextState maps the current state and a rating to the next state.
// It is total: out-of-range inputs are clamped before use.
func (s *Scheduler) ComputeNextState(cur State, rating Rating) Result {
	p := s.policy

	rating = clampRating(rating)
	interval := max(cur.Interval, 0)
	ease := cur.Ease
	switch {
	case ease == 0:
		ease = p.DefaultEase
	case ease < p.MinEase || math.IsNaN(ease):
		ease = p.MinEase
	}
	level := cur.MasteryLevel.Clamp()
	streak := max(cur.ConsecutiveCorrect, 0)

	// A first review, or the first review after a lapse reset the interval,
	// uses the seed table instead of multiplicative growth.
	seeded := cur.ReviewCount <= 0 || interval == 0

	var next Result
	switch rating {
	case Again:
		next = Result{
			Interval:           p.Seeds.forRating(rating),
			Ease:               math.Max(p.MinEase, ease-p.AgainEasePenalty),
			MasteryLevel:       level.Demote(),
			ConsecutiveCorrect: 0,
		}
	case Hard:
		iv := p.Seeds.forRating(rating)
		if !seeded {
			iv = max(1, roundDays(float64(interval)*p.HardIntervalMultiplier))
		}
		next = Result{
			Interval:           iv,
			Ease:               math.Max(p.MinEase, ease-p.HardEasePenalty),
			MasteryLevel:       level,
			ConsecutiveCorrect: streak + 1,
		}
	case Good:
		iv := p.Seeds.forRating(rating)
		if !seeded {
			iv = max(1, roundDays(float64(interval)*ease))
		}
		next = Result{
			Interval:           iv,
			Ease:               ease,
			MasteryLevel:       level,
			ConsecutiveCorrect: streak + 1,
		}
		if next.ConsecutiveCorrect >= p.PromotionStreak {
			next.MasteryLevel = level.Promote()
		}
	case Easy:
		iv := p.Seeds.forRating(rating)
		if !seeded {
			iv = max(1, roundDays(float64(interval)*ease*p.EasyIntervalBonus))
		}
		next = Result{
			Interval:           iv,
			Ease:               ease + p.EasyEaseBonus,
			MasteryLevel:       level.Promote(),
			ConsecutiveCorrect: streak + 1,
		}
	}

	if p.MaxInterval > 0 && next.Interval > p.MaxInterval {
		next.Interval = p.MaxInterval
	}
	return next
}

// Preview computes the outcome of every rating, for showing projected intervals.
func (s *Scheduler) Preview(cur State) map[Rating]Result {
	out := make(map[Rating]Result, len(models.Ratings))
	for _, r := range models.Ratings {
		out[r] = s.ComputeNextState(cur, r)
	}
	return out
}

// ApplyReview returns card updated for a review with the given rating at now.
func (s *Scheduler) ApplyReview(card models.Card, rating Rating, now time.Time) models.Card {
	next := s.ComputeNextState(StateOf(card), rating)

	card.Interval = next.Interval
	card.Ease = next.Ease
	card.MasteryLevel = next.MasteryLevel
	card.ConsecutiveCorrect = next.ConsecutiveCorrect
	card.ReviewCount++
	if clampRating(rating).IsCorrect() {
		card.CorrectCount++
	} else {
		card.IncorrectCount++
	}

	reviewedAt := now
	due := NextReviewDate(reviewedAt, next.Interval)
	card.LastReviewedAt = &reviewedAt
	card.NextReviewDate = &due
	card.UpdatedAt = now
	return card
}

// NextReviewDate is reviewedAt plus interval calendar days.
func NextReviewDate(reviewedAt time.Time, interval int) time.Time {
	return reviewedAt.AddDate(0, 0, interval)
}

// MaxDays bounds every computed interval, including under an unbounded policy.
const MaxDays = math.MaxInt32

func roundDays(v float64) int {
	if math.IsNaN(v) || v >= MaxDays {
		return MaxDays
	}
	return int(math.Round(v))
}

func clampRating(r Rating) Rating {
	if r < Again {
		return Again
	}
	if r > Easy {
		return Easy
	}
	return r
}
