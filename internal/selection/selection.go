// Package selection turns a pool of cards into the ordered queue a study
// session works through. Everything here is pure and safe for concurrent use.
package selection

import (
	"bytes"
	"cmp"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/models"
)

// Options controls filtering and ordering of the queue.
type Options struct {
	Mode models.StudyMode
	// Seed drives the shuffle permutation; the same seed yields the same order.
	Seed int64
	// Tags keeps cards carrying at least one of the tags. Empty keeps all.
	Tags        []string
	FlaggedOnly bool
	// NewCardLimit caps how many never-reviewed cards are queued. Zero means no cap.
	NewCardLimit int
	// NewCardSpacing inserts one new card after every N review cards. Zero puts
	// all new cards after the review cards.
	NewCardSpacing int
	// Limit truncates the final queue. Zero means no limit.
	Limit int
}

// Build returns the ids of the due cards in study order.
func Build(cards []models.Card, now time.Time, opts Options) []uuid.UUID {
	tags := models.NormalizeTags(opts.Tags)

	var review, fresh []models.Card
	for _, c := range cards {
		if !c.IsDue(now) || !keep(c, tags, opts) {
			continue
		}
		if c.IsNew() {
			fresh = append(fresh, c)
		} else {
			review = append(review, c)
		}
	}

	less := dueOrder(now)
	if opts.Mode == models.StudyModeQuiz {
		less = byAccuracy(less)
	}
	slices.SortStableFunc(review, less)
	slices.SortStableFunc(fresh, newOrder)

	if opts.NewCardLimit > 0 && len(fresh) > opts.NewCardLimit {
		fresh = fresh[:opts.NewCardLimit]
	}

	queue := interleave(ids(review), ids(fresh), opts.NewCardSpacing)

	if opts.Mode == models.StudyModeShuffle {
		r := rand.New(rand.NewSource(opts.Seed))
		r.Shuffle(len(queue), func(i, j int) {
			queue[i], queue[j] = queue[j], queue[i]
		})
	}

	if opts.Limit > 0 && len(queue) > opts.Limit {
		queue = queue[:opts.Limit]
	}
	return queue
}

func keep(c models.Card, tags []string, opts Options) bool {
	if opts.FlaggedOnly && !c.IsFlagged {
		return false
	}
	if opts.Mode == models.StudyModeDifficult && !c.IsFlagged && c.Difficulty() != models.DifficultyHard {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if c.HasTag(t) {
			return true
		}
	}
	return false
}

// dueOrder sorts the longest overdue first, then weaker mastery, then id.
func dueOrder(now time.Time) func(a, b models.Card) int {
	return func(a, b models.Card) int {
		if c := cmp.Compare(b.Overdue(now), a.Overdue(now)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.MasteryLevel, b.MasteryLevel); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	}
}

func byAccuracy(next func(a, b models.Card) int) func(a, b models.Card) int {
	return func(a, b models.Card) int {
		if c := cmp.Compare(a.Accuracy(), b.Accuracy()); c != 0 {
			return c
		}
		return next(a, b)
	}
}

// newOrder keeps unseen cards in the order they were added.
func newOrder(a, b models.Card) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

func interleave(review, fresh []uuid.UUID, spacing int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(review)+len(fresh))
	if spacing <= 0 {
		out = append(out, review...)
		return append(out, fresh...)
	}
	for i, id := range review {
		out = append(out, id)
		if (i+1)%spacing == 0 && len(fresh) > 0 {
			out = append(out, fresh[0])
			fresh = fresh[1:]
		}
	}
	return append(out, fresh...)
}

func ids(cards []models.Card) []uuid.UUID {
	out := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}
