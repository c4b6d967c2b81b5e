package flashcard

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is wrapped by every Policy.Validate failure.
var ErrInvalidPolicy = errors.New("flashcard: invalid scheduling policy")

// SeedIntervals are the fixed intervals, in days, used for a card's first review
// and for any review of a card whose interval has been reset to zero.
type SeedIntervals struct {
	Again int `toml:"again"`
	Hard  int `toml:"hard"`
	Good  int `toml:"good"`
	Easy  int `toml:"easy"`
}

func (s SeedIntervals) forRating(r Rating) int {
	switch r {
	case Hard:
		return s.Hard
	case Good:
		return s.Good
	case Easy:
		return s.Easy
	default:
		return s.Again
	}
}

// Policy is the table of constants driving the SM-2 style scheduler.
type Policy struct {
	MinEase                float64       `toml:"min_ease"`
	DefaultEase            float64       `toml:"default_ease"`
	AgainEasePenalty       float64       `toml:"again_ease_penalty"`
	HardEasePenalty        float64       `toml:"hard_ease_penalty"`
	EasyEaseBonus          float64       `toml:"easy_ease_bonus"`
	HardIntervalMultiplier float64       `toml:"hard_interval_multiplier"`
	EasyIntervalBonus      float64       `toml:"easy_interval_bonus"`
	PromotionStreak        int           `toml:"promotion_streak"`
	MaxInterval            int           `toml:"max_interval"` // 0 means unbounded
	Seeds                  SeedIntervals `toml:"seeds"`
}

// DefaultPolicy returns the stock SM-2 variant constants.
func DefaultPolicy() Policy {
	return Policy{
		MinEase:                1.3,
		DefaultEase:            2.5,
		AgainEasePenalty:       0.20,
		HardEasePenalty:        0.15,
		EasyEaseBonus:          0.15,
		HardIntervalMultiplier: 1.2,
		EasyIntervalBonus:      1.3,
		PromotionStreak:        1,
		MaxInterval:            36500,
		Seeds: SeedIntervals{
			Again: 0,
			Hard:  1,
			Good:  1,
			Easy:  3,
		},
	}
}

// Validate reports every out-of-range constant at once.
func (p Policy) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidPolicy}, args...)...))
		}
	}

	check(p.MinEase >= 1.0, "min_ease %.2f must be at least 1.0", p.MinEase)
	check(p.DefaultEase >= p.MinEase, "default_ease %.2f must be at least min_ease %.2f", p.DefaultEase, p.MinEase)
	check(p.AgainEasePenalty >= 0, "again_ease_penalty %.2f must not be negative", p.AgainEasePenalty)
	check(p.HardEasePenalty >= 0, "hard_ease_penalty %.2f must not be negative", p.HardEasePenalty)
	check(p.EasyEaseBonus >= 0, "easy_ease_bonus %.2f must not be negative", p.EasyEaseBonus)
	check(p.HardIntervalMultiplier >= 1, "hard_interval_multiplier %.2f must be at least 1", p.HardIntervalMultiplier)
	check(p.EasyIntervalBonus >= 1, "easy_interval_bonus %.2f must be at least 1", p.EasyIntervalBonus)
	check(p.PromotionStreak >= 1, "promotion_streak %d must be at least 1", p.PromotionStreak)
	check(p.MaxInterval >= 0, "max_interval %d must not be negative", p.MaxInterval)
	check(p.Seeds.Again >= 0, "seeds.again %d must not be negative", p.Seeds.Again)
	check(p.Seeds.Hard >= 1, "seeds.hard %d must be at least 1", p.Seeds.Hard)
	check(p.Seeds.Good >= 1, "seeds.good %d must be at least 1", p.Seeds.Good)
	check(p.Seeds.Easy >= 1, "seeds.easy %d must be at least 1", p.Seeds.Easy)
	check(p.Seeds.Again <= p.Seeds.Hard, "seeds.again %d must not exceed seeds.hard %d", p.Seeds.Again, p.Seeds.Hard)

	return errors.Join(errs...)
}
