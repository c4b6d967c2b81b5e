package models

import (
	"fmt"
	"strings"
)

// MasteryLevel is the five-step ordinal confidence estimate for a card.
type MasteryLevel int

const (
	MasteryNovice MasteryLevel = iota
	MasteryBeginner
	MasteryIntermediate
	MasteryAdvanced
	MasteryExpert
)

var masteryNames = [...]string{"novice", "beginner", "intermediate", "advanced", "expert"}

func (m MasteryLevel) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mastery(%d)", int(m))
	}
	return masteryNames[m]
}

func (m MasteryLevel) Valid() bool {
	return m >= MasteryNovice && m <= MasteryExpert
}

// Clamp bounds m to [novice, expert].
func (m MasteryLevel) Clamp() MasteryLevel {
	if m < MasteryNovice {
		return MasteryNovice
	}
	if m > MasteryExpert {
		return MasteryExpert
	}
	return m
}

// Promote returns the next level up, saturating at expert.
func (m MasteryLevel) Promote() MasteryLevel { return (m + 1).Clamp() }

// Demote returns the next level down, saturating at novice.
func (m MasteryLevel) Demote() MasteryLevel { return (m - 1).Clamp() }

func (m MasteryLevel) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mastery level %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MasteryLevel) UnmarshalText(b []byte) error {
	v, err := ParseMasteryLevel(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMasteryLevel parses a level name, case-insensitively.
func ParseMasteryLevel(s string) (MasteryLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range masteryNames {
		if name == s {
			return MasteryLevel(i), nil
		}
	}
	return MasteryNovice, fmt.Errorf("unknown mastery level %q", s)
}

// ReviewRating is the learner's self-assessment of a single review, ordered by quality.
type ReviewRating int

const (
	RatingAgain ReviewRating = iota
	RatingHard
	RatingGood
	RatingEasy
)

var ratingNames = [...]string{"again", "hard", "good", "easy"}

// Ratings lists every rating in quality order.
var Ratings = []ReviewRating{RatingAgain, RatingHard, RatingGood, RatingEasy}

func (r ReviewRating) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rating(%d)", int(r))
	}
	return ratingNames[r]
}

func (r ReviewRating) Valid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// IsCorrect reports whether the rating counts as a successful recall.
func (r ReviewRating) IsCorrect() bool { return r != RatingAgain }

func (r ReviewRating) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid review rating %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *ReviewRating) UnmarshalText(b []byte) error {
	v, err := ParseReviewRating(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseReviewRating accepts a rating name or its 1-4 keyboard shortcut.
func ParseReviewRating(s string) (ReviewRating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range ratingNames {
		if name == s {
			return ReviewRating(i), nil
		}
	}
	switch s {
	case "1":
		return RatingAgain, nil
	case "2":
		return RatingHard, nil
	case "3":
		return RatingGood, nil
	case "4":
		return RatingEasy, nil
	}
	return RatingAgain, fmt.Errorf("unknown review rating %q", s)
}

// LearningState buckets a card for filtering and statistics.
type LearningState string

const (
	LearningStateNew          LearningState = "new"
	LearningStateLearning     LearningState = "learning"
	LearningStateMastered     LearningState = "mastered"
	LearningStateDueForReview LearningState = "dueForReview"
)

// DifficultyLevel is derived from a card's ease factor and error history.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// SessionStatus is the state of a study session's lifecycle.
type SessionStatus string

const (
	SessionNotStarted SessionStatus = "notStarted"
	SessionInProgress SessionStatus = "inProgress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// StudyMode selects how a session's queue is ordered or filtered.
type StudyMode string

const (
	StudyModeSpaced    StudyMode = "spaced"
	StudyModeShuffle   StudyMode = "shuffle"
	StudyModeQuiz      StudyMode = "quiz"
	StudyModeDifficult StudyMode = "difficult"
)

// ParseStudyMode maps an empty string to the spaced default.
func ParseStudyMode(s string) (StudyMode, error) {
	switch m := StudyMode(strings.TrimSpace(s)); m {
	case "":
		return StudyModeSpaced, nil
	case StudyModeSpaced, StudyModeShuffle, StudyModeQuiz, StudyModeDifficult:
		return m, nil
	default:
		return "", fmt.Errorf("unknown study mode %q", s)
	}
}
