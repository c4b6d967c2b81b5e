package models

import (
	"time"

	"github.com/google/uuid"
)

type Deck struct {
	ID          uuid.UUID  `json:"id"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	ColorName   string     `json:"color_name"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type DeckStats struct {
	DeckID            uuid.UUID             `json:"deck_id"`
	CardCount         int                   `json:"card_count"`
	DueCardCount      int                   `json:"due_card_count"`
	ByMastery         map[string]int        `json:"by_mastery"`
	ByLearningState   map[LearningState]int `json:"by_learning_state"`
	AverageEase       float64               `json:"average_ease"`
	AverageAccuracy   float64               `json:"average_accuracy"`
	CardsStudiedToday int                   `json:"cards_studied_today"`
	StudyTimeToday    float64               `json:"study_time_today"`
	LastStudyDate     *time.Time            `json:"last_study_date,omitempty"`
}
