package api

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vytor/studydeck/internal/clock"
	"github.com/vytor/studydeck/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	DeckService  services.DeckService
	StudyService services.StudyService
	DB           Pinger
	Clock        clock.Clock
	CORSOrigins  []string

	validate *validator.Validate
}

func NewServer(decks services.DeckService, study services.StudyService, db Pinger, clk clock.Clock, corsOrigins []string) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names in validation errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		DeckService:  decks,
		StudyService: study,
		DB:           db,
		Clock:        clk,
		CORSOrigins:  corsOrigins,
		validate:     v,
	}
}
