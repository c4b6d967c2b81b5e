package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vytor/studydeck/internal/clock"
	"github.com/vytor/studydeck/internal/testutil"
	"github.com/vytor/studydeck/internal/testutil/mocks"
)

var ctx = context.Background()

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

type fixture struct {
	decks    *mocks.MockDeckRepository
	cards    *mocks.MockCardRepository
	reviews  *mocks.MockReviewRepository
	sessions *mocks.MockSessionRepository
	store    *mocks.MockStudyStore
	clock    *clock.Fixed
}

func newFixture() *fixture {
	return &fixture{
		decks:    new(mocks.MockDeckRepository),
		cards:    new(mocks.MockCardRepository),
		reviews:  new(mocks.MockReviewRepository),
		sessions: new(mocks.MockSessionRepository),
		store:    new(mocks.MockStudyStore),
		clock:    clock.NewFixed(testutil.Now),
	}
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.decks.AssertExpectations(t)
	f.cards.AssertExpectations(t)
	f.reviews.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestKeyedMutex_SerialisesPerKey(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(id(1))
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size(), "unused entries are released")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock(id(1))
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock(id(2))
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestStartOfDay(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), startOfDay(testutil.Now))
}
