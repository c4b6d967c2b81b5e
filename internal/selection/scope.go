package selection

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/vytor/studydeck/internal/models"
)

var (
	ErrUnknownDeck = errors.New("unknown deck")
	ErrDeckCycle   = errors.New("deck hierarchy contains a cycle")
)

// DeckScope returns rootID followed, when includeSubdecks is set, by every
// descendant in breadth-first order. Siblings are ordered by name, then id.
func DeckScope(decks []models.Deck, rootID uuid.UUID, includeSubdecks bool) ([]uuid.UUID, error) {
	byID := make(map[uuid.UUID]models.Deck, len(decks))
	for _, d := range decks {
		byID[d.ID] = d
	}
	if _, ok := byID[rootID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDeck, rootID)
	}

	// Walk up from the root; revisiting a deck means the parent chain loops.
	seen := map[uuid.UUID]bool{rootID: true}
	for cur := byID[rootID]; cur.ParentID != nil; {
		parent, ok := byID[*cur.ParentID]
		if !ok {
			break
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("%w: through deck %s", ErrDeckCycle, parent.ID)
		}
		seen[parent.ID] = true
		cur = parent
	}

	if !includeSubdecks {
		return []uuid.UUID{rootID}, nil
	}

	children := make(map[uuid.UUID][]models.Deck)
	for _, d := range decks {
		if d.ParentID != nil {
			children[*d.ParentID] = append(children[*d.ParentID], d)
		}
	}

	scope := []uuid.UUID{rootID}
	visited := map[uuid.UUID]bool{rootID: true}
	for i := 0; i < len(scope); i++ {
		kids := children[scope[i]]
		slices.SortFunc(kids, func(a, b models.Deck) int {
			if c := cmp.Compare(a.Name, b.Name); c != 0 {
				return c
			}
			return cmp.Compare(a.ID.String(), b.ID.String())
		})
		for _, k := range kids {
			if visited[k.ID] {
				return nil, fmt.Errorf("%w: through deck %s", ErrDeckCycle, k.ID)
			}
			visited[k.ID] = true
			scope = append(scope, k.ID)
		}
	}
	return scope, nil
}

// InScope returns the cards belonging to any deck in scope, preserving order.
func InScope(cards []models.Card, scope []uuid.UUID) []models.Card {
	want := make(map[uuid.UUID]bool, len(scope))
	for _, id := range scope {
		want[id] = true
	}
	var out []models.Card
	for _, c := range cards {
		if want[c.DeckID] {
			out = append(out, c)
		}
	}
	return out
}
