package expressions

import (
	"context"
	"fmt"
	"sort"

	"github.com/vapor/penny-bot/internal/textfold"
)

// Ping is a user to notify and the expressions of theirs a message triggered
type Ping struct {
	UserID      string
	Expressions []Expression
}

// Matcher checks messages against every registered expression
type Matcher struct {
	repository Repository
}

// NewMatcher creates a matcher backed by repository
func NewMatcher(repository Repository) *Matcher {
	return &Matcher{repository: repository}
}

// UsersToPing returns the users whose expressions the text triggers, sorted
// by user ID. excludedUserIDs never get a ping.
func (m *Matcher) UsersToPing(ctx context.Context, text string, excludedUserIDs ...string) ([]Ping, error) {
	folded := textfold.Fold(text)
	if folded == "" {
		return nil, nil
	}
	divided := textfold.DivideForExactMatch(folded)

	all, err := m.repository.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get expressions: %w", err)
	}

	excluded := make(map[string]bool, len(excludedUserIDs))
	for _, userID := range excludedUserIDs {
		excluded[userID] = true
	}

	triggered := make(map[string][]Expression)
	for expression, userIDs := range all {
		if !Triggers(divided, folded, expression) {
			continue
		}
		for _, userID := range userIDs {
			if excluded[userID] {
				continue
			}
			triggered[userID] = append(triggered[userID], expression)
		}
	}

	pings := make([]Ping, 0, len(triggered))
	for userID, matched := range triggered {
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].RawValue() < matched[j].RawValue()
		})
		pings = append(pings, Ping{UserID: userID, Expressions: matched})
	}
	sort.Slice(pings, func(i, j int) bool {
		return pings[i].UserID < pings[j].UserID
	})

	return pings, nil
}
