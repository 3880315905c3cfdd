// Package expressions matches chat messages against the watch expressions
// users registered to be pinged about.
package expressions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vapor/penny-bot/internal/textfold"
)

// ErrInvalidExpression is returned for unknown or empty raw expressions
var ErrInvalidExpression = errors.New("invalid expression")

const (
	matchesPrefix  = "T-"
	containsPrefix = "C-"
)

// Expression is either Matches or Contains
type Expression interface {
	// RawValue is the type prefixed form used in storage. Stored data
	// depends on it, so the prefixes must not change.
	RawValue() string
	// Value is the folded text of the expression
	Value() string
	Kind() string
	isExpression()
}

// Matches triggers when the message holds the phrase as whole words
type Matches string

func (m Matches) RawValue() string { return matchesPrefix + string(m) }
func (m Matches) Value() string    { return string(m) }
func (m Matches) Kind() string     { return "matches" }
func (Matches) isExpression()      {}

// Contains triggers when the folded message contains the text anywhere
type Contains string

func (c Contains) RawValue() string { return containsPrefix + string(c) }
func (c Contains) Value() string    { return string(c) }
func (c Contains) Kind() string     { return "contains" }
func (Contains) isExpression()      {}

// New builds an expression of the given kind ("matches" or "contains") from
// user input, folding the text.
func New(kind, text string) (Expression, error) {
	folded := textfold.Fold(text)
	if folded == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidExpression)
	}

	switch strings.ToLower(kind) {
	case "matches", "":
		return Matches(folded), nil
	case "contains":
		return Contains(folded), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidExpression, kind)
	}
}

// Parse decodes a raw value produced by RawValue
func Parse(raw string) (Expression, error) {
	switch {
	case strings.HasPrefix(raw, matchesPrefix) && len(raw) > len(matchesPrefix):
		return Matches(raw[len(matchesPrefix):]), nil
	case strings.HasPrefix(raw, containsPrefix) && len(raw) > len(containsPrefix):
		return Contains(raw[len(containsPrefix):]), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidExpression, raw)
	}
}

// Triggers reports whether a message triggers the expression. divided is
// textfold.DivideForExactMatch of the folded message.
func Triggers(divided [][]string, folded string, expression Expression) bool {
	switch e := expression.(type) {
	case Matches:
		phrase := textfold.SplitWords(string(e))
		if len(phrase) == 0 {
			return false
		}
		for _, tokens := range divided {
			if containsSequence(tokens, phrase) {
				return true
			}
		}
		return false
	case Contains:
		return string(e) != "" && strings.Contains(folded, string(e))
	default:
		return false
	}
}

func containsSequence(tokens, sequence []string) bool {
	for start := 0; start+len(sequence) <= len(tokens); start++ {
		found := true
		for i := range sequence {
			if tokens[start+i] != sequence[i] {
				found = false
				break
			}
		}
		if found {
			return true
		}
	}
	return false
}
