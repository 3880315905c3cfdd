// Package coins finds the users a chat message is thanking.
package coins

import "strings"

// DefaultMaxUsers caps how many users one message can give coins to
const DefaultMaxUsers = 10

// CoinSigns are the phrases that count as thanking whoever they are next to.
// A single "+" is deliberately not a sign.
var CoinSigns = []string{
	"++",
	"🪙",
	":coin:",
	"+= 1",
	"+ 1",
	"advance(by: 1)",
	"successor()",
	"👍",
	":+1:",
	":thumbsup:",
	"🙌",
	":raised_hands:",
	"🚀",
	":rocket:",
	"thanks",
	"thanks!",
	"thank you",
	"thank you!",
	"thx",
	"thx!",
}

var splitCoinSigns = splitSigns(CoinSigns)

// ignorables never break a run of mentions and a coin sign
var ignorables = map[string]bool{
	"and": true,
	"&":   true,
	",":   true,
	"":    true,
}

func splitSigns(signs []string) [][]string {
	split := make([][]string, 0, len(signs))
	for _, sign := range signs {
		split = append(split, strings.Fields(strings.ToLower(sign)))
	}
	return split
}

// Finder holds one message worth of input for FindUsers
type Finder struct {
	Text string
	// RepliedUser is the author of the message this one replies to, if any
	RepliedUser string
	// MentionedUsers are mention tokens confirmed by the platform, like "<@123>"
	MentionedUsers []string
	// ExcludedUsers can never receive a coin, usually the message author
	ExcludedUsers []string
	MaxUsers      int
}

// FindUsers returns the mentions that should receive a coin, in the order
// they appear, without duplicates and capped at MaxUsers.
func (f Finder) FindUsers() []string {
	maxUsers := f.MaxUsers
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}

	mentions := make(map[string]bool, len(f.MentionedUsers))
	text := f.Text
	for _, mention := range f.MentionedUsers {
		if mention == "" || mentions[mention] {
			continue
		}
		mentions[mention] = true
		// a mention glued to punctuation or another token would not split out otherwise
		text = strings.ReplaceAll(text, mention, " "+mention+" ")
	}

	lines := splitLines(text)

	var users []string
	for _, line := range lines {
		for _, user := range usersInLine(components(line), mentions) {
			if len(users) >= maxUsers {
				break
			}
			if f.isExcluded(user) || contains(users, user) {
				continue
			}
			users = append(users, user)
		}
		if len(users) >= maxUsers {
			break
		}
	}

	if len(users) == 0 && len(lines) > 0 && f.RepliedUser != "" && !f.isExcluded(f.RepliedUser) {
		if hasSignPrefix(components(lines[0])) || hasSignSuffix(components(lines[len(lines)-1])) {
			return []string{f.RepliedUser}
		}
	}

	return users
}

func (f Finder) isExcluded(user string) bool {
	return contains(f.ExcludedUsers, user)
}

// usersInLine returns every mention in the line that has a coin sign right
// after it or right before it, skipping over other mentions in between.
func usersInLine(components []string, mentions map[string]bool) []string {
	var users []string
	for i, component := range components {
		if !mentions[component] {
			continue
		}

		next := i + 1
		for next < len(components) && mentions[components[next]] {
			next++
		}
		if next < len(components) && hasSignPrefix(components[next:]) {
			users = append(users, component)
			continue
		}

		previous := i - 1
		for previous >= 0 && mentions[components[previous]] {
			previous--
		}
		if previous >= 0 && hasSignSuffix(components[:previous+1]) {
			users = append(users, component)
		}
	}
	return users
}

func components(line string) []string {
	var result []string
	for _, field := range strings.Fields(line) {
		if ignorables[strings.ToLower(field)] {
			continue
		}
		result = append(result, field)
	}
	return result
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func hasSignPrefix(components []string) bool {
	for _, sign := range splitCoinSigns {
		if len(components) >= len(sign) && signEquals(components[:len(sign)], sign) {
			return true
		}
	}
	return false
}

func hasSignSuffix(components []string) bool {
	for _, sign := range splitCoinSigns {
		if len(components) >= len(sign) && signEquals(components[len(components)-len(sign):], sign) {
			return true
		}
	}
	return false
}

func signEquals(components, sign []string) bool {
	for i := range sign {
		if normalize(components[i]) != sign[i] {
			return false
		}
	}
	return true
}

// normalize lowercases a component and treats any run of two or more
// pluses, like "+++", as "++".
func normalize(component string) string {
	if len(component) >= 2 && strings.Trim(component, "+") == "" {
		return "++"
	}
	return strings.ToLower(component)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
