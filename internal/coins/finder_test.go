package coins

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	userA  = "<@111>"
	userB  = "<@222>"
	userC  = "<@333>"
	author = "<@999>"
)

func TestFinder_FindUsers(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		replied   string
		mentioned []string
		excluded  []string
		expected  []string
	}{
		{
			name:      "Trailing sign",
			text:      userA + " ++",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Leading sign",
			text:      "thanks! " + userA,
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Sign separated by unrelated word",
			text:      userA + " xxxx ++",
			mentioned: []string{userA},
			expected:  nil,
		},
		{
			name:      "Single plus is not a sign",
			text:      userA + " +",
			mentioned: []string{userA},
			expected:  nil,
		},
		{
			name:      "More pluses count as ++",
			text:      userA + " +++",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Multi word sign",
			text:      userA + " advance(by: 1)",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Plus one with a space",
			text:      userA + " + 1",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Case insensitive",
			text:      "Thank You! " + userA,
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Shared trailing sign",
			text:      userA + " " + userB + " thanks!",
			mentioned: []string{userA, userB},
			expected:  []string{userA, userB},
		},
		{
			name:      "Connectives do not break the run",
			text:      userA + ", " + userB + " and " + userC + " 🚀",
			mentioned: []string{userA, userB, userC},
			expected:  []string{userA, userB, userC},
		},
		{
			name:      "Mention glued to punctuation",
			text:      "thanks " + userA + "!",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Mention glued to sign",
			text:      userA + "++",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Duplicate receiver only once",
			text:      userA + " thank you! " + userA + " +++",
			mentioned: []string{userA},
			expected:  []string{userA},
		},
		{
			name:      "Author cannot thank themselves",
			text:      author + " ++",
			mentioned: []string{author},
			excluded:  []string{author},
			expected:  nil,
		},
		{
			name:      "Unconfirmed mention is ignored",
			text:      "<@444> ++",
			mentioned: []string{userA},
			expected:  nil,
		},
		{
			name:      "Each line is scanned",
			text:      userA + " ++\nsomething else\n:coin: " + userB,
			mentioned: []string{userA, userB},
			expected:  []string{userA, userB},
		},
		{
			name:      "Sign on another line does not count",
			text:      userA + "\n++",
			mentioned: []string{userA},
			expected:  nil,
		},
		{
			name:     "Reply with thanks",
			text:     "thanks!",
			replied:  userA,
			expected: []string{userA},
		},
		{
			name:     "Reply to self",
			text:     "thanks!",
			replied:  author,
			excluded: []string{author},
			expected: nil,
		},
		{
			name:     "Reply with trailing sign on last line",
			text:     "that fixed it\nthank you",
			replied:  userA,
			expected: []string{userA},
		},
		{
			name:     "Reply with sign in the middle",
			text:     "that fixed it\nthanks\nbye",
			replied:  userA,
			expected: nil,
		},
		{
			name:      "Mentions win over the reply",
			text:      userB + " 👍",
			replied:   userA,
			mentioned: []string{userB},
			expected:  []string{userB},
		},
		{
			name:     "Reply without sign",
			text:     "okay",
			replied:  userA,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := Finder{
				Text:           tt.text,
				RepliedUser:    tt.replied,
				MentionedUsers: tt.mentioned,
				ExcludedUsers:  tt.excluded,
			}
			assert.Equal(t, tt.expected, finder.FindUsers())
		})
	}
}

func TestFinder_CapsAtMaxUsers(t *testing.T) {
	var mentions []string
	for i := 0; i < 55; i++ {
		mentions = append(mentions, fmt.Sprintf("<@%d>", 1000+i))
	}

	finder := Finder{
		Text:           strings.Join(mentions, " ") + " thanks!",
		MentionedUsers: mentions,
	}

	users := finder.FindUsers()
	assert.Len(t, users, DefaultMaxUsers)
	assert.Equal(t, mentions[:DefaultMaxUsers], users)
}

func TestFinder_CapAcrossLines(t *testing.T) {
	finder := Finder{
		Text:           userA + " ++\n" + userB + " " + userC + " ++",
		MentionedUsers: []string{userA, userB, userC},
		MaxUsers:       2,
	}

	assert.Equal(t, []string{userA, userB}, finder.FindUsers())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "++", normalize("++++"))
	assert.Equal(t, "+", normalize("+"))
	assert.Equal(t, "thanks!", normalize("THANKS!"))
}
