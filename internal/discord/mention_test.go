package discord

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestMention(t *testing.T) {
	assert.Equal(t, "<@123>", Mention("123"))
}

func TestUserIDFromMention(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "Plain mention", input: "<@123>", expected: "123", ok: true},
		{name: "Nickname mention", input: "<@!123>", expected: "123", ok: true},
		{name: "Empty mention", input: "<@>", ok: false},
		{name: "Not a mention", input: "123", ok: false},
		{name: "Role mention", input: "<#123>", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := UserIDFromMention(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestNormalizeMentions(t *testing.T) {
	assert.Equal(t, "<@1> and <@2> ++", NormalizeMentions("<@!1> and <@2> ++"))
}

func TestMessageLink(t *testing.T) {
	assert.Equal(t, "https://discord.com/channels/g/c/m", MessageLink("g", "c", "m"))
}

func TestIsNotFound(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}

	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", notFound)))
	assert.False(t, isNotFound(forbidden))
	assert.False(t, isNotFound(errors.New("network")))
}
