package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/vapor/penny-bot/internal/coins"
	"github.com/vapor/penny-bot/internal/discord"
	"github.com/vapor/penny-bot/internal/expressions"
	"github.com/vapor/penny-bot/internal/storage"
)

type sample struct {
	text      string
	mentioned []string
	replied   string
}

func main() {
	fmt.Println("🔍 Penny - Coin Scanner Test")
	fmt.Println("============================")

	const author = "<@100>"
	samples := []sample{
		{text: "<@200> ++", mentioned: []string{"<@200>"}},
		{text: "<@200> xxxx ++", mentioned: []string{"<@200>"}},
		{text: "<@200> +", mentioned: []string{"<@200>"}},
		{text: "<@200> <@300> thanks!", mentioned: []string{"<@200>", "<@300>"}},
		{text: "<@200> thank you! <@200> +++", mentioned: []string{"<@200>"}},
		{text: "thanks!", replied: "<@400>"},
		{text: "<@100> ++", mentioned: []string{"<@100>"}},
		{text: "thanks <@!500> and <@600>", mentioned: []string{"<@500>", "<@600>"}},
	}

	// Extra samples can be passed as arguments
	for _, arg := range os.Args[1:] {
		samples = append(samples, sample{text: arg, mentioned: mentionsIn(arg)})
	}

	fmt.Println("\n🪙 Coin receivers")
	fmt.Println(strings.Repeat("-", 40))
	for _, s := range samples {
		finder := coins.Finder{
			Text:           discord.NormalizeMentions(s.text),
			RepliedUser:    s.replied,
			MentionedUsers: s.mentioned,
			ExcludedUsers:  []string{author},
		}
		receivers := finder.FindUsers()
		if len(receivers) == 0 {
			fmt.Printf("🔸 %-40q → nobody\n", s.text)
			continue
		}
		fmt.Printf("🔸 %-40q → %s\n", s.text, strings.Join(receivers, ", "))
	}

	ctx := context.Background()
	repository := expressions.NewBlobRepository(storage.NewMemoryStorage())
	watches := []struct {
		kind, text, userID string
	}{
		{"matches", "vapor", "200"},
		{"contains", "leaf", "300"},
		{"matches", "fluent kit", "400"},
	}
	for _, w := range watches {
		expression, err := expressions.New(w.kind, w.text)
		if err != nil {
			log.Fatalf("Invalid expression %q: %v", w.text, err)
		}
		if err := repository.Insert(ctx, expression, w.userID); err != nil {
			log.Fatalf("Failed to add expression: %v", err)
		}
	}

	matcher := expressions.NewMatcher(repository)
	messages := []string{
		"Is Vápor 4 out yet?",
		"vaporware is not vapor-ish",
		"Leaf-kit templates",
		"fluent-kit migrations",
		"fluent migrations",
	}
	messages = append(messages, os.Args[1:]...)

	fmt.Println("\n🔔 Expression pings")
	fmt.Println(strings.Repeat("-", 40))
	for _, message := range messages {
		pings, err := matcher.UsersToPing(ctx, message)
		if err != nil {
			fmt.Printf("❌ ERROR: %v\n", err)
			continue
		}
		var matched []string
		for _, ping := range pings {
			for _, expression := range ping.Expressions {
				matched = append(matched, fmt.Sprintf("%s (%s %q)", ping.UserID, expression.Kind(), expression.Value()))
			}
		}
		if len(matched) == 0 {
			fmt.Printf("🔸 %-32q → no pings\n", message)
			continue
		}
		fmt.Printf("🔸 %-32q → %s\n", message, strings.Join(matched, ", "))
	}

	fmt.Println("\n✅ Scanner test completed!")
}

// mentionsIn treats every mention token in text as confirmed
func mentionsIn(text string) []string {
	var mentions []string
	for _, field := range strings.Fields(discord.NormalizeMentions(text)) {
		field = strings.Trim(field, ",.!?")
		if _, ok := discord.UserIDFromMention(field); ok {
			mentions = append(mentions, field)
		}
	}
	return mentions
}
