package responder

import (
	"fmt"
	"strings"
)

// FailureText is sent when the users service couldn't give a coin
const FailureText = "Oops. Something went wrong! Please try again later 😔"

const maxListedNames = 10

// Coins formats an amount of coins with the right plural
func Coins(amount int) string {
	if amount == 1 {
		return "1 coin"
	}
	return fmt.Sprintf("%d coins", amount)
}

// JoinNames lists names as "a", "a & b" or "a, b & c", collapsing long lists
func JoinNames(names []string) string {
	if len(names) > maxListedNames {
		shown := names[:maxListedNames-1]
		return strings.Join(shown, ", ") + fmt.Sprintf(" & %d others", len(names)-len(shown))
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " & " + names[len(names)-1]
	}
}

// ReactionThanksText is the thanks response for coins given by reactions.
// link points at the receiver's message when the response was forced
// elsewhere, and is empty otherwise.
func ReactionThanksText(senderNames []string, totalCoins int, receiver string, newCoinCount int, link string) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("%s gave %s to %s", JoinNames(senderNames), Coins(totalCoins), receiver))
	if link != "" {
		text.WriteString(" for " + link)
	}
	text.WriteString("!\n")
	text.WriteString(fmt.Sprintf("%s now has %s 🪙", receiver, Coins(newCoinCount)))
	return text.String()
}

// MessageThanksLine is one line of the thanks response to a message
func MessageThanksLine(receiver string, newCoinCount int) string {
	return fmt.Sprintf("%s now has %s! 🪙", receiver, Coins(newCoinCount))
}

// MessageThanksText joins the per-receiver lines of a message thanks. link
// is set when the response was forced out of the original channel.
func MessageThanksText(lines []string, link string) string {
	text := strings.Join(lines, "\n")
	if link != "" {
		text = "Coins for " + link + ":\n" + text
	}
	return text
}
