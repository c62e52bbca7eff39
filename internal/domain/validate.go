package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxTextLen is the server-side bound on text message length in runes.
const MaxTextLen = 500

// QuickReactions is the recognized emoji token set for reaction messages.
var QuickReactions = []string{
	"🔥", "🚀", "💎", "🙌", "💰", "📈", "📉", "🐻", "🐂", "😂",
}

// TipCurrencies is the recognized currency code set for tip messages.
var TipCurrencies = []string{"USDC", "ETH", "SOL", "BTC"}

// ValidatePayload checks composition input before any side effect.
// It returns a *ValidationError describing the first violation found.
func ValidatePayload(p Payload) error {
	switch v := p.(type) {
	case TextPayload:
		body := strings.TrimSpace(v.Body)
		if body == "" {
			return &ValidationError{Field: "content", Reason: "message content is required"}
		}
		if utf8.RuneCountInString(body) > MaxTextLen {
			return &ValidationError{Field: "content", Reason: "message exceeds maximum length"}
		}
	case ReactionPayload:
		if !isQuickReaction(v.Emoji) {
			return &ValidationError{Field: "emoji", Reason: "unrecognized reaction emoji"}
		}
	case TipPayload:
		amount, err := strconv.ParseFloat(v.Amount, 64)
		if err != nil || amount <= 0 {
			return &ValidationError{Field: "tipAmount", Reason: "tip amount must be a positive number"}
		}
		if !isTipCurrency(v.Currency) {
			return &ValidationError{Field: "tipCurrency", Reason: "unrecognized tip currency"}
		}
	default:
		return &ValidationError{Field: "kind", Reason: "unknown message kind"}
	}
	return nil
}

func isQuickReaction(emoji string) bool {
	for _, r := range QuickReactions {
		if r == emoji {
			return true
		}
	}
	return false
}

func isTipCurrency(code string) bool {
	for _, c := range TipCurrencies {
		if c == code {
			return true
		}
	}
	return false
}
