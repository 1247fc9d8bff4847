package interfaces

import "context"

// AIClient generates assistant replies. The int result is the vendor-reported
// total token usage for metering.
type AIClient interface {
	ChatCompletion(ctx context.Context, systemPrompt, prompt string, temperature float64, maxTokens int) (string, int, error)
}

type Messenger interface {
	SendMessage(to, content string) error
}
