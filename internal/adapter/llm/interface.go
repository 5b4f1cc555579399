// Package llm talks to an OpenAI-compatible chat completion API. It only
// writes the optional summary paragraph of session update emails.
package llm

import "context"

// LLMClient is the subset of the chat completion API the notifier uses.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
