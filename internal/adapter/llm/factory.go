package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvUATMode is the environment variable name for mode selection.
	EnvUATMode = "UAT_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates an LLM client based on the UAT_MODE environment variable.
// If UAT_MODE=MOCK, returns a MockClient. Without a base URL no client is
// configured and nil is returned, which disables summaries.
func NewLLMClient(baseURL, apiKey string, timeout time.Duration) LLMClient {
	if os.Getenv(EnvUATMode) == ModeMock {
		log.Println("UAT_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	if baseURL == "" {
		return nil
	}
	return NewClient(baseURL, apiKey, timeout)
}
