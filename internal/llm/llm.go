// Package llm abstracts the external language-model backends behind a single
// invoke capability. Two implementations exist: OpenAIProvider on the
// official-style SDK, and CommandProvider, a raw HTTP client for any
// OpenAI-compatible completion endpoint. The backend is chosen once at
// startup from configuration.
package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when a provider responds without any completion.
var ErrNoChoices = errors.New("provider returned no choices")

// Provider is the minimal capability the generator needs from a backend:
// send a prompt, get the raw response text back. Implementations must return
// an error rather than panic on any transport or provider failure.
type Provider interface {
	Invoke(ctx context.Context, system, prompt string) (string, error)
}
