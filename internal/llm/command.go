package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultCommandBaseURL = "https://api.cohere.ai/compatibility/v1/"
	defaultCommandModel   = "command-r"
	commandMaxTokens      = 4096
)

// CommandProvider talks to an OpenAI-compatible chat-completions endpoint
// over plain HTTP, without an SDK. It is the fallback backend when no OpenAI
// key is configured.
type CommandProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewCommandProvider builds the raw HTTP backend. Empty baseURL and model
// fall back to the Cohere compatibility endpoint and the command-r model.
func NewCommandProvider(apiKey, baseURL, model string) *CommandProvider {
	if baseURL == "" {
		baseURL = defaultCommandBaseURL
	}
	if baseURL[len(baseURL)-1] != '/' {
		baseURL = baseURL + "/"
	}
	if model == "" {
		model = defaultCommandModel
	}

	return &CommandProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type commandMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type commandRequest struct {
	Model       string           `json:"model"`
	Messages    []commandMessage `json:"messages"`
	Stream      bool             `json:"stream"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
}

type commandResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *CommandProvider) Invoke(ctx context.Context, system, prompt string) (string, error) {
	request := commandRequest{
		Model: p.model,
		Messages: []commandMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream:      false,
		Temperature: 0.7,
		MaxTokens:   commandMaxTokens,
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	// Bounded retry for transient transport failures.
	const maxRetries = 2
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}

		url := p.baseURL + "chat/completions"
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			lastErr = fmt.Errorf("create http request: %w", err)
			continue
		}
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("execute completion request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
			// Client errors will not succeed on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return "", lastErr
			}
			continue
		}

		var parsed commandResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("decode completion response: %w", err)
			continue
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", ErrNoChoices
		}
		return parsed.Choices[0].Message.Content, nil
	}

	return "", lastErr
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
