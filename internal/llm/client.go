// Package llm wraps the structured-output LLM vendor call used by the
// incremental event analyzer. The vendor is treated as an opaque product of
// (schema, prompt, input): the caller supplies a system message, a user
// message, and a JSON schema, and the vendor guarantees a parsed object
// back. Shares internal/transcribe's vendor-HTTP-client shape (manual JSON
// encode/decode over a plain *http.Client), applied to a gpt-4.1-class
// chat-completions endpoint with JSON-schema response format.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client calls a structured-output chat-completions endpoint.
type Client struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

func New(url, apiKey, model string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "llm").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat *jsonSchemaFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a system + user message pair and decodes the vendor's
// structured response into target, which must match schemaName/schema.
// Per §9 design notes, the vendor's parsed response is treated as opaque:
// callers validate defensively and never assume field completeness.
func (c *Client) Complete(ctx context.Context, system, user string, schemaName string, schema map[string]any, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &jsonSchemaFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaSpec{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm vendor error (status %d): %s", resp.StatusCode, string(body))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(cr.Choices) == 0 {
		return fmt.Errorf("llm vendor returned no choices")
	}

	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), target); err != nil {
		return fmt.Errorf("decode structured content: %w", err)
	}
	return nil
}
