package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lym-insights/pkg/config"
)

// Message is one chat message sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single inference request. Fingerprint, when set, keys the
// executor's response cache.
type Options struct {
	Temperature    float64
	ResponseFormat string
	Fingerprint    string
}

// Completion is the provider response surfaced to the pipeline.
type Completion struct {
	Content   string `json:"content"`
	Model     string `json:"model"`
	FromCache bool   `json:"-"`
}

// Client talks to the remote inference provider over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second // bound every remote lookup
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type completeRequest struct {
	RequestType    string    `json:"request_type"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	ResponseFormat string    `json:"response_format,omitempty"`
}

// Complete performs one inference call and maps HTTP failures onto the
// provider error taxonomy.
func (c *Client) Complete(ctx context.Context, requestType string, msgs []Message, opts Options) (*Completion, error) {
	body, err := json.Marshal(completeRequest{
		RequestType:    requestType,
		Messages:       msgs,
		Temperature:    opts.Temperature,
		ResponseFormat: opts.ResponseFormat,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &ProviderError{Class: ClassQuotaExceeded, Status: resp.StatusCode, Msg: "provider quota exceeded"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &ProviderError{Class: ClassInvalidKey, Status: resp.StatusCode, Msg: "invalid credentials"}
	case resp.StatusCode >= 500:
		return nil, &ProviderError{Class: ClassTransient, Status: resp.StatusCode, Msg: fmt.Sprintf("provider 5xx: %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &ProviderError{Class: ClassUnknown, Status: resp.StatusCode, Msg: fmt.Sprintf("unexpected status: %d", resp.StatusCode)}
	}

	var completion Completion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, err
	}
	return &completion, nil
}
