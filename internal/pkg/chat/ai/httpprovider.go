package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = `You are Loopin's habit coach inside a chat room. ` +
	`Answer the latest user message. Respond with a JSON object: ` +
	`{"reply": string, "suggestions": [string]}. Keep the reply short and concrete.`

// HTTPProviderConfig configures one chat-completions backend.
type HTTPProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// HTTPProvider calls an OpenAI-compatible chat-completions endpoint.
type HTTPProvider struct {
	cfg HTTPProviderConfig
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider constructs a provider, filling config defaults.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPProvider{cfg: cfg}
}

func (p *HTTPProvider) Name() string { return p.cfg.Name }

type chatCompletionRequest struct {
	Model    string               `json:"model"`
	Messages []chatCompletionTurn `json:"messages"`
}

type chatCompletionTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *HTTPProvider) Complete(ctx context.Context, req Request) (Recommendation, error) {
	turns := make([]chatCompletionTurn, 0, len(req.Messages)+1)
	turns = append(turns, chatCompletionTurn{Role: "system", Content: systemPrompt})
	for _, m := range req.Messages {
		content := m.Content
		if m.Author != "" {
			content = m.Author + ": " + content
		}
		turns = append(turns, chatCompletionTurn{Role: m.Role, Content: content})
	}

	body, err := json.Marshal(chatCompletionRequest{Model: p.cfg.Model, Messages: turns})
	if err != nil {
		return Recommendation{}, fmt.Errorf("%s: encode request: %w", p.cfg.Name, err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Recommendation{}, fmt.Errorf("%s: build request: %w", p.cfg.Name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return Recommendation{}, fmt.Errorf("%s: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Recommendation{}, fmt.Errorf("%s: read response: %w", p.cfg.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Recommendation{}, fmt.Errorf("%s: status %d: %s", p.cfg.Name, resp.StatusCode, truncate(payload, 256))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(payload, &completion); err != nil {
		return Recommendation{}, fmt.Errorf("%s: decode response: %w", p.cfg.Name, err)
	}
	if len(completion.Choices) == 0 {
		return Recommendation{}, fmt.Errorf("%s: empty completion", p.cfg.Name)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	var rec Recommendation
	if err := json.Unmarshal([]byte(content), &rec); err == nil && rec.Reply != "" {
		return rec, nil
	}
	// Models occasionally answer in plain text despite the prompt.
	return Recommendation{Reply: content}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
