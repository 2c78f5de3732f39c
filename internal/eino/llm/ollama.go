package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// OllamaProvider calls a locally served model through Ollama's /api/generate
// endpoint, flattening the conversation into a single prompt.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama2"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

func (p *OllamaProvider) Kind() ProviderKind { return ProviderOllama }

func (p *OllamaProvider) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:   p.model,
		Prompt:  FlattenMessages(messages),
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GenerationError{Provider: ProviderOllama, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", &GenerationError{Provider: ProviderOllama, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &GenerationError{Provider: ProviderOllama, Timeout: isTimeout(err), Err: fmt.Errorf("calling Ollama: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &GenerationError{
			Provider:   ProviderOllama,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &GenerationError{Provider: ProviderOllama, Timeout: isTimeout(err), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if genResp.Response == nil {
		return "", &GenerationError{Provider: ProviderOllama, Err: fmt.Errorf("response field missing")}
	}

	return *genResp.Response, nil
}

// FlattenMessages renders a conversation in the "Role: content" prompt format
// and ends with an open assistant turn.
func FlattenMessages(messages []*schema.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			parts = append(parts, "System: "+msg.Content)
		case schema.Assistant:
			parts = append(parts, "Assistant: "+msg.Content)
		default:
			parts = append(parts, "User: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n\n") + "\n\nAssistant:"
}
