package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/config"
)

func TestFlattenMessages(t *testing.T) {
	prompt := FlattenMessages([]*schema.Message{
		schema.SystemMessage("Be brief."),
		schema.UserMessage("What is Go?"),
		schema.AssistantMessage("A language.", nil),
		schema.UserMessage("Who made it?"),
	})

	assert.Equal(t, "System: Be brief.\n\nUser: What is Go?\n\nAssistant: A language.\n\nUser: Who made it?\n\nAssistant:", prompt)
}

func TestOllamaProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "System: rules\n\nUser: hi\n\nAssistant:", req.Prompt)
		assert.EqualValues(t, 0, req.Options["temperature"])

		json.NewEncoder(w).Encode(map[string]interface{}{"response": "Hello there!", "done": true})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "test-model", time.Second)
	out, err := p.Generate(context.Background(), []*schema.Message{schema.SystemMessage("rules"), schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", out)
	assert.Equal(t, ProviderOllama, p.Kind())
}

func TestOllamaProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "test", time.Second).Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, http.StatusNotFound, genErr.StatusCode)
	assert.Equal(t, ProviderOllama, genErr.Provider)
}

func TestOllamaProvider_MissingResponseField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done":true}`))
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "test", time.Second).Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Zero(t, genErr.StatusCode)
}

func TestOllamaProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "test", 20*time.Millisecond).Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.True(t, genErr.Timeout)
}

func TestOllamaProvider_Defaults(t *testing.T) {
	p := NewOllamaProvider("", "", 0)
	assert.Equal(t, "http://localhost:11434", p.baseURL)
	assert.Equal(t, "llama2", p.model)
	assert.Equal(t, defaultTimeout, p.client.Timeout)
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		name  string
		kind  ProviderKind
		known bool
	}{
		{"openai", ProviderOpenAI, true},
		{"ark", ProviderArk, true},
		{"ollama", ProviderOllama, true},
		{"mystery", ProviderOpenAI, false},
		{"", ProviderOpenAI, false},
	}
	for _, tt := range tests {
		kind, known := ResolveKind(tt.name)
		assert.Equal(t, tt.kind, kind, tt.name)
		assert.Equal(t, tt.known, known, tt.name)
	}
}

func TestNewProvider_UnknownFallsBackToOpenAI(t *testing.T) {
	cfg := &config.Config{LLMProvider: "mystery", LLMModel: "gpt-3.5-turbo", OpenAIAPIKey: "sk-test", LLMTimeout: time.Second}

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Kind())
}

func TestNewProvider_Ollama(t *testing.T) {
	cfg := &config.Config{LLMProvider: "ollama", OllamaURL: "http://ollama:11434", OllamaModel: "mistral", LLMTimeout: time.Second}

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, ProviderOllama, p.Kind())
	assert.Equal(t, "mistral", p.(*OllamaProvider).model)
}

type stubChatModel struct {
	reply *schema.Message
	err   error
	delay time.Duration
}

func (s *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatModelProvider(t *testing.T) {
	p := NewChatModelProvider(ProviderArk, &stubChatModel{reply: schema.AssistantMessage("answer", nil)}, time.Second)
	out, err := p.Generate(context.Background(), []*schema.Message{schema.UserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, ProviderArk, p.Kind())
}

func TestChatModelProvider_WrapsErrors(t *testing.T) {
	p := NewChatModelProvider(ProviderOpenAI, &stubChatModel{err: errors.New("rate limited")}, time.Second)
	_, err := p.Generate(context.Background(), nil)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, ProviderOpenAI, genErr.Provider)
	assert.False(t, genErr.Timeout)
}

func TestChatModelProvider_Timeout(t *testing.T) {
	p := NewChatModelProvider(ProviderOpenAI, &stubChatModel{delay: time.Second}, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), nil)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.True(t, genErr.Timeout)
}
