package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultTimeout = 120 * time.Second

type ProviderConfig struct {
	Kind    ProviderKind
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the provider for cfg.Kind. Hosted providers are pinned to
// temperature 0.
func (f *Factory) Create(ctx context.Context, cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config is nil")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch cfg.Kind {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, timeout), nil
	case ProviderOpenAI, ProviderArk:
		cm, err := f.CreateChatModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewChatModelProvider(cfg.Kind, cm, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Kind)
	}
}

// CreateChatModel returns the eino chat model behind a hosted provider.
func (f *Factory) CreateChatModel(ctx context.Context, cfg *ProviderConfig) (model.BaseChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config is nil")
	}
	temperature := float32(0)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch cfg.Kind {
	case ProviderOpenAI:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: &temperature,
			Timeout:     timeout,
		})
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: &temperature,
			Timeout:     &timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Kind)
	}
}

// chatModelProvider adapts an eino chat model to Provider.
type chatModelProvider struct {
	kind    ProviderKind
	model   model.BaseChatModel
	timeout time.Duration
}

func NewChatModelProvider(kind ProviderKind, cm model.BaseChatModel, timeout time.Duration) Provider {
	return &chatModelProvider{kind: kind, model: cm, timeout: timeout}
}

func (p *chatModelProvider) Kind() ProviderKind { return p.kind }

func (p *chatModelProvider) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	msg, err := p.model.Generate(ctx, messages, model.WithTemperature(0))
	if err != nil {
		return "", &GenerationError{Provider: p.kind, Timeout: isTimeout(err) || ctx.Err() == context.DeadlineExceeded, Err: err}
	}
	if msg == nil {
		return "", &GenerationError{Provider: p.kind, Err: fmt.Errorf("empty response")}
	}
	return msg.Content, nil
}
