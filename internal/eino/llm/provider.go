package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/config"
)

type ProviderKind string

const (
	ProviderOpenAI ProviderKind = "openai"
	ProviderArk    ProviderKind = "ark"
	ProviderOllama ProviderKind = "ollama"
)

// Provider generates text from a conversation. Implementations are chosen
// once at startup by NewProvider.
type Provider interface {
	Kind() ProviderKind
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// GenerationError reports a failed generation call. StatusCode is zero when
// the backend gave no HTTP status.
type GenerationError struct {
	Provider   ProviderKind
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s generation timed out: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s generation failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ResolveKind maps a configured provider name to a known kind, falling back
// to openai for anything unrecognized.
func ResolveKind(name string) (ProviderKind, bool) {
	switch kind := ProviderKind(name); kind {
	case ProviderOpenAI, ProviderArk, ProviderOllama:
		return kind, true
	default:
		return ProviderOpenAI, false
	}
}

// NewProvider builds the provider selected by LLM_PROVIDER.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	kind, known := ResolveKind(cfg.LLMProvider)
	if !known {
		log.Printf("[LLM] Warning: unknown LLM_PROVIDER %q, falling back to %s", cfg.LLMProvider, kind)
	}

	pc := &ProviderConfig{Kind: kind, Timeout: cfg.LLMTimeout}
	switch kind {
	case ProviderArk:
		pc.APIKey = cfg.ArkAPIKey
		pc.Model = cfg.ArkModel
		pc.BaseURL = cfg.ArkBaseURL
		if pc.Model == "" {
			pc.Model = cfg.LLMModel
		}
	case ProviderOllama:
		pc.Model = cfg.OllamaModel
		pc.BaseURL = cfg.OllamaURL
	default:
		pc.APIKey = cfg.OpenAIAPIKey
		pc.Model = cfg.LLMModel
		pc.BaseURL = cfg.OpenAIBaseURL
	}

	p, err := NewFactory().Create(ctx, pc)
	if err != nil {
		return nil, err
	}
	log.Printf("[LLM] Using %s provider with model %s", kind, pc.Model)
	return p, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
