package rag

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/eino/llm"
)

// GroundedChain renders the grounded prompt and runs it through a provider:
// ChatTemplate -> Generate.
type GroundedChain struct {
	provider llm.Provider
	runnable compose.Runnable[map[string]any, string]
}

func newTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(groundedSystemPrompt),
		schema.UserMessage(groundedUserPrompt),
	)
}

func NewGroundedChain(ctx context.Context, provider llm.Provider) (*GroundedChain, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}

	generate := func(ctx context.Context, messages []*schema.Message) (string, error) {
		return provider.Generate(ctx, messages)
	}

	runnable, err := compose.NewChain[map[string]any, string]().
		AppendChatTemplate(newTemplate(), compose.WithNodeName("GroundedPrompt")).
		AppendLambda(compose.InvokableLambda(generate), compose.WithNodeName("Generate")).
		Compile(ctx, compose.WithGraphName("GroundedAnswer"))
	if err != nil {
		return nil, fmt.Errorf("compile grounded chain: %w", err)
	}

	log.Printf("[GroundedChain] Built with %s provider", provider.Kind())
	return &GroundedChain{provider: provider, runnable: runnable}, nil
}

// Answer asks the provider to answer question using only contextText.
func (c *GroundedChain) Answer(ctx context.Context, contextText, question string) (string, error) {
	return c.runnable.Invoke(ctx, variables(contextText, question))
}

// Messages renders the prompt the provider would receive.
func Messages(ctx context.Context, contextText, question string) ([]*schema.Message, error) {
	return newTemplate().Format(ctx, variables(contextText, question))
}

func variables(contextText, question string) map[string]any {
	return map[string]any{
		"context":  contextText,
		"question": question,
	}
}
