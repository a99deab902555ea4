// Package provider adapts LLM completion services to the domain Completer
// contract.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"profile-assistant/internal/domain"
)

// AnthropicCompleter produces replies using the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

func NewAnthropicCompleter(cfg AnthropicConfig) *AnthropicCompleter {
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(anthropicoption.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Complete sends the system prompt and conversation history and returns the
// concatenated text of the reply. The call is bounded by the configured
// timeout on top of whatever deadline ctx already carries.
func (p *AnthropicCompleter) Complete(ctx context.Context, system string, history []domain.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  buildMessages(history),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := p.client.Messages.New(callCtx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}
	return sb.String(), nil
}

// buildMessages converts domain history to Anthropic message params. The
// Messages API only accepts user and assistant roles, so system-role history
// entries (compaction summaries, already carrying their banner text) are
// sent as user messages.
func buildMessages(history []domain.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range msg.Content {
			if b.Kind == domain.BlockText {
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch msg.Role {
		case domain.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		default:
			params = append(params, anthropic.NewUserMessage(blocks...))
		}
	}
	return params
}
