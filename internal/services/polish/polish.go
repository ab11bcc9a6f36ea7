// Package polish rewrites machine translations into natural conversational
// language using an LLM, with a second provider as fallback.
package polish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
)

const stage = "translate"

const systemPrompt = `You are an expert podcast translator. You receive original transcript segments
and their machine translations. Your job is to polish the translations to sound natural and conversational.

Rules:
- Preserve the speaker's personality and tone
- Adapt idioms and cultural references appropriately
- Maintain a conversational, podcast-friendly tone
- Keep the meaning accurate while making it sound natural
- Preserve any emotion markers like [Laughing], [Thoughtful], etc.
- Return ONLY the polished translation text, nothing else`

// Chain tries the primary model first and falls back to the secondary
// provider when the primary fails.
type Chain struct {
	primary  *openaiPolisher
	fallback *fallbackClient
	logger   *slog.Logger
}

// New builds the polish chain from configuration. Either provider may be
// unconfigured; an empty chain returns ErrUnavailable from Polish.
func New(cfg *config.Config, logger *slog.Logger) *Chain {
	chain := &Chain{logger: logging.NewComponentLogger(logger, "polish")}
	if cfg.Polish.OpenAIAPIKey != "" {
		chain.primary = &openaiPolisher{
			client: openai.NewClient(option.WithAPIKey(cfg.Polish.OpenAIAPIKey)),
			model:  cfg.Polish.OpenAIModel,
		}
	}
	if cfg.Polish.FallbackAPIKey != "" {
		chain.fallback = newFallbackClient(cfg)
	}
	return chain
}

// Polish rewrites machineTranslation in the target language. Callers degrade
// to the raw machine translation when this fails; the error is informational,
// not fatal to the stage.
func (c *Chain) Polish(ctx context.Context, original, machineTranslation, sourceLangName, targetLangName string) (string, error) {
	if strings.TrimSpace(machineTranslation) == "" {
		return machineTranslation, nil
	}

	userMessage := fmt.Sprintf(
		"Original (%s):\n%s\n\nMachine Translation (%s):\n%s\n\nPlease provide a polished, natural-sounding %s translation:",
		sourceLangName, original, targetLangName, machineTranslation, targetLangName,
	)

	var primaryErr error
	if c.primary != nil {
		polished, err := c.primary.complete(ctx, userMessage)
		if err == nil {
			return polished, nil
		}
		primaryErr = err
		c.logger.WarnContext(ctx, "primary polish model failed, trying fallback", logging.Error(err))
	}

	if c.fallback != nil {
		polished, err := c.fallback.complete(ctx, userMessage)
		if err == nil {
			return polished, nil
		}
		if primaryErr != nil {
			return "", services.Wrap(services.ErrExternalTool, stage, "polish",
				fmt.Sprintf("both providers failed (primary: %v)", primaryErr), err)
		}
		return "", services.Wrap(services.ErrExternalTool, stage, "polish", "", err)
	}

	if primaryErr != nil {
		return "", services.Wrap(services.ErrExternalTool, stage, "polish", "", primaryErr)
	}
	return "", services.Wrap(services.ErrUnavailable, stage, "polish", "no polish provider configured", nil)
}

type openaiPolisher struct {
	client openai.Client
	model  string
}

func (p *openaiPolisher) complete(ctx context.Context, userMessage string) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty choices in completion")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty content in completion")
	}
	return content, nil
}
