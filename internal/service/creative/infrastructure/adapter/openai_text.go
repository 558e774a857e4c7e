// internal/service/creative/infrastructure/adapter/openai_text.go
package adapter

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"

	"adforge/internal/pkg/aiclient"
)

const adapterSystemPrompt = `You rewrite advertising hooks to match a target ad's voice. ` +
	`Preserve the persuasive claim exactly; change only tone, slang and punctuation. ` +
	`Reply with the rewritten hook text alone, no quotes, no commentary.`

// OpenAITextAdapter implements port.TextAdapter over chat completions.
type OpenAITextAdapter struct {
	api    openai.Client
	runner *aiclient.Client
	model  string
}

func NewOpenAITextAdapter(api openai.Client, runner *aiclient.Client, model string) *OpenAITextAdapter {
	return &OpenAITextAdapter{api: api, runner: runner, model: model}
}

func (a *OpenAITextAdapter) Adapt(ctx context.Context, hookText, styleDescription string) (string, error) {
	var adapted string
	err := a.runner.Do(ctx, "text.adapt", func(ctx context.Context) error {
		resp, err := a.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(a.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(adapterSystemPrompt),
				openai.UserMessage(fmt.Sprintf("Target ad style:\n%s\n\nHook to rewrite:\n%s", styleDescription, hookText)),
			},
		})
		if err != nil {
			return err
		}
		content, err := firstChoice(resp)
		if err != nil {
			return err
		}
		adapted = strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
		return nil
	})
	if err != nil {
		return "", err
	}
	if adapted == "" {
		// An empty rewrite is useless; callers fall back to the original.
		return "", fmt.Errorf("text adapter returned empty rewrite")
	}
	return adapted, nil
}
