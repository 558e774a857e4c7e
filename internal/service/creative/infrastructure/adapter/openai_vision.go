// internal/service/creative/infrastructure/adapter/openai_vision.go
package adapter

import (
	"context"
	"encoding/json"

	openai "github.com/openai/openai-go"
	"github.com/pkg/errors"

	"adforge/internal/pkg/aiclient"
	"adforge/internal/service/creative/domain"
)

const visionSystemPrompt = `You are an advertising creative analyst. ` +
	`Given one reference ad image, describe its construction so a generator can reproduce the style with different copy. ` +
	`Reply with a single JSON object: format_type, layout_structure, fixed_elements[], variable_elements[], ` +
	`text_placement, color_palette[], authenticity_markers[], canvas_size, detailed_description. No markdown.`

// OpenAIVisionAnalyzer implements port.VisionAnalyzer over the chat
// completions API with an image part.
type OpenAIVisionAnalyzer struct {
	api    openai.Client
	runner *aiclient.Client
	model  string
}

func NewOpenAIVisionAnalyzer(api openai.Client, runner *aiclient.Client, model string) *OpenAIVisionAnalyzer {
	return &OpenAIVisionAnalyzer{api: api, runner: runner, model: model}
}

func (a *OpenAIVisionAnalyzer) Analyze(ctx context.Context, imageBytes []byte) (*domain.AdAnalysis, error) {
	var analysis domain.AdAnalysis
	err := a.runner.Do(ctx, "vision.analyze", func(ctx context.Context) error {
		resp, err := a.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(a.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(visionSystemPrompt),
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart("Analyze this reference ad."),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: pngDataURL(imageBytes),
					}),
				}),
			},
		})
		if err != nil {
			return err
		}
		content, err := firstChoice(resp)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(stripJSONFences(content)), &analysis); err != nil {
			return errors.Wrap(err, "parse analysis reply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
