// internal/service/creative/infrastructure/adapter/openai_reviewer.go
package adapter

import (
	"context"
	"encoding/json"

	openai "github.com/openai/openai-go"
	"github.com/pkg/errors"

	"adforge/internal/pkg/aiclient"
	"adforge/internal/service/creative/domain"
)

const reviewerSystemPrompt = `You are a strict advertising QA reviewer. ` +
	`Score the supplied generated ad against the rubric. ` +
	`Reply with a single JSON object: product_accuracy, text_accuracy, layout_accuracy, overall_quality (floats 0..1), ` +
	`issues[] (strings), status (approved|needs_revision|rejected), notes. No markdown.`

// OpenAIReviewer is one of the two independent port.Reviewer implementations.
// The two production instances share a backend but run under distinct ids
// and, optionally, distinct models.
type OpenAIReviewer struct {
	id     string
	api    openai.Client
	runner *aiclient.Client
	model  string
}

func NewOpenAIReviewer(id string, api openai.Client, runner *aiclient.Client, model string) *OpenAIReviewer {
	return &OpenAIReviewer{id: id, api: api, runner: runner, model: model}
}

func (r *OpenAIReviewer) ID() string { return r.id }

func (r *OpenAIReviewer) Review(ctx context.Context, imageBytes []byte, rubric string) (*domain.ReviewResult, error) {
	var review domain.ReviewResult
	err := r.runner.Do(ctx, "review."+r.id, func(ctx context.Context) error {
		resp, err := r.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(r.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(reviewerSystemPrompt),
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(rubric),
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
		if err := json.Unmarshal([]byte(stripJSONFences(content)), &review); err != nil {
			return errors.Wrap(err, "parse review reply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	review.ReviewerID = r.id
	return &review, nil
}
