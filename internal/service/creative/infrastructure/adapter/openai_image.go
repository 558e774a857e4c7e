// internal/service/creative/infrastructure/adapter/openai_image.go
package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	openai "github.com/openai/openai-go"
	"github.com/pkg/errors"

	"adforge/internal/pkg/aiclient"
)

// OpenAIImageGenerator implements port.ImageGenerator. With reference images
// it uses the edit endpoint so the model can see the product and the target
// style; without any it falls back to plain generation.
type OpenAIImageGenerator struct {
	api    openai.Client
	runner *aiclient.Client
	model  string
}

func NewOpenAIImageGenerator(api openai.Client, runner *aiclient.Client, model string) *OpenAIImageGenerator {
	return &OpenAIImageGenerator{api: api, runner: runner, model: model}
}

func (g *OpenAIImageGenerator) Generate(ctx context.Context, prompt string, referenceImages [][]byte) ([]byte, error) {
	var imageBytes []byte
	err := g.runner.Do(ctx, "image.generate", func(ctx context.Context) error {
		b64, err := g.request(ctx, prompt, referenceImages)
		if err != nil {
			return err
		}
		imageBytes, err = base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return errors.Wrap(err, "decode image payload")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imageBytes, nil
}

func (g *OpenAIImageGenerator) request(ctx context.Context, prompt string, referenceImages [][]byte) (string, error) {
	if len(referenceImages) == 0 {
		resp, err := g.api.Images.Generate(ctx, openai.ImageGenerateParams{
			Model:  openai.ImageModel(g.model),
			Prompt: prompt,
		})
		if err != nil {
			return "", err
		}
		return firstImage(resp)
	}

	files := make([]io.Reader, 0, len(referenceImages))
	for i, img := range referenceImages {
		files = append(files, openai.File(bytes.NewReader(img), fmt.Sprintf("reference-%d.png", i), "image/png"))
	}
	resp, err := g.api.Images.Edit(ctx, openai.ImageEditParams{
		Model:  openai.ImageModel(g.model),
		Prompt: prompt,
		Image:  openai.ImageEditParamsImageUnion{OfFileArray: files},
	})
	if err != nil {
		return "", err
	}
	return firstImage(resp)
}

func firstImage(resp *openai.ImagesResponse) (string, error) {
	if resp == nil || len(resp.Data) == 0 {
		return "", errors.New("openai: empty image response")
	}
	if resp.Data[0].B64JSON == "" {
		return "", errors.New("openai: image response without b64 payload")
	}
	return resp.Data[0].B64JSON, nil
}
