// Package ocr turns raster images into recognized text. The production
// engine talks to an OpenAI-compatible vision model; callers only see
// the Engine contract.
package ocr

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/pkg/env"
)

var xlog = logrus.WithField("module", "ocr")

type Engine interface {
	// ExtractText recognizes the text lines in an encoded raster image.
	// Fails on undecodable input.
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// OpenAI implements Engine over a vision-capable chat model.
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ Engine = (*OpenAI)(nil)

func NewOpenAI() *OpenAI {
	baseURL := env.MustString("OPENAI_API_BASE")
	apiKey := env.MustString("OPENAI_API_KEY")
	model := env.MustString("OPENAI_MODEL")

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	xlog.WithField("model", model).Info("created OCR engine")
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const systemPrompt = "You are an OCR tool. Read the image and return every line of " +
	"text you can recognize, one line per row, top to bottom. " +
	"Output the recognized text and nothing else. If there is no text, output nothing."

func (o *OpenAI) ExtractText(ctx context.Context, image []byte) (string, error) {
	dataURL, err := encodeDataURL(image)
	if err != nil {
		return "", errors.Wrap(err, "prepare image")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: dataURL,
					},
				}},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ocr: empty completion")
	}

	xlog.Debugf("OCR tokens: prompt=%d completion=%d",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
