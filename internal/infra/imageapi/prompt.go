package imageapi

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const optimizeInstruction = "You rewrite prompts for text-to-image models. " +
	"Keep the subject and intent, add concrete detail about composition, lighting and style. " +
	"Reply with the rewritten prompt only."

const describeInstruction = "Describe this image as a single prompt for a text-to-image model. " +
	"Reply with the prompt only."

// Optimize asks the chat model to rewrite prompt for image generation.
func (c *Client) Optimize(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("validation error: prompt is empty")
	}

	return c.chat(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: optimizeInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
}

// Describe turns the image at imageURL into a generation prompt. imageURL
// may be an http(s) URL or a data URL.
func (c *Client) Describe(ctx context.Context, imageURL string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", errors.New("validation error: image url is empty")
	}

	return c.chat(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: describeInstruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
}

func (c *Client) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.recordFailure()
		return "", normalizeError(err)
	}
	if len(resp.Choices) == 0 {
		c.recordFailure()
		return "", errors.New("unexpected provider error: no choices returned")
	}
	c.recordSuccess(time.Since(start))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
