// Package google implements model.ChatModel for Google's Gemini API
// using the official generative-ai-go client.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/medgraph/prosearch/graph/model"
)

const defaultModel = "gemini-1.5-pro"

// ChatModel calls Gemini via GenerateContent.
//
// Gemini has no separate assistant-message parameter in the single-shot
// API, so the conversation is flattened into one prompt with role
// prefixes; the pipeline's prompts are self-contained, which makes this
// a faithful rendering.
type ChatModel struct {
	client    *genai.Client
	modelName string
}

// NewChatModel creates a Gemini-backed ChatModel. An empty modelName
// selects a default.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if modelName == "" {
		modelName = defaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}
	return &ChatModel{client: client, modelName: modelName}, nil
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	gm := m.client.GenerativeModel(m.modelName)

	resp, err := gm.GenerateContent(ctx, genai.Text(flatten(messages)))
	if err != nil {
		return model.ChatOut{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, errors.New("google: empty response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}

	out := model.ChatOut{Text: text}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// Close releases the underlying client.
func (m *ChatModel) Close() error {
	return m.client.Close()
}

func flatten(messages []model.Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var prompt string
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			prompt += msg.Content + "\n\n"
		case model.RoleAssistant:
			prompt += "Assistant: " + msg.Content + "\n"
		default:
			prompt += "User: " + msg.Content + "\n"
		}
	}
	return prompt
}
