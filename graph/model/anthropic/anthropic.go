// Package anthropic implements model.ChatModel for Anthropic's Claude
// API using the official anthropic-sdk-go client.
package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/medgraph/prosearch/graph/model"
)

const defaultModel = "claude-sonnet-4-20250514"

// ChatModel calls Claude via the Messages API.
//
// The API key comes from https://console.anthropic.com/. Anthropic takes
// the system prompt as a separate parameter, so system messages are
// extracted from the conversation before the call.
type ChatModel struct {
	client    *anthropic.Client
	modelName string
	maxTokens int64
}

// NewChatModel creates a Claude-backed ChatModel. An empty modelName
// selects a default.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{
		client:    &client,
		modelName: modelName,
		maxTokens: 4096,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if ctx.Err() != nil {
		return model.ChatOut{}, ctx.Err()
	}

	system, conversation := splitSystem(messages)
	if len(conversation) == 0 {
		return model.ChatOut{}, errors.New("anthropic: conversation has no user or assistant messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: m.maxTokens,
		Messages:  conversation,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, err
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return model.ChatOut{
		Text:         text,
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// splitSystem separates system messages (Anthropic's separate system
// parameter) from the user/assistant conversation.
func splitSystem(messages []model.Message) (string, []anthropic.MessageParam) {
	var system string
	conversation := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case model.RoleAssistant:
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return system, conversation
}
