// Package model provides the LLM boundary for the research pipeline.
package model

import "context"

// ChatModel is the interface the pipeline uses to talk to an LLM
// provider (Anthropic, OpenAI, Google).
//
// Implementations handle provider-specific authentication, convert the
// common Message format, and respect context cancellation. The pipeline
// requests either free text (summaries, final answer) or JSON matching
// one of its structured schemas; decoding the latter is the caller's
// responsibility via DecodeJSON.
type ChatModel interface {
	// Chat sends the conversation to the model and returns its reply.
	// Provider errors, network errors, and context cancellation are
	// returned as-is; the pipeline treats them as fatal for the step.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is a single message in an LLM conversation.
type Message struct {
	// Role identifies the sender. Use the Role* constants.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Standard role constants, aligned with the conventions of the major
// providers.
const (
	// RoleSystem sets context or instructions; appears first.
	RoleSystem = "system"

	// RoleUser is input from the human user.
	RoleUser = "user"

	// RoleAssistant is a model-generated reply.
	RoleAssistant = "assistant"
)

// ChatOut is the output of one chat completion.
type ChatOut struct {
	// Text is the model's generated reply.
	Text string

	// InputTokens and OutputTokens report usage when the provider
	// exposes it; zero otherwise.
	InputTokens  int
	OutputTokens int
}
