// Package llm wraps the OpenAI chat completion API for the video assistant
// and the mind-map generator.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/video"
)

const chatSystemPrompt = `You are a video assistant that helps viewers understand and find content in the current video.
Answer briefly and in a friendly tone. When you refer to a part of the video, mention its start time.`

const mindmapSystemPrompt = `You turn video transcripts into Mermaid mind maps.
Reply with Mermaid "mindmap" source only, without code fences or commentary.
Use the video title as the root node, one child per section, and two to four key points under each section.`

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	cli   *openai.Client
	model string
	key   bool
}

// New builds a client from the OpenAI settings in cfg.
// A client without an API key fails every call with an UPSTREAM error.
func New(cfg *config.Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Client{
		cli:   openai.NewClientWithConfig(clientConfig),
		model: model,
		key:   cfg.OpenAIAPIKey != "",
	}
}

// Chat answers a viewer question. history holds the earlier turns of the
// conversation, oldest first; vc is optional context about the video.
func (c *Client) Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
	}
	if vc != nil {
		payload, err := json.Marshal(vc)
		if err != nil {
			return "", errors.NewInternal(err)
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Video information: " + string(payload),
		})
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == video.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
	})
}

// Mindmap asks the model for Mermaid mind-map source describing doc.
// Empty output, or the literal "undefined", is a VALIDATION error.
func (c *Client) Mindmap(ctx context.Context, doc *video.Document) (string, error) {
	out, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: mindmapSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcriptPrompt(doc)},
		},
		MaxTokens:   1500,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	source := StripFences(out)
	if source == "" || source == "undefined" {
		return "", errors.NewValidation("AI returned empty content").
			WithDetail("hint", Hint("empty response"))
	}
	return source, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if !c.key {
		err := fmt.Errorf("api key not configured")
		return "", errors.NewUpstream("openai", err).WithDetail("hint", Hint(err.Error()))
	}

	resp, err := c.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.NewTimeout("openai chat completion")
		}
		return "", errors.NewUpstream("openai", err).WithDetail("hint", Hint(err.Error()))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Hint picks a user-facing suggestion for an AI failure message.
func Hint(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "quota") || strings.Contains(m, "rate limit"):
		return "The AI service quota is exhausted. Please try again later."
	case strings.Contains(m, "api key") || strings.Contains(m, "api_key") || strings.Contains(m, "401"):
		return "Check that OPENAI_API_KEY is set to a valid key."
	case strings.Contains(m, "timeout") || strings.Contains(m, "timed out") || strings.Contains(m, "deadline"):
		return "The AI service took too long to respond. Please retry."
	case strings.Contains(m, "empty"):
		return "The AI service returned nothing. Regenerating usually helps."
	default:
		return "Please try again later."
	}
}

// StripFences removes a surrounding Markdown code fence, if any.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func transcriptPrompt(doc *video.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", doc.Info.Title)
	if doc.Info.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", doc.Info.Summary)
	}
	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s (%s)\n%s\n", s.Title, s.StartLabel(), s.Content.PlainText())
	}
	return b.String()
}
