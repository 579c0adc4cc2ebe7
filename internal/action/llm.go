package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// LLM asks a chat completion model to respond to a prompt. The prompt is
// rendered like a notify message, and the configured input (if any) is
// appended as a second user message
type LLM struct {
	client      *openai.Client
	model       string
	system      string
	prompt      string
	stop        []string
	input       input
	temperature float32
	maxTokens   int
}

const defaultSystemPrompt = "You are a helpful assistant."

var (
	ErrNoLLMClient    = errors.New("no LLM client configured")
	ErrEmptyLLMChoice = errors.New("LLM returned no choices")
)

var _ workflow.Executor = (*LLM)(nil)

func NewLLM(cl *openai.Client, cfg api.Config) (*LLM, error) {
	if cl == nil {
		return nil, ErrNoLLMClient
	}
	prompt := cfg.String("prompt", "")
	in := inputFrom(cfg)
	if prompt == "" && !in.isSet() {
		return nil, fmt.Errorf("%w: prompt or %s", ErrMissingOption, KeyInput)
	}
	return &LLM{
		client:      cl,
		model:       cfg.String("model", openai.GPT4oMini),
		system:      cfg.String("system_prompt", defaultSystemPrompt),
		prompt:      prompt,
		stop:        cfg.Strings("stop"),
		input:       in,
		temperature: float32(cfg.Float("temperature", 0.5)),
		maxTokens:   cfg.Int("max_tokens", 256),
	}, nil
}

// Execute returns the trimmed content of the first choice
func (l *LLM) Execute(ctx context.Context, c *workflow.Context) (any, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: l.system},
	}
	if l.prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: Render(l.prompt, c),
		})
	}
	if l.input.isSet() {
		in, err := l.input.get(c)
		if err != nil {
			return nil, err
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: stringify(in),
		})
	}

	resp, err := l.client.CreateChatCompletion(ctx,
		openai.ChatCompletionRequest{
			Model:       l.model,
			Messages:    messages,
			Temperature: l.temperature,
			MaxTokens:   l.maxTokens,
			Stop:        l.stop,
		},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyLLMChoice
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
