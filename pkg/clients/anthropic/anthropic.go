package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-3-haiku-20240307"
	maxTokens    = 256
)

// NoCommand is the answer the model gives when the text is not a farm instruction.
const NoCommand = "NONE"

// ErrNoCommand is returned when the text cannot be mapped onto the command grammar.
var ErrNoCommand = errors.New("no command recognised")

// Client turns free-form worker messages into the command grammar.
type Client interface {
	TranslateToCommand(ctx context.Context, input string) (string, error)
}

type anthropicClient struct {
	httpClient *resty.Client
	model      string
	grammar    []string
}

// NewClient creates a configured Anthropic client. grammar lists the accepted
// command lines, one usage per entry.
func NewClient(apiKey, model string, grammar []string) Client {
	return newClient(apiURL, apiKey, model, grammar)
}

func newClient(baseURL, apiKey, model string, grammar []string) *anthropicClient {
	if model == "" {
		model = defaultModel
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	return &anthropicClient{httpClient: client, model: model, grammar: grammar}
}

type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You translate messages from dairy and poultry farm workers into exactly one command line.\n")
	b.WriteString("Accepted commands:\n")
	for _, usage := range c.grammar {
		b.WriteString("  ")
		b.WriteString(usage)
		b.WriteString("\n")
	}
	b.WriteString("Rules:\n")
	b.WriteString("- Reply with the command line only, lower-case keywords, numbers with a dot as decimal separator.\n")
	b.WriteString("- Keep cow tags and batch names exactly as written by the worker.\n")
	b.WriteString("- Messages may be in English, French or Swahili.\n")
	b.WriteString("- If the message is not one of these instructions, reply " + NoCommand + ".\n")
	return b.String()
}

// TranslateToCommand asks the model for a command line matching the grammar.
// It returns ErrNoCommand when the model finds none.
func (c *anthropicClient) TranslateToCommand(ctx context.Context, input string) (string, error) {
	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    c.systemPrompt(),
		Messages:  []message{{Role: "user", Content: input}},
	}

	var respBody messageResponse
	var apiErr errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		SetError(&apiErr).
		Post("")
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic api error: status=%d type=%s message=%s",
			resp.StatusCode(), apiErr.Error.Type, apiErr.Error.Message)
	}
	if len(respBody.Content) == 0 {
		return "", errors.New("empty response from ai")
	}

	return cleanCommand(respBody.Content[0].Text)
}

// cleanCommand keeps the first non-empty line of the model output, stripped of
// code fences and quotes.
func cleanCommand(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		// drop the fence line along with its language tag
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "`\"'")
		if line == "" {
			continue
		}
		if strings.EqualFold(line, NoCommand) {
			return "", ErrNoCommand
		}
		return line, nil
	}
	return "", ErrNoCommand
}
