// Package llmclient issues streaming chat-completion requests against an
// OpenAI-chat-completions-compatible endpoint and yields textual deltas.
package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"vntransl/internal/prompt"
)

// ErrKind classifies a Streaming Client failure.
type ErrKind string

const (
	KindTransport ErrKind = "transport"
)

// Error wraps a Streaming Client failure with its classification.
type Error struct {
	Kind    ErrKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("llmclient: %s: %s", e.Kind, e.Message)
}

func transportErrorf(format string, args ...any) error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf(format, args...)}
}

// noAuthPlaceholder satisfies the SDK's requirement for a non-empty bearer
// token when pointed at a self-hosted endpoint that performs no auth at all.
const noAuthPlaceholder = "none"

// Client performs one chat-completion request against a configured endpoint
// and yields textual deltas through onFragment, lazily: onFragment may
// return a non-nil error to abort the stream early and tear down the
// connection (used by degeneration detection).
type Client struct {
	client oai.Client
	model  string
}

// New builds a Client bound to one endpoint. timeout is the wall-clock
// budget for the whole request; proxyURL, if non-empty, is used for the
// underlying transport.
func New(endpoint, model string, timeout time.Duration, proxyURL string) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("llmclient: parse proxy url: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(noAuthPlaceholder),
		option.WithBaseURL(strings.TrimRight(endpoint, "/") + "/v1/"),
		option.WithHTTPClient(httpClient),
	}

	return &Client{client: oai.NewClient(reqOpts...), model: model}, nil
}

// buildParams converts an assembled prompt into the SDK's request params.
func buildParams(model string, assembled prompt.Assembled) oai.ChatCompletionNewParams {
	messages := make([]oai.ChatCompletionMessageParamUnion, len(assembled.Messages))
	for i, m := range assembled.Messages {
		if m.Role == "system" {
			messages[i] = oai.SystemMessage(m.Content)
		} else {
			messages[i] = oai.UserMessage(m.Content)
		}
	}

	return oai.ChatCompletionNewParams{
		Model:            shared.ChatModel(model),
		Messages:         messages,
		Temperature:      param.NewOpt(assembled.Params.Temperature),
		TopP:             param.NewOpt(assembled.Params.TopP),
		PresencePenalty:  param.NewOpt(assembled.Params.PresencePenalty),
		FrequencyPenalty: param.NewOpt(assembled.Params.FrequencyPenalty),
		N:                param.NewOpt(int64(1)),
	}
}

// Stream issues the chat-completion request and invokes onFragment for
// every non-empty text delta, in order, until a choice's finish_reason is
// set, the SDK's frame loop ends, or onFragment returns an error.
func (c *Client) Stream(ctx context.Context, assembled prompt.Assembled, onFragment func(string) error) error {
	params := buildParams(c.model, assembled)

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return transportErrorf("start stream: %v", err)
	}
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			if err := onFragment(choice.Delta.Content); err != nil {
				return err
			}
		}
		if choice.FinishReason != "" {
			return nil
		}
	}
	if err := stream.Err(); err != nil {
		return transportErrorf("stream read: %v", err)
	}
	return nil
}
