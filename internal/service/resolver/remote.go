package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/northpeak-analytics/site-backend/internal/config"
	"github.com/northpeak-analytics/site-backend/internal/logger"
	"github.com/northpeak-analytics/site-backend/internal/model/intake"
)

const systemPreamble = "You are the intake assistant for a data and analytics consulting firm. " +
	"Keep every reply to two or three short sentences. Help the visitor clarify project scope, " +
	"timeline, budget, data sources, and success criteria. If they share contact information, " +
	"acknowledge it and confirm the team will follow up."

// historyLimit bounds how much transcript is replayed to the remote endpoint.
const historyLimit = 12

const defaultRetryAfter = 30 * time.Second

// CompletionClient is the minimal subset of the openai client the remote
// resolver uses; it is easy to mock in tests.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Remote resolves replies through an OpenAI-compatible chat completion
// endpoint with a bounded per-call timeout.
type Remote struct {
	client  CompletionClient
	model   string
	timeout time.Duration
}

// NewRemote builds a remote resolver from configuration. Returns nil when no
// API key is configured so callers compose a scripted-only chain.
func NewRemote(cfg config.AIConfig) *Remote {
	if !cfg.Enabled() {
		return nil
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Remote{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// NewRemoteWithClient builds a remote resolver around an existing client.
func NewRemoteWithClient(client CompletionClient, model string, timeout time.Duration) *Remote {
	return &Remote{client: client, model: model, timeout: timeout}
}

// Resolve sends the system preamble plus recent history and returns the
// generated reply. On HTTP 429 it returns a *RateLimitError; all other
// failures come back as plain errors for the fallback chain to absorb.
func (r *Remote) Resolve(ctx context.Context, history []intake.Message, step intake.Step, latest string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: r.buildMessages(history, step, latest),
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if rl := asRateLimit(err); rl != nil {
			logger.L.Warn("remote generation rate limited", "retryAfter", rl.RetryAfter)
			return "", rl
		}
		return "", fmt.Errorf("remote generation failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("remote generation returned empty content")
	}
	return resp.Choices[0].Message.Content, nil
}

func (r *Remote) buildMessages(history []intake.Message, step intake.Step, latest string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, historyLimit+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf("%s\nThe visitor is currently interested in: %s.", systemPreamble, step),
	})

	startIdx := 0
	if len(history) > historyLimit {
		startIdx = len(history) - historyLimit
	}
	for _, msg := range history[startIdx:] {
		switch msg.Role {
		case intake.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})
		case intake.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content})
		}
	}

	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: latest})
}

var retryAfterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)try again in (\d+)\s*s`),
	regexp.MustCompile(`(?i)retry[- ]after[:\s]+(\d+)`),
	regexp.MustCompile(`(?i)retryAfter["':\s]+(\d+)`),
}

// asRateLimit extracts a rate-limit signal from an openai client error.
func asRateLimit(err error) *RateLimitError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: parseRetryAfter(apiErr.Message)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: parseRetryAfter(reqErr.Error())}
	}
	return nil
}

func parseRetryAfter(message string) time.Duration {
	for _, pattern := range retryAfterPatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			if seconds, err := strconv.Atoi(m[1]); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return defaultRetryAfter
}
