package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"courseos-backend/internal/logger"
)

var ErrCompleterUnavailable = errors.New("completion endpoint is not configured")

// GeminiCompleter is the Completer backed by the Gemini API.
type GeminiCompleter struct {
	client   *genai.Client
	log      *logger.Logger
	rateChan chan struct{} // Token bucket
}

func NewGeminiCompleter(apiKey string, concurrentReqs int, log *logger.Logger) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, ErrCompleterUnavailable
	}
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiCompleter{
		client:   client,
		log:      log.With("component", "gemini"),
		rateChan: rateChan,
	}, nil
}

func (c *GeminiCompleter) Close() {
	c.client.Close()
}

// acquireRate blocks until a rate slot is available
func (c *GeminiCompleter) acquireRate(ctx context.Context) error {
	select {
	case <-c.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (c *GeminiCompleter) releaseRate() {
	c.rateChan <- struct{}{}
}

func (c *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.acquireRate(ctx); err != nil {
		return "", err
	}
	defer c.releaseRate()

	// GenerativeModel is a plain value; building one per call keeps settings
	// from leaking between concurrent requests.
	model := c.client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		c.log.Debug("gemini candidate", "finish_reason", cand.FinishReason.String(), "token_count", cand.TokenCount)
		if cand.FinishReason != genai.FinishReasonStop {
			c.log.Warn("gemini stopped early", "finish_reason", cand.FinishReason.String())
		}
	}

	text := firstCandidateText(resp)
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty text")
	}
	return text, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}

type unavailableCompleter struct{}

// UnavailableCompleter fails every call. Used when no API key is configured so
// the server still starts and the failure surfaces at generation time.
func UnavailableCompleter() Completer { return unavailableCompleter{} }

func (unavailableCompleter) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrCompleterUnavailable
}
