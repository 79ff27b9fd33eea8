// Package anthropic wraps the official SDK behind a small interface so the
// discovery advisor can be tested against mocks and batch plumbing stays in
// one place.
package anthropic

import (
	"context"

	"go.uber.org/zap"
)

// Client is the surface the advisor needs: single messages for small capture
// sets, batches for large ones.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)
	GetBatch(ctx context.Context, batchID string) (*BatchResponse, error)
	GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error)
}

// BatchResultIterator streams individual results from a completed batch.
type BatchResultIterator interface {
	Next() bool
	Item() BatchResultItem
	Err() error
	Close() error
}

// MessageRequest carries everything CreateMessage needs, decoupled from SDK
// parameter types.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is one system prompt segment, optionally cacheable.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl marks a block as a prompt cache breakpoint.
type CacheControl struct {
	TTL string // "5m" or "1h"
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is the decoded reply to CreateMessage.
type MessageResponse struct {
	ID           string
	Model        string
	Content      []ContentBlock
	StopReason   string
	Usage        TokenUsage
	StopSequence string
}

// ContentBlock is one piece of response content.
type ContentBlock struct {
	Type string
	Text string
}

// BatchRequest groups message requests for asynchronous processing.
type BatchRequest struct {
	Requests []BatchRequestItem
}

// BatchRequestItem pairs a request with the custom ID its result comes back under.
type BatchRequestItem struct {
	CustomID string
	Params   MessageRequest
}

// BatchResponse reports the state of a submitted batch.
type BatchResponse struct {
	ID               string
	ProcessingStatus string
	ResultsURL       string
	RequestCounts    RequestCounts
}

// RequestCounts tallies batch items by outcome.
type RequestCounts struct {
	Processing int64
	Succeeded  int64
	Errored    int64
	Canceled   int64
	Expired    int64
}

// BatchResultItem is one item streamed from a finished batch. Message is nil
// unless Type is "succeeded".
type BatchResultItem struct {
	CustomID string
	Type     string // "succeeded", "errored", "canceled", "expired"
	Message  *MessageResponse
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// pricePerMTok is USD per million tokens for the models we run.
var pricePerMTok = map[string]struct{ in, out float64 }{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost converts usage into an approximate USD figure. Cache writes
// bill at 1.25x the input rate and cache reads at 0.1x. Unknown models
// estimate as 0.
func (u TokenUsage) EstimateCost(model string) float64 {
	p, ok := pricePerMTok[model]
	if !ok {
		return 0
	}
	const mtok = 1e6
	return float64(u.InputTokens)/mtok*p.in +
		float64(u.OutputTokens)/mtok*p.out +
		float64(u.CacheCreationInputTokens)/mtok*p.in*1.25 +
		float64(u.CacheReadInputTokens)/mtok*p.in*0.1
}

// LogCost records usage and estimated spend for a run phase.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
