package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for tests in this package and its consumers.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func (m *MockClient) CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchResponse), args.Error(1)
}

func (m *MockClient) GetBatch(ctx context.Context, batchID string) (*BatchResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BatchResponse), args.Error(1)
}

func (m *MockClient) GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(BatchResultIterator), args.Error(1)
}

// fakeIterator yields a fixed slice of results, optionally ending in an error.
type fakeIterator struct {
	items []BatchResultItem
	idx   int
	err   error
	done  bool
}

func newFakeIterator(items []BatchResultItem) *fakeIterator {
	return &fakeIterator{items: items, idx: -1}
}

func newFailingIterator(items []BatchResultItem, err error) *fakeIterator {
	return &fakeIterator{items: items, idx: -1, err: err}
}

func (f *fakeIterator) Next() bool {
	if f.idx+1 < len(f.items) {
		f.idx++
		return true
	}
	f.done = true
	return false
}

func (f *fakeIterator) Item() BatchResultItem { return f.items[f.idx] }

func (f *fakeIterator) Err() error {
	if f.done {
		return f.err
	}
	return nil
}

func (f *fakeIterator) Close() error { return nil }

func TestMockClient_CreateMessage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
		Messages:  []Message{{Role: "user", Content: "Classify this locator capture."}},
	}
	mc.On("CreateMessage", ctx, req).Return(&MessageResponse{
		ID:         "msg_123",
		Model:      "claude-haiku-4-5-20251001",
		Content:    []ContentBlock{{Type: "text", Text: `{"strategy":"stockist","confidence":0.9}`}},
		StopReason: "end_turn",
		Usage:      TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil)

	resp, err := mc.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "msg_123", resp.ID)
	assert.Contains(t, resp.Content[0].Text, "stockist")
	assert.Equal(t, int64(10), resp.Usage.InputTokens)

	mc.AssertExpectations(t)
}

func TestFakeIterator_Empty(t *testing.T) {
	iter := newFakeIterator(nil)
	assert.False(t, iter.Next())
	assert.NoError(t, iter.Err())
	assert.NoError(t, iter.Close())
}

func TestFakeIterator_YieldsInOrder(t *testing.T) {
	iter := newFakeIterator([]BatchResultItem{
		{CustomID: "capture-0", Type: "succeeded"},
		{CustomID: "capture-1", Type: "errored"},
	})

	require.True(t, iter.Next())
	assert.Equal(t, "capture-0", iter.Item().CustomID)
	require.True(t, iter.Next())
	assert.Equal(t, "capture-1", iter.Item().CustomID)
	assert.False(t, iter.Next())
	assert.NoError(t, iter.Err())
}

func TestFakeIterator_ErrorAfterItems(t *testing.T) {
	iter := newFailingIterator([]BatchResultItem{
		{CustomID: "capture-0", Type: "succeeded"},
	}, assert.AnError)

	require.True(t, iter.Next())
	assert.NoError(t, iter.Err(), "no error while items remain")
	assert.False(t, iter.Next())
	assert.Equal(t, assert.AnError, iter.Err())
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
		want  float64
	}{
		{"haiku", "claude-haiku-4-5-20251001", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 4.80},
		{"sonnet", "claude-sonnet-4-5-20250929", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 18.00},
		{"opus", "claude-opus-4-6", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 90.00},
		{"unknown model", "unknown-model", TokenUsage{InputTokens: 1_000_000}, 0},
		{"zero usage", "claude-haiku-4-5-20251001", TokenUsage{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.EstimateCost(tt.model), 0.001)
		})
	}
}

func TestEstimateCost_CacheRates(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              500_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     300_000,
	}
	// haiku: 0.5M*0.80 + 0.1M*4.00 + 0.2M*0.80*1.25 + 0.3M*0.80*0.10
	assert.InDelta(t, 1.024, usage.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 100, OutputTokens: 50}.LogCost("claude-haiku-4-5-20251001", "discovery")
	})
	assert.NotPanics(t, func() {
		TokenUsage{}.LogCost("unknown-model", "")
	})
}
