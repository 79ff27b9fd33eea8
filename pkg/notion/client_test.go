package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestMockClient_RoundTrips(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "digest-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "digest-2026-08-29"}},
		}, nil)
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(&notionapi.Page{ID: "digest-new"}, nil)
	mc.On("UpdatePage", ctx, "digest-2026-08-29", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "digest-2026-08-29"}, nil)

	resp, err := mc.QueryDatabase(ctx, "digest-db", &notionapi.DatabaseQueryRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, notionapi.ObjectID("digest-2026-08-29"), resp.Results[0].ID)

	created, err := mc.CreatePage(ctx, &notionapi.PageCreateRequest{})
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("digest-new"), created.ID)

	updated, err := mc.UpdatePage(ctx, "digest-2026-08-29", &notionapi.PageUpdateRequest{})
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("digest-2026-08-29"), updated.ID)

	mc.AssertExpectations(t)
}

func TestMockClient_Errors(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-err", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError)
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(nil, assert.AnError)
	mc.On("UpdatePage", ctx, "page-err", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(nil, assert.AnError)

	resp, err := mc.QueryDatabase(ctx, "db-err", &notionapi.DatabaseQueryRequest{})
	assert.Error(t, err)
	assert.Nil(t, resp)

	page, err := mc.CreatePage(ctx, &notionapi.PageCreateRequest{})
	assert.Error(t, err)
	assert.Nil(t, page)

	page, err = mc.UpdatePage(ctx, "page-err", &notionapi.PageUpdateRequest{})
	assert.Error(t, err)
	assert.Nil(t, page)

	mc.AssertExpectations(t)
}

func TestNewClient_DefaultThrottle(t *testing.T) {
	c := NewClient("test-token")
	require.NotNil(t, c)

	ac, ok := c.(*apiClient)
	require.True(t, ok)
	require.NotNil(t, ac.limiter)
	assert.InDelta(t, 3.0, float64(ac.limiter.Limit()), 0.001)
}

func TestWithRateLimit_Override(t *testing.T) {
	c := NewClient("test-token", WithRateLimit(10)).(*apiClient)
	require.NotNil(t, c.limiter)
	assert.InDelta(t, 10.0, float64(c.limiter.Limit()), 0.001)
	assert.Equal(t, 10, c.limiter.Burst())
}

func TestWithRateLimit_Disabled(t *testing.T) {
	c := NewClient("test-token", WithRateLimit(0)).(*apiClient)
	assert.Nil(t, c.limiter)

	// No limiter means throttle never blocks, even on a dead context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.throttle(ctx))
}

func TestThrottle_CancelledContext(t *testing.T) {
	c := NewClient("test-token").(*apiClient)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	// Drain the burst so the next wait has to sleep past the deadline.
	require.True(t, c.limiter.Allow())
	assert.Error(t, c.throttle(ctx))
}
