package notify

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func testNotifier(mc *mockNotionClient) *Notifier {
	n := New(mc, "db-digest")
	n.now = func() time.Time {
		return time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)
	}
	return n
}

func sampleOutcomes() []model.ScanOutcome {
	return []model.ScanOutcome{
		{BrandID: "acme", Status: model.ScanSucceeded, Added: 12, Removed: 2, Reactivated: 1},
		{BrandID: "globex", Status: model.ScanSucceeded, Added: 3},
		{BrandID: "initech", Status: model.ScanFailed, Reason: "trust gate: too_few"},
	}
}

func emptyQueryResult() *notionapi.DatabaseQueryResponse {
	return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}
}

func TestPublishDigest_CreatesPage(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-digest", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "Run Date" && pf.Date != nil && pf.Date.Equals != nil
	})).Return(emptyQueryResult(), nil).Once()

	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		if req.Parent.DatabaseID != "db-digest" {
			return false
		}
		added, ok := req.Properties["Added"].(notionapi.NumberProperty)
		return ok && added.Number == 15
	})).Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	err := testNotifier(mc).PublishDigest(ctx, sampleOutcomes())
	require.NoError(t, err)
	mc.AssertExpectations(t)
}

func TestPublishDigest_UpdatesExistingPage(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-digest", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-existing"}},
		}, nil).Once()

	mc.On("UpdatePage", ctx, "page-existing", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		brands, ok := req.Properties["Brands"].(notionapi.NumberProperty)
		return ok && brands.Number == 3
	})).Return(&notionapi.Page{ID: "page-existing"}, nil).Once()

	err := testNotifier(mc).PublishDigest(ctx, sampleOutcomes())
	require.NoError(t, err)
	mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
	mc.AssertExpectations(t)
}

func TestPublishDigest_NoOutcomesIsNoOp(t *testing.T) {
	mc := new(mockNotionClient)

	err := testNotifier(mc).PublishDigest(context.Background(), nil)
	require.NoError(t, err)
	mc.AssertNotCalled(t, "QueryDatabase", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishDigest_QueryErrorPropagates(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-digest", mock.Anything).
		Return(nil, assert.AnError).Once()

	err := testNotifier(mc).PublishDigest(ctx, sampleOutcomes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query digest database")
	mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
}

func TestDigestProperties_FailureSummary(t *testing.T) {
	n := testNotifier(new(mockNotionClient))

	props := n.digestProperties(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), []model.ScanOutcome{
		{BrandID: "acme", Status: model.ScanSucceeded, Added: 4},
		{BrandID: "globex", Status: model.ScanNoLocator, Reason: "no strategy matched"},
		{BrandID: "initech", Status: model.ScanFailed, Reason: "fetch failed"},
	})

	title, ok := props["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Territory digest 2026-08-29", title.Title[0].Text.Content)

	failed, ok := props["Failed"].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, float64(2), failed.Number)

	failures, ok := props["Failures"].(notionapi.RichTextProperty)
	require.True(t, ok)
	require.Len(t, failures.RichText, 1)
	assert.Contains(t, failures.RichText[0].Text.Content, "globex: no_locator (no strategy matched)")
	assert.Contains(t, failures.RichText[0].Text.Content, "initech: scrape_failed (fetch failed)")
}

func TestDigestProperties_NoFailuresOmitsSummary(t *testing.T) {
	n := testNotifier(new(mockNotionClient))

	props := n.digestProperties(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), []model.ScanOutcome{
		{BrandID: "acme", Status: model.ScanSucceeded},
	})

	_, present := props["Failures"]
	assert.False(t, present)
}
