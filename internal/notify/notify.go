// Package notify publishes territory-change digests to a Notion database
// so the distribution team sees new and lost doors without reading logs.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/pkg/notion"
)

// maxFailureLines caps the failure summary so a bad batch does not blow
// past Notion's rich text length limit.
const maxFailureLines = 25

// Notifier writes one digest page per batch run into a Notion database.
type Notifier struct {
	client notion.Client
	dbID   string
	now    func() time.Time
}

// New creates a Notifier targeting the given digest database.
func New(client notion.Client, dbID string) *Notifier {
	return &Notifier{
		client: client,
		dbID:   dbID,
		now:    time.Now,
	}
}

// PublishDigest posts a summary of a batch scan. Re-running on the same
// day updates the existing digest page in place instead of creating a
// duplicate.
func (n *Notifier) PublishDigest(ctx context.Context, outcomes []model.ScanOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	runDay := n.now().UTC().Truncate(24 * time.Hour)
	props := n.digestProperties(runDay, outcomes)

	pageID, err := n.findDigestPage(ctx, runDay)
	if err != nil {
		return err
	}

	if pageID != "" {
		if _, err := n.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
			return eris.Wrap(err, fmt.Sprintf("notify: update digest page %s", pageID))
		}
		zap.L().Info("updated territory digest",
			zap.String("page_id", pageID),
			zap.Int("brands", len(outcomes)))
		return nil
	}

	page, err := n.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(n.dbID),
		},
		Properties: props,
	})
	if err != nil {
		return eris.Wrap(err, "notify: create digest page")
	}
	zap.L().Info("published territory digest",
		zap.String("page_id", string(page.ID)),
		zap.Int("brands", len(outcomes)))
	return nil
}

// findDigestPage returns the ID of an existing digest page for the run
// day, or "" when none exists.
func (n *Notifier) findDigestPage(ctx context.Context, runDay time.Time) (string, error) {
	day := notionapi.Date(runDay)
	resp, err := n.client.QueryDatabase(ctx, n.dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Run Date",
			Date: &notionapi.DateFilterCondition{
				Equals: &day,
			},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", eris.Wrap(err, "notify: query digest database")
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

func (n *Notifier) digestProperties(runDay time.Time, outcomes []model.ScanOutcome) notionapi.Properties {
	var succeeded, failed, added, removed, reactivated int
	var failures []string
	for _, o := range outcomes {
		switch o.Status {
		case model.ScanSucceeded:
			succeeded++
		default:
			failed++
			failures = append(failures, fmt.Sprintf("%s: %s (%s)", o.BrandID, o.Status, o.Reason))
		}
		added += o.Added
		removed += o.Removed
		reactivated += o.Reactivated
	}
	sort.Strings(failures)
	if len(failures) > maxFailureLines {
		failures = append(failures[:maxFailureLines], fmt.Sprintf("and %d more", len(failures)-maxFailureLines))
	}

	day := notionapi.Date(runDay)
	title := "Territory digest " + runDay.Format("2006-01-02")

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: title}},
			},
		},
		"Run Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &day,
			},
		},
		"Brands": notionapi.NumberProperty{
			Number: float64(len(outcomes)),
		},
		"Succeeded": notionapi.NumberProperty{
			Number: float64(succeeded),
		},
		"Failed": notionapi.NumberProperty{
			Number: float64(failed),
		},
		"Added": notionapi.NumberProperty{
			Number: float64(added),
		},
		"Removed": notionapi.NumberProperty{
			Number: float64(removed),
		},
		"Reactivated": notionapi.NumberProperty{
			Number: float64(reactivated),
		},
	}
	if len(failures) > 0 {
		props["Failures"] = notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: strings.Join(failures, "\n")}},
			},
		}
	}
	return props
}
