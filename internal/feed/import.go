// Package feed imports retailer-published store directories. Large
// grocery and hardware chains distribute their full store lists as CSV
// feeds, usually over FTP; importing them gives territory reports a
// denominator (stores a brand could be in) to set against the scanned
// footprint (stores it is in).
package feed

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/db"
)

// downloader fetches a feed file; satisfied by fetcher.FTPFetcher.
type downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// csvStreamer wraps fetcher.StreamCSV with the feed's CSV options.
type csvStreamer func(ctx context.Context, r io.Reader) (<-chan []string, <-chan error)

// feedColumns is the expected CSV layout:
// store_id,name,address,city,state,zip,latitude,longitude
const expectedFields = 8

var feedTableColumns = []string{
	"retailer", "store_id", "name", "address", "city", "state", "zip",
	"latitude", "longitude", "imported_at",
}

// Importer loads one retailer's feed into the feed_locations table.
type Importer struct {
	pool     db.Pool
	download downloader
	stream   csvStreamer
	now      func() time.Time
}

func NewImporter(pool db.Pool, dl downloader, stream csvStreamer) *Importer {
	return &Importer{pool: pool, download: dl, stream: stream, now: time.Now}
}

// Result summarizes one import.
type Result struct {
	Retailer string
	Rows     int64
	Skipped  int
}

// Import downloads the feed at feedURL and bulk-loads it, replacing the
// retailer's previous import. Malformed rows are counted and skipped; a
// feed yielding zero valid rows aborts before the old data is deleted.
func (im *Importer) Import(ctx context.Context, retailer, feedURL string) (*Result, error) {
	log := zap.L().With(zap.String("retailer", retailer))
	log.Info("importing retailer feed", zap.String("url", feedURL))

	body, err := im.download.Download(ctx, feedURL)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: download %s", retailer)
	}
	defer body.Close()

	importedAt := im.now().UTC()
	skipped := 0
	var rows [][]any

	rowCh, errCh := im.stream(ctx, body)
	for row := range rowCh {
		if len(row) < expectedFields {
			skipped++
			continue
		}
		storeID, name := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if storeID == "" || name == "" {
			skipped++
			continue
		}
		rows = append(rows, []any{
			retailer, storeID, name,
			strings.TrimSpace(row[2]), strings.TrimSpace(row[3]),
			strings.TrimSpace(row[4]), strings.TrimSpace(row[5]),
			parseFloatOrNil(row[6]), parseFloatOrNil(row[7]),
			importedAt,
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "feed: parse %s", retailer)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("feed: %s produced no valid rows", retailer)
	}

	if _, err := im.pool.Exec(ctx, `DELETE FROM feed_locations WHERE retailer = $1`, retailer); err != nil {
		return nil, eris.Wrapf(err, "feed: clear previous import %s", retailer)
	}

	n, err := db.CopyFrom(ctx, im.pool, "feed_locations", feedTableColumns, rows)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: load %s", retailer)
	}

	log.Info("retailer feed imported", zap.Int64("rows", n), zap.Int("skipped", skipped))
	return &Result{Retailer: retailer, Rows: n, Skipped: skipped}, nil
}

func parseFloatOrNil(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
