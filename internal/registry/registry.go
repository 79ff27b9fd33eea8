// Package registry loads the tracked-brand roster from a YAML file and
// syncs it into the store. The file is the source of truth for which
// brands exist; the store holds what scanning learned about them.
package registry

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/internal/store"
)

type brandFile struct {
	Brands []model.Brand `yaml:"brands"`
}

// Load reads and validates a brand roster file. Malformed entries are
// skipped with a warning rather than failing the whole roster; a file
// yielding zero valid brands is an error.
func Load(path string) ([]model.Brand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}

	var file brandFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}

	seen := make(map[string]bool, len(file.Brands))
	var brands []model.Brand
	for i, b := range file.Brands {
		if err := validate(b); err != nil {
			zap.L().Warn("registry: skipping malformed brand entry",
				zap.Int("index", i),
				zap.String("id", b.ID),
				zap.Error(err),
			)
			continue
		}
		if seen[b.ID] {
			zap.L().Warn("registry: skipping duplicate brand id", zap.String("id", b.ID))
			continue
		}
		seen[b.ID] = true
		brands = append(brands, b)
	}

	if len(brands) == 0 {
		return nil, eris.Errorf("registry: no valid brands in %s", path)
	}
	return brands, nil
}

// Sync loads the roster and upserts it into the store, returning the
// loaded brands.
func Sync(ctx context.Context, st store.Store, path string) ([]model.Brand, error) {
	brands, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := st.UpsertBrands(ctx, brands); err != nil {
		return nil, eris.Wrap(err, "registry: sync brands")
	}
	zap.L().Info("brand roster synced", zap.Int("brands", len(brands)), zap.String("path", path))
	return brands, nil
}

func validate(b model.Brand) error {
	if strings.TrimSpace(b.ID) == "" {
		return eris.New("missing id")
	}
	if strings.TrimSpace(b.Name) == "" {
		return eris.New("missing name")
	}
	if err := validURL(b.Website); err != nil {
		return eris.Wrap(err, "website")
	}
	if b.LocatorURL != "" {
		if err := validURL(b.LocatorURL); err != nil {
			return eris.Wrap(err, "locator_url")
		}
	}
	return nil
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return eris.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return eris.New("missing host")
	}
	return nil
}
