package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "default port",
			url:      "ftp://feeds.unfi.example.com/exports/locations.csv",
			wantHost: "feeds.unfi.example.com:21",
			wantPath: "/exports/locations.csv",
		},
		{
			name:     "explicit port",
			url:      "ftp://feeds.kehe.example.com:2121/out/stores.csv",
			wantHost: "feeds.kehe.example.com:2121",
			wantPath: "/out/stores.csv",
		},
		{
			name:     "nested path",
			url:      "ftp://feeds.example.com/retail/stores/2026/08/locations.csv",
			wantHost: "feeds.example.com:21",
			wantPath: "/retail/stores/2026/08/locations.csv",
		},
		{
			name:    "http scheme rejected",
			url:     "http://example.com/file.csv",
			wantErr: true,
		},
		{
			name:    "missing path",
			url:     "ftp://feeds.example.com",
			wantErr: true,
		},
		{
			name:    "unparseable",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, "anonymous", f.opts.User)
	assert.Equal(t, "anonymous@", f.opts.Password)
}

func TestNewFTPFetcher_KeepsCredentials(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{Timeout: time.Minute, User: "feeds", Password: "secret"})
	assert.Equal(t, time.Minute, f.opts.Timeout)
	assert.Equal(t, "feeds", f.opts.User)
	assert.Equal(t, "secret", f.opts.Password)
}
