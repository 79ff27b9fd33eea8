package model

import "time"

// RawLocation is one store observation produced by a format extractor.
// It lives only for the duration of a single scan: dedupe, trust gating,
// and the territory tracker consume it, then it is gone. Identity across
// runs comes from the territory tracker's LocationKey, not from here.
type RawLocation struct {
	Name       string   `json:"name"`
	Address    string   `json:"address,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Zip        string   `json:"zip,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	ExternalID string   `json:"external_id,omitempty"` // provider-native identifier
	Strategy   string   `json:"strategy"`
	RawSource  []byte   `json:"-"` // original provider payload, retained for enrichment
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *RawLocation) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// PersistedLocation is the durable store record. Rows are never deleted,
// only deactivated, preserving the full distribution audit trail.
type PersistedLocation struct {
	ID          int64     `json:"id"`
	BrandID     string    `json:"brand_id"`
	LocationKey string    `json:"location_key"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Zip         string    `json:"zip,omitempty"`
	Country     string    `json:"country,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	Strategy    string    `json:"strategy"`
	FirstSeenAt time.Time `json:"first_seen_at"` // set once, never overwritten
	LastSeenAt  time.Time `json:"last_seen_at"`
	IsActive    bool      `json:"is_active"`
}
