package model

import "time"

// Brand represents a tracked consumer brand whose retail distribution we monitor.
type Brand struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Website    string    `json:"website" yaml:"website"`
	LocatorURL string    `json:"locator_url,omitempty" yaml:"locator_url,omitempty"` // empty triggers auto-discovery probing
	Category   string    `json:"category,omitempty" yaml:"category,omitempty"`
	Enabled    bool      `json:"enabled" yaml:"enabled"`
	CreatedAt  time.Time `json:"created_at,omitempty" yaml:"-"`
}
