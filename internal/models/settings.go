package models

import "time"

// TipMarker is the last-seen chain tip for one network (spec §3).
type TipMarker struct {
	Network   Network   `json:"network"`
	Height    uint64    `json:"height"`
	Hash      string    `json:"hash,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Settings holds process-wide key/value configuration persisted in the
// store: the active network and, if password auth is used, the master
// password verifier (spec §3, §4.1).
type Settings struct {
	ActiveNetwork     Network `json:"activeNetwork"`
	PasswordVerifier  string  `json:"passwordVerifier,omitempty"`
}
