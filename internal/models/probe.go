package models

import "time"

// ProbeResult captures the outcome of a reachability verification.
type ProbeResult struct {
	Target    string    `json:"target"`
	OK        bool      `json:"ok"`
	Opaque    bool      `json:"opaque,omitempty"`
	Offline   bool      `json:"offline,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
