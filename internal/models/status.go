package models

import (
	"fmt"
	"strings"
)

// Status is the observed connectivity of the host. A nil field has not been
// determined yet.
type Status struct {
	IsOnline          *bool   `json:"is_online"`
	ConnectionType    *string `json:"connection_type"`
	HasInternetAccess *bool   `json:"has_internet_access"`
}

// Clone returns a deep copy so callers cannot mutate observer state.
func (s Status) Clone() Status {
	out := Status{}
	if s.IsOnline != nil {
		out.IsOnline = Bool(*s.IsOnline)
	}
	if s.ConnectionType != nil {
		out.ConnectionType = String(*s.ConnectionType)
	}
	if s.HasInternetAccess != nil {
		out.HasInternetAccess = Bool(*s.HasInternetAccess)
	}
	return out
}

// Equal reports whether both records carry the same values.
func (s Status) Equal(other Status) bool {
	return equalBool(s.IsOnline, other.IsOnline) &&
		equalString(s.ConnectionType, other.ConnectionType) &&
		equalBool(s.HasInternetAccess, other.HasInternetAccess)
}

func (s Status) String() string {
	return fmt.Sprintf("online=%s type=%s internet=%s",
		formatBool(s.IsOnline), formatString(s.ConnectionType), formatBool(s.HasInternetAccess))
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatBool(v *bool) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%t", *v)
}

func formatString(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "unknown"
	}
	return *v
}
