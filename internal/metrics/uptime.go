package metrics

import (
	"math"
	"time"

	"connwatch/internal/models"
)

// Reachability summarises probe outcomes of the current activation.
type Reachability struct {
	Target        string  `json:"target,omitempty"`
	UptimePercent float64 `json:"uptime_percent"`
	TotalProbes   int     `json:"total_probes"`
	Passing       int     `json:"passing"`
	Failing       int     `json:"failing"`
	Offline       int     `json:"offline"`
	LastError     string  `json:"last_error,omitempty"`
	LastChecked   string  `json:"last_checked,omitempty"`
}

// ComputeReachability aggregates probe results. Checks skipped because the
// link was down count as failing.
func ComputeReachability(probes []models.ProbeResult) Reachability {
	var (
		result   Reachability
		lastTime time.Time
	)
	for _, probe := range probes {
		if probe.Target != "" {
			result.Target = probe.Target
		}
		if probe.OK {
			result.Passing++
		} else {
			result.Failing++
			result.LastError = probe.Error
		}
		if probe.Offline {
			result.Offline++
		}
		if probe.CheckedAt.After(lastTime) {
			lastTime = probe.CheckedAt
		}
	}

	result.TotalProbes = result.Passing + result.Failing
	if result.TotalProbes > 0 {
		result.UptimePercent = round2(float64(result.Passing) / float64(result.TotalProbes) * 100)
	}
	if !lastTime.IsZero() {
		result.LastChecked = lastTime.UTC().Format(time.RFC3339)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
