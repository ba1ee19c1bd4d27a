package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"connwatch/internal/models"
	"connwatch/internal/platform"
)

const (
	// DefaultTarget is a small, highly available resource outside the local network.
	DefaultTarget   = "https://www.google.com/favicon.ico"
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 4 * time.Second
)

// Checker verifies internet reachability by fetching a well-known resource.
type Checker struct {
	fetcher platform.Fetcher
	target  string
	now     func() time.Time
}

// NewChecker returns a checker probing target, or DefaultTarget when empty.
func NewChecker(fetcher platform.Fetcher, target string) *Checker {
	target = strings.TrimSpace(target)
	if target == "" {
		target = DefaultTarget
	}
	return &Checker{fetcher: fetcher, target: target, now: time.Now}
}

// Target returns the probed resource.
func (c *Checker) Target() string {
	return c.target
}

// Check performs a single probe. Failures, including a panicking fetcher, are
// reported through the result and never escape.
func (c *Checker) Check(ctx context.Context) (res models.ProbeResult) {
	now := c.now()
	res = models.ProbeResult{
		Target:    c.target,
		CheckedAt: now.UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Opaque = false
			res.Error = fmt.Sprintf("probe panicked: %v", r)
		}
	}()

	probeURL, err := cacheBust(c.target, now)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	resp, err := c.fetcher.Fetch(ctx, probeURL, platform.FetchOptions{
		Mode:  platform.ModeNoCORS,
		Cache: platform.CacheNoStore,
	})
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		res.Error = msg
		return res
	}

	// The status of an opaque response is hidden, but it only arrives if the
	// remote end answered.
	res.Opaque = resp.Type == platform.ResponseOpaque
	res.OK = resp.OK || res.Opaque
	if !res.OK {
		res.Error = http.StatusText(resp.Status)
		if res.Error == "" {
			res.Error = fmt.Sprintf("unexpected status %d", resp.Status)
		}
	}
	return res
}

// cacheBust appends a timestamp parameter so no cache can answer the probe.
func cacheBust(target string, now time.Time) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse probe target: %w", err)
	}
	param := "_=" + strconv.FormatInt(now.UnixMilli(), 10)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}
