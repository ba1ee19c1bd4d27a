package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"connwatch/internal/models"
	"connwatch/internal/platform"
	"connwatch/internal/platform/platformtest"
)

const waitTimeout = 2 * time.Second

func newTestObserver(t *testing.T, p *platformtest.Platform, interval time.Duration) *Observer {
	t.Helper()
	obs := New(p, Options{Interval: interval, Logger: log.New(io.Discard, "", 0)})
	obs.Start()
	t.Cleanup(obs.Stop)
	return obs
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", desc)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func isTrue(v *bool) bool  { return v != nil && *v }
func isFalse(v *bool) bool { return v != nil && !*v }

func TestObserverTracksLinkNotifications(t *testing.T) {
	p := platformtest.New(true)
	obs := newTestObserver(t, p, time.Hour)

	waitFor(t, "initial link state", func() bool { return isTrue(obs.Status().IsOnline) })
	for _, online := range []bool{false, true, true, false, false, true} {
		p.LinkFake.SetOnline(online)
		waitFor(t, "link state", func() bool {
			s := obs.Status()
			return s.IsOnline != nil && *s.IsOnline == online
		})
	}
}

func TestObserverOfflineSkipsFetch(t *testing.T) {
	p := platformtest.New(false)
	obs := newTestObserver(t, p, 10*time.Millisecond)

	waitFor(t, "internet access to be false", func() bool { return isFalse(obs.Status().HasInternetAccess) })
	time.Sleep(50 * time.Millisecond)
	if n := p.FetchFake.Count(); n != 0 {
		t.Errorf("Issued %d fetches while offline; want 0", n)
	}
}

func TestObserverGoingOfflineClearsInternetAccess(t *testing.T) {
	p := platformtest.New(true)
	obs := newTestObserver(t, p, 10*time.Millisecond)

	waitFor(t, "internet access", func() bool { return isTrue(obs.Status().HasInternetAccess) })
	p.LinkFake.SetOnline(false)
	waitFor(t, "link offline", func() bool { return isFalse(obs.Status().IsOnline) })
	if s := obs.Status(); !isFalse(s.HasInternetAccess) {
		t.Fatalf("Status() = %v after going offline; want internet=false", s)
	}

	n := p.FetchFake.Count()
	time.Sleep(50 * time.Millisecond)
	if got := p.FetchFake.Count(); got != n {
		t.Errorf("Issued %d fetches while offline; want 0", got-n)
	}
}

func TestObserverProbesOnTransition(t *testing.T) {
	p := platformtest.New(true)
	obs := newTestObserver(t, p, time.Hour)

	waitFor(t, "initial probe", func() bool { return p.FetchFake.Count() == 1 })
	p.LinkFake.SetOnline(false)
	waitFor(t, "link offline", func() bool { return isFalse(obs.Status().IsOnline) })
	p.LinkFake.SetOnline(true)
	waitFor(t, "probe after reconnect", func() bool { return p.FetchFake.Count() == 2 })
}

func TestObserverProbesPeriodically(t *testing.T) {
	p := platformtest.New(true)
	newTestObserver(t, p, 20*time.Millisecond)

	waitFor(t, "periodic probes", func() bool { return p.FetchFake.Count() >= 4 })
	for _, req := range p.FetchFake.Requests() {
		if req.Options.Mode != platform.ModeNoCORS || req.Options.Cache != platform.CacheNoStore {
			t.Errorf("Fetch options = %+v; want no-cors, no-store", req.Options)
		}
	}
}

func TestObserverProbeOutcomes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		handler platformtest.FetchFunc
		want    bool
	}{
		{"success status", func(context.Context, string, platform.FetchOptions) (platform.Response, error) {
			return platform.Response{OK: true, Status: 200, Type: platform.ResponseBasic}, nil
		}, true},
		{"opaque", nil, true},
		{"server error", func(context.Context, string, platform.FetchOptions) (platform.Response, error) {
			return platform.Response{Status: 500, Type: platform.ResponseBasic}, nil
		}, false},
		{"fetch error", func(context.Context, string, platform.FetchOptions) (platform.Response, error) {
			return platform.Response{}, errors.New("connection refused")
		}, false},
		{"fetch panic", func(context.Context, string, platform.FetchOptions) (platform.Response, error) {
			panic("unexpected")
		}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := platformtest.New(true)
			p.FetchFake.Handle(tc.handler)
			obs := newTestObserver(t, p, time.Hour)

			waitFor(t, "probe result", func() bool { return obs.Status().HasInternetAccess != nil })
			if got := *obs.Status().HasInternetAccess; got != tc.want {
				t.Errorf("HasInternetAccess = %t; want %t", got, tc.want)
			}
		})
	}
}

func TestObserverDiscardsStaleProbe(t *testing.T) {
	p := platformtest.New(true)
	release := make(chan struct{})
	p.FetchFake.Handle(func(ctx context.Context, _ string, _ platform.FetchOptions) (platform.Response, error) {
		<-release
		return platform.Response{Type: platform.ResponseOpaque}, nil
	})
	obs := newTestObserver(t, p, time.Hour)

	waitFor(t, "probe in flight", func() bool { return p.FetchFake.Count() == 1 })
	p.LinkFake.SetOnline(false)
	waitFor(t, "internet access to be false", func() bool { return isFalse(obs.Status().HasInternetAccess) })

	close(release)
	time.Sleep(50 * time.Millisecond)
	if s := obs.Status(); !isFalse(s.HasInternetAccess) {
		t.Errorf("Status() = %v; stale probe result was applied", s)
	}
}

func TestObserverConnectionTypeAbsent(t *testing.T) {
	p := platformtest.New(true)
	obs := newTestObserver(t, p, time.Hour)

	waitFor(t, "probe result", func() bool { return obs.Status().HasInternetAccess != nil })
	p.LinkFake.SetOnline(false)
	p.LinkFake.SetOnline(true)
	waitFor(t, "reconnect", func() bool { return isTrue(obs.Status().IsOnline) })
	if s := obs.Status(); s.ConnectionType != nil {
		t.Errorf("ConnectionType = %q; want undetermined", *s.ConnectionType)
	}
}

func TestObserverConnectionType(t *testing.T) {
	p := platformtest.New(true).WithNetworkInfo("4g")
	obs := newTestObserver(t, p, time.Hour)

	connType := func() string {
		if s := obs.Status(); s.ConnectionType != nil {
			return *s.ConnectionType
		}
		return ""
	}
	waitFor(t, "initial connection type", func() bool { return connType() == "4G" })

	p.NetworkFake.SetType("wifi")
	waitFor(t, "connection type change", func() bool { return connType() == "WIFI" })

	p.LinkFake.SetOnline(false)
	waitFor(t, "link offline", func() bool { return isFalse(obs.Status().IsOnline) })
	p.LinkFake.SetOnline(true)
	waitFor(t, "link online", func() bool { return isTrue(obs.Status().IsOnline) })

	p.NetworkFake.SetType("3g")
	waitFor(t, "connection type after resubscribe", func() bool { return connType() == "3G" })
	if n := p.NetworkFake.Listeners(); n != 1 {
		t.Errorf("Network information has %d listeners; want 1", n)
	}
}

func TestObserverConnectionTypeCleared(t *testing.T) {
	p := platformtest.New(true).WithNetworkInfo("wifi")
	obs := newTestObserver(t, p, time.Hour)

	waitFor(t, "initial connection type", func() bool {
		s := obs.Status()
		return s.ConnectionType != nil && *s.ConnectionType == "WIFI"
	})

	p.NetworkFake.SetType("")
	waitFor(t, "empty label to clear the field", func() bool { return obs.Status().ConnectionType == nil })

	p.NetworkFake.SetType("wifi")
	waitFor(t, "label restored", func() bool { return obs.Status().ConnectionType != nil })

	p.RemoveNetworkInfo()
	p.LinkFake.SetOnline(false)
	waitFor(t, "connection type to become undetermined", func() bool {
		s := obs.Status()
		return isFalse(s.IsOnline) && s.ConnectionType == nil
	})
}

func TestObserverDefaultInterval(t *testing.T) {
	if DefaultInterval != 5*time.Second {
		t.Errorf("DefaultInterval = %s; want 5s", DefaultInterval)
	}
	obs := New(platformtest.New(false), Options{})
	if obs.interval != DefaultInterval {
		t.Errorf("New with zero options uses interval %s; want %s", obs.interval, DefaultInterval)
	}
}

func TestObserverStopReleasesSubscriptions(t *testing.T) {
	p := platformtest.New(true).WithNetworkInfo("wifi")
	obs := newTestObserver(t, p, 10*time.Millisecond)

	waitFor(t, "all fields", func() bool {
		s := obs.Status()
		return s.IsOnline != nil && s.ConnectionType != nil && s.HasInternetAccess != nil
	})
	obs.Stop()

	if n := p.LinkFake.Listeners(); n != 0 {
		t.Errorf("Link has %d listeners after Stop; want 0", n)
	}
	if n := p.NetworkFake.Listeners(); n != 0 {
		t.Errorf("Network information has %d listeners after Stop; want 0", n)
	}
	before := obs.Status()
	fetches := p.FetchFake.Count()

	p.LinkFake.SetOnline(false)
	p.LinkFake.SetOnline(true)
	p.NetworkFake.SetType("4g")
	time.Sleep(50 * time.Millisecond)

	if diff := cmp.Diff(before, obs.Status()); diff != "" {
		t.Errorf("Status changed after Stop (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(models.Status{}, before); diff != "" {
		t.Errorf("Status not reset by Stop (-want +got):\n%s", diff)
	}
	if got := p.FetchFake.Count(); got != fetches {
		t.Errorf("Issued %d fetches after Stop; want 0", got-fetches)
	}
}

func TestObserverRestart(t *testing.T) {
	p := platformtest.New(true)
	obs := newTestObserver(t, p, time.Hour)

	waitFor(t, "first activation", func() bool { return isTrue(obs.Status().HasInternetAccess) })
	obs.Stop()
	if got := obs.Probes(0); len(got) != 0 {
		t.Errorf("Probes() = %v after Stop; want none", got)
	}

	p.LinkFake.SetOnline(false)
	obs.Start()
	waitFor(t, "second activation", func() bool { return len(obs.Probes(0)) == 1 })
	if s := obs.Status(); !isFalse(s.HasInternetAccess) {
		t.Errorf("Status() = %v; want internet=false", s)
	}
	probes := obs.Probes(0)
	if len(probes) != 1 || !probes[0].Offline {
		t.Errorf("Probes() = %+v; want a single offline result", probes)
	}
}

func TestObserverProbesLimit(t *testing.T) {
	p := platformtest.New(true)
	obs := newTestObserver(t, p, 5*time.Millisecond)

	waitFor(t, "several probes", func() bool { return len(obs.Probes(0)) >= 3 })
	got := obs.Probes(2)
	if len(got) != 2 {
		t.Errorf("Probes(2) returned %d results; want 2", len(got))
	}
}

func TestObserverSubscribe(t *testing.T) {
	p := platformtest.New(true).WithNetworkInfo("ethernet")
	obs := New(p, Options{Interval: time.Hour, Logger: log.New(io.Discard, "", 0)})
	updates, cancel := obs.Subscribe()
	defer cancel()

	if first := <-updates; !first.Equal(models.Status{}) {
		t.Errorf("First update = %v; want undetermined status", first)
	}

	obs.Start()
	defer obs.Stop()

	want := models.Status{
		IsOnline:          models.Bool(true),
		ConnectionType:    models.String("ETHERNET"),
		HasInternetAccess: models.Bool(true),
	}
	timeout := time.After(waitTimeout)
	for {
		select {
		case s := <-updates:
			if s.Equal(want) {
				return
			}
		case <-timeout:
			t.Fatalf("Never received %v; last status %v", want, obs.Status())
		}
	}
}

func TestObserverSubscribeCancelClosesChannel(t *testing.T) {
	obs := New(platformtest.New(false), Options{Logger: log.New(io.Discard, "", 0)})
	updates, cancel := obs.Subscribe()
	<-updates
	cancel()
	cancel()
	if _, ok := <-updates; ok {
		t.Error("Channel still open after cancel")
	}
}
