package monitor

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"connwatch/internal/models"
	"connwatch/internal/platform"
)

const defaultHistorySize = 256

// Options configures an Observer. Zero values select the defaults.
type Options struct {
	Target      string
	Interval    time.Duration
	Timeout     time.Duration
	HistorySize int
	Logger      *log.Logger
}

type eventKind int

const (
	eventLink eventKind = iota
	eventConnectionType
	eventProbe
)

type event struct {
	kind       eventKind
	generation uint64
	probe      models.ProbeResult
}

// Observer reflects link state, connection type and internet reachability of
// the host while it is active.
type Observer struct {
	caps       platform.Capabilities
	checker    *Checker
	interval   time.Duration
	timeout    time.Duration
	maxHistory int
	logger     *log.Logger

	lifeMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.RWMutex
	status  models.Status
	history []models.ProbeResult
	subs    map[int]chan models.Status
	nextSub int
}

// New configures an observer over caps. It does nothing until Start.
func New(caps platform.Capabilities, opts Options) *Observer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Observer{
		caps:       caps,
		checker:    NewChecker(caps.Fetcher(), opts.Target),
		interval:   opts.Interval,
		timeout:    opts.Timeout,
		maxHistory: opts.HistorySize,
		logger:     opts.Logger,
		subs:       make(map[int]chan models.Status),
	}
}

// Start activates the observer with fresh, undetermined state. Starting an
// active observer has no effect.
func (o *Observer) Start() {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.stopCh != nil {
		return
	}
	o.reset()
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	go o.run(o.stopCh, o.doneCh)
}

// Stop deactivates the observer. All subscriptions and the probe timer are
// released before it returns; probes still in flight are left to finish but
// their results are dropped.
func (o *Observer) Stop() {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.stopCh == nil {
		return
	}
	close(o.stopCh)
	<-o.doneCh
	o.stopCh, o.doneCh = nil, nil
	o.reset()
}

// Status returns the current connectivity record.
func (o *Observer) Status() models.Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status.Clone()
}

// Subscribe delivers the current record and then every change. Slow readers
// only see the latest record. The returned func ends the subscription and
// closes the channel.
func (o *Observer) Subscribe() (<-chan models.Status, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan models.Status, 1)
	ch <- o.status.Clone()
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
}

// Probes returns up to limit of the most recent probe results of the current
// activation, oldest first. A non-positive limit returns all of them.
func (o *Observer) Probes(limit int) []models.ProbeResult {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.history) == 0 {
		return nil
	}
	start := 0
	if limit > 0 && len(o.history) > limit {
		start = len(o.history) - limit
	}
	out := make([]models.ProbeResult, len(o.history)-start)
	copy(out, o.history[start:])
	return out
}

func (o *Observer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	events := make(chan event, 16)
	notify := func(kind eventKind) func() {
		return func() {
			select {
			case events <- event{kind: kind}:
			case <-stop:
			}
		}
	}

	link := o.caps.Link()
	unsubOnline := link.Subscribe(platform.EventOnline, notify(eventLink))
	defer unsubOnline()
	unsubOffline := link.Subscribe(platform.EventOffline, notify(eventLink))
	defer unsubOffline()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	var (
		online     *bool
		generation uint64
		info       platform.NetworkInformation
		unwatch    = func() {}
	)
	defer func() { unwatch() }()

	// Everything keyed on the link flag is rebuilt when it changes value.
	onLink := func() {
		current := link.Online()
		if online != nil && *online == current {
			return
		}
		online = &current
		generation++
		o.setOnline(current)

		unwatch()
		info, unwatch = o.watchConnectionType(notify(eventConnectionType))
		o.setConnectionType(info)

		ticker.Reset(o.interval)
		o.verify(stop, events, generation, current)
	}
	onLink()

	for {
		select {
		case ev := <-events:
			switch ev.kind {
			case eventLink:
				onLink()
			case eventConnectionType:
				o.setConnectionType(info)
			case eventProbe:
				// Results started under an earlier link flag are stale.
				if ev.generation == generation {
					o.recordProbe(ev.probe)
				}
			}
		case <-ticker.C:
			o.verify(stop, events, generation, *online)
		case <-stop:
			return
		}
	}
}

func (o *Observer) watchConnectionType(changed func()) (platform.NetworkInformation, func()) {
	info, ok := o.caps.NetworkInformation()
	if !ok || info == nil {
		return nil, func() {}
	}
	return info, info.Subscribe(changed)
}

// verify publishes false right away when the link is down, and otherwise
// probes in the background and reports back through events.
func (o *Observer) verify(stop <-chan struct{}, events chan<- event, generation uint64, online bool) {
	if !online {
		o.recordProbe(models.ProbeResult{
			Target:    o.checker.Target(),
			Offline:   true,
			Error:     "link offline",
			CheckedAt: time.Now().UTC(),
		})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()

		res := o.checker.Check(ctx)
		select {
		case events <- event{kind: eventProbe, generation: generation, probe: res}:
		case <-stop:
		}
	}()
}

func (o *Observer) setOnline(online bool) {
	if _, changed := o.update(func(s *models.Status) {
		s.IsOnline = models.Bool(online)
		if !online {
			s.HasInternetAccess = models.Bool(false)
		}
	}); changed {
		if online {
			o.logger.Printf("link online")
		} else {
			o.logger.Printf("link offline")
		}
	}
}

// setConnectionType publishes the label of info, or clears the field when the
// capability is absent or reports no label.
func (o *Observer) setConnectionType(info platform.NetworkInformation) {
	var kind string
	if info != nil {
		kind = strings.ToUpper(strings.TrimSpace(info.EffectiveType()))
	}
	if _, changed := o.update(func(s *models.Status) {
		if kind == "" {
			s.ConnectionType = nil
			return
		}
		s.ConnectionType = models.String(kind)
	}); changed {
		if kind == "" {
			o.logger.Printf("connection type unknown")
		} else {
			o.logger.Printf("connection type %s", kind)
		}
	}
}

func (o *Observer) recordProbe(res models.ProbeResult) {
	o.mu.Lock()
	o.history = append(o.history, res)
	if len(o.history) > o.maxHistory {
		o.history = o.history[len(o.history)-o.maxHistory:]
	}
	o.mu.Unlock()

	prev, changed := o.update(func(s *models.Status) {
		s.HasInternetAccess = models.Bool(res.OK)
	})
	if !changed {
		return
	}
	switch {
	case res.OK:
		o.logger.Printf("internet reachable via %s", res.Target)
	case prev.HasInternetAccess != nil && *prev.HasInternetAccess:
		o.logger.Printf("internet access lost: %s", res.Error)
	default:
		o.logger.Printf("internet unreachable: %s", res.Error)
	}
}

// update applies fn to a copy of the status and publishes it if it differs.
func (o *Observer) update(fn func(*models.Status)) (prev models.Status, changed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev = o.status.Clone()
	next := o.status.Clone()
	fn(&next)
	if next.Equal(o.status) {
		return prev, false
	}
	o.status = next
	o.publishLocked()
	return prev, true
}

func (o *Observer) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.history = nil
	if o.status.Equal(models.Status{}) {
		return
	}
	o.status = models.Status{}
	o.publishLocked()
}

func (o *Observer) publishLocked() {
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.status.Clone()
	}
}
