// Package platformtest provides in-memory platform capabilities for tests.
package platformtest

import (
	"context"
	"sync"

	"connwatch/internal/platform"
)

// Platform is a controllable implementation of platform.Capabilities.
type Platform struct {
	mu sync.Mutex

	LinkFake    *Link
	NetworkFake *NetworkInfo // nil means the capability is absent
	FetchFake   *Fetcher
}

// New returns a platform whose link starts with the given flag and whose
// fetcher answers with an opaque response.
func New(online bool) *Platform {
	return &Platform{
		LinkFake:  &Link{online: online, listeners: make(map[int]linkListener)},
		FetchFake: &Fetcher{},
	}
}

// WithNetworkInfo installs a network information capability reporting kind.
func (p *Platform) WithNetworkInfo(kind string) *Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NetworkFake = &NetworkInfo{kind: kind, listeners: make(map[int]func())}
	return p
}

// RemoveNetworkInfo makes the network information capability absent from
// the next evaluation on.
func (p *Platform) RemoveNetworkInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NetworkFake = nil
}

func (p *Platform) Link() platform.LinkNotifier { return p.LinkFake }

func (p *Platform) NetworkInformation() (platform.NetworkInformation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NetworkFake == nil {
		return nil, false
	}
	return p.NetworkFake, true
}

func (p *Platform) Fetcher() platform.Fetcher { return p.FetchFake }

type linkListener struct {
	event platform.LinkEvent
	fn    func()
}

// Link is a fake link notifier.
type Link struct {
	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]linkListener
}

func (l *Link) Online() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.online
}

func (l *Link) Subscribe(event platform.LinkEvent, fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = linkListener{event: event, fn: fn}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// SetOnline updates the flag and delivers the matching notification.
func (l *Link) SetOnline(online bool) {
	event := platform.EventOffline
	if online {
		event = platform.EventOnline
	}
	l.mu.Lock()
	l.online = online
	var fns []func()
	for _, li := range l.listeners {
		if li.event == event {
			fns = append(fns, li.fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of active subscriptions.
func (l *Link) Listeners() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}

// NetworkInfo is a fake network information capability.
type NetworkInfo struct {
	mu        sync.Mutex
	kind      string
	nextID    int
	listeners map[int]func()
}

func (n *NetworkInfo) EffectiveType() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.kind
}

func (n *NetworkInfo) Subscribe(fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// SetType changes the reported technology and notifies subscribers.
func (n *NetworkInfo) SetType(kind string) {
	n.mu.Lock()
	n.kind = kind
	fns := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of active subscriptions.
func (n *NetworkInfo) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// FetchFunc answers a fake fetch.
type FetchFunc func(ctx context.Context, url string, opts platform.FetchOptions) (platform.Response, error)

// Fetcher records requests and answers them with Handler, or with an opaque
// response when Handler is nil.
type Fetcher struct {
	mu       sync.Mutex
	handler  FetchFunc
	requests []Request
}

// Request is a recorded fetch.
type Request struct {
	URL     string
	Options platform.FetchOptions
}

// Handle replaces the answer for subsequent fetches.
func (f *Fetcher) Handle(fn FetchFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}

func (f *Fetcher) Fetch(ctx context.Context, url string, opts platform.FetchOptions) (platform.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, Request{URL: url, Options: opts})
	handler := f.handler
	f.mu.Unlock()

	if handler == nil {
		return platform.Response{Type: platform.ResponseOpaque}, nil
	}
	return handler(ctx, url, opts)
}

// Requests returns the fetches issued so far.
func (f *Fetcher) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Count returns the number of fetches issued so far.
func (f *Fetcher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
