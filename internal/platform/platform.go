// Package platform describes the host capabilities the connectivity observer
// depends on, and provides the host, HTTP and no-op implementations.
package platform

import (
	"context"
	"errors"
)

// LinkEvent identifies a link-layer transition notification.
type LinkEvent string

const (
	EventOnline  LinkEvent = "online"
	EventOffline LinkEvent = "offline"
)

// LinkNotifier reports link-layer connectivity and notifies on transitions.
type LinkNotifier interface {
	// Online returns the current link flag.
	Online() bool
	// Subscribe registers fn for event and returns a function that removes it.
	Subscribe(event LinkEvent, fn func()) (unsubscribe func())
}

// NetworkInformation exposes the active connection technology.
type NetworkInformation interface {
	EffectiveType() string
	Subscribe(fn func()) (unsubscribe func())
}

// FetchMode mirrors the cross-origin handling of a request.
type FetchMode string

const (
	ModeCORS   FetchMode = "cors"
	ModeNoCORS FetchMode = "no-cors"
)

// CacheMode controls how intermediate caches may answer a request.
type CacheMode string

const (
	CacheDefault CacheMode = "default"
	CacheNoStore CacheMode = "no-store"
)

// ResponseType tags how much of a response the caller may inspect.
type ResponseType string

const (
	ResponseBasic  ResponseType = "basic"
	ResponseOpaque ResponseType = "opaque"
)

// FetchOptions configures a single fetch.
type FetchOptions struct {
	Mode  FetchMode
	Cache CacheMode
}

// Response is the inspectable part of a completed fetch. Opaque responses
// always report Status 0 and OK false.
type Response struct {
	OK     bool
	Status int
	Type   ResponseType
}

// Fetcher performs HTTP requests on behalf of the reachability probe.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (Response, error)
}

// Capabilities bundles what the host environment provides.
type Capabilities interface {
	Link() LinkNotifier
	// NetworkInformation returns false when the host cannot classify its
	// connection. It is re-evaluated after every link transition.
	NetworkInformation() (NetworkInformation, bool)
	Fetcher() Fetcher
}

// ErrUnavailable is returned by capabilities the host does not provide.
var ErrUnavailable = errors.New("capability unavailable")

// Noop returns capabilities for environments without a network stack: the
// link is never online and every fetch fails.
func Noop() Capabilities {
	return noopCapabilities{}
}

type noopCapabilities struct{}

func (noopCapabilities) Link() LinkNotifier { return noopLink{} }

func (noopCapabilities) NetworkInformation() (NetworkInformation, bool) { return nil, false }

func (noopCapabilities) Fetcher() Fetcher { return noopFetcher{} }

type noopLink struct{}

func (noopLink) Online() bool { return false }

func (noopLink) Subscribe(LinkEvent, func()) func() { return func() {} }

type noopFetcher struct{}

func (noopFetcher) Fetch(context.Context, string, FetchOptions) (Response, error) {
	return Response{}, ErrUnavailable
}
