package platform

import (
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const pollInterval = 2 * time.Second

// Host returns capabilities backed by the operating system's network
// interfaces and a net/http fetcher.
func Host(logger *log.Logger) Capabilities {
	if logger == nil {
		logger = log.Default()
	}
	w := newLinkWatcher(systemInterfaces, nil)
	w.watch = func(stop <-chan struct{}, changed func()) {
		if err := watchLinkChanges(stop, changed); err != nil {
			logger.Printf("link watcher unavailable, polling every %s: %v", pollInterval, err)
			pollLinkChanges(stop, pollInterval, changed)
		}
	}
	return &hostCapabilities{watcher: w, fetcher: NewHTTPFetcher()}
}

type hostCapabilities struct {
	watcher *linkWatcher
	fetcher *HTTPFetcher
}

func (h *hostCapabilities) Link() LinkNotifier { return h.watcher }

func (h *hostCapabilities) NetworkInformation() (NetworkInformation, bool) {
	if !networkInfoSupported {
		return nil, false
	}
	return hostNetworkInfo{h.watcher}, true
}

func (h *hostCapabilities) Fetcher() Fetcher { return h.fetcher }

type hostNetworkInfo struct {
	w *linkWatcher
}

func (n hostNetworkInfo) EffectiveType() string {
	return n.w.snapshot().kind
}

func (n hostNetworkInfo) Subscribe(fn func()) func() {
	return n.w.subscribe(listenTypeChange, fn)
}

type ifaceInfo struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

type linkState struct {
	online bool
	kind   string
}

type listenKind int

const (
	listenOnline listenKind = iota
	listenOffline
	listenTypeChange
)

type listener struct {
	kind listenKind
	fn   func()
}

// linkWatcher derives link state from interface snapshots and dispatches
// notifications on transitions. The OS watch runs only while someone listens.
type linkWatcher struct {
	interfaces func() ([]ifaceInfo, error)
	watch      func(stop <-chan struct{}, changed func())

	// refreshMu orders refreshes from overlapping watch goroutines.
	refreshMu sync.Mutex

	mu        sync.Mutex
	nextID    int
	listeners map[int]listener
	stopCh    chan struct{}
	last      linkState
}

func newLinkWatcher(interfaces func() ([]ifaceInfo, error), watch func(<-chan struct{}, func())) *linkWatcher {
	return &linkWatcher{
		interfaces: interfaces,
		watch:      watch,
		listeners:  make(map[int]listener),
	}
}

func (w *linkWatcher) Online() bool {
	return w.snapshot().online
}

func (w *linkWatcher) Subscribe(event LinkEvent, fn func()) func() {
	kind := listenOnline
	if event == EventOffline {
		kind = listenOffline
	}
	return w.subscribe(kind, fn)
}

func (w *linkWatcher) subscribe(kind listenKind, fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.listeners[id] = listener{kind: kind, fn: fn}
	if w.stopCh == nil {
		w.last = w.snapshot()
		w.stopCh = make(chan struct{})
		if w.watch != nil {
			go w.watch(w.stopCh, w.refresh)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.listeners, id)
			if len(w.listeners) == 0 && w.stopCh != nil {
				close(w.stopCh)
				w.stopCh = nil
			}
		})
	}
}

// refresh re-reads the interfaces and notifies listeners of any transition.
func (w *linkWatcher) refresh() {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	current := w.snapshot()

	w.mu.Lock()
	previous := w.last
	w.last = current
	var fns []func()
	for _, l := range w.listeners {
		switch {
		case l.kind == listenOnline && current.online && !previous.online,
			l.kind == listenOffline && !current.online && previous.online,
			l.kind == listenTypeChange && current.kind != previous.kind:
			fns = append(fns, l.fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (w *linkWatcher) snapshot() linkState {
	ifaces, err := w.interfaces()
	if err != nil {
		return linkState{}
	}
	primary, ok := primaryInterface(ifaces)
	if !ok {
		return linkState{}
	}
	return linkState{online: true, kind: classifyInterface(primary.Name, isWireless(primary.Name))}
}

func pollLinkChanges(stop <-chan struct{}, interval time.Duration, changed func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			changed()
		case <-stop:
			return
		}
	}
}

func systemInterfaces() ([]ifaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]ifaceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, ifaceInfo{Name: iface.Name, Flags: iface.Flags, Addrs: addrs})
	}
	return out, nil
}

// primaryInterface returns the first up, non-loopback interface that holds a
// global unicast address.
func primaryInterface(ifaces []ifaceInfo) (ifaceInfo, bool) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		for _, addr := range iface.Addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip != nil && ip.IsGlobalUnicast() {
				return iface, true
			}
		}
	}
	return ifaceInfo{}, false
}

func classifyInterface(name string, wireless bool) string {
	switch {
	case wireless:
		return "wifi"
	case hasAnyPrefix(name, "wwan", "wwp", "rmnet", "ppp"):
		return "cellular"
	case hasAnyPrefix(name, "eth", "en"):
		return "ethernet"
	default:
		return "other"
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
