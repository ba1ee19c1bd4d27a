//go:build !linux

package platform

// Without a portable link event source the interfaces are polled, and the
// connection type cannot be classified reliably.
const networkInfoSupported = false

func watchLinkChanges(stop <-chan struct{}, changed func()) error {
	pollLinkChanges(stop, pollInterval, changed)
	return nil
}

func isWireless(string) bool { return false }
