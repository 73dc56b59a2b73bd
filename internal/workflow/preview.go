package workflow

import (
	"errors"
	"sync"
)

// ErrAlreadyReleased reports a double release of a preview resource. Both a
// leak and a double release are invariant violations, so the second call is
// loud instead of a no-op.
var ErrAlreadyReleased = errors.New("workflow: preview already released")

// Preview is the locally stored copy of the uploaded image, shown to the
// user before (and regardless of) the durable upload. It wraps a revocable
// resource, typically a file in the local store, that must be released
// exactly once when the preview is replaced or the workflow resets.
type Preview struct {
	mu       sync.Mutex
	url      string
	release  func() error
	released bool
}

// NewPreview wraps a preview URL and the function that frees its backing
// resource. A nil release function is allowed for previews with no backing
// resource of their own.
func NewPreview(url string, release func() error) *Preview {
	return &Preview{url: url, release: release}
}

// URL returns the preview URL, or "" once released.
func (p *Preview) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ""
	}
	return p.url
}

// Release frees the backing resource. The first call wins; subsequent calls
// return ErrAlreadyReleased.
func (p *Preview) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ErrAlreadyReleased
	}
	p.released = true
	if p.release == nil {
		return nil
	}
	return p.release()
}

// Released reports whether the resource has been freed.
func (p *Preview) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
