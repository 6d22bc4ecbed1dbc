// ABOUTME: Debounced typing signal sent while the user composes a message
// ABOUTME: No stop signal is sent; the server infers it from recency

package chat

import (
	"strings"
	"sync"
	"time"
)

// Debouncer calls notify once input has been non-empty and unchanged for delay
type Debouncer struct {
	delay  time.Duration
	notify func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a Debouncer. A non-positive delay means 500ms.
func NewDebouncer(delay time.Duration, notify func()) *Debouncer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Debouncer{delay: delay, notify: notify}
}

// Changed restarts the wait with the current input text. Empty text cancels it.
func (d *Debouncer) Changed(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		fire := !d.stopped && d.timer == timer
		if fire {
			d.timer = nil
		}
		d.mu.Unlock()
		if fire {
			d.notify()
		}
	})
	d.timer = timer
}

// Stop cancels any pending signal; later changes are ignored
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
