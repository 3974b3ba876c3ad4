package watcher

import (
	"sort"
	"time"
)

// DefaultDelay is the quiet period used when NewDebounced gets a
// non-positive delay.
const DefaultDelay = 100 * time.Millisecond

// Debounced delivers one event per path once the path has been quiet for
// the delay. The operations seen in between are merged.
type Debounced struct {
	inner Watcher
	delay time.Duration

	events  chan Event
	errors  chan error
	flush   chan chan struct{}
	stopped chan struct{}
}

var _ Watcher = (*Debounced)(nil)

// NewDebounced wraps inner. Closing the result closes inner.
func NewDebounced(inner Watcher, delay time.Duration) *Debounced {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d := &Debounced{
		inner:   inner,
		delay:   delay,
		events:  make(chan Event, bufferSize),
		errors:  make(chan error, bufferSize),
		flush:   make(chan chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d
}

// Add starts watching dir.
func (d *Debounced) Add(dir string) error {
	return d.inner.Add(dir)
}

// Events returns the merged events.
func (d *Debounced) Events() <-chan Event {
	return d.events
}

// Errors returns the inner watcher's errors.
func (d *Debounced) Errors() <-chan error {
	return d.errors
}

// Close closes the inner watcher. Pending events are dropped.
func (d *Debounced) Close() error {
	err := d.inner.Close()
	<-d.stopped
	return err
}

// Flush delivers every pending event now.
func (d *Debounced) Flush() {
	done := make(chan struct{})
	select {
	case d.flush <- done:
		<-done
	case <-d.stopped:
	}
}

type pending struct {
	event Event
	due   time.Time
}

// run owns the pending events. It stops when the inner watcher closes its
// channels.
func (d *Debounced) run() {
	defer close(d.stopped)
	defer close(d.errors)
	defer close(d.events)

	waiting := make(map[string]*pending)
	timer := time.NewTimer(d.delay)
	timer.Stop()
	defer timer.Stop()
	var tick <-chan time.Time

	for {
		select {
		case ev, ok := <-d.inner.Events():
			if !ok {
				return
			}
			due := time.Now().Add(d.delay)
			if p, ok := waiting[ev.Path]; ok {
				p.event.Op |= ev.Op
				p.due = due
			} else {
				waiting[ev.Path] = &pending{event: ev, due: due}
			}

		case err, ok := <-d.inner.Errors():
			if !ok {
				return
			}
			select {
			case d.errors <- err:
			default:
			}

		case now := <-tick:
			d.deliver(waiting, now)

		case done := <-d.flush:
			d.deliver(waiting, time.Time{})
			close(done)
		}

		tick = nil
		if next, ok := earliest(waiting); ok {
			timer.Reset(time.Until(next))
			tick = timer.C
		}
	}
}

// deliver sends the events due by now, oldest first. A zero now sends all.
func (d *Debounced) deliver(waiting map[string]*pending, now time.Time) {
	var due []*pending
	for path, p := range waiting {
		if now.IsZero() || !p.due.After(now) {
			due = append(due, p)
			delete(waiting, path)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	for _, p := range due {
		select {
		case d.events <- p.event:
		default:
		}
	}
}

func earliest(waiting map[string]*pending) (time.Time, bool) {
	var first time.Time
	for _, p := range waiting {
		if first.IsZero() || p.due.Before(first) {
			first = p.due
		}
	}
	return first, !first.IsZero()
}
