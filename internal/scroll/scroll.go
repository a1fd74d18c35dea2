// Package scroll turns sentinel visibility changes into load-more calls.
package scroll

import "sync"

// Trigger calls loadMore when the attached sentinel becomes visible, more
// pages exist and no load is running.
type Trigger struct {
	loadMore func()

	mu       sync.Mutex
	hasMore  bool
	loading  bool
	inFlight bool
	current  *Observer
	closed   bool
}

func NewTrigger(loadMore func()) *Trigger {
	return &Trigger{loadMore: loadMore}
}

// Update reports the list state. A report with isLoading false ends the
// in-flight period started by the last trigger.
func (t *Trigger) Update(hasMore, isLoading bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasMore = hasMore
	t.loading = isLoading
	if !isLoading {
		t.inFlight = false
	}
}

// Attach returns an observer for a freshly rendered sentinel and
// disconnects the previous one.
func (t *Trigger) Attach() *Observer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.current.disconnected = true
	}
	o := &Observer{trigger: t}
	if t.closed {
		o.disconnected = true
	}
	t.current = o
	return o
}

func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.current != nil {
		t.current.disconnected = true
		t.current = nil
	}
}

func (t *Trigger) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

type Observer struct {
	trigger      *Trigger
	visible      bool
	disconnected bool
}

// Visible records the sentinel's visibility. Only a hidden to visible
// transition can fire.
func (o *Observer) Visible(visible bool) {
	t := o.trigger
	t.mu.Lock()
	if o.disconnected {
		t.mu.Unlock()
		return
	}
	entered := visible && !o.visible
	o.visible = visible
	fire := entered && t.hasMore && !t.loading && !t.inFlight
	if fire {
		t.inFlight = true
	}
	t.mu.Unlock()

	if fire && t.loadMore != nil {
		t.loadMore()
	}
}

func (o *Observer) Disconnect() {
	o.trigger.mu.Lock()
	defer o.trigger.mu.Unlock()
	o.disconnected = true
	if o.trigger.current == o {
		o.trigger.current = nil
	}
}

func (o *Observer) Connected() bool {
	o.trigger.mu.Lock()
	defer o.trigger.mu.Unlock()
	return !o.disconnected
}
