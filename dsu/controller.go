package dsu

import (
	"fmt"
	"sync"
)

// Controller is the external collaborator interface spec.md §6 describes:
// an upstream HID producer already decoded into DualShock-shaped state.
// The core only subscribes to it; lifetime is owned by the caller.
type Controller interface {
	// Reports returns a channel of normalized reports. Reports on this
	// channel are delivered to the slot table in the order the controller
	// emitted them (spec.md §5 FIFO-per-slot ordering guarantee).
	Reports() <-chan NormalizedReport

	// Errors returns a channel of non-fatal producer errors, forwarded
	// verbatim onto the server's error stream.
	Errors() <-chan error

	// Meta returns the controller's current identifying snapshot, or nil
	// if it has none yet.
	Meta() *Meta

	// Report returns the controller's most recently produced report, or
	// nil if it hasn't emitted one yet. This is the same value a caller
	// would eventually receive off Reports(); it exists for introspection
	// (e.g. the control API's slot listing) that shouldn't have to drain
	// the report channel to see current state.
	Report() *NormalizedReport

	// Close releases any subscriptions the slot table installed. It does
	// not close the Reports()/Errors() channels; the controller's owner
	// retains that responsibility.
	Close()
}

// slot holds one occupied controller-slot's bookkeeping.
type slot struct {
	controller Controller
	cancel     func()
}

// SlotTable is the fixed four-slot array mapping slot index to a live
// controller handle. See spec.md §4.3. Per spec.md §5, the UDP read loop
// (LIST_PORTS lookups), each attached controller's own report-pump
// goroutine, and the control API's per-connection goroutines all reach
// into the same table concurrently, so every method locks mu.
type SlotTable struct {
	mu    sync.Mutex
	slots [NumSlots]*slot
}

// NewSlotTable returns an empty slot table.
func NewSlotTable() *SlotTable {
	return &SlotTable{}
}

// ErrSlotsFull is returned by AddController when all four slots are
// occupied.
var ErrSlotsFull = fmt.Errorf("dsu: all %d controller slots are occupied", NumSlots)

// AddController installs c into the lowest empty slot and starts pumping
// its Reports()/Errors() channels into onReport/onError until the returned
// index is removed with RemoveController (or the whole table is cleared). It
// reports which index it used.
func (t *SlotTable) AddController(c Controller, onReport func(padID uint8, r NormalizedReport), onError func(error)) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, s := range t.slots {
		if s == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, ErrSlotsFull
	}

	done := make(chan struct{})
	go func(padID uint8) {
		reports := c.Reports()
		errs := c.Errors()
		for {
			select {
			case r, ok := <-reports:
				if !ok {
					reports = nil
					if errs == nil {
						return
					}
					continue
				}
				if onReport != nil {
					onReport(padID, r)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					if reports == nil {
						return
					}
					continue
				}
				if onError != nil {
					onError(err)
				}
			case <-done:
				return
			}
		}
	}(uint8(idx))

	t.slots[idx] = &slot{controller: c, cancel: func() { close(done) }}
	return idx, nil
}

// RemoveController clears slot i, canceling its subscriptions. Per
// spec.md §9, the bounds check is 0 <= i < NumSlots — slot 0 is a
// perfectly valid index to remove, unlike the source's buggy
// `index > 0` check.
func (t *SlotTable) RemoveController(i int) error {
	if i < 0 || i >= NumSlots {
		return fmt.Errorf("dsu: slot index %d out of range", i)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeControllerLocked(i)
	return nil
}

// removeControllerLocked does the work of RemoveController; callers must
// hold t.mu.
func (t *SlotTable) removeControllerLocked(i int) {
	s := t.slots[i]
	if s == nil {
		return
	}
	s.cancel()
	s.controller.Close()
	t.slots[i] = nil
}

// Clear removes every controller from every slot.
func (t *SlotTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		t.removeControllerLocked(i)
	}
}

// Get returns the controller occupying slot i, or nil if empty or i is
// out of range.
func (t *SlotTable) Get(i int) Controller {
	if i < 0 || i >= NumSlots {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.slots[i]; s != nil {
		return s.controller
	}
	return nil
}

// Occupied reports how many slots currently hold a controller.
func (t *SlotTable) Occupied() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// MetaAt returns the meta snapshot for slot i, or nil if the slot is
// empty or has no meta yet.
func (t *SlotTable) MetaAt(i int) *Meta {
	if i < 0 || i >= NumSlots {
		return nil
	}
	t.mu.Lock()
	s := t.slots[i]
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.controller.Meta()
}

// ReportAt returns the last report produced by slot i's controller, or nil
// if the slot is empty or its controller hasn't reported yet.
func (t *SlotTable) ReportAt(i int) *NormalizedReport {
	if i < 0 || i >= NumSlots {
		return nil
	}
	t.mu.Lock()
	s := t.slots[i]
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.controller.Report()
}
