package hidraw

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/nyxbridge/steamdsu/dsu"
)

// reportBufferSize is sized to the largest Steam Controller/Deck interrupt
// report (64 bytes), with no room for an extra report-ID prefix byte.
const reportBufferSize = 64

// Controller reads fixed-size HID reports off a device handle, decodes
// them, and exposes them as a dsu.Controller. The zero value is not
// usable; construct with New.
type Controller struct {
	dev   io.ReadCloser
	start time.Time

	reports chan dsu.NormalizedReport
	errs    chan error

	metaMu sync.RWMutex
	meta   *dsu.Meta

	reportMu   sync.RWMutex
	lastReport *dsu.NormalizedReport

	closeOnce sync.Once
	done      chan struct{}
}

// New wraps dev (an already-open hidraw device node) and starts its read
// loop. meta is the pad's identifying snapshot; callers should mark
// meta.State as dsu.PadConnected once the device is confirmed live.
func New(dev io.ReadCloser, meta dsu.Meta) *Controller {
	c := &Controller{
		dev:     dev,
		start:   time.Now(),
		reports: make(chan dsu.NormalizedReport, 32),
		errs:    make(chan error, 8),
		meta:    &meta,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Controller) Reports() <-chan dsu.NormalizedReport { return c.reports }
func (c *Controller) Errors() <-chan error                 { return c.errs }

func (c *Controller) Meta() *dsu.Meta {
	c.metaMu.RLock()
	defer c.metaMu.RUnlock()
	m := *c.meta
	return &m
}

// Report returns the most recently decoded input report, or nil if the
// device hasn't produced one yet.
func (c *Controller) Report() *dsu.NormalizedReport {
	c.reportMu.RLock()
	defer c.reportMu.RUnlock()
	if c.lastReport == nil {
		return nil
	}
	r := *c.lastReport
	return &r
}

// UpdateBattery sets the reported battery level, e.g. from periodic
// feature-report polling.
func (c *Controller) UpdateBattery(level uint8) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	c.meta.BatteryStatus = level
}

// Close stops the read loop and closes the underlying device handle.
// Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.dev.Close()
	})
}

func (c *Controller) readLoop() {
	buf := make([]byte, reportBufferSize)
	for {
		n, err := c.dev.Read(buf)
		if err != nil {
			select {
			case <-c.done:
			default:
				if !errors.Is(err, io.EOF) {
					c.emitErr(err)
				}
			}
			return
		}

		report, err := DecodeReport(buf[:n])
		if err != nil {
			c.emitErr(err)
			continue
		}
		report.MotionTimestampUS = uint64(time.Since(c.start).Microseconds())

		c.reportMu.Lock()
		c.lastReport = &report
		c.reportMu.Unlock()

		select {
		case c.reports <- report:
		case <-c.done:
			return
		default:
			// Backpressure from a stalled subscriber shouldn't block the
			// device read loop; drop the oldest queued report instead.
			select {
			case <-c.reports:
			default:
			}
			c.reports <- report
		}
	}
}

func (c *Controller) emitErr(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
