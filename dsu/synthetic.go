package dsu

import (
	"sync"
	"time"
)

// syntheticReportInterval is how often a SyntheticController emits an idle
// report; slow enough not to spam a test harness's logs. Reports do not
// renew client subscriptions; only client requests do.
const syntheticReportInterval = time.Second

// SyntheticController is a Controller with no hardware behind it: it emits
// a steady stream of neutral, all-buttons-released reports on a timer.
// It exists for the control API's slots.attachSynthetic command, so a
// tray app or test harness can occupy a slot and exercise the DSU fan-out
// path without a real Steam Controller/Deck attached.
type SyntheticController struct {
	reports chan NormalizedReport
	errs    chan error
	meta    Meta

	reportMu   sync.Mutex
	lastReport *NormalizedReport

	closeOnce sync.Once
	done      chan struct{}
}

// NewSyntheticController builds a SyntheticController and starts its
// report timer immediately.
func NewSyntheticController() *SyntheticController {
	c := &SyntheticController{
		reports: make(chan NormalizedReport, 1),
		errs:    make(chan error),
		meta: Meta{
			State:          PadConnected,
			Model:          ModelFull,
			ConnectionType: ConnUSB,
			IsActive:       true,
		},
		done: make(chan struct{}),
	}
	go c.emitLoop()
	return c
}

func (c *SyntheticController) emitLoop() {
	ticker := time.NewTicker(syntheticReportInterval)
	defer ticker.Stop()

	var counter uint32
	for {
		select {
		case <-ticker.C:
			counter++
			report := NormalizedReport{PacketCounter: counter}

			c.reportMu.Lock()
			c.lastReport = &report
			c.reportMu.Unlock()

			select {
			case c.reports <- report:
			case <-c.done:
				return
			default:
				// A stalled subscriber shouldn't stop the timer; the next
				// tick just replaces this one.
			}
		case <-c.done:
			return
		}
	}
}

func (c *SyntheticController) Reports() <-chan NormalizedReport { return c.reports }
func (c *SyntheticController) Errors() <-chan error             { return c.errs }

func (c *SyntheticController) Meta() *Meta {
	m := c.meta
	return &m
}

// Report returns the most recently emitted synthetic report, or nil before
// the first tick fires.
func (c *SyntheticController) Report() *NormalizedReport {
	c.reportMu.Lock()
	defer c.reportMu.Unlock()
	if c.lastReport == nil {
		return nil
	}
	r := *c.lastReport
	return &r
}

// Close stops the report timer. Safe to call more than once.
func (c *SyntheticController) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
