package dsu

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	reports chan NormalizedReport
	errs    chan error
	meta    Meta

	mu     sync.Mutex
	closed bool
}

func newFakeController(padID uint8) *fakeController {
	return &fakeController{
		reports: make(chan NormalizedReport, 8),
		errs:    make(chan error, 8),
		meta:    Meta{PadID: padID, State: PadConnected},
	}
}

func (f *fakeController) Reports() <-chan NormalizedReport { return f.reports }
func (f *fakeController) Errors() <-chan error              { return f.errs }
func (f *fakeController) Meta() *Meta                        { m := f.meta; return &m }
func (f *fakeController) Report() *NormalizedReport         { return nil }
func (f *fakeController) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeController) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestSlotTable_AddControllerUsesLowestFreeSlot(t *testing.T) {
	st := NewSlotTable()
	c0 := newFakeController(0)
	idx, err := st.AddController(c0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, st.Occupied())
}

func TestSlotTable_FourthControllerFillsLastSlot_FifthFails(t *testing.T) {
	st := NewSlotTable()
	for i := 0; i < NumSlots; i++ {
		_, err := st.AddController(newFakeController(uint8(i)), nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, NumSlots, st.Occupied())

	_, err := st.AddController(newFakeController(9), nil, nil)
	assert.ErrorIs(t, err, ErrSlotsFull)
}

func TestSlotTable_RemoveSlotZeroSucceeds(t *testing.T) {
	st := NewSlotTable()
	c := newFakeController(0)
	idx, err := st.AddController(c, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	err = st.RemoveController(0)
	assert.NoError(t, err)
	assert.Nil(t, st.Get(0))
	assert.Eventually(t, c.isClosed, time.Second, time.Millisecond)
}

func TestSlotTable_RemoveOutOfRangeIndexErrors(t *testing.T) {
	st := NewSlotTable()
	assert.Error(t, st.RemoveController(-1))
	assert.Error(t, st.RemoveController(NumSlots))
}

func TestSlotTable_RemoveEmptySlotIsNoop(t *testing.T) {
	st := NewSlotTable()
	assert.NoError(t, st.RemoveController(1))
}

func TestSlotTable_ReportsAreDeliveredInOrderPerSlot(t *testing.T) {
	st := NewSlotTable()
	c := newFakeController(0)

	var mu sync.Mutex
	var got []uint32
	done := make(chan struct{})

	onReport := func(padID uint8, r NormalizedReport) {
		mu.Lock()
		got = append(got, r.PacketCounter)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	}

	_, err := st.AddController(c, onReport, nil)
	require.NoError(t, err)

	c.reports <- NormalizedReport{PacketCounter: 1}
	c.reports <- NormalizedReport{PacketCounter: 2}
	c.reports <- NormalizedReport{PacketCounter: 3}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reports")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint32{1, 2, 3}, got)
}

func TestSlotTable_ForwardsControllerErrors(t *testing.T) {
	st := NewSlotTable()
	c := newFakeController(0)

	errCh := make(chan error, 1)
	_, err := st.AddController(c, nil, func(e error) { errCh <- e })
	require.NoError(t, err)

	c.errs <- assert.AnError
	select {
	case got := <-errCh:
		assert.Equal(t, assert.AnError, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded error")
	}
}

func TestSlotTable_MetaAtReflectsOccupant(t *testing.T) {
	st := NewSlotTable()
	c := newFakeController(2)
	_, err := st.AddController(c, nil, nil)
	require.NoError(t, err)

	meta := st.MetaAt(0)
	require.NotNil(t, meta)
	assert.Equal(t, uint8(2), meta.PadID)

	assert.Nil(t, st.MetaAt(1))
	assert.Nil(t, st.MetaAt(-1))
	assert.Nil(t, st.MetaAt(NumSlots))
}

func TestSlotTable_ClearRemovesEveryController(t *testing.T) {
	st := NewSlotTable()
	c0, c1 := newFakeController(0), newFakeController(1)
	_, _ = st.AddController(c0, nil, nil)
	_, _ = st.AddController(c1, nil, nil)

	st.Clear()
	assert.Equal(t, 0, st.Occupied())
	assert.Eventually(t, c0.isClosed, time.Second, time.Millisecond)
	assert.Eventually(t, c1.isClosed, time.Second, time.Millisecond)
}
