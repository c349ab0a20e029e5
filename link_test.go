package opentherm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLine is a single simulated wire shared by a sender pin and a
// receiver fakePin, the way a real OpenTherm master and slave share one
// line. Writes that cross Low->High fire the registered edge handler
// synchronously and one-shot, mirroring a real rising-edge interrupt.
type fakeLine struct {
	level  Level
	onEdge func()
}

type fakePin struct{ line *fakeLine }

func (p fakePin) Read() Level { return p.line.level }

func (p fakePin) Write(l Level) {
	prev := p.line.level
	p.line.level = l
	if prev == Low && l == High && p.line.onEdge != nil {
		h := p.line.onEdge
		p.line.onEdge = nil
		h()
	}
}

func (p fakePin) EnableRisingEdgeNotify(h func()) { p.line.onEdge = h }
func (p fakePin) DisableEdgeNotify()              { p.line.onEdge = nil }

// invertingPin drives the line through an inverting driver: the level put on
// the wire is the inverse of the level written. The Link's encoder and
// decoder use opposite Manchester polarity, so a loopback needs one inversion
// between them, as the transmitter of a real interface circuit provides.
type invertingPin struct{ fakePin }

func (p invertingPin) Write(l Level) { p.fakePin.Write(!l) }

// fakeTick is a TickSource driven manually by tests via fire(), standing in
// for a hardware timer or linuxtick.Source.
type fakeTick struct {
	onTick  func()
	running bool
}

func (s *fakeTick) Start(rate Rate, onTick func()) error {
	s.onTick = onTick
	s.running = true
	return nil
}

func (s *fakeTick) Stop() {
	s.running = false
	s.onTick = nil
}

func (s *fakeTick) fire() {
	if s.running && s.onTick != nil {
		s.onTick()
	}
}

func TestLinkSendListenRoundTrip(t *testing.T) {
	line := &fakeLine{level: Low}

	writeTick := &fakeTick{}
	sender := New(writeTick)

	readTick := &fakeTick{}
	receiver := New(readTick)

	var gotFrame Frame
	var gotOK bool
	receiver.Listen(fakePin{line}, 0, func() {
		gotFrame, gotOK = receiver.GetMessage()
	})
	require.True(t, receiver.Mode() == Listen)

	want := Frame{Type: ReadAck, ID: MsgIDRoomTemp, ValueHB: 0x14, ValueLB: 0x80}
	sendDone := false
	sender.Send(invertingPin{fakePin{line}}, want, func() { sendDone = true })

	// Drive the writer one half-cell at a time; oversample the reader
	// between each writer step, approximating the ~2.4:1 sample-rate ratio
	// between the 5 kHz read clock and the 2.08 kHz write clock.
	for i := 0; i < 200 && !sender.IsSent(); i++ {
		writeTick.fire()
		for j := 0; j < 3; j++ {
			readTick.fire()
		}
	}
	require.True(t, sendDone, "send callback never fired")
	assert.True(t, sender.IsSent())

	// Flush a few more read ticks so a stop bit landing right at the last
	// write tick still has time to be sampled and committed.
	for i := 0; i < 20 && !receiver.HasMessage(); i++ {
		readTick.fire()
	}

	require.True(t, gotOK, "receive callback never fired")
	assert.Equal(t, want, gotFrame)
	assert.Equal(t, uint64(1), receiver.Stats().Received)
	assert.Equal(t, uint64(1), sender.Stats().Sent)
}

func TestLinkListenTimeout(t *testing.T) {
	line := &fakeLine{level: Low}
	tick := &fakeTick{}
	link := New(tick)

	called := false
	link.Listen(fakePin{line}, 5*time.Millisecond, func() { called = true })

	for i := 0; i < 4; i++ {
		tick.fire()
		assert.False(t, link.IsError())
	}
	tick.fire() // 5th tick: timeout expires
	assert.True(t, link.IsError())
	assert.False(t, called, "timeout must not invoke the Listen callback, only a successful receive does")
}

func TestLinkListenNoTimeoutNeverErrors(t *testing.T) {
	line := &fakeLine{level: Low}
	tick := &fakeTick{}
	link := New(tick)
	link.Listen(fakePin{line}, 0, func() {})
	assert.False(t, tick.running, "no timer should be armed without a timeout")
}

func TestLinkStopReturnsIdleAndDisarms(t *testing.T) {
	line := &fakeLine{level: Low}
	tick := &fakeTick{}
	link := New(tick)
	link.Listen(fakePin{line}, 10*time.Millisecond, func() {})
	require.True(t, tick.running)
	staleTimeoutTick := tick.onTick

	link.Stop()
	assert.True(t, link.IsIdle())
	assert.False(t, tick.running)
	assert.Nil(t, line.onEdge)

	// A timeout tick queued before Stop, delivered late, must not resurrect
	// the stopped operation.
	staleTimeoutTick()
	assert.True(t, link.IsIdle())
}

func TestLinkSendCancelsPriorListen(t *testing.T) {
	line := &fakeLine{level: Low}
	tick := &fakeTick{}
	link := New(tick)

	link.Listen(fakePin{line}, 10*time.Millisecond, func() { t.Fatal("stale Listen callback fired") })
	staleTimeoutTick := tick.onTick // the MODE_LISTEN timeout callback, pre-cancel

	link.Send(fakePin{line}, Frame{}, func() {})
	assert.Equal(t, Write, link.Mode())

	// A timeout tick from the superseded Listen, delivered late (e.g. it was
	// already queued on a real timer when Send ran), must be a no-op: the
	// generation counter it closed over no longer matches.
	for i := 0; i < 20; i++ {
		staleTimeoutTick()
	}
	assert.Equal(t, Write, link.Mode())
}

func TestGetMessageOnlyValidWhenReceived(t *testing.T) {
	line := &fakeLine{level: Low}
	tick := &fakeTick{}
	link := New(tick)
	_, ok := link.GetMessage()
	assert.False(t, ok)

	link.Listen(fakePin{line}, 0, func() {})
	_, ok = link.GetMessage()
	assert.False(t, ok)
}
