package opentherm

import (
	"sync"
	"time"
)

// Mode is the Link's current state.
type Mode int

const (
	Idle Mode = iota
	Listen
	Read
	Received
	Write
	Sent
	ErrTimeout
	// ErrManchester exists for parity with the original firmware's state
	// enumeration; the decoder never transitions here (violations revert to
	// Listen locally instead), so it is unreachable in practice, same as the
	// original.
	ErrManchester
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "Idle"
	case Listen:
		return "Listen"
	case Read:
		return "Read"
	case Received:
		return "Received"
	case Write:
		return "Write"
	case Sent:
		return "Sent"
	case ErrTimeout:
		return "ErrTimeout"
	case ErrManchester:
		return "ErrManchester"
	default:
		return "Mode(?)"
	}
}

const stopBitPos = 33

// Stats counts outcomes since the Link was created. It has no equivalent in
// the AVR original (no room for counters there) but is cheap here and gives
// a caller visibility into locally-recovered errors that never surface
// through IsError().
type Stats struct {
	Received             uint64
	Sent                 uint64
	Timeouts             uint64
	ManchesterViolations uint64
	FramingErrors        uint64
}

// Link is the central OpenTherm state machine. One Link drives one line at a
// time; Listen/Send/Stop cancel whatever operation is currently active. The
// zero value is not usable — construct with New.
type Link struct {
	tick TickSource

	mu           sync.Mutex
	mode         Mode
	pin          Pin
	data         uint32
	bitPos       int
	capture      uint16
	clock        int
	active       bool
	timeoutTicks int32
	callback     func()
	generation   uint64
	stats        Stats
}

// New creates a Link in Idle, driven by the given tick source.
func New(tick TickSource) *Link {
	return &Link{tick: tick, mode: Idle}
}

// Listen arms pin for rising-edge notification and, if timeout > 0, starts a
// countdown; reaching zero without an edge moves to ErrTimeout. timeout <= 0
// means no timeout. Any in-flight Listen/Send is cancelled first.
func (l *Link) Listen(pin Pin, timeout time.Duration, callback func()) {
	l.mu.Lock()
	l.cancelLocked()
	l.pin = pin
	l.callback = callback
	l.mode = Listen
	l.active = true
	l.data = 0
	l.bitPos = 0
	if timeout > 0 {
		ticks := int32(timeout / time.Millisecond)
		if ticks <= 0 {
			ticks = 1
		}
		l.timeoutTicks = ticks
	} else {
		l.timeoutTicks = -1
	}
	gen := l.generation
	withTimeout := l.timeoutTicks > 0
	l.mu.Unlock()

	pin.EnableRisingEdgeNotify(func() { l.onEdge(gen) })
	if withTimeout {
		l.tick.Start(TimeoutRate, func() { l.onTimeoutTick(gen) })
	}
}

// Send packs frame, corrects its parity, and writes it to pin under the
// 2.08 kHz write timer. Any in-flight Listen/Send is cancelled first.
func (l *Link) Send(pin Pin, frame Frame, callback func()) {
	l.mu.Lock()
	l.cancelLocked()
	l.pin = pin
	l.callback = callback
	l.data = Pack(frame)
	l.bitPos = stopBitPos
	l.clock = 1
	l.mode = Write
	l.active = true
	gen := l.generation
	l.mu.Unlock()

	l.tick.Start(WriteRate, func() { l.onWriteTick(gen) })
}

// Stop disarms any edge notify and timer, and returns to Idle. Idempotent.
func (l *Link) Stop() {
	l.mu.Lock()
	l.cancelLocked()
	l.mode = Idle
	l.pin = nil
	l.mu.Unlock()
}

// cancelLocked disarms whatever is currently active and invalidates any
// tick/edge callback already in flight for the previous operation, via the
// generation counter. Must be called with l.mu held.
func (l *Link) cancelLocked() {
	if l.active {
		if l.pin != nil {
			l.pin.DisableEdgeNotify()
		}
		l.tick.Stop()
		l.active = false
	}
	l.generation++
}

// HasMessage reports whether a frame has been received and is waiting in
// GetMessage.
func (l *Link) HasMessage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode == Received
}

// IsSent reports whether the last Send finished writing the frame.
func (l *Link) IsSent() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode == Sent
}

// IsIdle reports whether the Link is in Idle: newly created or stopped with
// Stop. It is false in every other mode, including Received and Sent.
func (l *Link) IsIdle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode == Idle
}

// IsError reports whether the last Listen ended in a timeout. Locally
// recovered Manchester/parity errors never reach this.
func (l *Link) IsError() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode == ErrTimeout
}

// Mode returns the Link's current state.
func (l *Link) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Stats returns a snapshot of outcome counters since creation.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// GetMessage returns the received frame and true if mode is Received, or the
// zero Frame and false otherwise. Repeatable until Stop is called.
func (l *Link) GetMessage() (Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode != Received {
		return Frame{}, false
	}
	return Unpack(l.data), true
}

// onEdge is armed once per Listen via Pin.EnableRisingEdgeNotify and fires on
// the line's first rising edge, entering Read.
func (l *Link) onEdge(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.mode != Listen {
		l.mu.Unlock()
		return
	}
	l.tick.Stop() // the timeout countdown, if any, pauses while reading
	l.data = 0
	l.bitPos = 0
	l.mode = Read
	l.capture = 1 // models the start bit's level as already sampled
	l.clock = 1
	l.mu.Unlock()

	l.tick.Start(ReadRate, func() { l.onReadTick(gen) })
}

// onTimeoutTick fires at 1 kHz while Listen is armed with a timeout. On
// expiry it stops the line and the timer, same as the original firmware's
// MODE_LISTEN branch on the MODE_ERROR_TOUT transition, which calls only
// _stop(); the Listen callback is never invoked here, only on a successful
// receive.
func (l *Link) onTimeoutTick(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.mode != Listen {
		l.mu.Unlock()
		return
	}
	if l.timeoutTicks > 0 {
		l.timeoutTicks--
	}
	var pin Pin
	expired := l.timeoutTicks == 0
	if expired {
		l.mode = ErrTimeout
		l.active = false
		l.stats.Timeouts++
		l.callback = nil
		pin = l.pin
	}
	l.mu.Unlock()

	if expired {
		if pin != nil {
			pin.DisableEdgeNotify()
		}
		l.tick.Stop()
	}
}

// onReadTick fires at 5 kHz during Read, implementing the Manchester
// decoder: on each transition it disambiguates a mid-cell edge from a
// cell-boundary edge using the clock cursor and how many ticks elapsed since
// the last one. It commits a data bit on a mid-cell edge or on a late edge; a
// cell-boundary edge only moves the clock cursor and carries no bit.
func (l *Link) onReadTick(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.mode != Read {
		l.mu.Unlock()
		return
	}

	var v uint16
	if l.pin.Read() {
		v = 1
	}
	last := l.capture & 1

	var revert, received bool
	var cb func()

	if v != last {
		late := l.capture > 0x0F
		switch {
		case l.clock == 1 && late:
			l.stats.ManchesterViolations++
			revert = true
		case l.clock == 1 || late:
			if l.bitPos == stopBitPos {
				if last == 1 && EvenParity(l.data) {
					received = true
				} else {
					l.stats.FramingErrors++
					revert = true
				}
			} else {
				l.data = (l.data << 1) | uint32(last)
				l.bitPos++
				l.clock = 0
			}
		default:
			l.clock = 1
		}
		l.capture = 1
	} else if l.capture > 0xFF {
		l.stats.ManchesterViolations++
		revert = true
	}
	l.capture = (l.capture << 1) | v

	switch {
	case received:
		l.mode = Received
		l.active = false
		l.stats.Received++
		cb = l.callback
		l.callback = nil
	case revert:
		l.mode = Listen
		l.data = 0
		l.bitPos = 0
		l.clock = 1
	}
	pin := l.pin
	timeoutTicks := l.timeoutTicks
	l.mu.Unlock()

	switch {
	case received:
		l.tick.Stop()
		pin.DisableEdgeNotify()
		if cb != nil {
			cb()
		}
	case revert:
		l.tick.Stop()
		pin.EnableRisingEdgeNotify(func() { l.onEdge(gen) })
		if timeoutTicks > 0 {
			l.tick.Start(TimeoutRate, func() { l.onTimeoutTick(gen) })
		}
	}
}

// onWriteTick fires at 2.08 kHz during Write, implementing the Manchester
// encoder: each bit cell is written as two half-cells, the bit's inverse
// followed by the bit itself, so the line always transitions mid-cell.
func (l *Link) onWriteTick(gen uint64) {
	l.mu.Lock()
	if gen != l.generation || l.mode != Write {
		l.mu.Unlock()
		return
	}

	var bit Level
	if l.bitPos == stopBitPos || l.bitPos == 0 {
		bit = High
	} else {
		bit = Level((l.data>>uint(l.bitPos-1))&1 == 1)
	}
	if l.clock == 1 {
		l.pin.Write(!bit)
	} else {
		l.pin.Write(bit)
	}

	done := false
	if l.clock == 0 {
		if l.bitPos == 0 {
			done = true
		} else {
			l.bitPos--
		}
		l.clock = 1
	} else {
		l.clock = 0
	}

	var cb func()
	if done {
		l.mode = Sent
		l.active = false
		l.stats.Sent++
		cb = l.callback
		l.callback = nil
	}
	l.mu.Unlock()

	if done {
		l.tick.Stop()
		if cb != nil {
			cb()
		}
	}
}
