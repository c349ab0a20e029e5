package opentherm

// Rate selects one of the three periodic rates the Link drives its sampler
// or writer at. Only one rate may be active on a given TickSource at a time.
type Rate int

const (
	// ReadRate samples the line at ~5 kHz (200 µs): about 2.5 samples per
	// 500 µs Manchester half-cell, 5 per bit.
	ReadRate Rate = iota
	// WriteRate toggles the line at ~2.08 kHz: twice per bit cell, slightly
	// fast so the mid-cell transition lands cleanly within the cell.
	WriteRate
	// TimeoutRate decrements the Listen timeout at ~1 kHz.
	TimeoutRate
)

func (r Rate) String() string {
	switch r {
	case ReadRate:
		return "ReadRate"
	case WriteRate:
		return "WriteRate"
	case TimeoutRate:
		return "TimeoutRate"
	default:
		return "Rate(?)"
	}
}

// TickSource provides a periodic callback at one of the three rates above.
// The concrete tick source (a hardware timer, a software timerfd loop, a
// test double) is an external collaborator; linuxtick provides a reference
// implementation built on timerfd + epoll for low-jitter delivery.
type TickSource interface {
	// Start arms the source at rate, invoking onTick on every period until
	// Stop is called. Calling Start again implicitly stops any prior tick.
	Start(rate Rate, onTick func()) error
	// Stop disarms the source. Idempotent.
	Stop()
}
