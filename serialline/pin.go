// Package serialline adapts a tty's DTR/CTS modem-control lines to
// opentherm.Pin, for bench rigs wired through a USB-serial adapter instead
// of a GPIO header.
package serialline

import (
	"sync"

	"github.com/jpraus/go-opentherm"
)

// Pin drives DTR as output and reads CTS as input on port.
type Pin struct {
	port   *Port
	invert bool

	mu     sync.Mutex
	cancel chan struct{}
}

// New wraps port. If invert is true, Read and Write flip the logical level,
// for a bench rig wired through a non-inverting transceiver.
func New(port *Port, invert bool) *Pin {
	return &Pin{port: port, invert: invert}
}

func (p *Pin) Read() opentherm.Level {
	lines, err := p.port.GetModemLines()
	if err != nil {
		return opentherm.Low
	}
	l := lines&TIOCM_CTS != 0
	if p.invert {
		l = !l
	}
	return opentherm.Level(l)
}

func (p *Pin) Write(l opentherm.Level) {
	if p.invert {
		l = !l
	}
	if l {
		p.port.EnableModemLines(TIOCM_DTR)
	} else {
		p.port.DisableModemLines(TIOCM_DTR)
	}
}

// EnableRisingEdgeNotify starts a goroutine blocked on WaitModemLines(CTS);
// it calls handler at most once, on the next transition that leaves CTS
// (or its inverse, under invert) high, then exits.
func (p *Pin) EnableRisingEdgeNotify(handler func()) {
	p.mu.Lock()
	p.cancelLocked()
	cancel := make(chan struct{})
	p.cancel = cancel
	p.mu.Unlock()

	go p.waitEdge(handler, cancel)
}

// DisableEdgeNotify cancels any pending wait started by
// EnableRisingEdgeNotify. Idempotent.
func (p *Pin) DisableEdgeNotify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

func (p *Pin) cancelLocked() {
	if p.cancel != nil {
		close(p.cancel)
		p.cancel = nil
	}
}

func (p *Pin) waitEdge(handler func(), cancel chan struct{}) {
	for {
		select {
		case <-cancel:
			return
		default:
		}

		done := make(chan error, 1)
		go func() { done <- p.port.WaitModemLines(TIOCM_CTS) }()
		select {
		case <-cancel:
			return
		case err := <-done:
			if err != nil {
				return
			}
		}

		if !bool(p.Read()) {
			continue // the line settled low again: a falling edge, keep waiting
		}

		p.mu.Lock()
		active := p.cancel == cancel
		if active {
			p.cancel = nil
		}
		p.mu.Unlock()
		if active {
			handler()
		}
		return
	}
}
