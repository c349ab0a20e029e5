// Package gpioline adapts a periph.io GPIO pin to opentherm.Pin, so the
// core Link can drive a real OpenTherm transceiver circuit on a header pin
// instead of a bench serial cable.
package gpioline

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/jpraus/go-opentherm"
)

// Pin wraps a periph.io gpio.PinIO as an opentherm.Pin. The underlying pin
// must support both Out and In(pull, edge) — most periph.io drivers do.
type Pin struct {
	pin    gpio.PinIO
	invert bool

	mu      sync.Mutex
	handler func()
	cancel  chan struct{}
}

// New wraps pin. If invert is true, Read and Write flip the logical level,
// accommodating a non-inverting line driver.
func New(pin gpio.PinIO, invert bool) (*Pin, error) {
	edge := gpio.RisingEdge
	if invert {
		edge = gpio.FallingEdge
	}
	if err := pin.In(gpio.PullDown, edge); err != nil {
		return nil, err
	}
	return &Pin{pin: pin, invert: invert}, nil
}

func (p *Pin) Read() opentherm.Level {
	l := p.pin.Read() == gpio.High
	if p.invert {
		l = !l
	}
	return opentherm.Level(l)
}

func (p *Pin) Write(l opentherm.Level) {
	if p.invert {
		l = !l
	}
	level := gpio.Low
	if l {
		level = gpio.High
	}
	_ = p.pin.Out(level)
}

// EnableRisingEdgeNotify starts a goroutine blocked on WaitForEdge; it calls
// handler at most once, on the first edge after which the logical level
// (inverted if invert is set) reads high, then exits. Edges that leave it low
// are skipped. A prior pending wait is cancelled first.
func (p *Pin) EnableRisingEdgeNotify(handler func()) {
	p.mu.Lock()
	p.cancelLocked()
	cancel := make(chan struct{})
	p.handler = handler
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
		p.handler = nil
	}
}

func (p *Pin) waitEdge(handler func(), cancel chan struct{}) {
	for {
		select {
		case <-cancel:
			return
		default:
		}
		if p.pin.WaitForEdge(50 * time.Millisecond) {
			l := p.pin.Read() == gpio.High
			if p.invert {
				l = !l
			}
			if !l {
				continue // the invert option can turn a real falling edge into this wait's "rising"
			}
			p.mu.Lock()
			active := p.cancel == cancel
			if active {
				p.cancel = nil
				p.handler = nil
			}
			p.mu.Unlock()
			if active {
				handler()
			}
			return
		}
	}
}
