// Package linuxtick provides an opentherm.TickSource built on Linux
// timerfd, for low-jitter periodic dispatch without a hardware timer.
package linuxtick

import (
	"fmt"
	"sync"
	"time"

	"github.com/daedaluz/fdev/poll"
	"golang.org/x/sys/unix"

	"github.com/jpraus/go-opentherm"
)

var periods = map[opentherm.Rate]time.Duration{
	opentherm.ReadRate:    200 * time.Microsecond,
	opentherm.WriteRate:   480 * time.Microsecond,
	opentherm.TimeoutRate: time.Millisecond,
}

// Source is a TickSource backed by a single timerfd. Start/Stop may be
// called repeatedly and from any goroutine; only one period runs at a time.
type Source struct {
	mu   sync.Mutex
	fd   int
	stop chan struct{}
	done chan struct{}
}

// New creates an idle Source. Call Start to arm it.
func New() *Source {
	return &Source{fd: -1}
}

// Start arms the timer at rate's configured period, invoking onTick on
// every expiry until Stop is called. A prior running timer is stopped
// first.
func (s *Source) Start(rate opentherm.Rate, onTick func()) error {
	period, ok := periods[rate]
	if !ok {
		return fmt.Errorf("linuxtick: unknown rate %v", rate)
	}

	s.mu.Lock()
	s.stopLocked()

	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("linuxtick: timerfd_create: %w", err)
	}
	spec := &unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		unix.Close(fd)
		s.mu.Unlock()
		return fmt.Errorf("linuxtick: timerfd_settime: %w", err)
	}

	s.fd = fd
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop = stop
	s.done = done
	s.mu.Unlock()

	go s.run(fd, onTick, stop, done)
	return nil
}

// Stop disarms the timer. Non-blocking: it does not wait for the run
// goroutine to exit, so it is safe to call from inside onTick itself.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Source) stopLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
		s.done = nil
	}
	s.fd = -1
}

func (s *Source) run(fd int, onTick func(), stop, done chan struct{}) {
	defer unix.Close(fd)
	defer close(done)
	buf := make([]byte, 8)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := poll.WaitInput(fd, 2*time.Second); err != nil {
			continue
		}
		if _, err := unix.Read(fd, buf); err != nil {
			continue
		}
		select {
		case <-stop:
			return
		default:
		}
		onTick()
	}
}
