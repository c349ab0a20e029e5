package serialline

import (
	"fmt"
	"strings"
	"sync/atomic"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// ModemLine is a bitmask of RS-232 modem-control signals, read or set via
// the TIOCM* ioctls. serialline drives DTR as its output bit and reads CTS
// as its input bit — a bench rig needs neither a UART clock nor a null
// modem, just two GPIO-like wires on a DB9/USB-serial adapter.
type ModemLine int

const (
	TIOCM_LE  = ModemLine(0x001)
	TIOCM_DTR = ModemLine(0x002)
	TIOCM_RTS = ModemLine(0x004)
	TIOCM_ST  = ModemLine(0x008)
	TIOCM_SR  = ModemLine(0x010)
	TIOCM_CTS = ModemLine(0x020)
	TIOCM_CAR = ModemLine(0x040)
	TIOCM_CD  = TIOCM_CAR
	TIOCM_RNG = ModemLine(0x080)
	TIOCM_RI  = TIOCM_RNG
	TIOCM_DSR = ModemLine(0x100)
)

func (m ModemLine) String() string {
	flags := make([]string, 0, len(modemLineStrings))
	for i := 1; i <= int(TIOCM_DSR); i <<= 1 {
		if int(m)&i > 0 {
			if flag, ok := modemLineStrings[ModemLine(i)]; ok {
				flags = append(flags, flag)
			} else {
				flags = append(flags, fmt.Sprintf("Unknown(%x)", i))
			}
		}
	}
	return fmt.Sprintf("[%s]", strings.Join(flags, "|"))
}

var modemLineStrings = map[ModemLine]string{
	TIOCM_LE:  "LE",
	TIOCM_DTR: "DTR",
	TIOCM_RTS: "RTS",
	TIOCM_ST:  "ST",
	TIOCM_SR:  "SR",
	TIOCM_CTS: "CTS",
	TIOCM_CAR: "CAR",
	TIOCM_RNG: "RNG",
	TIOCM_DSR: "DSR",
}

// Port is an open tty, accessed only through its modem-control lines.
type Port struct {
	closed atomic.Bool
	f      int
}

// Open opens the named tty for modem-control-line access only: no read,
// write, or line-discipline configuration.
func Open(name string) (*Port, error) {
	fd, err := syscall.Open(name, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, wrapErr("open "+name, err)
	}
	return &Port{f: fd}, nil
}

// Close closes the underlying fd. Idempotent; returns ErrClosed if already
// closed.
func (p *Port) Close() error {
	if !p.closed.Swap(true) {
		fd := p.f
		p.f = -1
		return syscall.Close(fd)
	}
	return ErrClosed
}

// GetModemLines reads the current state of all modem-control lines.
func (p *Port) GetModemLines() (ModemLine, error) {
	var line ModemLine
	err := ioctl.Ioctl(uintptr(p.f), tiocmget, uintptr(unsafe.Pointer(&line)))
	return line, wrapErr("get modem lines", err)
}

// SetModemLines replaces the full modem-control line state.
func (p *Port) SetModemLines(line ModemLine) error {
	return wrapErr("set modem lines", ioctl.Ioctl(uintptr(p.f), tiocmset, uintptr(unsafe.Pointer(&line))))
}

// EnableModemLines sets the indicated bits, leaving the rest untouched.
func (p *Port) EnableModemLines(line ModemLine) error {
	return wrapErr("enable modem lines", ioctl.Ioctl(uintptr(p.f), tiocmbis, uintptr(unsafe.Pointer(&line))))
}

// DisableModemLines clears the indicated bits, leaving the rest untouched.
func (p *Port) DisableModemLines(line ModemLine) error {
	return wrapErr("disable modem lines", ioctl.Ioctl(uintptr(p.f), tiocmbic, uintptr(unsafe.Pointer(&line))))
}

// WaitModemLines blocks until any line in mask changes state. It is the
// TIOCMIWAIT equivalent of a GPIO edge wait: the kernel, not a poll loop,
// does the waiting.
func (p *Port) WaitModemLines(mask ModemLine) error {
	return wrapErr("wait modem lines", ioctl.Ioctl(uintptr(p.f), tiocmiwait, uintptr(mask)))
}
