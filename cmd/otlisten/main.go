// Command otlisten listens for OpenTherm frames on a GPIO line and logs
// each one it receives.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/jpraus/go-opentherm"
	"github.com/jpraus/go-opentherm/gpioline"
	"github.com/jpraus/go-opentherm/linuxtick"
)

func main() {
	pinName := flag.String("pin", "GPIO17", "GPIO pin name the OpenTherm line is wired to")
	invert := flag.Bool("invert", false, "invert line polarity for a non-inverting driver")
	timeout := flag.Duration("timeout", 5*time.Second, "per-frame listen timeout, 0 disables")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if _, err := host.Init(); err != nil {
		log.Error("periph host init failed", "err", err)
		os.Exit(1)
	}

	hwPin := gpioreg.ByName(*pinName)
	if hwPin == nil {
		log.Error("pin not found", "pin", *pinName)
		os.Exit(1)
	}
	pin, err := gpioline.New(hwPin, *invert)
	if err != nil {
		log.Error("pin setup failed", "pin", *pinName, "err", err)
		os.Exit(1)
	}

	tick := linuxtick.New()
	link := opentherm.New(tick)

	log.Info("listening", "pin", *pinName, "invert", *invert, "timeout", *timeout)
	for {
		if frame, ok := awaitFrame(link, pin, *timeout); ok {
			log.Info("frame received",
				"type", frame.Type,
				"id", frame.ID,
				"valueHB", frame.ValueHB,
				"valueLB", frame.ValueLB,
			)
		} else {
			log.Warn("listen timed out")
		}
	}
}

// awaitFrame arms a single Listen and blocks until it either receives a
// frame or times out. The Listen callback fires only on a successful
// receive, never on timeout, so a timed-out Listen is detected by polling
// IsError instead of waiting on done.
func awaitFrame(link *opentherm.Link, pin opentherm.Pin, timeout time.Duration) (opentherm.Frame, bool) {
	done := make(chan struct{})
	link.Listen(pin, timeout, func() { close(done) })

	for !link.IsError() {
		select {
		case <-done:
			return link.GetMessage()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return opentherm.Frame{}, false
}
