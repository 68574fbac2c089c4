// Package gpiobutton drives the single call-for-service button over periph.io,
// debouncing edges the way a physical momentary switch needs.
package gpiobutton

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Event is a debounced button transition, timestamped at the moment the
// debounce timeout confirmed it.
type Event struct {
	Pressed bool
	At      time.Time
}

const debounceTimeout = 10 * time.Millisecond

// Open resolves pinName (e.g. "GPIO6") via the periph.io registry, configures
// it as a pulled-up, both-edges input, and starts a debouncing goroutine that
// sends confirmed transitions on ch until stop is closed.
func Open(pinName string, ch chan<- Event, stop <-chan struct{}) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gpiobutton: host init: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return fmt.Errorf("gpiobutton: no such pin %q", pinName)
	}
	in, ok := pin.(gpio.PinIn)
	if !ok {
		return fmt.Errorf("gpiobutton: pin %q is not an input", pinName)
	}
	if err := in.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return fmt.Errorf("gpiobutton: configure %q: %w", pinName, err)
	}

	go debounce(in, ch, stop)
	return nil
}

func debounce(pin gpio.PinIn, ch chan<- Event, stop <-chan struct{}) {
	pressed := false
	newPressed := false
	for {
		select {
		case <-stop:
			return
		default:
		}
		timeout := debounceTimeout
		if newPressed == pressed {
			timeout = -1
		}
		if pin.WaitForEdge(timeout) {
			newPressed = pin.Read() == gpio.Low
		} else if newPressed != pressed {
			pressed = newPressed
			ch <- Event{Pressed: pressed, At: time.Now()}
		}
	}
}
