package cursor

import (
	"errors"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"

	"github.com/Velaseriat/vp-link/internal/frame"
	"github.com/Velaseriat/vp-link/internal/logger"
)

// How long the poller sleeps between non-blocking sweeps over the
// device set.
const relPollInterval = 2 * time.Millisecond

// RelativeDevices sums raw relative-motion deltas from every
// relative-capable input device. A background goroutine drains the
// devices with non-blocking reads; Sample drains the accumulator
// (read-and-zero) and applies it to the last resolved position. Lowest
// priority: deltas drift, but they work when nothing else does.
type RelativeDevices struct {
	devices []*evdev.InputDevice

	mu sync.Mutex
	dx float64
	dy float64
}

// NewRelativeDevices scans /dev/input for devices reporting relative
// axes and starts the poller. Failing to find any is reported as an
// error so the caller can skip the source; partial open failures are
// only logged.
func NewRelativeDevices() (*RelativeDevices, error) {
	log := logger.WithComponent("cursor")

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	var devices []*evdev.InputDevice
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			log.Debug().Err(err).Str("path", p.Path).Msg("Skipping input device")
			continue
		}
		if !hasRelativeAxes(dev) {
			dev.Close()
			continue
		}
		if err := dev.NonBlock(); err != nil {
			log.Debug().Err(err).Str("path", p.Path).Msg("Cannot switch device to non-blocking reads")
			dev.Close()
			continue
		}
		log.Info().Str("path", p.Path).Str("name", p.Name).Msg("Tracking relative input device")
		devices = append(devices, dev)
	}
	if len(devices) == 0 {
		return nil, errors.New("no relative pointer devices found in /dev/input")
	}

	r := &RelativeDevices{devices: devices}
	go r.poll()
	return r, nil
}

func hasRelativeAxes(dev *evdev.InputDevice) bool {
	for _, t := range dev.CapableTypes() {
		if t == evdev.EV_REL {
			return true
		}
	}
	return false
}

func (r *RelativeDevices) poll() {
	for {
		var dx, dy float64
		for _, dev := range r.devices {
			for {
				ev, err := dev.ReadOne()
				if err != nil {
					break
				}
				if ev.Type != evdev.EV_REL {
					continue
				}
				switch ev.Code {
				case evdev.REL_X:
					dx += float64(ev.Value)
				case evdev.REL_Y:
					dy += float64(ev.Value)
				}
			}
		}
		if dx != 0 || dy != 0 {
			r.mu.Lock()
			r.dx += dx
			r.dy += dy
			r.mu.Unlock()
		}
		time.Sleep(relPollInterval)
	}
}

func (r *RelativeDevices) Name() string { return "relative-devices" }

func (r *RelativeDevices) Sample(_ *frame.Sample, lastX, lastY float64) (float64, float64, bool) {
	r.mu.Lock()
	dx, dy := r.dx, r.dy
	r.dx, r.dy = 0, 0
	r.mu.Unlock()
	return lastX + dx, lastY + dy, true
}
