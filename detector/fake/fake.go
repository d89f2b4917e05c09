// Package fake implements a scripted detector that replays canned batches.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hb9tf/radiacode/detector"
)

const SourceName = "fake"

// Connector hands out Device when the target matches, or always when
// Accept is empty.
type Connector struct {
	Device *Device
	// Accept lists the serial numbers and MAC addresses that resolve to Device.
	Accept []string
	// Connects counts calls to Connect.
	Connects int
}

func (c *Connector) Name() string {
	return SourceName
}

func (c *Connector) Connect(ctx context.Context, target detector.Target) (detector.Device, error) {
	c.Connects++
	if c.Device == nil {
		return nil, fmt.Errorf("no fake device attached: %w", detector.ErrDeviceNotFound)
	}
	if len(c.Accept) == 0 {
		return c.Device, nil
	}
	id := target.Serial
	if target.Bluetooth() {
		id = target.BluetoothMAC
	}
	for _, a := range c.Accept {
		if a == id {
			return c.Device, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", target, detector.ErrDeviceNotFound)
}

// Device returns Batches in order, then empty batches, or restarts from the
// first batch when Repeat is set.
type Device struct {
	Serial   string
	Firmware string
	Snapshot detector.Spectrum
	Batches  [][]detector.Sample
	Repeat   bool

	mu    sync.Mutex
	next  int
	reads int
}

// Demo returns a device emitting a plausible mix of samples at background
// level, used for dry runs.
func Demo() *Device {
	now := time.Now()
	return &Device{
		Serial:   "RC-102-000000",
		Firmware: "4.12 / 4.14",
		Snapshot: detector.Spectrum{Duration: time.Minute, A0: -7.2, A1: 2.41, A2: 0.0004, Counts: make([]int, 1024)},
		Batches: [][]detector.Sample{{
			detector.RealTime{DT: now, CountRate: 4.2, CountRateErr: 9.1, DoseRate: 0.00000011, DoseRateErr: 12},
			detector.DoseRateDB{DT: now, Count: 252, CountRate: 4.2, DoseRate: 0.00000012, DoseRateErr: 14},
			detector.Raw{DT: now, CountRate: 4, DoseRate: 0.0000001},
			detector.Rare{DT: now, Duration: time.Hour, Dose: 0.00000011, Temperature: 23.5, ChargeLevel: 87},
		}},
		Repeat: true,
	}
}

func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	return d.Serial, nil
}

func (d *Device) FirmwareVersion(ctx context.Context) (string, error) {
	return d.Firmware, nil
}

func (d *Device) Spectrum(ctx context.Context) (detector.Spectrum, error) {
	return d.Snapshot, nil
}

func (d *Device) DataBuf(ctx context.Context) ([]detector.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if len(d.Batches) == 0 {
		return nil, nil
	}
	if d.next >= len(d.Batches) {
		if !d.Repeat {
			return nil, nil
		}
		d.next = 0
	}
	batch := d.Batches[d.next]
	d.next++
	return batch, nil
}

// Reads reports how many times DataBuf was called.
func (d *Device) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *Device) Close() error {
	return nil
}
