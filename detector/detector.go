package detector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrDeviceNotFound = errors.New("device not found")

// Sample is one record read from the detector's data buffer.
// It is implemented by RealTime, DoseRateDB, Raw, Rare, Event and Unknown only.
type Sample interface {
	Kind() string
	sample()
}

type RealTime struct {
	DT            time.Time
	CountRate     float64
	CountRateErr  float64
	DoseRate      float64
	DoseRateErr   float64
	Flags         int
	RealTimeFlags int
}

type DoseRateDB struct {
	DT          time.Time
	Count       int
	CountRate   float64
	DoseRate    float64
	DoseRateErr float64
	Flags       int
}

type Raw struct {
	DT        time.Time
	CountRate float64
	DoseRate  float64
}

// Rare is emitted a few times per minute. Dose carries the same quantity the
// other variants call DoseRate.
type Rare struct {
	DT          time.Time
	Duration    time.Duration
	Dose        float64
	Temperature float64
	ChargeLevel float64
	Flags       int
}

type Event struct {
	DT      time.Time
	EventID int
	Param1  int
	Flags   int
}

// Unknown stands in for records the driver could not map to a known variant.
type Unknown struct {
	Type string
}

func (RealTime) Kind() string   { return "realtime" }
func (DoseRateDB) Kind() string { return "doseratedb" }
func (Raw) Kind() string        { return "raw" }
func (Rare) Kind() string       { return "rare" }
func (Event) Kind() string      { return "event" }
func (Unknown) Kind() string    { return "unknown" }

func (RealTime) sample()   {}
func (DoseRateDB) sample() {}
func (Raw) sample()        {}
func (Rare) sample()       {}
func (Event) sample()      {}
func (Unknown) sample()    {}

// Kinds lists the names returned by Sample.Kind.
var Kinds = []string{"realtime", "doseratedb", "raw", "rare", "event", "unknown"}

// Target selects the transport. Bluetooth is used whenever BluetoothMAC is
// set, otherwise USB, optionally pinned to Serial.
type Target struct {
	Serial       string
	BluetoothMAC string
}

func (t Target) Bluetooth() bool {
	return t.BluetoothMAC != ""
}

func (t Target) String() string {
	if t.Bluetooth() {
		return fmt.Sprintf("Bluetooth (MAC address: %s)", t.BluetoothMAC)
	}
	if t.Serial != "" {
		return fmt.Sprintf("USB (serial number: %s)", t.Serial)
	}
	return "USB"
}

// Spectrum is a one-shot snapshot of the accumulated spectrum. Energy of
// channel i is A0 + A1*i + A2*i*i keV.
type Spectrum struct {
	Duration time.Duration
	A0       float64
	A1       float64
	A2       float64
	Counts   []int
}

func (s Spectrum) String() string {
	total := 0
	for _, c := range s.Counts {
		total += c
	}
	return fmt.Sprintf("Spectrum(duration=%s, a0=%g, a1=%g, a2=%g, channels=%d, total=%d)", s.Duration, s.A0, s.A1, s.A2, len(s.Counts), total)
}

type Connector interface {
	Name() string
	// Connect returns an error wrapping ErrDeviceNotFound when no detector
	// answers on the selected transport.
	Connect(ctx context.Context, target Target) (Device, error)
}

type Device interface {
	SerialNumber(ctx context.Context) (string, error)
	FirmwareVersion(ctx context.Context) (string, error)
	Spectrum(ctx context.Context) (Spectrum, error)
	// DataBuf returns the samples buffered on the device since the previous
	// call. Each call returns a finite batch and can be repeated indefinitely.
	DataBuf(ctx context.Context) ([]Sample, error)
	Close() error
}
