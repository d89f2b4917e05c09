// Package bridge talks to a RadiaCode detector through an external helper
// tool that wraps the vendor SDK and prints JSON to stdout.
//
// The helper is invoked once per operation:
//
//	<cmd> [--serial S | --bluetooth-mac M] info|spectrum|databuf
//
// and exits with status 3 when no device answers.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/hb9tf/radiacode/detector"
)

const (
	SourceName    = "bridge"
	DefaultHelper = "radiacode-bridge"

	exitDeviceNotFound = 3
	maxLineSize        = 1 << 20 // longest data buffer record
)

var dtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

type Connector struct {
	// Helper is the helper executable, DefaultHelper when empty.
	Helper string
}

func (c Connector) Name() string {
	return SourceName
}

func (c Connector) Connect(ctx context.Context, target detector.Target) (detector.Device, error) {
	helper := c.Helper
	if helper == "" {
		helper = DefaultHelper
	}
	d := &Device{helper: helper, target: target}
	info, err := d.info(ctx)
	if err != nil {
		return nil, err
	}
	d.serial, d.firmware = info.SerialNumber, info.FirmwareVersion
	return d, nil
}

type Device struct {
	helper string
	target detector.Target

	serial   string
	firmware string
}

type infoResponse struct {
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"fw_version"`
}

type spectrumResponse struct {
	DurationSeconds float64 `json:"duration_s"`
	A0              float64 `json:"a0"`
	A1              float64 `json:"a1"`
	A2              float64 `json:"a2"`
	Counts          []int   `json:"counts"`
}

func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	return d.serial, nil
}

func (d *Device) FirmwareVersion(ctx context.Context) (string, error) {
	return d.firmware, nil
}

func (d *Device) Spectrum(ctx context.Context) (detector.Spectrum, error) {
	out, err := d.run(ctx, "spectrum")
	if err != nil {
		return detector.Spectrum{}, err
	}
	resp := spectrumResponse{}
	if err := json.Unmarshal(out, &resp); err != nil {
		return detector.Spectrum{}, fmt.Errorf("unable to decode spectrum: %s", err)
	}
	return detector.Spectrum{
		Duration: time.Duration(resp.DurationSeconds * float64(time.Second)),
		A0:       resp.A0,
		A1:       resp.A1,
		A2:       resp.A2,
		Counts:   resp.Counts,
	}, nil
}

func (d *Device) DataBuf(ctx context.Context) ([]detector.Sample, error) {
	out, err := d.run(ctx, "databuf")
	if err != nil {
		return nil, err
	}
	var samples []detector.Sample
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		glog.V(2).Info(line)
		s, err := parseSample([]byte(line))
		if err != nil {
			glog.Warningf("error parsing line: %s\n", err)
			continue
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		glog.Warningf("stopped reading data buffer after %d samples: %s\n", len(samples), err)
	}
	return samples, nil
}

func (d *Device) Close() error {
	return nil
}

func (d *Device) info(ctx context.Context) (infoResponse, error) {
	out, err := d.run(ctx, "info")
	if err != nil {
		return infoResponse{}, err
	}
	info := infoResponse{}
	if err := json.Unmarshal(out, &info); err != nil {
		return infoResponse{}, fmt.Errorf("unable to decode device info: %s", err)
	}
	return info, nil
}

func (d *Device) args(verb string) []string {
	var args []string
	switch {
	case d.target.Bluetooth():
		args = append(args, "--bluetooth-mac", d.target.BluetoothMAC)
	case d.target.Serial != "":
		args = append(args, "--serial", d.target.Serial)
	}
	return append(args, verb)
}

func (d *Device) run(ctx context.Context, verb string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.helper, d.args(verb)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	glog.V(2).Infof("running helper: %q", cmd)
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitDeviceNotFound {
		return nil, fmt.Errorf("%s via %s: %w", strings.TrimSpace(stderr.String()), d.target, detector.ErrDeviceNotFound)
	}
	return nil, fmt.Errorf("helper %q %s failed: %s (%s)", d.helper, verb, err, strings.TrimSpace(stderr.String()))
}

// record is the union of all fields the helper may print for a sample.
type record struct {
	Type          string  `json:"type"`
	DT            string  `json:"dt"`
	Count         int     `json:"count"`
	CountRate     float64 `json:"count_rate"`
	CountRateErr  float64 `json:"count_rate_err"`
	DoseRate      float64 `json:"dose_rate"`
	DoseRateErr   float64 `json:"dose_rate_err"`
	Duration      float64 `json:"duration"`
	Dose          float64 `json:"dose"`
	Temperature   float64 `json:"temperature"`
	ChargeLevel   float64 `json:"charge_level"`
	Flags         int     `json:"flags"`
	RealTimeFlags int     `json:"real_time_flags"`
	EventID       int     `json:"event"`
	EventParam1   int     `json:"event_param1"`
}

func parseSample(line []byte) (detector.Sample, error) {
	r := record{}
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, err
	}
	var dt time.Time
	if r.DT != "" {
		parsed, err := parseDT(r.DT)
		if err != nil {
			return nil, err
		}
		dt = parsed
	}

	switch r.Type {
	case "RealTimeData":
		return detector.RealTime{
			DT:            dt,
			CountRate:     r.CountRate,
			CountRateErr:  r.CountRateErr,
			DoseRate:      r.DoseRate,
			DoseRateErr:   r.DoseRateErr,
			Flags:         r.Flags,
			RealTimeFlags: r.RealTimeFlags,
		}, nil
	case "DoseRateDB":
		return detector.DoseRateDB{
			DT:          dt,
			Count:       r.Count,
			CountRate:   r.CountRate,
			DoseRate:    r.DoseRate,
			DoseRateErr: r.DoseRateErr,
			Flags:       r.Flags,
		}, nil
	case "RawData":
		return detector.Raw{
			DT:        dt,
			CountRate: r.CountRate,
			DoseRate:  r.DoseRate,
		}, nil
	case "RareData":
		return detector.Rare{
			DT:          dt,
			Duration:    time.Duration(r.Duration * float64(time.Second)),
			Dose:        r.Dose,
			Temperature: r.Temperature,
			ChargeLevel: r.ChargeLevel,
			Flags:       r.Flags,
		}, nil
	case "Event":
		return detector.Event{
			DT:      dt,
			EventID: r.EventID,
			Param1:  r.EventParam1,
			Flags:   r.Flags,
		}, nil
	}
	return detector.Unknown{Type: r.Type}, nil
}

func parseDT(raw string) (time.Time, error) {
	for _, layout := range dtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse sample time %q", raw)
}
