// Package acquisition drives a detector: connect, identify, then read,
// classify and export samples until the context ends.
package acquisition

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/hb9tf/radiacode/detector"
	"github.com/hb9tf/radiacode/export"
	"github.com/hb9tf/radiacode/filter"
	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/measurement"
	"github.com/hb9tf/radiacode/metrics"
)

const DefaultPause = 5 * time.Second

type State int

const (
	Connecting State = iota
	Identifying
	Streaming
	Failed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Identifying:
		return "identifying"
	case Streaming:
		return "streaming"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Locator interface {
	Resolve(ctx context.Context) (geo.Location, error)
}

type Loop struct {
	Connector detector.Connector
	Target    detector.Target
	Locator   Locator
	Exporter  export.Exporter
	Filters   []filter.Filterer
	// Pause is the wait between two data buffer reads, DefaultPause when zero.
	Pause time.Duration
	// Out receives operator-facing progress, os.Stdout when nil.
	Out io.Writer

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	state    State
	location geo.Location
}

func (l *Loop) State() State {
	return l.state
}

// Location is the position shared by every upload of the run.
func (l *Loop) Location() geo.Location {
	return l.location
}

// Run only returns when connecting fails or ctx is done. Failures while
// streaming are logged and skipped.
func (l *Loop) Run(ctx context.Context) error {
	out := l.out()

	l.state = Connecting
	fmt.Fprintf(out, "Connecting to Radiacode via %s\n", l.Target)
	dev, err := l.Connector.Connect(ctx, l.Target)
	if err != nil {
		l.state = Failed
		return err
	}
	defer dev.Close()

	l.state = Identifying
	l.identify(ctx, dev)

	l.state = Streaming
	l.location = l.resolveLocation(ctx)
	fmt.Fprintf(out, "### Location: %s\n", l.location)

	pause := l.Pause
	if pause <= 0 {
		pause = DefaultPause
	}
	sleep := l.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	fmt.Fprintln(out, "### DataBuf:")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.drain(ctx, dev)
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
}

func (l *Loop) identify(ctx context.Context, dev detector.Device) {
	out := l.out()

	serial, err := dev.SerialNumber(ctx)
	if err != nil {
		glog.Warningf("unable to read serial number: %s\n", err)
	}
	fmt.Fprintf(out, "### Serial number: %s\n--------\n", serial)

	fw, err := dev.FirmwareVersion(ctx)
	if err != nil {
		glog.Warningf("unable to read firmware version: %s\n", err)
	}
	fmt.Fprintf(out, "### Firmware: %s\n--------\n", fw)

	spectrum, err := dev.Spectrum(ctx)
	if err != nil {
		glog.Warningf("unable to read spectrum: %s\n", err)
	} else {
		fmt.Fprintf(out, "### Spectrum: %s\n--------\n", spectrum)
	}
}

func (l *Loop) resolveLocation(ctx context.Context) geo.Location {
	if l.Locator == nil {
		metrics.LocationFallback.Set(1)
		return geo.Fallback
	}
	loc, err := l.Locator.Resolve(ctx)
	if err != nil {
		glog.Warningf("error resolving location, using %s: %s\n", geo.Fallback, err)
		metrics.LocationFallback.Set(1)
		return geo.Fallback
	}
	metrics.LocationFallback.Set(0)
	return loc
}

func (l *Loop) drain(ctx context.Context, dev detector.Device) {
	metrics.Batches.Inc()
	samples, err := dev.DataBuf(ctx)
	if err != nil {
		glog.Warningf("error reading data buffer: %s\n", err)
	}
	for _, s := range samples {
		if ctx.Err() != nil {
			return
		}
		kind := "unknown"
		if s != nil {
			kind = s.Kind()
		}
		if filter.Ignore(s, l.Filters) {
			metrics.SamplesSkipped.WithLabelValues(kind).Inc()
			continue
		}
		metrics.SamplesProcessed.WithLabelValues(kind).Inc()
		l.process(ctx, s)
	}
}

func (l *Loop) process(ctx context.Context, s detector.Sample) {
	out := l.out()
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	fields := measurement.Classify(s)
	printFields(out, fields)
	record := measurement.NewRecord(fields, now())

	if err := l.Exporter.Export(ctx, record, l.location); err != nil {
		glog.Warningf("error exporting measurement: %s\n", err)
		fmt.Fprintf(out, "Upload failed: %s\n", err)
		return
	}
	fmt.Fprintln(out, "Upload succeeded")
}

func printFields(out io.Writer, f measurement.Fields) {
	if f.DisplayTime != "" {
		fmt.Fprintf(out, "Time: %s\n", f.DisplayTime)
	}
	if f.DoseRate != nil {
		fmt.Fprintf(out, "Dose rate: %.6g Sv/h\n", *f.DoseRate)
	}
	if f.CountRate != nil {
		fmt.Fprintf(out, "CPS: %.2f\n", *f.CountRate)
	}
	if f.DoseRateErr != nil {
		fmt.Fprintf(out, "Error: %v%%\n", *f.DoseRateErr)
	}
	if f.Temperature != nil {
		fmt.Fprintf(out, "Temperature: %v°C\n", *f.Temperature)
	}
	fmt.Fprintln(out, "--------")
}

func (l *Loop) out() io.Writer {
	if l.Out == nil {
		return os.Stdout
	}
	return l.Out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
