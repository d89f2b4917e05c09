// Package measurement turns detector samples into flat measurement records.
//
// Optional values are pointers: nil means the sample variant does not carry
// the field, which is not the same as a reading of zero.
package measurement

import (
	"time"

	"github.com/golang/glog"

	"github.com/hb9tf/radiacode/detector"
)

const (
	DisplayTimeFmt = "15:04"
	TimestampFmt   = "2006-01-02T15:04:05.000000"
)

// Fields is the subset of normalized values a sample carries.
type Fields struct {
	DoseRate    *float64 // Sv/h
	CountRate   *float64 // counts per second
	DoseRateErr *float64 // percent
	Temperature *float64 // °C
	// DisplayTime is the device time as hour:minute, empty when unknown.
	DisplayTime string
}

// Classify maps a sample to the fields its variant defines. Pointers to
// variants are classified like the variant itself.
func Classify(s detector.Sample) Fields {
	switch v := deref(s).(type) {
	case detector.RealTime:
		return Fields{
			DoseRate:    ptr(v.DoseRate),
			CountRate:   ptr(v.CountRate),
			DoseRateErr: ptr(v.DoseRateErr),
			DisplayTime: displayTime(v.DT),
		}
	case detector.DoseRateDB:
		return Fields{
			DoseRate:    ptr(v.DoseRate),
			CountRate:   ptr(v.CountRate),
			DoseRateErr: ptr(v.DoseRateErr),
			DisplayTime: displayTime(v.DT),
		}
	case detector.Raw:
		return Fields{
			DoseRate:    ptr(v.DoseRate),
			DisplayTime: displayTime(v.DT),
		}
	case detector.Rare:
		return Fields{
			DoseRate:    ptr(v.Dose),
			Temperature: ptr(v.Temperature),
			DisplayTime: displayTime(v.DT),
		}
	case detector.Event, detector.Unknown, nil:
		return Fields{}
	default:
		glog.Warningf("unhandled sample %T\n", s)
		return Fields{}
	}
}

func deref(s detector.Sample) detector.Sample {
	switch v := s.(type) {
	case *detector.RealTime:
		if v != nil {
			return *v
		}
	case *detector.DoseRateDB:
		if v != nil {
			return *v
		}
	case *detector.Raw:
		if v != nil {
			return *v
		}
	case *detector.Rare:
		if v != nil {
			return *v
		}
	case *detector.Event:
		if v != nil {
			return *v
		}
	case *detector.Unknown:
		if v != nil {
			return *v
		}
	}
	return s
}

// Record is the normalized measurement uploaded for one sample.
type Record struct {
	// CapturedAt is when the sample was processed, not the device time.
	CapturedAt  time.Time
	DoseRate    *float64
	CountRate   *float64
	DoseRateErr *float64
	Temperature *float64
}

func NewRecord(f Fields, now time.Time) Record {
	return Record{
		CapturedAt:  now,
		DoseRate:    f.DoseRate,
		CountRate:   f.CountRate,
		DoseRateErr: f.DoseRateErr,
		Temperature: f.Temperature,
	}
}

// Timestamp renders CapturedAt as ISO-8601 with microseconds.
func (r Record) Timestamp() string {
	return r.CapturedAt.Format(TimestampFmt)
}

func displayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayTimeFmt)
}

func ptr(f float64) *float64 {
	return &f
}
