package measurement

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hb9tf/radiacode/detector"
)

func f(v float64) *float64 {
	return &v
}

func TestClassify(t *testing.T) {
	t.Parallel()

	dt := time.Date(2024, 5, 1, 13, 7, 42, 0, time.UTC)
	cases := []struct {
		name   string
		sample detector.Sample
		want   Fields
	}{
		{
			name:   "realtime",
			sample: detector.RealTime{DT: dt, CountRate: 5.5, CountRateErr: 3, DoseRate: 0.0002, DoseRateErr: 11},
			want:   Fields{DoseRate: f(0.0002), CountRate: f(5.5), DoseRateErr: f(11), DisplayTime: "13:07"},
		},
		{
			name:   "dose rate db",
			sample: detector.DoseRateDB{DT: dt, Count: 10, CountRate: 2, DoseRate: 0.00018, DoseRateErr: 20},
			want:   Fields{DoseRate: f(0.00018), CountRate: f(2), DoseRateErr: f(20), DisplayTime: "13:07"},
		},
		{
			name:   "raw",
			sample: detector.Raw{DT: dt, CountRate: 7, DoseRate: 0.0001},
			want:   Fields{DoseRate: f(0.0001), DisplayTime: "13:07"},
		},
		{
			name:   "rare",
			sample: detector.Rare{DT: dt, Dose: 0.0003, Temperature: 21.4, ChargeLevel: 80},
			want:   Fields{DoseRate: f(0.0003), Temperature: f(21.4), DisplayTime: "13:07"},
		},
		{
			name:   "zero readings stay present",
			sample: detector.RealTime{DT: dt},
			want:   Fields{DoseRate: f(0), CountRate: f(0), DoseRateErr: f(0), DisplayTime: "13:07"},
		},
		{
			name:   "missing device time",
			sample: detector.Raw{DoseRate: 0.0001},
			want:   Fields{DoseRate: f(0.0001)},
		},
		{
			name:   "event",
			sample: detector.Event{DT: dt, EventID: 3},
			want:   Fields{},
		},
		{
			name:   "unknown",
			sample: detector.Unknown{Type: "SpectrumData"},
			want:   Fields{},
		},
		{
			name:   "nil",
			sample: nil,
			want:   Fields{},
		},
		{
			name:   "realtime pointer",
			sample: &detector.RealTime{DT: dt, CountRate: 5, DoseRate: 0.0002, DoseRateErr: 11},
			want:   Fields{DoseRate: f(0.0002), CountRate: f(5), DoseRateErr: f(11), DisplayTime: "13:07"},
		},
		{
			name:   "rare pointer",
			sample: &detector.Rare{DT: dt, Dose: 0.0003, Temperature: 21.4},
			want:   Fields{DoseRate: f(0.0003), Temperature: f(21.4), DisplayTime: "13:07"},
		},
		{
			name:   "nil raw pointer",
			sample: (*detector.Raw)(nil),
			want:   Fields{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tc.sample)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Classify(%+v) mismatch (-want +got):\n%s", tc.sample, diff)
			}
		})
	}
}

func TestTemperatureOnlyFromRare(t *testing.T) {
	t.Parallel()

	for _, s := range []detector.Sample{detector.RealTime{}, detector.DoseRateDB{}, detector.Raw{}} {
		if got := Classify(s).Temperature; got != nil {
			t.Errorf("Classify(%T).Temperature = %v, want absent", s, *got)
		}
	}
	for _, s := range []detector.Sample{detector.Raw{}, detector.Rare{}} {
		got := Classify(s)
		if got.CountRate != nil || got.DoseRateErr != nil {
			t.Errorf("Classify(%T) reported count rate or error: %+v", s, got)
		}
	}
}

func TestNewRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 13, 7, 42, 123456000, time.UTC)
	deviceTime := now.Add(-time.Hour)
	r := NewRecord(Classify(detector.Rare{DT: deviceTime, Dose: 0.0001, Temperature: 21.4}), now)

	if !r.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %s, want processing time %s", r.CapturedAt, now)
	}
	if got, want := r.Timestamp(), "2024-05-01T13:07:42.123456"; got != want {
		t.Errorf("Timestamp() = %q, want %q", got, want)
	}
	if r.CountRate != nil || r.DoseRateErr != nil {
		t.Errorf("rare record carries count rate or error: %+v", r)
	}
	if r.Temperature == nil || *r.Temperature != 21.4 {
		t.Errorf("Temperature = %v, want 21.4", r.Temperature)
	}
}
