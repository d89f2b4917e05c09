package export

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/measurement"
)

func f(v float64) *float64 {
	return &v
}

func decode(t *testing.T, payload any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("json.Marshal(%+v): %s", payload, err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("json.Unmarshal(%s): %s", raw, err)
	}
	return m
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	cases := map[string]Dialect{
		"per-metric": PerMetric,
		"A":          PerMetric,
		"legacy":     PerMetric,
		"radiation":  Radiation,
		" b ":        Radiation,
		"current":    Radiation,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDialect("spectrum"); err == nil {
		t.Error("ParseDialect(\"spectrum\") succeeded, want error")
	}
}

func TestBuildPerMetric(t *testing.T) {
	t.Parallel()

	captured := time.Date(2024, 5, 1, 13, 7, 42, 500000000, time.UTC)
	req := Build(PerMetric, Params{
		Record: measurement.Record{
			CapturedAt: captured,
			DoseRate:   f(0.0002),
			CountRate:  f(5.5),
		},
		Location:   geo.Location{Latitude: 40.41, Longitude: -3.7},
		DeviceID:   7,
		UserID:     9,
		Credential: "secret",
		Now:        captured.Add(time.Hour),
	})

	want := map[string]any{
		"device":    7.0,
		"user":      9.0,
		"latitude":  40.41,
		"longitude": -3.7,
		"values": map[string]any{
			"dose_rate":   0.0002,
			"cps":         5.5,
			"error":       nil,
			"temperature": nil,
		},
		"dateTime": "2024-05-01T13:07:42.500000",
		"unit":     "uSv/h",
	}
	if diff := cmp.Diff(want, decode(t, req.Payload)); diff != "" {
		t.Errorf("per-metric payload mismatch (-want +got):\n%s", diff)
	}
	if got := req.Header["Authorization"]; len(got) != 1 || got[0] != "Bearer secret" {
		t.Errorf("Authorization = %v, want Bearer secret", got)
	}
	if got := req.Header["Content-Type"]; len(got) != 1 || got[0] != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", got)
	}
	if req.Dialect != PerMetric {
		t.Errorf("Dialect = %v, want %v", req.Dialect, PerMetric)
	}
}

func TestBuildRadiation(t *testing.T) {
	t.Parallel()

	captured := time.Date(2024, 5, 1, 13, 7, 42, 0, time.UTC)
	now := time.Date(2024, 5, 2, 8, 0, 1, 123456000, time.UTC)
	req := Build(Radiation, Params{
		Record: measurement.Record{
			CapturedAt:  captured,
			DoseRate:    f(0.000123),
			Temperature: f(21.4),
		},
		Location:   geo.Location{Latitude: 40.41, Longitude: -3.7},
		DeviceID:   1,
		UserID:     2,
		Credential: "csrf",
		Notes:      "field test",
		Now:        now,
	})

	payload, ok := req.Payload.(RadiationPayload)
	if !ok {
		t.Fatalf("Payload is %T, want RadiationPayload", req.Payload)
	}
	if payload.Values.Radiation == nil || math.Abs(*payload.Values.Radiation-123.0) > 1e-9 {
		t.Fatalf("radiation = %v, want 123.0", payload.Values.Radiation)
	}

	got := decode(t, req.Payload)
	delete(got, "values")
	want := map[string]any{
		"device":    1.0,
		"user":      2.0,
		"latitude":  40.41,
		"longitude": -3.7,
		"altitude":  0.0,
		"dateTime":  "2024-05-02T08:00:01.123456Z",
		"accuracy":  0.0,
		"unit":      "uSv/h",
		"notes":     "field test",
		"weather":   map[string]any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("radiation payload mismatch (-want +got):\n%s", diff)
	}
	if got := req.Header["X-CSRFTOKEN"]; len(got) != 1 || got[0] != "csrf" {
		t.Errorf("X-CSRFTOKEN = %v, want csrf", got)
	}
	if got := req.Header["accept"]; len(got) != 1 || got[0] != "application/json" {
		t.Errorf("accept = %v, want application/json", got)
	}
}

func TestBuildRadiationTimestampIsUTC(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("CEST", 2*60*60)
	req := Build(Radiation, Params{Now: time.Date(2024, 5, 2, 10, 0, 0, 0, zone)})
	if got, want := req.Payload.(RadiationPayload).DateTime, "2024-05-02T08:00:00.000000Z"; got != want {
		t.Errorf("dateTime = %q, want %q", got, want)
	}
}

func TestBuildRadiationWithoutDoseRate(t *testing.T) {
	t.Parallel()

	req := Build(Radiation, Params{Record: measurement.Record{Temperature: f(20)}})
	values := decode(t, req.Payload)["values"].(map[string]any)
	if v, ok := values["radiation"]; !ok || v != nil {
		t.Errorf("values = %v, want radiation null", values)
	}
}
