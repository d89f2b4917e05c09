package export

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/measurement"
)

// Dialect selects the collector payload schema.
type Dialect int

const (
	// PerMetric sends every metric in its own field and accepts any non-error status.
	PerMetric Dialect = iota + 1
	// Radiation sends a single µSv/h value and only accepts 201 Created.
	Radiation
)

const (
	unit             = "uSv/h"
	sievertToMicro   = 1000000 // assumes the device reports dose rate in Sv/h
	radiationTimeFmt = "2006-01-02T15:04:05.000000Z"
)

func (d Dialect) String() string {
	switch d {
	case PerMetric:
		return "per-metric"
	case Radiation:
		return "radiation"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per-metric", "a", "legacy":
		return PerMetric, nil
	case "radiation", "b", "current":
		return Radiation, nil
	}
	return 0, fmt.Errorf("%q is not a supported dialect, pick one of: per-metric, radiation", s)
}

// Params is everything a payload is built from.
type Params struct {
	Record     measurement.Record
	Location   geo.Location
	DeviceID   int
	UserID     int
	Credential string
	Notes      string
	// Now stamps Radiation payloads, independently of Record.CapturedAt.
	Now time.Time
}

// Request is a built payload with the headers to send it with. Header keys
// are kept verbatim.
type Request struct {
	Dialect Dialect
	Header  http.Header
	Payload any
}

type PerMetricPayload struct {
	Device    int             `json:"device"`
	User      int             `json:"user"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Values    PerMetricValues `json:"values"`
	DateTime  string          `json:"dateTime"`
	Unit      string          `json:"unit"`
}

type PerMetricValues struct {
	DoseRate    *float64 `json:"dose_rate"`
	CPS         *float64 `json:"cps"`
	Error       *float64 `json:"error"`
	Temperature *float64 `json:"temperature"`
}

type RadiationPayload struct {
	Device    int             `json:"device"`
	User      int             `json:"user"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Altitude  float64         `json:"altitude"`
	Values    RadiationValues `json:"values"`
	DateTime  string          `json:"dateTime"`
	Accuracy  float64         `json:"accuracy"`
	Unit      string          `json:"unit"`
	Notes     string          `json:"notes"`
	Weather   struct{}        `json:"weather"`
}

type RadiationValues struct {
	// Radiation is in µSv/h.
	Radiation *float64 `json:"radiation"`
}

// Build assembles the request body and headers for the dialect. Dialects
// other than PerMetric build Radiation requests.
func Build(d Dialect, p Params) Request {
	switch d {
	case PerMetric:
		return Request{
			Dialect: d,
			Header: http.Header{
				"Content-Type":  {contentType},
				"Authorization": {"Bearer " + p.Credential},
			},
			Payload: PerMetricPayload{
				Device:    p.DeviceID,
				User:      p.UserID,
				Latitude:  p.Location.Latitude,
				Longitude: p.Location.Longitude,
				Values: PerMetricValues{
					DoseRate:    p.Record.DoseRate,
					CPS:         p.Record.CountRate,
					Error:       p.Record.DoseRateErr,
					Temperature: p.Record.Temperature,
				},
				DateTime: p.Record.Timestamp(),
				Unit:     unit,
			},
		}
	default:
		var radiation *float64
		if p.Record.DoseRate != nil {
			v := *p.Record.DoseRate * sievertToMicro
			radiation = &v
		}
		return Request{
			Dialect: Radiation,
			Header: http.Header{
				"accept":       {contentType},
				"Content-Type": {contentType},
				"X-CSRFTOKEN":  {p.Credential},
			},
			Payload: RadiationPayload{
				Device:    p.DeviceID,
				User:      p.UserID,
				Latitude:  p.Location.Latitude,
				Longitude: p.Location.Longitude,
				Values:    RadiationValues{Radiation: radiation},
				DateTime:  p.Now.UTC().Format(radiationTimeFmt),
				Unit:      unit,
				Notes:     p.Notes,
			},
		}
	}
}
