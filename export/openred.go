package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/measurement"
	"github.com/hb9tf/radiacode/metrics"
)

const (
	contentType         = "application/json"
	DefaultCollectorURL = "https://openred.ibercivis.es/api/measurements/"
)

// Receipt describes an accepted upload.
type Receipt struct {
	StatusCode int
	// MeasurementID is the identifier the collector assigned, Radiation only.
	MeasurementID string
}

// Uploader posts requests to the collector and dumps every exchange to Out.
type Uploader struct {
	URL    string
	Client *http.Client
	Out    io.Writer
}

func (u *Uploader) Upload(ctx context.Context, req Request) (Receipt, error) {
	out := u.Out
	if out == nil {
		out = os.Stdout
	}
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	defer fmt.Fprintln(out, strings.Repeat("=", 40))

	body, err := json.Marshal(req.Payload)
	if err != nil {
		fmt.Fprintf(out, "\n✗ Unable to encode payload: %s\n", err)
		return Receipt{}, fmt.Errorf("unable to encode payload: %s", err)
	}

	fmt.Fprintln(out, "\n=== Sending measurement to collector ===")
	fmt.Fprintf(out, "URL: %s\n", u.URL)
	fmt.Fprintln(out, "Headers:")
	fmt.Fprintln(out, dumpHeader(req.Header))
	fmt.Fprintln(out, "Payload:")
	fmt.Fprintln(out, indent(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(out, "\n✗ Invalid request: %s\n", err)
		return Receipt{}, err
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		fmt.Fprintf(out, "\n✗ Connection error: %s\n", err)
		return Receipt{}, fmt.Errorf("error POSTing measurement: %s", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(out, "error reading response body: %s\n", err)
	}

	fmt.Fprintln(out, "\n=== Collector response ===")
	fmt.Fprintf(out, "Status Code: %d\n", resp.StatusCode)
	fmt.Fprintln(out, "Response Headers:")
	fmt.Fprintln(out, dumpHeader(resp.Header))
	fmt.Fprintln(out, "Response Body:")
	fmt.Fprintln(out, indent(respBody))

	receipt := Receipt{StatusCode: resp.StatusCode}
	switch req.Dialect {
	case PerMetric:
		if resp.StatusCode >= http.StatusBadRequest {
			fmt.Fprintf(out, "\n✗ Error: %d - %s\n", resp.StatusCode, reason(resp))
			return receipt, fmt.Errorf("collector returned %s", resp.Status)
		}
		fmt.Fprintf(out, "\n✓ Measurement accepted (%d)\n", resp.StatusCode)
	default:
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(out, "\n✗ Error: %d - %s\n", resp.StatusCode, reason(resp))
			return receipt, fmt.Errorf("collector returned %s", resp.Status)
		}
		receipt.MeasurementID = measurementID(respBody)
		if receipt.MeasurementID == "" {
			glog.Warningf("collector accepted the measurement without a measurement_id: %q\n", respBody)
			fmt.Fprintf(out, "\n✓ Measurement stored, no ID returned\n")
			break
		}
		fmt.Fprintf(out, "\n✓ Measurement stored with ID: %s\n", receipt.MeasurementID)
	}
	return receipt, nil
}

// OpenRed builds a payload in the configured dialect for every record and
// uploads it.
type OpenRed struct {
	Dialect    Dialect
	DeviceID   int
	UserID     int
	Credential string
	Notes      string
	Uploader   *Uploader
	Now        func() time.Time
}

func (o *OpenRed) Export(ctx context.Context, r measurement.Record, loc geo.Location) error {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	req := Build(o.Dialect, Params{
		Record:     r,
		Location:   loc,
		DeviceID:   o.DeviceID,
		UserID:     o.UserID,
		Credential: o.Credential,
		Notes:      o.Notes,
		Now:        now(),
	})
	if _, err := o.Uploader.Upload(ctx, req); err != nil {
		metrics.Uploads.WithLabelValues(req.Dialect.String(), "failure").Inc()
		return err
	}
	metrics.Uploads.WithLabelValues(req.Dialect.String(), "success").Inc()
	return nil
}

func measurementID(body []byte) string {
	created := struct {
		MeasurementID json.RawMessage `json:"measurement_id"`
	}{}
	if err := json.Unmarshal(body, &created); err != nil || len(created.MeasurementID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(created.MeasurementID, &s); err == nil {
		return s
	}
	return string(created.MeasurementID)
}

func reason(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

func indent(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

func dumpHeader(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	flat := make([]string, 0, len(keys))
	for _, k := range keys {
		key, _ := json.Marshal(k)
		value, _ := json.Marshal(strings.Join(h[k], ", "))
		flat = append(flat, fmt.Sprintf("  %s: %s", key, value))
	}
	if len(flat) == 0 {
		return "{}"
	}
	return "{\n" + strings.Join(flat, ",\n") + "\n}"
}
