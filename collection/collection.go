package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hb9tf/radiacode/acquisition"
	"github.com/hb9tf/radiacode/detector"
	"github.com/hb9tf/radiacode/detector/bridge"
	"github.com/hb9tf/radiacode/detector/fake"
	"github.com/hb9tf/radiacode/export"
	"github.com/hb9tf/radiacode/filter"
	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/metrics"
)

const credentialEnv = "OPENRED_CREDENTIAL"

// Flags
var (
	identifier   = flag.String("id", "", "unique identifier of this uploader run (defaults to a random UUID)")
	serial       = flag.String("serial", "", `serial number of radiacode device (e.g. "RC-10x-xxxxxx"). Useful in case of multiple devices.`)
	detectorType = flag.String("detector", bridge.SourceName, "Detector driver to use (one of: bridge, fake)")
	bridgeCmd    = flag.String("bridgeCmd", bridge.DefaultHelper, "Helper executable wrapping the RadiaCode SDK.")
	output       = flag.String("output", "openred", "Export mechanism to use (one of: openred, csv)")
	pause        = flag.Duration("pause", acquisition.DefaultPause, "pause between two reads of the device data buffer")
	skip         = flag.String("skip", "", "Comma separated sample kinds not to upload (e.g. event,unknown).")
	geoEndpoint  = flag.String("geoEndpoint", geo.DefaultEndpoint, "IP geolocation endpoint used once at start-up.")

	// OpenRed
	collectorURL   = flag.String("collectorURL", export.DefaultCollectorURL, "URL of the OpenRed measurements endpoint.")
	dialect        = flag.String("dialect", export.Radiation.String(), "Payload dialect (one of: per-metric, radiation)")
	deviceID       = flag.Int("deviceID", 1, "OpenRed device identifier.")
	userID         = flag.Int("userID", 1, "OpenRed user identifier.")
	credential     = flag.String("credential", "", "Credential sent to the collector. Overrides -credentialFile and $"+credentialEnv+".")
	credentialFile = flag.String("credentialFile", "", "File to read the collector credential from.")
	notes          = flag.String("notes", "", "Free text notes attached to radiation dialect uploads.")

	// Metrics
	metricsListen = flag.String("metricsListen", "", "Address to serve Prometheus metrics on (e.g. :9100). Disabled when empty.")
)

// loadCredential prefers the flag value, then the file, then the environment.
func loadCredential(value, file string) (string, error) {
	if value != "" {
		return value, nil
	}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("unable to read credential file %q: %s", file, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return os.Getenv(credentialEnv), nil
}

func main() {
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		glog.Warningf("unable to load .env: %s\n", err)
	}
	if *identifier == "" {
		*identifier = uuid.NewString()
	}
	glog.Infof("starting uploader run %s", *identifier)

	// Detector setup
	var connector detector.Connector
	switch strings.ToLower(*detectorType) {
	case bridge.SourceName:
		connector = bridge.Connector{Helper: *bridgeCmd}
	case fake.SourceName:
		connector = &fake.Connector{Device: fake.Demo()}
	default:
		glog.Exitf("%q is not a supported detector, pick one of: bridge, fake", *detectorType)
	}
	target := detector.Target{
		Serial:       *serial,
		BluetoothMAC: *bluetoothMAC,
	}

	// Exporter setup
	var exporter export.Exporter
	switch strings.ToLower(*output) {
	case "openred":
		d, err := export.ParseDialect(*dialect)
		if err != nil {
			glog.Exit(err)
		}
		cred, err := loadCredential(*credential, *credentialFile)
		if err != nil {
			glog.Exit(err)
		}
		if cred == "" {
			glog.Warningf("no collector credential configured, uploads will likely be rejected")
		}
		exporter = &export.OpenRed{
			Dialect:    d,
			DeviceID:   *deviceID,
			UserID:     *userID,
			Credential: cred,
			Notes:      *notes,
			Uploader: &export.Uploader{
				URL:    *collectorURL,
				Client: &http.Client{},
			},
		}
	case "csv":
		exporter = &export.CSV{
			Identifier: *identifier,
		}
	default:
		glog.Exitf("%q is not a supported export method, pick one of: openred, csv", *output)
	}

	skipKinds, err := filter.ParseKinds(*skip)
	if err != nil {
		glog.Exit(err)
	}

	if *metricsListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			glog.Warningf("metrics listener stopped: %s\n", http.ListenAndServe(*metricsListen, mux))
		}()
	}

	// Run
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	loop := &acquisition.Loop{
		Connector: connector,
		Target:    target,
		Locator:   geo.NewResolver(*geoEndpoint),
		Exporter:  exporter,
		Filters:   []filter.Filterer{skipKinds},
		Pause:     *pause,
	}
	err = loop.Run(ctx)
	glog.Flush()
	if msg, code := exitStatus(ctx, err, target); code != 0 {
		fmt.Println(msg)
		os.Exit(code)
	}
}

// exitStatus maps the result of a run to the message and process status.
// An interrupt is a clean exit, even when it killed the helper mid-call.
func exitStatus(ctx context.Context, err error, target detector.Target) (string, int) {
	switch {
	case err == nil, ctx.Err() != nil, errors.Is(err, context.Canceled):
		return "", 0
	case errors.Is(err, detector.ErrDeviceNotFound) && !target.Bluetooth():
		return "Device not found, check your USB connection", 1
	default:
		return err.Error(), 1
	}
}
