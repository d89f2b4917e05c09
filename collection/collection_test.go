package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hb9tf/radiacode/detector"
)

func TestLoadCredential(t *testing.T) {
	t.Setenv(credentialEnv, "from-env")

	file := filepath.Join(t.TempDir(), "credential")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		value string
		file  string
		want  string
	}{
		{"flag wins", "from-flag", file, "from-flag"},
		{"file is trimmed", "", file, "from-file"},
		{"environment fallback", "", "", "from-env"},
	}
	for _, tc := range cases {
		got, err := loadCredential(tc.value, tc.file)
		if err != nil {
			t.Errorf("%s: loadCredential() = %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: loadCredential() = %q, want %q", tc.name, got, tc.want)
		}
	}

	if _, err := loadCredential("", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("loadCredential() with a missing file succeeded, want error")
	}
}

func TestExitStatus(t *testing.T) {
	t.Parallel()

	live := context.Background()
	interrupted, cancel := context.WithCancel(context.Background())
	cancel()

	notFound := fmt.Errorf("helper: %w", detector.ErrDeviceNotFound)
	usb := detector.Target{Serial: "RC-1"}
	bt := detector.Target{BluetoothMAC: "00:11:22:33:44:55"}

	cases := []struct {
		name     string
		ctx      context.Context
		err      error
		target   detector.Target
		wantMsg  string
		wantCode int
	}{
		{"clean", live, nil, usb, "", 0},
		{"canceled", live, context.Canceled, usb, "", 0},
		{"helper killed by interrupt", interrupted, errors.New("signal: killed"), usb, "", 0},
		{"usb not found", live, notFound, usb, "Device not found, check your USB connection", 1},
		{"bluetooth not found", live, notFound, bt, notFound.Error(), 1},
		{"helper failure", live, errors.New("signal: killed"), usb, "signal: killed", 1},
	}
	for _, tc := range cases {
		msg, code := exitStatus(tc.ctx, tc.err, tc.target)
		if msg != tc.wantMsg || code != tc.wantCode {
			t.Errorf("%s: exitStatus() = %q, %d; want %q, %d", tc.name, msg, code, tc.wantMsg, tc.wantCode)
		}
	}
}
