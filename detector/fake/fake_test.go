package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hb9tf/radiacode/detector"
)

func TestConnectAccept(t *testing.T) {
	t.Parallel()
	c := &Connector{Device: &Device{}, Accept: []string{"RC-1", "00:11:22:33:44:55"}}
	ctx := context.Background()

	cases := []struct {
		target detector.Target
		found  bool
	}{
		{detector.Target{Serial: "RC-1"}, true},
		{detector.Target{BluetoothMAC: "00:11:22:33:44:55"}, true},
		{detector.Target{Serial: "RC-1", BluetoothMAC: "AA:AA:AA:AA:AA:AA"}, false},
		{detector.Target{Serial: "RC-2"}, false},
	}
	for _, tc := range cases {
		_, err := c.Connect(ctx, tc.target)
		if tc.found && err != nil {
			t.Errorf("Connect(%s) = %v, want device", tc.target, err)
		}
		if !tc.found && !errors.Is(err, detector.ErrDeviceNotFound) {
			t.Errorf("Connect(%s) = %v, want ErrDeviceNotFound", tc.target, err)
		}
	}
	if c.Connects != len(cases) {
		t.Errorf("Connects = %d, want %d", c.Connects, len(cases))
	}
}

func TestConnectWithoutDevice(t *testing.T) {
	t.Parallel()
	c := &Connector{}
	if _, err := c.Connect(context.Background(), detector.Target{}); !errors.Is(err, detector.ErrDeviceNotFound) {
		t.Errorf("Connect() = %v, want ErrDeviceNotFound", err)
	}
}

func TestDataBuf(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	first := []detector.Sample{detector.Raw{DT: time.Unix(1, 0), DoseRate: 1}}
	second := []detector.Sample{detector.Event{DT: time.Unix(2, 0)}}

	once := &Device{Batches: [][]detector.Sample{first, second}}
	for i, want := range []int{1, 1, 0, 0} {
		got, err := once.DataBuf(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != want {
			t.Errorf("read %d: got %d samples, want %d", i, len(got), want)
		}
	}
	if once.Reads() != 4 {
		t.Errorf("Reads() = %d, want 4", once.Reads())
	}

	looped := &Device{Batches: [][]detector.Sample{first, second}, Repeat: true}
	for i, want := range []string{"raw", "event", "raw"} {
		got, err := looped.DataBuf(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Kind() != want {
			t.Errorf("read %d: got %v, want one %s sample", i, got, want)
		}
	}
}

func TestDemo(t *testing.T) {
	t.Parallel()
	d := Demo()
	batch, err := d.DataBuf(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) == 0 {
		t.Fatal("Demo() device returned an empty first batch")
	}
	if d.Serial == "" || d.Firmware == "" {
		t.Errorf("Demo() identity = %q / %q, want both set", d.Serial, d.Firmware)
	}
}
