package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/measurement"
)

// CSV writes one row per record instead of uploading it. Absent values are
// left empty.
type CSV struct {
	// Identifier tags every row with the run that produced it.
	Identifier string
	Out        io.Writer

	w *csv.Writer
}

func (c *CSV) Export(ctx context.Context, r measurement.Record, loc geo.Location) error {
	if c.w == nil {
		out := c.Out
		if out == nil {
			out = os.Stdout
		}
		c.w = csv.NewWriter(out)
		c.w.Write([]string{
			"Identifier",
			"Timestamp",
			"Latitude",
			"Longitude",
			"DoseRate",
			"CPS",
			"DoseRateErr",
			"Temperature",
		})
	}

	if err := c.w.Write([]string{
		c.Identifier,
		r.Timestamp(),
		fmt.Sprintf("%f", loc.Latitude),
		fmt.Sprintf("%f", loc.Longitude),
		optional(r.DoseRate),
		optional(r.CountRate),
		optional(r.DoseRateErr),
		optional(r.Temperature),
	}); err != nil {
		glog.Warningf("error while writing CSV line: %s\n", err)
	}

	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("error flushing CSV: %s", err)
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
