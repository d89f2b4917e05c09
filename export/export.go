package export

import (
	"context"

	"github.com/hb9tf/radiacode/geo"
	"github.com/hb9tf/radiacode/measurement"
)

type Exporter interface {
	Export(context.Context, measurement.Record, geo.Location) error
}
