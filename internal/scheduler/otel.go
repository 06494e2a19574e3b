package scheduler

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trainworks/relink/internal/scheduler"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
