// Package telemetry ships scheduler statistics to InfluxDB. Disabled or
// unreachable telemetry never affects replacement work; every write path
// degrades to a no-op.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// TickStats is one per-interval sample of scheduler activity.
type TickStats struct {
	Tick             uint64
	ReplacementDepth int
	InspectionDepth  int
	Serviced         uint64
	Discarded        uint64
	Inspected        uint64
	SchedulerActive  bool
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	IsValid bool
	Logger  zerolog.Logger
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect establishes a connection to InfluxDB per configuration.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)
	m.Writer = m.Client.WriteAPI(
		viper.GetString("influx.org"),
		viper.GetString("influx.bucket"),
	)
	m.IsValid = true
	m.Logger.Info().Msg("Connected to InfluxDB")
	return nil
}

// WriteTickStats queues one stats point for asynchronous write.
func (m *Manager) WriteTickStats(s TickStats) {
	if !m.IsValid {
		return
	}
	p := influxdb2.NewPoint(
		"relink_scheduler",
		map[string]string{
			"active": fmt.Sprintf("%t", s.SchedulerActive),
		},
		map[string]interface{}{
			"tick":              int64(s.Tick),
			"replacement_depth": s.ReplacementDepth,
			"inspection_depth":  s.InspectionDepth,
			"orders_serviced":   int64(s.Serviced),
			"entries_discarded": int64(s.Discarded),
			"trains_inspected":  int64(s.Inspected),
		},
		time.Now(),
	)
	m.Writer.WritePoint(p)
}

// Close flushes pending writes and shuts the client down.
func (m *Manager) Close() {
	if !m.IsValid {
		return
	}
	m.Writer.Flush()
	m.Client.Close()
	m.IsValid = false
}
