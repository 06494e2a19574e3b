// relinkd drives the coordinated rolling-stock replacement engine against
// an in-memory simulated rail world.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/trainworks/relink/internal/config"
	"github.com/trainworks/relink/internal/dispatcher"
	"github.com/trainworks/relink/internal/handlers"
	"github.com/trainworks/relink/internal/logging"
	"github.com/trainworks/relink/internal/monitor"
	"github.com/trainworks/relink/internal/pairs"
	"github.com/trainworks/relink/internal/persist"
	"github.com/trainworks/relink/internal/scheduler"
	"github.com/trainworks/relink/internal/swap"
	"github.com/trainworks/relink/internal/telemetry"
	"github.com/trainworks/relink/internal/world"
	"github.com/trainworks/relink/internal/world/memory"
	"github.com/trainworks/relink/pkg/core"
)

// Version can be set at build time via ldflags.
var Version = "0.1.0"

func main() {
	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("relinkd %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "relinkd: %v\n", err)
		os.Exit(1)
	}
}

func run(opts cliOptions) error {
	sessionStart := time.Now()
	if err := config.Load(opts.configDir); err != nil {
		return err
	}

	// Logging: console + session file, optional Graylog shipping, current
	// tick injected into every record.
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, "relinkd", sessionStart))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	var extras []slog.Handler
	if config.GetBool("graylog.enabled") {
		gelfHandler, err := logging.NewGelfHandler(config.GetString("graylog.address"), config.GetString("logLevel"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "relinkd: graylog disabled: %v\n", err)
		} else {
			extras = append(extras, gelfHandler)
		}
	}

	w := memory.New()
	slogManager := logging.NewSlogManager()
	slogManager.Setup(logFile, config.GetString("logLevel"), extras...)
	log := slog.New(logging.NewContextHandler(slogManager.Logger().Handler(), func() []slog.Attr {
		return []slog.Attr{slog.Uint64("tick", w.CurrentTick())}
	}))

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Durable queue state.
	var store persist.Store
	switch config.GetString("storage.type") {
	case "memory":
		store = persist.NewMemoryStore()
	default:
		dbManager := persist.NewManager(zlog, config.GetString("storage.sqlitePath"))
		if err := dbManager.Connect(); err != nil {
			return fmt.Errorf("connecting store: %w", err)
		}
		store = dbManager
	}
	defer store.Close()

	// Telemetry is best-effort.
	influx := telemetry.NewManager(zlog)
	if err := influx.Connect(); err != nil {
		log.Debug("telemetry disabled", "reason", err)
	}
	defer influx.Close()

	table := pairs.NewTable()
	enableSignal := config.GetString("signal.enable")

	swapper := swap.NewService(w, log, func(msg string) {
		log.Info(msg)
	})
	sched, err := scheduler.New(w, swapper, table, enableSignal, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	disp, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	handlerService := handlers.NewService(handlers.Dependencies{
		World:       w,
		Table:       table,
		Scheduler:   sched,
		Store:       store,
		Logger:      log,
		PairsSource: config.Pairs,
	})
	handlerService.RegisterAll(disp)

	w.SetEventSink(func(e core.Event) {
		if err := disp.Dispatch(e); err != nil {
			log.Error("event handling failed", "event", e.Type.String(), "error", err)
		}
	})

	if err := disp.Dispatch(core.Event{Type: core.EventInit}); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	if opts.demo {
		seedDemo(w, enableSignal, log)
	}

	mon := monitor.NewService(monitor.Dependencies{
		Scheduler:  sched,
		Ticks:      w,
		Telemetry:  influx,
		LogManager: slogManager,
	})
	mon.Start(10 * time.Second)
	defer mon.Stop()

	// Tick loop.
	rate := config.GetInt("tick.rate")
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Info("relinkd running", "version", Version, "tickRate", rate)
	for {
		select {
		case <-ticker.C:
			w.Tick()
		case sig := <-sigs:
			log.Info("shutting down", "signal", sig.String())
			if err := sched.SaveTo(store); err != nil {
				log.Error("saving queue state failed", "error", err)
			}
			return nil
		}
	}
}

// seedDemo places one four-unit consist at a depot whose enable signal
// permits linking, so a fresh world immediately demonstrates the
// upgrade/downgrade loop.
func seedDemo(w *memory.Memory, enableSignal string, log *slog.Logger) {
	depot := w.AddStation("Depot")
	w.SetSignal(depot, enableSignal, 1)

	var last core.UnitID
	for i, typ := range []string{"freight-wagon", "freight-wagon", "loco-mk1", "loco-mk1"} {
		id, ok := w.CreateUnit(world.CreateSpec{
			Type:   typ,
			Track:  "yard-1",
			Offset: float64(i) * 2.0,
			Force:  "player",
		})
		if !ok {
			log.Error("demo seed placement refused", "type", typ)
			return
		}
		last = id
	}

	if t, ok := w.TrainOf(last); ok {
		w.SetSchedule(t.ID, &core.Schedule{Stops: []core.ScheduleStop{{Station: "Depot"}}})
		w.HaltAt(t.ID, depot)
		log.Info("demo consist seeded", "train", t.ID, "units", len(t.Units))
	}
}
