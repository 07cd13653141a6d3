package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"sailperf/internal/config"
	"sailperf/internal/fusion"
	"sailperf/internal/ingest"
	"sailperf/internal/metrics"
	"sailperf/internal/nmea"
	"sailperf/internal/persist"
	"sailperf/internal/replay"
	"sailperf/internal/source"
	"sailperf/internal/udp"
	"sailperf/internal/web"
)

// runtime owns everything one `run` builds from a config.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger

	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	state     *fusion.State
	pipeline  *ingest.Pipeline
	runner    *ingest.Runner
	policy    *persist.Policy
	stream    *web.SnapshotBroadcaster
	store     persist.Store
	snapLog   *persist.SnapshotLog
	mqtt      *persist.MQTTPublisher
	forwarder *udp.Forwarder
	recorder  *replay.Writer
}

func newRuntime(cfg config.Config, logger *zap.Logger) (*runtime, error) {
	r := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		metrics:  metrics.New(),
		stream:   web.NewSnapshotBroadcaster(),
	}
	if err := r.metrics.Register(r.registry); err != nil {
		return nil, err
	}
	r.registry.MustRegister(collectors.NewGoCollector())

	ok := false
	defer func() {
		if !ok {
			r.Close()
		}
	}()

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	r.store = store
	if db, ok := store.(*persist.SQLiteStore); ok {
		logger.Info("sqlite store opened", zap.String("path", db.Path()))
	}

	if cfg.Storage.LogPath != "" {
		if r.snapLog, err = persist.OpenSnapshotLog(cfg.Storage.LogPath); err != nil {
			return nil, fmt.Errorf("open snapshot log: %w", err)
		}
	}

	r.policy = &persist.Policy{
		Store:        r.store,
		Log:          r.snapLog,
		Logger:       logger.Named("persist"),
		Metrics:      r.metrics,
		WriteTimeout: cfg.Storage.WriteTimeout,
	}

	if cfg.MQTT.Enable {
		pub, err := persist.NewMQTTPublisher(persist.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
			Retained: cfg.MQTT.Retained,
		})
		if err != nil {
			// Keep logging locally even if the broker is down.
			logger.Warn("mqtt init failed", zap.Error(err))
		} else {
			r.mqtt = pub
			r.policy.Publisher = pub
		}
	}

	r.state = fusion.New(
		fusion.WithTrigger(nmea.Field(cfg.Decoders.Trigger)),
		fusion.WithTriggerHook(func(snap fusion.Snapshot) {
			r.policy.OnTrigger(snap)
			r.stream.Publish(snap)
			// Each position fix makes the capture durable up to this point.
			if r.recorder != nil {
				if err := r.recorder.Flush(); err != nil {
					logger.Debug("capture flush failed", zap.Error(err))
				}
			}
		}),
	)

	reg := nmea.NewRegistry()
	for id, kind := range cfg.AliasKinds() {
		reg.Alias(id, kind)
		logger.Info("decoder alias", zap.String("identifier", id), zap.Stringer("kind", kind))
	}

	opts := []ingest.PipelineOption{
		ingest.WithObserver(r.policy),
		ingest.WithMetrics(r.metrics),
		ingest.WithLogger(logger.Named("ingest")),
	}
	if cfg.Record.Enable {
		if r.recorder, err = replay.CreateWriter(cfg.Record.Path); err != nil {
			return nil, fmt.Errorf("open capture: %w", err)
		}
		opts = append(opts, ingest.WithLineTap(func(_, line string) {
			if err := r.recorder.WriteLine(time.Now(), line); err != nil {
				logger.Debug("capture write failed", zap.Error(err))
			}
		}))
	}
	if cfg.Forward.Enable {
		if r.forwarder, err = udp.NewForwarder(cfg.Forward.Dest, logger.Named("forward")); err != nil {
			return nil, err
		}
		logger.Info("forwarding sentences", zap.String("dest", r.forwarder.Dest()))
		opts = append(opts, ingest.WithSentenceTap(r.forwarder.Forward))
	}
	r.pipeline = ingest.NewPipeline(reg, r.state, opts...)

	sources := buildSources(cfg.Sources)
	if len(sources) == 0 {
		return nil, source.ErrNoSources
	}
	workerOpts := []ingest.WorkerOption{
		ingest.WithWorkerLogger(logger.Named("source")),
		ingest.WithWorkerMetrics(r.metrics),
	}
	r.runner = &ingest.Runner{
		OnError: func(name string, err error) {
			logger.Error("source failed to start", zap.String("source", name), zap.Error(err))
		},
	}
	for _, src := range sources {
		wopts := workerOpts
		if _, isFile := src.(*source.FileSource); isFile && cfg.Sources.File.Limit > 0 {
			wopts = append(wopts, ingest.WithLimit(cfg.Sources.File.Limit))
		}
		r.runner.Add(ingest.NewWorker(src, r.pipeline, wopts...))
	}

	ok = true
	return r, nil
}

func openStore(cfg config.StorageConfig) (persist.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := persist.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case "memory":
		return persist.NewMemoryStore(), nil
	default:
		return nil, nil
	}
}

func buildSources(c config.SourcesConfig) []source.Source {
	var out []source.Source
	if c.File.Enable {
		out = append(out, &source.FileSource{Path: c.File.Path, Interval: c.File.Interval})
	}
	if c.TCP.Enable {
		out = append(out, &source.TCPSource{Addr: c.TCP.Addr, DialTimeout: c.TCP.DialTimeout, ReadTimeout: c.TCP.ReadTimeout})
	}
	if c.Serial.Enable {
		out = append(out, &source.SerialSource{Device: c.Serial.Device, Baud: c.Serial.Baud})
	}
	if c.Sim.Enable {
		out = append(out, &source.SimSource{
			CenterLat: c.Sim.CenterLat,
			CenterLon: c.Sim.CenterLon,
			RadiusNM:  c.Sim.RadiusNM,
			Points:    c.Sim.Points,
			Interval:  c.Sim.Interval,
			Variation: c.Sim.Variation,
			Seed:      c.Sim.Seed,
		})
	}
	if c.Replay.Enable {
		out = append(out, &replay.Source{Path: c.Replay.Path, Speed: c.Replay.Speed, Loop: c.Replay.Loop})
	}
	return out
}

func (r *runtime) webDeps(logs *web.LogBuffer) web.Deps {
	st := web.NewStatus(r.state, r.runner.Snapshots)
	info := map[string]any{
		"storage":  r.cfg.Storage.Driver,
		"trigger":  r.cfg.Decoders.Trigger,
		"record":   r.cfg.Record.Enable,
		"mqtt":     r.mqtt != nil,
		"decoders": r.pipeline.Registry().Identifiers(),
	}
	if db, ok := r.store.(*persist.SQLiteStore); ok {
		info["storage_path"] = db.Path()
	}
	if r.forwarder != nil {
		info["forward"] = r.forwarder.Dest()
	}
	st.SetInfo(info)
	return web.Deps{
		Status:   st,
		Stream:   r.stream,
		Logs:     logs,
		Gatherer: r.registry,
		Logger:   r.logger.Named("web"),
	}
}

func (r *runtime) Close() {
	if r == nil {
		return
	}
	r.stream.Close()
	if r.recorder != nil {
		if err := r.recorder.Close(); err != nil {
			r.logger.Warn("capture close failed", zap.Error(err))
		}
		r.recorder = nil
	}
	if r.forwarder != nil {
		_ = r.forwarder.Close()
		r.forwarder = nil
	}
	if r.mqtt != nil {
		r.mqtt.Close()
		r.mqtt = nil
	}
	if r.snapLog != nil {
		_ = r.snapLog.Close()
		r.snapLog = nil
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("store close failed", zap.Error(err))
		}
		r.store = nil
	}
}
