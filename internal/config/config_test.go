package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sailperf/internal/nmea"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const simOnly = "sources:\n  sim:\n    enable: true\n"

func TestLoad_RequiresSource(t *testing.T) {
	path := writeTempConfig(t, "sources: {}\n")
	_, err := Load(path)
	requireErrEq(t, err, "sources: at least one source must be enabled")
}

func TestLoad_EmptyFileRequiresSource(t *testing.T) {
	path := writeTempConfig(t, "")
	_, err := Load(path)
	requireErrEq(t, err, "sources: at least one source must be enabled")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, simOnly)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log.level=%q want info", cfg.Log.Level)
	}
	if cfg.Sources.TCP.Addr != "192.168.4.1:60001" || cfg.Sources.TCP.ReadTimeout != 10*time.Second {
		t.Fatalf("tcp defaults=%+v", cfg.Sources.TCP)
	}
	if cfg.Sources.Serial.Baud != 4800 {
		t.Fatalf("serial.baud=%d want 4800", cfg.Sources.Serial.Baud)
	}
	sim := cfg.Sources.Sim
	if sim.CenterLat != 37.7749 || sim.CenterLon != -122.4194 || sim.RadiusNM != 1 || sim.Points != 360 {
		t.Fatalf("sim defaults=%+v", sim)
	}
	if sim.Interval != 500*time.Millisecond {
		t.Fatalf("sim.interval=%s want 500ms", sim.Interval)
	}
	if cfg.Decoders.Trigger != "gpgll_time" {
		t.Fatalf("trigger=%q", cfg.Decoders.Trigger)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "sailperf.db" || cfg.Storage.WriteTimeout != 2*time.Second {
		t.Fatalf("storage defaults=%+v", cfg.Storage)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("web.listen=%q", cfg.Web.Listen)
	}
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeTempConfig(t, `
log:
  level: debug
sources:
  file:
    enable: true
    path: ./testdata/run.nmea
    interval: 100ms
    limit: 1000
  tcp:
    enable: true
    addr: 10.0.0.5:10110
decoders:
  aliases:
    $TROT: rot
storage:
  driver: memory
  log_path: ./sailperf.log
mqtt:
  enable: true
  broker: tcp://localhost:1883
  qos: 1
forward:
  enable: true
  dest: 127.0.0.1:10110
record:
  enable: true
  path: ./capture.log
web:
  enable: true
  listen: 127.0.0.1:9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sources.File.Limit != 1000 || cfg.Sources.File.Interval != 100*time.Millisecond {
		t.Fatalf("file=%+v", cfg.Sources.File)
	}
	if cfg.MQTT.Topic != "sailperf/snapshot" || cfg.MQTT.ClientID != "sailperf" || cfg.MQTT.QoS != 1 {
		t.Fatalf("mqtt=%+v", cfg.MQTT)
	}
	kinds := cfg.AliasKinds()
	if kinds["$TROT"] != nmea.KindROT {
		t.Fatalf("aliases=%v", kinds)
	}
	if cfg.Storage.Driver != "memory" || cfg.Storage.Path != "" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"file path", "sources:\n  file:\n    enable: true\n", "sources.file.path is required when sources.file.enable is true"},
		{"file limit", "sources:\n  file:\n    enable: true\n    path: a\n    limit: -1\n", "sources.file.limit must be >= 0"},
		{"replay path", "sources:\n  replay:\n    enable: true\n", "sources.replay.path is required when sources.replay.enable is true"},
		{"replay speed", "sources:\n  replay:\n    enable: true\n    path: a\n    speed: -2\n", "sources.replay.speed must be > 0"},
		{"record path", simOnly + "record:\n  enable: true\n", "record.path is required when record.enable is true"},
		{"record with replay", "sources:\n  replay:\n    enable: true\n    path: a\nrecord:\n  enable: true\n  path: b\n", "record and sources.replay cannot both be enabled"},
		{"log level", simOnly + "log:\n  level: loud\n", `log.level "loud" is invalid`},
		{"alias kind", simOnly + "decoders:\n  aliases:\n    $TROT: FOO\n", `decoders.aliases: unknown kind "FOO" for "$TROT"`},
		{"trigger", simOnly + "decoders:\n  trigger: nope\n", `decoders.trigger "nope" is not a known field`},
		{"storage driver", simOnly + "storage:\n  driver: postgres\n", "storage.driver must be one of sqlite, memory, none"},
		{"mqtt broker", simOnly + "mqtt:\n  enable: true\n", "mqtt.broker is required when mqtt.enable is true"},
		{"mqtt qos", simOnly + "mqtt:\n  enable: true\n  broker: tcp://x:1883\n  qos: 3\n", "mqtt.qos must be 0, 1 or 2"},
		{"forward dest", simOnly + "forward:\n  enable: true\n", "forward.dest is required when forward.enable is true"},
		{"sim points", "sources:\n  sim:\n    enable: true\n    points: 1\n", "sources.sim.points must be >= 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, simOnly+"    speed: 3\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "field speed not found in type config.SimSourceConfig") {
		t.Fatalf("error=%q", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err=%v want not-exist", err)
	}
}
