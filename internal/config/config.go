package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"sailperf/internal/nmea"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Sources  SourcesConfig  `yaml:"sources"`
	Decoders DecodersConfig `yaml:"decoders"`
	Storage  StorageConfig  `yaml:"storage"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Forward  ForwardConfig  `yaml:"forward"`
	Record   RecordConfig   `yaml:"record"`
	Web      WebConfig      `yaml:"web"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type SourcesConfig struct {
	File   FileSourceConfig   `yaml:"file"`
	TCP    TCPSourceConfig    `yaml:"tcp"`
	Serial SerialSourceConfig `yaml:"serial"`
	Sim    SimSourceConfig    `yaml:"sim"`
	Replay ReplaySourceConfig `yaml:"replay"`
}

type FileSourceConfig struct {
	Enable   bool          `yaml:"enable"`
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
	// Limit bounds the lines read per run; 0 reads to the end.
	Limit int `yaml:"limit"`
}

type TCPSourceConfig struct {
	Enable      bool          `yaml:"enable"`
	Addr        string        `yaml:"addr"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type SerialSourceConfig struct {
	Enable bool   `yaml:"enable"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type SimSourceConfig struct {
	Enable    bool          `yaml:"enable"`
	CenterLat float64       `yaml:"center_lat"`
	CenterLon float64       `yaml:"center_lon"`
	RadiusNM  float64       `yaml:"radius_nm"`
	Points    int           `yaml:"points"`
	Interval  time.Duration `yaml:"interval"`
	Variation float64       `yaml:"variation"`
	Seed      uint64        `yaml:"seed"`
}

type ReplaySourceConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

type DecodersConfig struct {
	// Aliases maps extra sentence identifiers to a decoder kind, e.g.
	// "$TROT": "ROT" for gateways that emit a truncated rate-of-turn prefix.
	Aliases map[string]string `yaml:"aliases"`
	// Trigger is the field whose arrival persists a snapshot.
	Trigger string `yaml:"trigger"`
}

type StorageConfig struct {
	// Driver is one of sqlite, memory or none.
	Driver       string        `yaml:"driver"`
	Path         string        `yaml:"path"`
	LogPath      string        `yaml:"log_path"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      int    `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

type ForwardConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes and validates a YAML document, applying defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level %q is invalid", cfg.Log.Level)
	}

	s := &cfg.Sources
	if !s.File.Enable && !s.TCP.Enable && !s.Serial.Enable && !s.Sim.Enable && !s.Replay.Enable {
		return fmt.Errorf("sources: at least one source must be enabled")
	}

	if s.File.Enable {
		if strings.TrimSpace(s.File.Path) == "" {
			return fmt.Errorf("sources.file.path is required when sources.file.enable is true")
		}
		if s.File.Limit < 0 {
			return fmt.Errorf("sources.file.limit must be >= 0")
		}
	}

	if s.TCP.Addr == "" {
		// Actisense W2K-1 default access point address.
		s.TCP.Addr = "192.168.4.1:60001"
	}
	if s.TCP.DialTimeout <= 0 {
		s.TCP.DialTimeout = 10 * time.Second
	}
	if s.TCP.ReadTimeout <= 0 {
		s.TCP.ReadTimeout = 10 * time.Second
	}

	if s.Serial.Baud == 0 {
		s.Serial.Baud = 4800
	}

	// Simulator defaults (safe even if disabled).
	if s.Sim.CenterLat == 0 && s.Sim.CenterLon == 0 {
		s.Sim.CenterLat, s.Sim.CenterLon = 37.7749, -122.4194
	}
	if s.Sim.RadiusNM <= 0 {
		s.Sim.RadiusNM = 1
	}
	if s.Sim.Points <= 0 {
		s.Sim.Points = 360
	}
	if s.Sim.Points < 2 {
		return fmt.Errorf("sources.sim.points must be >= 2")
	}
	if s.Sim.Interval <= 0 {
		s.Sim.Interval = 500 * time.Millisecond
	}

	if s.Replay.Enable {
		if strings.TrimSpace(s.Replay.Path) == "" {
			return fmt.Errorf("sources.replay.path is required when sources.replay.enable is true")
		}
		if s.Replay.Speed == 0 {
			s.Replay.Speed = 1
		}
		if s.Replay.Speed < 0 {
			return fmt.Errorf("sources.replay.speed must be > 0")
		}
	}

	if cfg.Record.Enable {
		if strings.TrimSpace(cfg.Record.Path) == "" {
			return fmt.Errorf("record.path is required when record.enable is true")
		}
		if s.Replay.Enable {
			return fmt.Errorf("record and sources.replay cannot both be enabled")
		}
	}

	if cfg.Decoders.Trigger == "" {
		cfg.Decoders.Trigger = string(nmea.GLLTime)
	}
	if !knownField(nmea.Field(cfg.Decoders.Trigger)) {
		return fmt.Errorf("decoders.trigger %q is not a known field", cfg.Decoders.Trigger)
	}
	for _, id := range sortedKeys(cfg.Decoders.Aliases) {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("decoders.aliases: identifier is empty")
		}
		kind := cfg.Decoders.Aliases[id]
		if _, ok := nmea.KindFromString(kind); !ok {
			return fmt.Errorf("decoders.aliases: unknown kind %q for %q", kind, id)
		}
	}

	st := &cfg.Storage
	if st.Driver == "" {
		st.Driver = "sqlite"
	}
	switch st.Driver {
	case "sqlite":
		if st.Path == "" {
			st.Path = "sailperf.db"
		}
	case "memory", "none":
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, memory, none")
	}
	if st.WriteTimeout <= 0 {
		st.WriteTimeout = 2 * time.Second
	}

	if cfg.MQTT.Enable {
		if strings.TrimSpace(cfg.MQTT.Broker) == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "sailperf/snapshot"
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "sailperf"
		}
	}

	if cfg.Forward.Enable && strings.TrimSpace(cfg.Forward.Dest) == "" {
		return fmt.Errorf("forward.dest is required when forward.enable is true")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	return nil
}

// AliasKinds resolves the configured aliases. Load has already validated
// every kind name.
func (cfg Config) AliasKinds() map[string]nmea.Kind {
	out := make(map[string]nmea.Kind, len(cfg.Decoders.Aliases))
	for id, name := range cfg.Decoders.Aliases {
		if k, ok := nmea.KindFromString(name); ok {
			out[id] = k
		}
	}
	return out
}

func knownField(f nmea.Field) bool {
	for _, r := range nmea.Vocabulary {
		if r.Field == f {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
