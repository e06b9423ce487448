package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapsync/snapsync/internal/core/interp"
	"github.com/snapsync/snapsync/internal/core/observability/log"
)

// File is the on-disk configuration, loadable from JSON or YAML. Zero
// values fall back to the package defaults, so a partial file is valid.
type File struct {
	LogLevel string        `json:"log_level" yaml:"log_level"`
	Interp   InterpSection `json:"interp" yaml:"interp"`
	Server   ServerSection `json:"server" yaml:"server"`
}

// InterpSection configures the interpolation engine. Times are in
// milliseconds, distances in world units.
type InterpSection struct {
	DelayMs            float64 `json:"delay_ms" yaml:"delay_ms"`
	MaxExtrapolationMs float64 `json:"max_extrapolation_ms" yaml:"max_extrapolation_ms"`
	SnapThreshold      float64 `json:"snap_threshold" yaml:"snap_threshold"`
	MaxBufferSize      int     `json:"max_buffer_size" yaml:"max_buffer_size"`
	Shards             int     `json:"shards" yaml:"shards"`
}

// ServerSection configures the snapshot ingest server.
type ServerSection struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	ReadTimeoutMs  int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `json:"write_timeout_ms" yaml:"write_timeout_ms"`
	MaxMessageSize int64  `json:"max_message_size" yaml:"max_message_size"`
}

// Default returns the configuration used when no file is supplied.
func Default() *File {
	return &File{
		LogLevel: "info",
		Interp: InterpSection{
			DelayMs:            100,
			MaxExtrapolationMs: 200,
			SnapThreshold:      100,
			MaxBufferSize:      20,
			Shards:             16,
		},
		Server: ServerSection{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeoutMs:  30_000,
			WriteTimeoutMs: 10_000,
			MaxMessageSize: 64 * 1024,
		},
	}
}

// LoadJSON loads config from a JSON reader.
func LoadJSON(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode json config: %w", err)
	}
	return &f, nil
}

// LoadYAML loads config from a YAML reader.
func LoadYAML(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml config: %w", err)
	}
	return &f, nil
}

// LoadFile loads config from a path, choosing the decoder by extension.
func LoadFile(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fd.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(fd)
	case ".yaml", ".yml":
		return LoadYAML(fd)
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

// InterpConfig converts the interp section to an engine Config. A zero
// DelayMs is honored as-is: rendering with no jitter buffer is a valid,
// if twitchy, choice.
func (f *File) InterpConfig() interp.Config {
	return interp.Config{
		Delay:            f.Interp.DelayMs,
		MaxExtrapolation: f.Interp.MaxExtrapolationMs,
		SnapThreshold:    f.Interp.SnapThreshold,
		MaxBufferSize:    f.Interp.MaxBufferSize,
	}
}

// Level parses the configured log level.
func (f *File) Level() log.Level {
	return log.ParseLevel(f.LogLevel)
}

// ListenAddr joins host and port for net listeners.
func (f *File) ListenAddr() string {
	host := f.Server.Host
	if host == "" {
		host = Default().Server.Host
	}
	port := f.Server.Port
	if port == 0 {
		port = Default().Server.Port
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// ReadTimeout returns the server read timeout, defaulted when unset.
func (f *File) ReadTimeout() time.Duration {
	if f.Server.ReadTimeoutMs <= 0 {
		return time.Duration(Default().Server.ReadTimeoutMs) * time.Millisecond
	}
	return time.Duration(f.Server.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the server write timeout, defaulted when unset.
func (f *File) WriteTimeout() time.Duration {
	if f.Server.WriteTimeoutMs <= 0 {
		return time.Duration(Default().Server.WriteTimeoutMs) * time.Millisecond
	}
	return time.Duration(f.Server.WriteTimeoutMs) * time.Millisecond
}
