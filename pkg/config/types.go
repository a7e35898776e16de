package config

import (
	"fmt"
	"time"

	"github.com/StrathCole/oracle-twap/pkg/twap"
)

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Feed    FeedConfig    `yaml:"feed"`
	Entries []EntryConfig `yaml:"entries"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API and WebSocket stream
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
	// Admin enables the reset endpoint.
	Admin bool `yaml:"admin"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// StoreConfig configures record persistence. An empty path keeps records
// in memory only.
type StoreConfig struct {
	Path string `yaml:"path"`
	Sync bool   `yaml:"sync"`
}

// Poll interval bounds. Unix-second stamps of two polls taken at least
// MinFeedInterval apart always differ by the minimum sample spacing, even
// when ticks are delivered late.
const (
	MinFeedInterval     = (twap.MinSampleInterval + 1) * time.Second
	DefaultFeedInterval = 35 * time.Second
)

// Feed modes.
const (
	FeedModePoll   = "poll"
	FeedModeStream = "stream"
)

// FeedConfig configures the upstream oracle-go price server adapter
type FeedConfig struct {
	Enabled bool `yaml:"enabled"`
	// Mode is "poll" (HTTP /v1/prices on Interval) or "stream" (WebSocket price_update feed).
	Mode     string   `yaml:"mode"`
	URL      string   `yaml:"url"`
	WSURL    string   `yaml:"ws_url"`
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

// EntryConfig assigns a table slot to a symbol
type EntryConfig struct {
	ID         int      `yaml:"id"`
	Symbol     string   `yaml:"symbol"`
	Timeframes []string `yaml:"timeframes"`
	// RawMask is the raw enabled-timeframe bitmask byte
	// (bit 0 = 1h, bit 1 = 8h, bit 2 = 24h). Exclusive with Timeframes.
	RawMask *uint8 `yaml:"mask"`
	// Source makes reads of this entry use another entry's record.
	Source *int `yaml:"source"`
}

// Mask returns the enabled timeframes of the entry. An entry that lists
// no timeframes and mirrors nothing maintains all of them.
func (e EntryConfig) Mask() (twap.EnabledMask, error) {
	if e.RawMask != nil {
		if len(e.Timeframes) > 0 {
			return 0, fmt.Errorf("entry %d: %w", e.ID, ErrMaskConflict)
		}
		mask, err := twap.MaskFromByte(*e.RawMask)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		return mask, nil
	}
	if len(e.Timeframes) == 0 {
		if e.Source != nil {
			return 0, nil
		}
		return twap.MaskAll, nil
	}
	var mask twap.EnabledMask
	for _, name := range e.Timeframes {
		tf, err := twap.ParseTimeframe(name)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		mask = mask.Enable(tf)
	}
	return mask, nil
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
