package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/StrathCole/oracle-twap/pkg/twap"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateEntries(cfg.Entries); err != nil {
		return fmt.Errorf("entries: %w", err)
	}

	if cfg.Feed.Enabled {
		if err := validateFeedConfig(&cfg.Feed); err != nil {
			return fmt.Errorf("feed config: %w", err)
		}
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return ErrTLSConfigIncomplete
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSCertNotFound, cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSKeyNotFound, cfg.HTTP.TLS.Key)
		}
	}
	return nil
}

func validateEntries(entries []EntryConfig) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}

	ids := make(map[int]bool, len(entries))
	symbols := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID < 0 || e.ID >= twap.MaxEntries {
			return fmt.Errorf("%w: %d (max %d)", ErrEntryIDOutOfRange, e.ID, twap.MaxEntries-1)
		}
		if ids[e.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateEntry, e.ID)
		}
		ids[e.ID] = true

		symbol := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if symbol == "" {
			return fmt.Errorf("entry %d: %w", e.ID, ErrSymbolRequired)
		}
		if symbols[symbol] {
			return fmt.Errorf("%w: %s", ErrDuplicateSymbol, e.Symbol)
		}
		symbols[symbol] = true

		if _, err := e.Mask(); err != nil {
			return err
		}
	}

	// Sources are checked once every id is known.
	for _, e := range entries {
		if e.Source == nil {
			continue
		}
		src := *e.Source
		if src == e.ID || !ids[src] {
			return fmt.Errorf("%w: entry %d reads %d", ErrInvalidSource, e.ID, src)
		}
	}
	return nil
}

func validateFeedConfig(cfg *FeedConfig) error {
	switch strings.ToLower(cfg.Mode) {
	case FeedModePoll:
		if cfg.URL == "" {
			return ErrFeedURLRequired
		}
	case FeedModeStream:
		if cfg.WSURL == "" {
			return ErrFeedWSURLRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %s (must be 'poll' or 'stream')", ErrInvalidFeedMode, cfg.Mode)
	}
	if cfg.Interval.ToDuration() < MinFeedInterval {
		return fmt.Errorf("%w: %s (min %s)", ErrFeedIntervalTooShort, cfg.Interval.ToDuration(), MinFeedInterval)
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
