// Package config provides configuration loading and validation for oracle-twap.
package config

import "errors"

var (
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrTLSCertNotFound indicates that the TLS cert file was not found.
	ErrTLSCertNotFound = errors.New("TLS cert file not found")
	// ErrTLSKeyNotFound indicates that the TLS key file was not found.
	ErrTLSKeyNotFound = errors.New("TLS key file not found")
	// ErrNoEntries indicates that no entries are configured.
	ErrNoEntries = errors.New("at least one entry must be configured")
	// ErrEntryIDOutOfRange indicates an entry id outside the table.
	ErrEntryIDOutOfRange = errors.New("entry id out of range")
	// ErrDuplicateEntry indicates that two entries share an id.
	ErrDuplicateEntry = errors.New("duplicate entry id")
	// ErrDuplicateSymbol indicates that two entries share a symbol.
	ErrDuplicateSymbol = errors.New("duplicate entry symbol")
	// ErrSymbolRequired indicates that an entry has no symbol.
	ErrSymbolRequired = errors.New("entry symbol is required")
	// ErrInvalidSource indicates a mirror source that is not a configured entry.
	ErrInvalidSource = errors.New("invalid entry source")
	// ErrFeedURLRequired indicates that feed.url must be specified.
	ErrFeedURLRequired = errors.New("feed.url must be specified")
	// ErrMaskConflict indicates an entry setting both mask and timeframes.
	ErrMaskConflict = errors.New("entry mask and timeframes are exclusive")
	// ErrInvalidFeedMode indicates an unknown feed.mode.
	ErrInvalidFeedMode = errors.New("invalid feed.mode")
	// ErrFeedWSURLRequired indicates that feed.ws_url must be specified in stream mode.
	ErrFeedWSURLRequired = errors.New("feed.ws_url must be specified")
	// ErrFeedIntervalTooShort indicates a poll interval below MinFeedInterval.
	ErrFeedIntervalTooShort = errors.New("feed.interval too short")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
