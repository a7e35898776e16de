// Package feed owns the TWAP table and serializes sample submission,
// persistence and reads for the API and the poller.
package feed

import "errors"

var (
	// ErrUnknownEntry indicates an entry id with no configuration.
	ErrUnknownEntry = errors.New("entry not configured")
	// ErrUnknownSymbol indicates a symbol no entry is configured for.
	ErrUnknownSymbol = errors.New("no entry for symbol")
	// ErrPersist indicates that an applied update could not be stored and was rolled back.
	ErrPersist = errors.New("persist record")
)
