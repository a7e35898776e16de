// Package store persists TWAP records in LevelDB using the fixed 672-byte
// record layout.
package store

import "errors"

var (
	// ErrInvalidLength indicates an encoded record of the wrong size.
	ErrInvalidLength = errors.New("invalid record length")
	// ErrValueTooLarge indicates an EMA value that does not fit 128 bits.
	ErrValueTooLarge = errors.New("ema value exceeds 128 bits")
	// ErrInvalidKey indicates a stored key outside the record key space.
	ErrInvalidKey = errors.New("invalid record key")
	// ErrClosed indicates use of a closed store.
	ErrClosed = errors.New("store closed")
)
