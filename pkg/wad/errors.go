// Package wad provides 18-decimal fixed-point arithmetic for oracle prices.
package wad

import "errors"

var (
	// ErrOverflow indicates that a result does not fit in the target width.
	ErrOverflow = errors.New("fixed-point overflow")
	// ErrUnderflow indicates that a subtraction would go below zero.
	ErrUnderflow = errors.New("fixed-point underflow")
	// ErrDivisionByZero indicates a division by a zero value.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNegative indicates that a negative decimal cannot be represented.
	ErrNegative = errors.New("negative value not representable")
)
