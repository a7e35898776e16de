package twap

import (
	"fmt"
	"math/bits"
)

// TrackerPoints is the number of buckets a window is split into.
const TrackerPoints = 64

// SampleTracker is a circular presence bitmap over the most recent window.
// Bit i is set when at least one sample landed in bucket i, where a bucket
// is window/64 seconds wide and indexed by absolute time modulo the window.
type SampleTracker uint64

// bucket maps a timestamp to its position in the ring.
func bucket(ts, window uint64) uint64 {
	if window < TrackerPoints {
		panic(fmt.Sprintf("twap: window %ds is shorter than %d buckets", window, TrackerPoints))
	}
	// ts*64 can exceed 64 bits; hi < 64 <= window keeps Div64 in range.
	hi, lo := bits.Mul64(ts, TrackerPoints)
	q, _ := bits.Div64(hi, lo, window)
	return q % TrackerPoints
}

// rangeMask returns ones over bits [from, to] inclusive.
func rangeMask(from, to uint64) uint64 {
	width := to - from + 1
	if width >= TrackerPoints {
		return ^uint64(0)
	}
	return (uint64(1)<<width - 1) << from
}

// EraseStale clears the buckets that fell out of the window between the
// last update and the current one.
func (s *SampleTracker) EraseStale(window, current, last uint64) {
	if current < last {
		panic(fmt.Sprintf("twap: current timestamp %d before last update %d", current, last))
	}
	if current-last >= window {
		*s = 0
		return
	}

	lastPoint := bucket(last, window)
	currentPoint := bucket(current, window)
	if lastPoint == currentPoint {
		return
	}

	first := (lastPoint + 1) % TrackerPoints
	if first <= currentPoint {
		*s &^= SampleTracker(rangeMask(first, currentPoint))
	} else {
		*s &^= SampleTracker(rangeMask(first, TrackerPoints-1) | rangeMask(0, currentPoint))
	}
}

// Record erases stale buckets and marks the bucket of current as populated.
func (s *SampleTracker) Record(window, current, last uint64) {
	s.EraseStale(window, current, last)
	*s |= 1 << bucket(current, window)
}

// Count returns the number of populated buckets.
func (s SampleTracker) Count() uint32 {
	return uint32(bits.OnesCount64(uint64(s)))
}

// chronological rotates the ring so that bit 0 is the oldest bucket and
// bit 63 the bucket containing current.
func (s SampleTracker) chronological(window, current uint64) uint64 {
	pivot := (bucket(current, window) + 1) % TrackerPoints
	return bits.RotateLeft64(uint64(s), -int(pivot))
}

func subwindowSizes(n int) (size, larger int) {
	if n < 1 || n > TrackerPoints {
		panic(fmt.Sprintf("twap: %d sub-windows out of range [1, %d]", n, TrackerPoints))
	}
	return TrackerPoints / n, TrackerPoints % n
}

// CountPerSubwindow splits the ring into n contiguous groups ordered from
// oldest to newest, ending at the bucket of current, and returns the number
// of populated buckets in each. When 64 is not a multiple of n the earliest
// groups are one bucket larger.
func (s SampleTracker) CountPerSubwindow(window, current uint64, n int) []uint32 {
	size, larger := subwindowSizes(n)
	sorted := s.chronological(window, current)

	counts := make([]uint32, n)
	start := 0
	for i := range counts {
		end := start + size
		if i < larger {
			end++
		}
		counts[i] = uint32(bits.OnesCount64(sorted & rangeMask(uint64(start), uint64(end-1))))
		start = end
	}
	return counts
}

// SubwindowEdges returns the counts of the oldest and newest of n
// sub-windows without allocating. It matches the first and last element of
// CountPerSubwindow.
func (s SampleTracker) SubwindowEdges(window, current uint64, n int) (oldest, newest uint32) {
	size, larger := subwindowSizes(n)
	sorted := s.chronological(window, current)

	first := size
	if larger > 0 {
		first++
	}
	oldest = uint32(bits.OnesCount64(sorted & rangeMask(0, uint64(first-1))))
	newest = uint32(bits.OnesCount64(sorted & rangeMask(uint64(TrackerPoints-size), TrackerPoints-1)))
	return oldest, newest
}
