package poller

import (
	"errors"
	"sync"
	"time"

	"github.com/StrathCole/oracle-twap/pkg/feeder/price"
	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/metrics"
	"github.com/StrathCole/oracle-twap/pkg/server/feed"
	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

// Submitter accepts samples by symbol. Implemented by *feed.Service.
type Submitter interface {
	SubmitSymbol(symbol string, sample twap.Sample) (int, error)
}

// sampler converts upstream prices to samples stamped with the local clock.
type sampler struct {
	feed   Submitter
	logger *logging.Logger
	now    func() time.Time

	mu           sync.Mutex
	lastSequence uint64
}

// nextSequence returns now in milliseconds, bumped past the previous
// sequence when the clock did not advance.
func (s *sampler) nextSequence(now time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := uint64(now.UnixMilli())
	if seq <= s.lastSequence {
		seq = s.lastSequence + 1
	}
	s.lastSequence = seq
	return seq
}

// submit applies one sample per price and returns how many entries changed.
func (s *sampler) submit(prices []price.Price, now time.Time) int {
	sample := twap.Sample{
		UnixTimestamp: uint64(now.Unix()),
		Sequence:      s.nextSequence(now),
	}

	updated := 0
	for _, pr := range prices {
		converted, err := wad.PriceFromShopspring(pr.Price)
		if err != nil {
			metrics.RecordPollError("convert")
			s.logger.Warn("Skipping unconvertible price", "symbol", pr.Symbol, "price", pr.Price.String(), "error", err)
			continue
		}
		sample.Price = converted

		n, err := s.feed.SubmitSymbol(pr.Symbol, sample)
		updated += n
		switch {
		case errors.Is(err, feed.ErrUnknownSymbol):
			// Upstream serves more symbols than are tracked.
		case err != nil:
			metrics.RecordPollError("submit")
			s.logger.Warn("Sample not applied", "symbol", pr.Symbol, "error", err)
		}
	}
	return updated
}
