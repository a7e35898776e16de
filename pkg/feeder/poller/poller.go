// Package poller turns prices from an upstream oracle-go price server into
// TWAP samples, either by polling its HTTP API or by following its
// WebSocket stream.
package poller

import (
	"context"
	"time"

	"github.com/StrathCole/oracle-twap/pkg/feeder/price"
	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/metrics"
)

// Poller fetches prices on a fixed interval and submits one sample per symbol.
type Poller struct {
	sampler
	client   price.Client
	interval time.Duration
}

// New creates a poller.
func New(client price.Client, submitter Submitter, interval time.Duration, logger *logging.Logger) *Poller {
	return &Poller{
		sampler:  sampler{feed: submitter, logger: logger, now: time.Now},
		client:   client,
		interval: interval,
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting price poller", "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Price poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Price poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches prices once and submits them. Samples are stamped with the
// time taken before the fetch, so fetch latency does not shift the spacing
// between polls. It returns the number of entries updated. Per-symbol
// failures are logged and counted, not returned.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	stamp := p.now()
	prices, err := p.client.GetPrices(ctx)
	if err != nil {
		metrics.RecordPollError("fetch")
		return 0, err
	}

	updated := p.submit(prices, stamp)
	p.logger.Debug("Price poll complete", "prices", len(prices), "updated", updated)
	return updated, nil
}
