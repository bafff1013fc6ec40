package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crossarb/crossarb/business/market/domain"
	"github.com/crossarb/crossarb/internal/apperror"
	"github.com/crossarb/crossarb/internal/logger"
)

const (
	aggregatorScope   = "quote_aggregator"
	metricFetchTotal  = "venue_quote_fetches_total"
	defaultFetchLimit = 4 * time.Second
)

// Aggregator fans out quote fetches to every registered venue and joins
// the results into one snapshot. A venue failure becomes a snapshot
// entry, never an aggregation error.
type Aggregator struct {
	registry     *Registry
	fetchTimeout time.Duration
	log          logger.LoggerInterface
	fetchCounter metric.Int64Counter
}

// NewAggregator creates an Aggregator over registry. fetchTimeout bounds
// each venue call independently.
func NewAggregator(registry *Registry, fetchTimeout time.Duration, log logger.LoggerInterface) *Aggregator {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchLimit
	}

	meter := otel.Meter(aggregatorScope)
	counter, _ := meter.Int64Counter(metricFetchTotal)

	return &Aggregator{
		registry:     registry,
		fetchTimeout: fetchTimeout,
		log:          log,
		fetchCounter: counter,
	}
}

// Collect queries every venue concurrently for pair and returns once
// each venue has responded or timed out. There are no retries here, the
// next poll cycle is the retry.
func (a *Aggregator) Collect(ctx context.Context, pair domain.Pair) domain.Snapshot {
	return a.collect(ctx, pair, a.registry)
}

// CollectVenues queries only the named venues. Re-verification uses
// this to re-quote just the winning direction without spending request
// budget on the venues that lost.
func (a *Aggregator) CollectVenues(ctx context.Context, pair domain.Pair, names ...string) (domain.Snapshot, error) {
	subset, err := a.registry.Subset(names...)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return a.collect(ctx, pair, subset), nil
}

func (a *Aggregator) collect(ctx context.Context, pair domain.Pair, registry *Registry) domain.Snapshot {
	ctx, span := otel.Tracer(aggregatorScope).Start(ctx, "aggregator.collect",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.Int("venues", registry.Len()),
		))
	defer span.End()

	gateways := registry.All()
	results := make([]domain.VenueResult, len(gateways))

	var wg sync.WaitGroup
	for i, gw := range gateways {
		wg.Add(1)
		go func(i int, gw VenueGateway) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, gw, pair)
		}(i, gw)
	}
	wg.Wait()

	snap := domain.NewSnapshot(pair, results)
	if failed := snap.Failed(); len(failed) > 0 {
		for _, r := range failed {
			a.log.Warn(ctx, "venue quote fetch failed",
				"venue", r.Venue,
				"pair", pair.String(),
				"code", apperror.GetCode(r.Err),
				"error", r.Err)
		}
	}
	return snap
}

func (a *Aggregator) fetchOne(ctx context.Context, gw VenueGateway, pair domain.Pair) domain.VenueResult {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	quote, err := gw.FetchQuote(fetchCtx, pair)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if fetchCtx.Err() == context.DeadlineExceeded {
			err = apperror.Fetch(apperror.CodeVenueUnavailable, gw.Name(), err)
		}
	}

	a.fetchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("venue", gw.Name()),
		attribute.String("outcome", outcome),
	))

	return domain.VenueResult{Venue: gw.Name(), Quote: quote, Err: err}
}
