package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultRaceTimeout is the single wall-clock bound covering all gateways.
const DefaultRaceTimeout = 15 * time.Second

// Race fetches content by racing several sources concurrently. The first
// successful response wins. Losing branches are detached: they keep running
// until the race timeout and their results are discarded.
type Race struct {
	sources []Fetcher
	timeout time.Duration
	logger  *zap.Logger
}

// RaceOption configures a Race
type RaceOption func(*Race)

// WithRaceTimeout overrides the overall race timeout
func WithRaceTimeout(timeout time.Duration) RaceOption {
	return func(r *Race) {
		r.timeout = timeout
	}
}

// WithRaceLogger sets the logger
func WithRaceLogger(logger *zap.Logger) RaceOption {
	return func(r *Race) {
		r.logger = logger
	}
}

// NewRace creates a race over sources.
func NewRace(sources []Fetcher, opts ...RaceOption) *Race {
	r := &Race{
		sources: sources,
		timeout: DefaultRaceTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewGatewayRace creates a race over HTTP gateways at the given base URLs.
func NewGatewayRace(urls []string, gatewayOpts []GatewayOption, opts ...RaceOption) *Race {
	sources := make([]Fetcher, len(urls))
	for i, url := range urls {
		sources[i] = NewGateway(url, gatewayOpts...)
	}
	return NewRace(sources, opts...)
}

type raceResult struct {
	index int
	data  []byte
	err   error
}

// Get resolves an "ipfs://<cid>" locator.
func (r *Race) Get(ctx context.Context, locator string) ([]byte, error) {
	id, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	if len(r.sources) == 0 {
		return nil, fmt.Errorf("%w: no gateways configured", ErrAllGatewaysFailed)
	}

	// Branches outlive this call until the race deadline.
	branchCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	context.AfterFunc(branchCtx, stop)

	results := make(chan raceResult, len(r.sources))
	for i, source := range r.sources {
		go func(index int, source Fetcher) {
			data, err := source.Fetch(branchCtx, id)
			results <- raceResult{index: index, data: data, err: err}
		}(i, source)
	}

	var errs []error
	for pending := len(r.sources); pending > 0; pending-- {
		select {
		case res := <-results:
			if res.err == nil {
				r.logger.Debug("Content fetched",
					zap.String("cid", id.String()),
					zap.Int("source", res.index))
				return res.data, nil
			}
			r.logger.Debug("Content source failed",
				zap.String("cid", id.String()),
				zap.Int("source", res.index),
				zap.Error(res.err))
			errs = append(errs, res.err)
		case <-branchCtx.Done():
			return nil, fmt.Errorf("%w: timed out after %s", ErrAllGatewaysFailed, r.timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrAllGatewaysFailed, errors.Join(errs...))
}
