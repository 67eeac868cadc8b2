package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNoQuote signals that no source could produce a usable quote.
	ErrNoQuote = errors.New("oracle: no quote available")
	// ErrStaleQuote rejects quotes older than the freshness window.
	ErrStaleQuote = errors.New("oracle: quote too old")
	// ErrUnknownPair rejects pairs a source has never seen.
	ErrUnknownPair = errors.New("oracle: unknown pair")
	// ErrInvalidRate rejects nil, zero or negative exchange rates.
	ErrInvalidRate = errors.New("oracle: invalid rate")
)

// PriceQuote is one observation of an exchange rate. Rate is expressed as
// base token units per one quote token unit, decimals already normalized.
type PriceQuote struct {
	Rate      *big.Rat
	Timestamp int64
	Source    string
}

// PriceOracle answers the current exchange rate for a token pair.
type PriceOracle interface {
	GetRate(base, quote string) (PriceQuote, error)
}

func pairKey(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + "/" + strings.ToUpper(strings.TrimSpace(quote))
}

// ManualOracle serves operator-pinned rates. It backs tests and acts as the
// incident override source in production deployments.
type ManualOracle struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
}

func NewManualOracle() *ManualOracle {
	return &ManualOracle{quotes: make(map[string]PriceQuote)}
}

// SetRate pins the rate for a pair. The timestamp marks when the observation
// was made, not when it was pinned.
func (m *ManualOracle) SetRate(base, quote string, rate *big.Rat, timestamp int64) error {
	if rate == nil || rate.Sign() <= 0 {
		return ErrInvalidRate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[pairKey(base, quote)] = PriceQuote{
		Rate:      new(big.Rat).Set(rate),
		Timestamp: timestamp,
		Source:    "manual",
	}
	return nil
}

func (m *ManualOracle) GetRate(base, quote string) (PriceQuote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[pairKey(base, quote)]
	if !ok {
		return PriceQuote{}, fmt.Errorf("%w: %s", ErrUnknownPair, pairKey(base, quote))
	}
	return PriceQuote{Rate: new(big.Rat).Set(q.Rate), Timestamp: q.Timestamp, Source: q.Source}, nil
}

// Aggregator consults sources in priority order and returns the first quote
// inside the freshness window. Errors and stale quotes skip to the next
// source.
type Aggregator struct {
	priority []string
	sources  map[string]PriceOracle
	maxAge   int64
	nowFn    func() int64
}

// NewAggregator builds an aggregator over the named sources. Names in the
// priority list without a registered source are skipped.
func NewAggregator(priority []string, sources map[string]PriceOracle, maxQuoteAgeSeconds int64) *Aggregator {
	return &Aggregator{
		priority: append([]string(nil), priority...),
		sources:  sources,
		maxAge:   maxQuoteAgeSeconds,
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetClock overrides the freshness clock. Tests freeze it.
func (a *Aggregator) SetClock(now func() int64) {
	if a == nil || now == nil {
		return
	}
	a.nowFn = now
}

func (a *Aggregator) GetRate(base, quote string) (PriceQuote, error) {
	if a == nil || len(a.sources) == 0 {
		return PriceQuote{}, ErrNoQuote
	}
	now := a.nowFn()
	var lastErr error
	for _, name := range a.priority {
		source, ok := a.sources[name]
		if !ok {
			continue
		}
		q, err := source.GetRate(base, quote)
		if err != nil {
			lastErr = err
			continue
		}
		if q.Rate == nil || q.Rate.Sign() <= 0 {
			lastErr = ErrInvalidRate
			continue
		}
		if a.maxAge > 0 && now-q.Timestamp > a.maxAge {
			lastErr = fmt.Errorf("%w: %s from %s", ErrStaleQuote, pairKey(base, quote), name)
			continue
		}
		return q, nil
	}
	if lastErr != nil {
		return PriceQuote{}, fmt.Errorf("%w: %v", ErrNoQuote, lastErr)
	}
	return PriceQuote{}, ErrNoQuote
}
