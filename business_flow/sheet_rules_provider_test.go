package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSheetProvider(src *memorySheetSource, ttl time.Duration, rc *redis.Client) *CachedSheetRulesProvider {
	p := NewSheetRulesProvider(src, rc, SheetRulesProviderConfig{TTL: ttl, FetchTimeout: time.Second, RedisPrefix: "test:"}, testLogger())
	p.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return p
}

func TestSheetRulesProviderCaches(t *testing.T) {
	src := &memorySheetSource{rows: referenceSheetRows()}
	p := newTestSheetProvider(src, time.Minute, nil)
	ctx := context.Background()

	first, err := p.Rules(ctx)
	require.NoError(t, err)
	second, err := p.Rules(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.readCount())
	assert.Equal(t, 500.0, first.TableOnlyBase)
}

func TestSheetRulesProviderRetriesTransientFailures(t *testing.T) {
	src := &memorySheetSource{err: errSourceDown}
	p := newTestSheetProvider(src, time.Minute, nil)

	_, err := p.Rules(context.Background())
	assert.ErrorIs(t, err, errSourceDown)
	assert.Equal(t, 3, src.readCount())
}

func TestSheetRulesProviderMalformedSheetIsNotRetried(t *testing.T) {
	rows := append(referenceSheetRows(), []string{"vat", "20"})
	src := &memorySheetSource{rows: rows}
	p := newTestSheetProvider(src, time.Minute, nil)

	_, err := p.Rules(context.Background())
	require.Error(t, err)
	assert.True(t, pricing.IsConfigError(err))
	assert.Equal(t, 1, src.readCount())
}

func TestSheetRulesProviderServesStaleOnFailure(t *testing.T) {
	src := &memorySheetSource{rows: referenceSheetRows()}
	p := newTestSheetProvider(src, 20*time.Millisecond, nil)
	ctx := context.Background()

	good, err := p.Rules(ctx)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	src.set(nil, errSourceDown)

	stale, err := p.Rules(ctx)
	require.NoError(t, err)
	assert.Same(t, good, stale)
	assert.Greater(t, src.readCount(), 1)

	// Once the sheet is back the next lookup picks up new values.
	updated := referenceSheetRows()
	updated[5] = []string{"startup_discount", "40"}
	src.set(updated, nil)
	fresh, err := p.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40.0, fresh.StartupDiscount)
}

func TestSheetRulesProviderInvalidate(t *testing.T) {
	src := &memorySheetSource{rows: referenceSheetRows()}
	p := newTestSheetProvider(src, time.Hour, nil)
	ctx := context.Background()

	_, err := p.Rules(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Invalidate(ctx))
	_, err = p.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.readCount())
}

func TestSheetRulesProviderDisabled(t *testing.T) {
	p := NewSheetRulesProvider(nil, nil, SheetRulesProviderConfig{}, testLogger())

	assert.False(t, p.Enabled())
	_, err := p.Rules(context.Background())
	assert.ErrorIs(t, err, ErrSheetPricingDisabled)
	assert.ErrorIs(t, p.Invalidate(context.Background()), ErrSheetPricingDisabled)
}

func TestSheetRulesProviderToleratesUnreachableRedis(t *testing.T) {
	rc := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rc.Close()

	src := &memorySheetSource{rows: referenceSheetRows()}
	p := newTestSheetProvider(src, time.Minute, rc)
	ctx := context.Background()

	rules, err := p.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, rules.AllInOneBase)

	err = p.Invalidate(ctx)
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
}

func TestSheetQuoteFlow(t *testing.T) {
	src := &memorySheetSource{rows: referenceSheetRows()}
	flow := NewSheetQuoteFlow(newTestSheetProvider(src, time.Minute, nil), testLogger())
	ctx := context.Background()

	resp, err := flow.Quote(ctx, &dto.QuoteRequest{OrderConfigurationRequest: scenarioB()})
	require.NoError(t, err)
	assert.Equal(t, PricingPathSheet, resp.PricingPath)
	// 500 - 25 + 10 - 30 = 455 per table, 910 less 3% less one pair = 857.7
	assert.Equal(t, int64(455), resp.Breakdown.Unit)
	assert.Equal(t, int64(858), resp.Breakdown.Total)

	withOverrides := scenarioB()
	withOverrides.PricingOverrides = allOverrides()
	overridden, err := flow.Quote(ctx, &dto.QuoteRequest{OrderConfigurationRequest: withOverrides})
	require.NoError(t, err)
	assert.Equal(t, resp.Breakdown, overridden.Breakdown)
}

func TestSheetQuoteFlowUnavailable(t *testing.T) {
	flow := NewSheetQuoteFlow(NewSheetRulesProvider(nil, nil, SheetRulesProviderConfig{}, testLogger()), testLogger())

	_, err := flow.Quote(context.Background(), &dto.QuoteRequest{OrderConfigurationRequest: scenarioB()})
	assert.True(t, IsBusinessErrorCode(err, CodeSheetRulesUnavailable))

	src := &memorySheetSource{rows: referenceSheetRows()}
	flow = NewSheetQuoteFlow(newTestSheetProvider(src, time.Minute, nil), testLogger())
	req := scenarioB()
	req.ProductType = "dimensioned"
	req.Dimension = "300x300"
	_, err = flow.Quote(context.Background(), &dto.QuoteRequest{OrderConfigurationRequest: req})
	assert.True(t, IsBusinessErrorCode(err, CodePricingValidationFailed))
}
