package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/inox-pricing/app/services"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sheetRulesCacheKey = "sheet_rules"

// SheetRulesProvider serves the rules maintained in the pricing spreadsheet
type SheetRulesProvider interface {
	Enabled() bool
	Rules(ctx context.Context) (*pricing.SheetRules, error)
	Invalidate(ctx context.Context) error
}

// SheetRulesProviderConfig tunes caching and retries
type SheetRulesProviderConfig struct {
	TTL             time.Duration
	FetchTimeout    time.Duration
	RetryMaxElapsed time.Duration
	RedisPrefix     string
}

// CachedSheetRulesProvider keeps parsed rules in memory and optionally shares the raw rows
// with other replicas through redis. When the spreadsheet cannot be read the last good rules
// are served until a fetch succeeds again.
type CachedSheetRulesProvider struct {
	source     services.SheetRowSource
	cache      *utils.TTLCache[string, *pricing.SheetRules]
	redis      *redis.Client
	redisKey   string
	cfg        SheetRulesProviderConfig
	logger     *zap.Logger
	newBackOff func() backoff.BackOff

	fetchMu sync.Mutex
}

// NewSheetRulesProvider creates a provider over source. A nil source disables spreadsheet
// pricing; a nil redis client keeps the cache process-local.
func NewSheetRulesProvider(source services.SheetRowSource, redisClient *redis.Client, cfg SheetRulesProviderConfig, logger *zap.Logger) *CachedSheetRulesProvider {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &CachedSheetRulesProvider{
		source:   source,
		cache:    utils.NewTTLCache[string, *pricing.SheetRules](),
		redis:    redisClient,
		redisKey: cfg.RedisPrefix + "sheet_rules:rows",
		cfg:      cfg,
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = 500 * time.Millisecond
			policy.MaxInterval = 5 * time.Second
			policy.MaxElapsedTime = cfg.RetryMaxElapsed
			return policy
		},
	}
}

func (p *CachedSheetRulesProvider) Enabled() bool {
	return p.source != nil
}

// Rules returns fresh rules from memory, redis or the spreadsheet, in that order
func (p *CachedSheetRulesProvider) Rules(ctx context.Context) (*pricing.SheetRules, error) {
	if !p.Enabled() {
		return nil, ErrSheetPricingDisabled
	}
	if rules, fresh, ok := p.cache.GetStale(sheetRulesCacheKey); ok && fresh {
		sheetFetchesTotal.WithLabelValues("memory").Inc()
		return rules, nil
	}

	// One fetch at a time; waiters pick up the result from the cache.
	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	stale, fresh, haveStale := p.cache.GetStale(sheetRulesCacheKey)
	if haveStale && fresh {
		sheetFetchesTotal.WithLabelValues("memory").Inc()
		return stale, nil
	}

	if rules, ok := p.fromRedis(ctx); ok {
		p.cache.Set(sheetRulesCacheKey, rules, p.cfg.TTL)
		sheetFetchesTotal.WithLabelValues("redis").Inc()
		return rules, nil
	}

	rows, rules, err := p.fetch(ctx)
	if err != nil {
		if haveStale {
			sheetFetchesTotal.WithLabelValues("stale").Inc()
			p.logger.Warn("Serving stale spreadsheet rules",
				zap.String("source", p.source.Name()),
				zap.String("request_id", utils.RequestIDFromContext(ctx)),
				zap.Error(err))
			return stale, nil
		}
		sheetFetchesTotal.WithLabelValues("error").Inc()
		p.logger.Error("Failed to load spreadsheet rules",
			zap.String("source", p.source.Name()),
			zap.String("request_id", utils.RequestIDFromContext(ctx)),
			zap.Error(err))
		return nil, err
	}

	p.cache.Set(sheetRulesCacheKey, rules, p.cfg.TTL)
	p.toRedis(ctx, rows)
	sheetFetchesTotal.WithLabelValues("source").Inc()
	p.logger.Info("Spreadsheet rules loaded", zap.String("source", p.source.Name()))
	return rules, nil
}

// Invalidate drops the cached rules so the next lookup reads the spreadsheet
func (p *CachedSheetRulesProvider) Invalidate(ctx context.Context) error {
	if !p.Enabled() {
		return ErrSheetPricingDisabled
	}
	p.cache.Delete(sheetRulesCacheKey)
	if p.redis == nil {
		return nil
	}
	if err := p.redis.Del(ctx, p.redisKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheNotAvailable, err)
	}
	return nil
}

func (p *CachedSheetRulesProvider) fetch(ctx context.Context) ([][]string, *pricing.SheetRules, error) {
	var (
		rows  [][]string
		rules *pricing.SheetRules
	)
	err := backoff.RetryNotify(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
			defer cancel()

			fetched, err := p.source.Rows(attemptCtx)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			parsed, err := pricing.ParseSheetRows(p.source.Name(), fetched)
			if err != nil {
				// A malformed sheet does not heal by retrying.
				return backoff.Permanent(err)
			}
			rows, rules = fetched, parsed
			return nil
		},
		backoff.WithContext(p.newBackOff(), ctx),
		func(err error, next time.Duration) {
			p.logger.Warn("Spreadsheet fetch failed, retrying",
				zap.String("source", p.source.Name()),
				zap.Duration("next_attempt_in", next),
				zap.Error(err))
		},
	)
	return rows, rules, err
}

func (p *CachedSheetRulesProvider) fromRedis(ctx context.Context) (*pricing.SheetRules, bool) {
	if p.redis == nil {
		return nil, false
	}
	raw, err := p.redis.Get(ctx, p.redisKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("Redis lookup for spreadsheet rules failed", zap.Error(err))
		}
		return nil, false
	}

	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		p.logger.Warn("Discarding undecodable spreadsheet rows in redis", zap.Error(err))
		return nil, false
	}
	rules, err := pricing.ParseSheetRows(p.source.Name(), rows)
	if err != nil {
		p.logger.Warn("Discarding invalid spreadsheet rows in redis", zap.Error(err))
		return nil, false
	}
	return rules, true
}

func (p *CachedSheetRulesProvider) toRedis(ctx context.Context, rows [][]string) {
	if p.redis == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, p.redisKey, raw, p.cfg.TTL).Err(); err != nil {
		p.logger.Warn("Failed to share spreadsheet rows through redis", zap.Error(err))
	}
}
