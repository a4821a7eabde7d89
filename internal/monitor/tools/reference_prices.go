package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/meterwatch-core/server/internal/monitor/model"
	logx "github.com/meterwatch-core/server/pkg/logger"
	"github.com/meterwatch-core/server/pkg/retry"
)

const priceCacheKey = "price:electricity:eur_kwh"

// PriceCache is the small slice of a cache the price feed needs. Backed by
// Redis in production, by a map in tests.
type PriceCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisPriceCache adapts a Redis client to PriceCache. A missing key is
// reported as ("", nil).
type RedisPriceCache struct {
	rdb redis.Cmdable
}

func NewRedisPriceCache(rdb redis.Cmdable) *RedisPriceCache {
	return &RedisPriceCache{rdb: rdb}
}

func (c *RedisPriceCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (c *RedisPriceCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// PriceFeed resolves the current reference electricity price: cache first,
// then the external feed, then a configured fallback.
type PriceFeed struct {
	cfg    model.PriceFeedConfig
	cache  PriceCache
	client *http.Client
	retry  retry.Config
}

func NewPriceFeed(cfg model.PriceFeedConfig, cache PriceCache, retryCfg retry.Config) *PriceFeed {
	return &PriceFeed{
		cfg:   cfg,
		cache: cache,
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		},
		retry: retryCfg,
	}
}

// CurrentPrice returns the price in EUR/kWh plus the source it came from
// ("cache", "feed" or "fallback"). It never fails; the fallback absorbs
// feed outages.
func (p *PriceFeed) CurrentPrice(ctx context.Context) (float64, string) {
	if p.cache != nil {
		if v, err := p.cache.Get(ctx, priceCacheKey); err != nil {
			logx.Warn().Err(err).Msg("Price cache read failed")
		} else if v != "" {
			if price, perr := strconv.ParseFloat(v, 64); perr == nil {
				return price, "cache"
			}
		}
	}

	price, err := retry.Do(ctx, p.retry, "price-feed", p.fetch)
	if err != nil {
		logx.Warn().Err(err).Float64("fallback", p.cfg.FallbackPerKWh).Msg("Price feed unavailable, using fallback")
		return p.cfg.FallbackPerKWh, "fallback"
	}

	if p.cache != nil {
		ttl, terr := time.ParseDuration(p.cfg.CacheTTL)
		if terr != nil {
			ttl = 24 * time.Hour
		}
		if cerr := p.cache.Set(ctx, priceCacheKey, strconv.FormatFloat(price, 'f', -1, 64), ttl); cerr != nil {
			logx.Warn().Err(cerr).Msg("Price cache write failed")
		}
	}
	return price, "feed"
}

func (p *PriceFeed) fetch(ctx context.Context) (float64, error) {
	if p.cfg.URL == "" {
		// No feed configured is permanent, not worth retrying.
		return 0, fmt.Errorf("no price feed URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, retry.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, retry.Transient(fmt.Errorf("price feed returned %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return 0, retry.Transient(err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode price feed response: %w", err)
	}
	// feeds disagree on the field name
	for _, field := range []string{"price", "value", "rate", "tariff"} {
		if v, ok := payload[field].(float64); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no price field in feed response")
}

type GetReferencePricesInput struct{}

type GetReferencePricesOutput struct {
	PricePerKWh float64 `json:"price_eur_kwh"`
	Source      string  `json:"source"`
}

func newReferencePricesTool(feed *PriceFeed) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        ToolGetReferencePrices,
			Desc:        "Get the current reference electricity price per kilowatt-hour in EUR. Use this when the user asks about electricity costs or wants their consumption priced.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, in *GetReferencePricesInput) (*GetReferencePricesOutput, error) {
			price, source := feed.CurrentPrice(ctx)
			return &GetReferencePricesOutput{PricePerKWh: price, Source: source}, nil
		},
	)
}
