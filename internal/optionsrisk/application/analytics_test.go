package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/cache"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

var _ cache.Cache = (*memoryCache)(nil)

// memoryCache 测试用内存缓存，序列化语义与 BigCache 保持一致（JSON 往返）。
type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, value interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return fmt.Errorf("cache miss: %s", key)
	}
	return json.Unmarshal(raw, value)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, value interface{}, expiration time.Duration, fn func() (interface{}, error)) error {
	if err := c.Get(ctx, key, value); err == nil {
		return nil
	}
	fresh, err := fn()
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, fresh, expiration); err != nil {
		return err
	}
	return c.Get(ctx, key, value)
}

func (c *memoryCache) Close() error { return nil }

// capturePublisher 记录广播出的告警事件。
type capturePublisher struct {
	events []*domain.RiskAlertEvent
}

func (p *capturePublisher) PublishRiskAlerts(ctx context.Context, event *domain.RiskAlertEvent) error {
	p.events = append(p.events, event)
	return nil
}

// stubPositionSource 返回固定持仓快照。
type stubPositionSource struct {
	positions []domain.PositionGreeks
	err       error
}

func (s *stubPositionSource) FetchPositions(ctx context.Context, accountID string) ([]domain.PositionGreeks, error) {
	return s.positions, s.err
}

func appTestPosition(delta float64, qty int64) domain.PositionGreeks {
	return domain.PositionGreeks{
		Greeks: domain.Greeks{
			Delta: delta,
			Gamma: 0.001,
			Theta: -0.1,
			Vega:  0.2,
			Rho:   0.05,
		},
		Symbol:          "AAPL-C-150",
		Strike:          150,
		Expiry:          time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
		Side:            domain.SideCall,
		Quantity:        qty,
		UnderlyingPrice: 155,
		PositionValue:   decimal.NewFromInt(1200),
	}
}

// stubMarketSource 返回固定的期权链与曲面采样点。
type stubMarketSource struct {
	entries []domain.OptionsChainEntry
	points  []domain.IVSurfacePoint
	err     error
}

func (s *stubMarketSource) FetchChain(ctx context.Context, symbol string) ([]domain.OptionsChainEntry, error) {
	return s.entries, s.err
}

func (s *stubMarketSource) FetchSurface(ctx context.Context, symbol string) ([]domain.IVSurfacePoint, error) {
	return s.points, s.err
}

func newTestService(cache *memoryCache, pub *capturePublisher, src PositionSource) *AnalyticsService {
	return NewAnalyticsService(domain.DefaultRiskPolicy(), cache, pub, src, nil, time.Minute)
}

func TestIngestSnapshotCachesAndPublishes(t *testing.T) {
	cache := newMemoryCache()
	pub := &capturePublisher{}
	svc := newTestService(cache, pub, nil)
	ctx := context.Background()

	// delta 1.5 * 100 = 150，超过告警上限 100。
	dto, err := svc.Command().IngestSnapshot(ctx, "acct-1", []domain.PositionGreeks{appTestPosition(1.5, 100)})
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if dto.AccountID != "acct-1" {
		t.Fatalf("accountId = %q", dto.AccountID)
	}
	if len(dto.Alerts) == 0 || !strings.HasPrefix(dto.Alerts[0], "High delta exposure") {
		t.Fatalf("expected delta alert, got %v", dto.Alerts)
	}
	if len(dto.Scenarios) != len(domain.DefaultPriceChanges()) {
		t.Fatalf("scenarios = %d", len(dto.Scenarios))
	}
	if lvl := dto.RiskLevels["delta"]; lvl != "CRITICAL" {
		t.Fatalf("delta level = %q, want CRITICAL", lvl)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.AccountID != "acct-1" || len(ev.Alerts) != len(dto.Alerts) || ev.CalculatedAt != dto.CalculatedAt {
		t.Fatalf("event mismatch: %+v", ev)
	}

	// 摄入后的记录能按账户回读，且口径与摄入结果一致。
	got, err := svc.Query().GetPortfolio(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if got.Portfolio.Delta != dto.Portfolio.Delta || got.Portfolio.RiskScore != dto.Portfolio.RiskScore {
		t.Fatalf("cached snapshot mismatch: got %+v want %+v", got.Portfolio, dto.Portfolio)
	}
}

func TestIngestSnapshotQuietPortfolioSkipsPublish(t *testing.T) {
	cache := newMemoryCache()
	pub := &capturePublisher{}
	svc := newTestService(cache, pub, nil)

	dto, err := svc.Command().IngestSnapshot(context.Background(), "acct-2", []domain.PositionGreeks{appTestPosition(0.1, 10)})
	if err != nil {
		t.Fatalf("IngestSnapshot: %v", err)
	}
	if len(dto.Alerts) != 0 {
		t.Fatalf("unexpected alerts: %v", dto.Alerts)
	}
	if len(pub.events) != 0 {
		t.Fatalf("quiet portfolio must not publish, got %d events", len(pub.events))
	}
}

func TestGetPortfolioMissingAccount(t *testing.T) {
	svc := newTestService(newMemoryCache(), &capturePublisher{}, nil)

	if _, err := svc.Query().GetPortfolio(context.Background(), "unknown"); err == nil {
		t.Fatal("expected not-found error for unknown account")
	}
}

func TestRefreshPortfolio(t *testing.T) {
	t.Run("no source configured", func(t *testing.T) {
		svc := newTestService(newMemoryCache(), &capturePublisher{}, nil)
		if _, err := svc.Command().RefreshPortfolio(context.Background(), "acct-3"); err == nil {
			t.Fatal("expected error when position source is nil")
		}
	})

	t.Run("fetch and ingest", func(t *testing.T) {
		src := &stubPositionSource{positions: []domain.PositionGreeks{appTestPosition(0.5, 20)}}
		cache := newMemoryCache()
		svc := newTestService(cache, &capturePublisher{}, src)

		dto, err := svc.Command().RefreshPortfolio(context.Background(), "acct-3")
		if err != nil {
			t.Fatalf("RefreshPortfolio: %v", err)
		}
		if dto.Portfolio.Delta != 10 {
			t.Fatalf("delta = %v, want 10", dto.Portfolio.Delta)
		}
		if _, err := svc.Query().GetPortfolio(context.Background(), "acct-3"); err != nil {
			t.Fatalf("snapshot not cached after refresh: %v", err)
		}
	})

	t.Run("source failure", func(t *testing.T) {
		src := &stubPositionSource{err: fmt.Errorf("connection refused")}
		svc := newTestService(newMemoryCache(), &capturePublisher{}, src)
		if _, err := svc.Command().RefreshPortfolio(context.Background(), "acct-4"); err == nil {
			t.Fatal("expected wrapped fetch error")
		}
	})
}

func TestSortChainDecoratesMoneyness(t *testing.T) {
	svc := newTestService(newMemoryCache(), &capturePublisher{}, nil)
	entries := []domain.OptionsChainEntry{
		{Strike: 110},
		{Strike: 100},
		{Strike: 95},
	}

	out, err := svc.Query().SortChain(context.Background(), entries, domain.SortByStrike, domain.SortAscending, 100)
	if err != nil {
		t.Fatalf("SortChain: %v", err)
	}
	if len(out) != 3 || out[0].Strike != 95 || out[2].Strike != 110 {
		t.Fatalf("unexpected order: %+v", out)
	}

	// 95：看涨实值；110：看跌实值；100 平价且在 5% 近价带内。
	if !out[0].CallInTheMoney || out[0].PutInTheMoney {
		t.Fatalf("strike 95 flags wrong: %+v", out[0])
	}
	if !out[2].PutInTheMoney || out[2].CallInTheMoney {
		t.Fatalf("strike 110 flags wrong: %+v", out[2])
	}
	if !out[1].NearTheMoney || out[1].CallInTheMoney || out[1].PutInTheMoney {
		t.Fatalf("strike 100 flags wrong: %+v", out[1])
	}

	// 未提供标的价时只排序，不做标记。
	plain, err := svc.Query().SortChain(context.Background(), entries, domain.SortByStrike, domain.SortAscending, 0)
	if err != nil {
		t.Fatalf("SortChain without price: %v", err)
	}
	if plain[0].NearTheMoney || plain[0].CallInTheMoney {
		t.Fatalf("flags must stay false without underlying price: %+v", plain[0])
	}
}

func TestFetchChainFromMarketSource(t *testing.T) {
	market := &stubMarketSource{entries: []domain.OptionsChainEntry{
		{Strike: 110},
		{Strike: 95},
	}}
	svc := NewAnalyticsService(domain.DefaultRiskPolicy(), newMemoryCache(), nil, nil, market, time.Minute)

	out, err := svc.Query().FetchChain(context.Background(), "AAPL", domain.SortByStrike, domain.SortAscending, 100)
	if err != nil {
		t.Fatalf("FetchChain: %v", err)
	}
	if len(out) != 2 || out[0].Strike != 95 || out[1].Strike != 110 {
		t.Fatalf("unexpected chain: %+v", out)
	}
	if !out[0].CallInTheMoney || !out[1].PutInTheMoney {
		t.Fatalf("moneyness flags missing: %+v", out)
	}

	// 行情来源未配置时按不可用处理。
	bare := NewAnalyticsService(domain.DefaultRiskPolicy(), newMemoryCache(), nil, nil, nil, time.Minute)
	if _, err := bare.Query().FetchChain(context.Background(), "AAPL", domain.SortByStrike, domain.SortAscending, 0); err == nil {
		t.Fatal("expected error when market source is nil")
	}
}

func TestFetchSurfaceFromMarketSource(t *testing.T) {
	expiry := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)
	market := &stubMarketSource{points: []domain.IVSurfacePoint{
		{Strike: 95, Expiry: expiry, TimeToExpiry: 30.0 / 365, Moneyness: 0.95, ImpliedVolatility: 0.30, Side: domain.SidePut},
		{Strike: 105, Expiry: expiry, TimeToExpiry: 30.0 / 365, Moneyness: 1.05, ImpliedVolatility: 0.20, Side: domain.SideCall},
	}}
	svc := NewAnalyticsService(domain.DefaultRiskPolicy(), newMemoryCache(), nil, nil, market, time.Minute)

	summary, err := svc.Query().FetchSurface(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSurface: %v", err)
	}
	if summary.AvgIV != 0.25 {
		t.Fatalf("avgIV = %v, want 0.25", summary.AvgIV)
	}
	if summary.IVSkew != 0.30-0.20 {
		t.Fatalf("ivSkew = %v, want 0.1", summary.IVSkew)
	}
	if len(summary.TermStructure) != 1 || summary.TermStructure[0].Tenor != "30d" {
		t.Fatalf("unexpected term structure: %+v", summary.TermStructure)
	}

	market.err = fmt.Errorf("connection refused")
	if _, err := svc.Query().FetchSurface(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected wrapped fetch error")
	}
}
