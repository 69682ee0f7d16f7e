package application

import (
	"context"

	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/xerrors"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

// ChainSurfaceSource 行情协作方的期权链与曲面快照来源，由基础设施层实现。
type ChainSurfaceSource interface {
	FetchChain(ctx context.Context, symbol string) ([]domain.OptionsChainEntry, error)
	FetchSurface(ctx context.Context, symbol string) ([]domain.IVSurfacePoint, error)
}

// AnalyticsQueryService 处理读路径：快照查询与无副作用的即时计算。
type AnalyticsQueryService struct {
	policy domain.RiskPolicy
	cache  cache.Cache
	market ChainSurfaceSource // 可为 nil（按标的拉取关闭）
}

// NewAnalyticsQueryService 构造函数。
func NewAnalyticsQueryService(policy domain.RiskPolicy, localCache cache.Cache, market ChainSurfaceSource) *AnalyticsQueryService {
	return &AnalyticsQueryService{policy: policy, cache: localCache, market: market}
}

// GetPortfolio 返回账户最近一次摄入的分析记录。
func (s *AnalyticsQueryService) GetPortfolio(ctx context.Context, accountID string) (*PortfolioRiskDTO, error) {
	if s.cache == nil {
		return nil, xerrors.NotFound("no snapshot for account " + accountID)
	}
	var dto PortfolioRiskDTO
	if err := s.cache.Get(ctx, portfolioCacheKey(accountID), &dto); err != nil {
		return nil, xerrors.NotFound("no snapshot for account " + accountID)
	}
	return &dto, nil
}

// AnalyzePortfolio 对调用方提供的持仓快照做即时分析，不读写缓存。
func (s *AnalyticsQueryService) AnalyzePortfolio(ctx context.Context, accountID string, positions []domain.PositionGreeks) (*PortfolioRiskDTO, error) {
	return buildPortfolioRisk(s.policy, accountID, positions, nil)
}

// ProjectScenarios 对持仓快照计算价格情景损益表。priceChanges 为空时使用缺省序列。
func (s *AnalyticsQueryService) ProjectScenarios(ctx context.Context, positions []domain.PositionGreeks, priceChanges []float64) ([]domain.ScenarioResult, error) {
	portfolio, err := domain.AggregatePositions(positions, s.policy)
	if err != nil {
		return nil, err
	}
	return domain.ProjectScenarios(portfolio, priceChanges), nil
}

// SortChain 稳定排序期权链并补充近价/实值标记。underlyingPrice <= 0 时只排序不做标记。
func (s *AnalyticsQueryService) SortChain(ctx context.Context, entries []domain.OptionsChainEntry, field domain.SortField, direction domain.SortDirection, underlyingPrice float64) ([]ChainEntryDTO, error) {
	sorted, err := domain.SortChain(entries, field, direction)
	if err != nil {
		return nil, err
	}
	return decorateChain(sorted, underlyingPrice)
}

// SummarizeSurface 计算波动率曲面汇总统计。
func (s *AnalyticsQueryService) SummarizeSurface(ctx context.Context, points []domain.IVSurfacePoint) (*domain.IVSurfaceSummary, error) {
	summary, err := domain.SummarizeSurface(points)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// FetchChain 从行情协作方拉取标的期权链，稳定排序并补充近价/实值标记。
func (s *AnalyticsQueryService) FetchChain(ctx context.Context, symbol string, field domain.SortField, direction domain.SortDirection, underlyingPrice float64) ([]ChainEntryDTO, error) {
	if s.market == nil {
		return nil, xerrors.New(xerrors.ErrUnavailable, 503, "market data source not configured", "", nil)
	}
	entries, err := s.market.FetchChain(ctx, symbol)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrUnavailable, "fetch options chain from market data")
	}
	return s.SortChain(ctx, entries, field, direction, underlyingPrice)
}

// FetchSurface 从行情协作方拉取标的的波动率曲面采样点并计算汇总。
func (s *AnalyticsQueryService) FetchSurface(ctx context.Context, symbol string) (*domain.IVSurfaceSummary, error) {
	if s.market == nil {
		return nil, xerrors.New(xerrors.ErrUnavailable, 503, "market data source not configured", "", nil)
	}
	points, err := s.market.FetchSurface(ctx, symbol)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrUnavailable, "fetch volatility surface from market data")
	}
	return s.SummarizeSurface(ctx, points)
}
