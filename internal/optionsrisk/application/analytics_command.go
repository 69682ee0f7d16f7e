package application

import (
	"context"
	"time"

	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/xerrors"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

// PositionSource 定价协作方的持仓快照来源，由基础设施层实现。
type PositionSource interface {
	FetchPositions(ctx context.Context, accountID string) ([]domain.PositionGreeks, error)
}

// AnalyticsCommandService 处理写路径：接收持仓快照、重算派生记录、更新缓存并广播告警。
type AnalyticsCommandService struct {
	policy      domain.RiskPolicy
	cache       cache.Cache
	publisher   domain.AlertEventPublisher // 可为 nil（告警广播关闭）
	positions   PositionSource             // 可为 nil（主动刷新关闭）
	snapshotTTL time.Duration
}

// NewAnalyticsCommandService 构造函数。
func NewAnalyticsCommandService(
	policy domain.RiskPolicy,
	localCache cache.Cache,
	publisher domain.AlertEventPublisher,
	positions PositionSource,
	snapshotTTL time.Duration,
) *AnalyticsCommandService {
	if snapshotTTL <= 0 {
		snapshotTTL = time.Minute
	}
	return &AnalyticsCommandService{
		policy:      policy,
		cache:       localCache,
		publisher:   publisher,
		positions:   positions,
		snapshotTTL: snapshotTTL,
	}
}

// RefreshPortfolio 从定价协作方拉取最新持仓快照并摄入。
func (s *AnalyticsCommandService) RefreshPortfolio(ctx context.Context, accountID string) (*PortfolioRiskDTO, error) {
	if s.positions == nil {
		return nil, xerrors.New(xerrors.ErrUnavailable, 503, "market data source not configured", "", nil)
	}
	positions, err := s.positions.FetchPositions(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrUnavailable, "fetch positions from market data")
	}
	return s.IngestSnapshot(ctx, accountID, positions)
}

// IngestSnapshot 以新快照整体重算账户的组合风险记录。
// 派生记录永远从持仓集合重算，不做增量修补。
func (s *AnalyticsCommandService) IngestSnapshot(ctx context.Context, accountID string, positions []domain.PositionGreeks) (*PortfolioRiskDTO, error) {
	dto, err := buildPortfolioRisk(s.policy, accountID, positions, nil)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, portfolioCacheKey(accountID), dto, s.snapshotTTL); err != nil {
			// 缓存只是快照加速，不阻塞分析结果返回。
			logging.Warn(ctx, "failed to cache portfolio snapshot", "account_id", accountID, "error", err)
		}
	}

	if s.publisher != nil && len(dto.Alerts) > 0 {
		event := &domain.RiskAlertEvent{
			AccountID:    accountID,
			RiskScore:    dto.Portfolio.RiskScore,
			Alerts:       dto.Alerts,
			CalculatedAt: dto.CalculatedAt,
		}
		if err := s.publisher.PublishRiskAlerts(ctx, event); err != nil {
			// 告警同样包含在响应体内，广播失败记录日志即可。
			logging.Error(ctx, "failed to publish risk alerts", "account_id", accountID, "error", err)
		}
	}

	return dto, nil
}
