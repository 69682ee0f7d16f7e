// 包 application 组合风险分析的应用层：命令/查询门面、DTO 映射与快照缓存。
package application

import (
	"time"

	"github.com/wyfcoding/pkg/cache"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

// PortfolioRiskDTO 一次组合风险分析的完整展示记录。
// Portfolio 内的 JSON 字段名遵循导出约定（delta…riskScore），下游按名回读。
type PortfolioRiskDTO struct {
	AccountID    string                  `json:"accountId"`
	Portfolio    domain.PortfolioGreeks  `json:"portfolio"`
	RiskLevels   map[string]string       `json:"riskLevels"` // 各希腊字母的分级结果
	Alerts       []string                `json:"alerts"`
	Scenarios    []domain.ScenarioResult `json:"scenarios"`
	CalculatedAt int64                   `json:"calculatedAt"` // Unix 毫秒
}

// ChainEntryDTO 期权链条目附带近价/实值标记，供链视图直接渲染。
type ChainEntryDTO struct {
	domain.OptionsChainEntry
	NearTheMoney   bool `json:"nearTheMoney"`
	CallInTheMoney bool `json:"callInTheMoney"`
	PutInTheMoney  bool `json:"putInTheMoney"`
}

// AnalyticsService 分析门面，整合命令端与查询端。
type AnalyticsService struct {
	command *AnalyticsCommandService
	query   *AnalyticsQueryService
}

// NewAnalyticsService 构造函数。positions 与 market 通常由同一个行情客户端实现。
func NewAnalyticsService(
	policy domain.RiskPolicy,
	localCache cache.Cache,
	publisher domain.AlertEventPublisher,
	positions PositionSource,
	market ChainSurfaceSource,
	snapshotTTL time.Duration,
) *AnalyticsService {
	return &AnalyticsService{
		command: NewAnalyticsCommandService(policy, localCache, publisher, positions, snapshotTTL),
		query:   NewAnalyticsQueryService(policy, localCache, market),
	}
}

// Command 返回命令端服务。
func (s *AnalyticsService) Command() *AnalyticsCommandService { return s.command }

// Query 返回查询端服务。
func (s *AnalyticsService) Query() *AnalyticsQueryService { return s.query }

// portfolioCacheKey 账户维度的快照缓存键。
func portfolioCacheKey(accountID string) string {
	return "optionsrisk:portfolio:" + accountID
}

// buildPortfolioRisk 从持仓快照构建完整的分析记录。命令端与查询端共用同一条计算路径，
// 保证缓存值与即时计算值口径一致。
func buildPortfolioRisk(policy domain.RiskPolicy, accountID string, positions []domain.PositionGreeks, priceChanges []float64) (*PortfolioRiskDTO, error) {
	portfolio, err := domain.AggregatePositions(positions, policy)
	if err != nil {
		return nil, err
	}

	levels := make(map[string]string, 5)
	for name, value := range map[domain.GreekName]float64{
		domain.GreekDelta: portfolio.Delta,
		domain.GreekGamma: portfolio.Gamma,
		domain.GreekTheta: portfolio.Theta,
		domain.GreekVega:  portfolio.Vega,
		domain.GreekRho:   portfolio.Rho,
	} {
		level, err := domain.ClassifyGreek(name, value)
		if err != nil {
			return nil, err
		}
		levels[string(name)] = level.String()
	}

	return &PortfolioRiskDTO{
		AccountID:    accountID,
		Portfolio:    portfolio,
		RiskLevels:   levels,
		Alerts:       domain.GenerateAlerts(portfolio),
		Scenarios:    domain.ProjectScenarios(portfolio, priceChanges),
		CalculatedAt: time.Now().UnixMilli(),
	}, nil
}

// decorateChain 为排序后的链条目补充近价与实值标记。
func decorateChain(entries []domain.OptionsChainEntry, underlyingPrice float64) ([]ChainEntryDTO, error) {
	out := make([]ChainEntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := ChainEntryDTO{OptionsChainEntry: e}
		if underlyingPrice > 0 {
			dto.NearTheMoney = domain.IsNearTheMoney(e.Strike, underlyingPrice, domain.DefaultNearMoneyThreshold)
			callITM, err := domain.IsInTheMoney(e.Strike, underlyingPrice, domain.SideCall)
			if err != nil {
				return nil, err
			}
			putITM, err := domain.IsInTheMoney(e.Strike, underlyingPrice, domain.SidePut)
			if err != nil {
				return nil, err
			}
			dto.CallInTheMoney = callITM
			dto.PutInTheMoney = putITM
		}
		out = append(out, dto)
	}
	return out, nil
}
