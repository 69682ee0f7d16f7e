package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// RiskPolicy 组合风险度量的策略参数。权重与缓冲比例是运营校准值而非市场事实，
// 因此作为可调参数传入而不内嵌在算法里。
type RiskPolicy struct {
	DeltaWeight     float64         // 风险评分中 |delta| 的权重
	GammaWeight     float64         // 风险评分中 |gamma|*100 的权重
	ThetaWeight     float64         // 风险评分中 |theta| 的权重
	VegaWeight      float64         // 风险评分中 |vega|*100 的权重
	LiquidityBuffer decimal.Decimal // 净流动性缓冲比例（组合价值的占比估计）
}

// DefaultRiskPolicy 缺省策略：权重 0.3/0.25/0.2/0.25，流动性缓冲 10%。
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		DeltaWeight:     0.3,
		GammaWeight:     0.25,
		ThetaWeight:     0.2,
		VegaWeight:      0.25,
		LiquidityBuffer: decimal.NewFromFloat(0.1),
	}
}

// PortfolioGreeks 组合级希腊字母与派生风险度量。
// 始终由持仓集合整体重算，不做增量更新。
// JSON 字段名是导出约定的一部分，下游 CSV/JSON 导出按名回读，不可改动。
type PortfolioGreeks struct {
	Greeks
	DeltaHedgingRatio float64         `json:"deltaHedgingRatio"` // delta 中性对冲所需股数
	GammaRisk         float64         `json:"gammaRisk"`         // 百分比敏感度，|gamma|*100
	ThetaDecayDaily   float64         `json:"thetaDecayDaily"`   // 带符号，负值为每日价值损耗
	VegaExposure      float64         `json:"vegaExposure"`      // 百分比敏感度，|vega|*100
	NetLiquidity      decimal.Decimal `json:"netLiquidity"`
	PortfolioValue    decimal.Decimal `json:"portfolioValue"`
	RiskScore         float64         `json:"riskScore"` // [0,1] 加权综合评分
}

// AggregatePositions 将持仓希腊字母聚合为组合风险度量。
// 聚合满足交换律：每项希腊字母为 sum(position.G * quantity)，与顺序无关。
// 空集合返回全零结果（定义行为，非错误）。任何非有限输入立即报错。
func AggregatePositions(positions []PositionGreeks, policy RiskPolicy) (PortfolioGreeks, error) {
	out := PortfolioGreeks{
		NetLiquidity:   decimal.Zero,
		PortfolioValue: decimal.Zero,
	}
	if len(positions) == 0 {
		return out, nil
	}

	for i := range positions {
		p := &positions[i]
		if err := p.Validate(); err != nil {
			return PortfolioGreeks{NetLiquidity: decimal.Zero, PortfolioValue: decimal.Zero}, err
		}
		qty := float64(p.Quantity)
		out.Delta += p.Delta * qty
		out.Gamma += p.Gamma * qty
		out.Theta += p.Theta * qty
		out.Vega += p.Vega * qty
		out.Rho += p.Rho * qty
		out.PortfolioValue = out.PortfolioValue.Add(p.PositionValue)
	}

	out.DeltaHedgingRatio = math.Abs(out.Delta)
	out.GammaRisk = math.Abs(out.Gamma) * 100
	out.ThetaDecayDaily = out.Theta
	out.VegaExposure = math.Abs(out.Vega) * 100
	out.NetLiquidity = out.PortfolioValue.Mul(policy.LiquidityBuffer)
	out.RiskScore = riskScore(out.Greeks, policy)

	return out, nil
}

// riskScore 加权综合评分，归一化并截断到 [0,1]。
func riskScore(g Greeks, policy RiskPolicy) float64 {
	weighted := math.Abs(g.Delta)*policy.DeltaWeight +
		math.Abs(g.Gamma)*100*policy.GammaWeight +
		math.Abs(g.Theta)*policy.ThetaWeight +
		math.Abs(g.Vega)*100*policy.VegaWeight
	return math.Min(1, weighted/100)
}
