package domain

// scenarioBasePrice 情景推演采用的归一化基准价。
const scenarioBasePrice = 100.0

// ScenarioResult 单一价格情景下的组合损益分解。
type ScenarioResult struct {
	PriceChangePercent float64 `json:"priceChangePercent"`
	NewPrice           float64 `json:"newPrice"`
	DeltaPnL           float64 `json:"deltaPnL"`
	GammaPnL           float64 `json:"gammaPnL"`
	ThetaPnL           float64 `json:"thetaPnL"`
	TotalPnL           float64 `json:"totalPnL"`
}

// DefaultPriceChanges 缺省的价格变动序列（百分比）。每次返回新切片，调用方可自由修改。
func DefaultPriceChanges() []float64 {
	return []float64{-20, -10, -5, -2, 0, 2, 5, 10, 20}
}

// ProjectScenarios 对每个价格变动计算二阶泰勒近似损益：
// delta 项 + 0.5*gamma*change^2，再叠加一天的 theta 损耗。
// vega/rho 的情景效应有意省略（近似口径，非缺陷）。
// priceChanges 为 nil 时使用缺省序列；输出保持输入顺序，可由 portfolio 完全重导。
func ProjectScenarios(p PortfolioGreeks, priceChanges []float64) []ScenarioResult {
	if priceChanges == nil {
		priceChanges = DefaultPriceChanges()
	}

	results := make([]ScenarioResult, 0, len(priceChanges))
	for _, change := range priceChanges {
		deltaPnL := p.Delta * change
		gammaPnL := 0.5 * p.Gamma * change * change
		thetaPnL := p.Theta // 一天损耗，与价格变动无关
		results = append(results, ScenarioResult{
			PriceChangePercent: change,
			NewPrice:           scenarioBasePrice + change,
			DeltaPnL:           deltaPnL,
			GammaPnL:           gammaPnL,
			ThetaPnL:           thetaPnL,
			TotalPnL:           deltaPnL + gammaPnL + thetaPnL,
		})
	}
	return results
}
