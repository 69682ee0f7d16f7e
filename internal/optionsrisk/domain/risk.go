package domain

import (
	"fmt"
	"math"

	"github.com/wyfcoding/pkg/xerrors"
)

// RiskLevel 风险等级，有序：LOW < MEDIUM < HIGH < CRITICAL。
type RiskLevel int8

const (
	RiskLevelLow RiskLevel = iota
	RiskLevelMedium
	RiskLevelHigh
	RiskLevelCritical
)

func (l RiskLevel) String() string {
	switch l {
	case RiskLevelLow:
		return "LOW"
	case RiskLevelMedium:
		return "MEDIUM"
	case RiskLevelHigh:
		return "HIGH"
	case RiskLevelCritical:
		return "CRITICAL"
	}
	return "UNKNOWN"
}

// MarshalText 以等级名序列化，保持与导出记录的字符串约定一致。
func (l RiskLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// GreekName 可分级的希腊字母名称。
type GreekName string

const (
	GreekDelta GreekName = "delta"
	GreekGamma GreekName = "gamma"
	GreekTheta GreekName = "theta"
	GreekVega  GreekName = "vega"
	GreekRho   GreekName = "rho"
)

// Threshold 三段阈值。|value| <= Low 为低，<= Medium 为中，<= High 为高，否则 CRITICAL。
// 边界值归入较低档。
type Threshold struct {
	Low    float64
	Medium float64
	High   float64
}

// GreekThresholds 各希腊字母的固定分级阈值表。表驱动以便调优时无需改算法。
var GreekThresholds = map[GreekName]Threshold{
	GreekDelta: {Low: 10, Medium: 50, High: 100},
	GreekGamma: {Low: 0.01, Medium: 0.05, High: 0.1},
	GreekTheta: {Low: 5, Medium: 25, High: 50},
	GreekVega:  {Low: 10, Medium: 50, High: 100},
	GreekRho:   {Low: 5, Medium: 25, High: 50},
}

// ClassifyGreek 按绝对值查表分级。未知名称视为非法枚举输入。
func ClassifyGreek(name GreekName, value float64) (RiskLevel, error) {
	t, ok := GreekThresholds[name]
	if !ok {
		return RiskLevelLow, xerrors.InvalidArg(fmt.Sprintf("unknown greek: %s", name))
	}
	abs := math.Abs(value)
	switch {
	case abs <= t.Low:
		return RiskLevelLow, nil
	case abs <= t.Medium:
		return RiskLevelMedium, nil
	case abs <= t.High:
		return RiskLevelHigh, nil
	}
	return RiskLevelCritical, nil
}

// 告警触发阈值。各条件独立评估，互不排斥。
const (
	alertDeltaLimit     = 100.0
	alertGammaLimit     = 0.1
	alertThetaFloor     = -50.0
	alertVegaLimit      = 100.0
	alertRiskScoreLimit = 0.7
)

// GenerateAlerts 生成组合风险告警。每次调用全量重算，顺序固定为
// delta、gamma、theta、vega、riskScore，不做缓存。
func GenerateAlerts(p PortfolioGreeks) []string {
	alerts := make([]string, 0, 5)

	if math.Abs(p.Delta) > alertDeltaLimit {
		alerts = append(alerts, fmt.Sprintf("High delta exposure: %.2f, consider delta hedging", p.Delta))
	}
	if math.Abs(p.Gamma) > alertGammaLimit {
		alerts = append(alerts, fmt.Sprintf("High gamma risk: %.4f, P&L is sensitive to large underlying moves", p.Gamma))
	}
	if p.Theta < alertThetaFloor {
		alerts = append(alerts, fmt.Sprintf("Severe theta decay: %.2f per day", p.Theta))
	}
	if math.Abs(p.Vega) > alertVegaLimit {
		alerts = append(alerts, fmt.Sprintf("High vega exposure: %.2f, sensitive to volatility shifts", p.Vega))
	}
	if p.RiskScore > alertRiskScoreLimit {
		alerts = append(alerts, fmt.Sprintf("Portfolio risk score %.2f exceeds %.2f", p.RiskScore, alertRiskScoreLimit))
	}

	return alerts
}
