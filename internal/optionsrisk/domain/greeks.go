// 包 domain 期权风险分析引擎的领域模型：希腊字母聚合、风险分级、情景损益、期权链与波动率曲面统计。
// 所有计算均为纯函数，输入视为不可变快照，不持有任何状态。
package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/xerrors"
)

// OptionSide 期权方向（看涨/看跌）
type OptionSide string

const (
	SideCall OptionSide = "CALL"
	SidePut  OptionSide = "PUT"
)

// Valid 校验方向是否为已知枚举值。
func (s OptionSide) Valid() bool {
	return s == SideCall || s == SidePut
}

// Greeks 单合约敏感度值对象。各字段为无量纲的单合约敏感度，由定价服务计算。
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Finite 检查所有希腊字母均为有限数（非 NaN/Inf）。
func (g Greeks) Finite() bool {
	for _, v := range []float64{g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PositionGreeks 持仓级希腊字母快照。由定价服务按持仓生成，引擎只读。
type PositionGreeks struct {
	Greeks
	Symbol          string          `json:"symbol"`
	Strike          float64         `json:"strike"`
	Expiry          time.Time       `json:"expiry"`
	Side            OptionSide      `json:"optionType"`
	Quantity        int64           `json:"quantity"` // 负数为空头
	UnderlyingPrice float64         `json:"underlyingPrice"`
	PositionValue   decimal.Decimal `json:"positionValue"` // 带符号名义价值
}

// Validate 拒绝非有限数值与非法枚举。引擎不校验定价正确性，只保证自身输入可计算。
func (p PositionGreeks) Validate() error {
	if !p.Side.Valid() {
		return xerrors.ErrInvalidOptionType
	}
	if !p.Greeks.Finite() {
		return xerrors.InvalidArg("non-finite greeks for position " + p.Symbol)
	}
	if math.IsNaN(p.Strike) || math.IsInf(p.Strike, 0) || p.Strike <= 0 {
		return xerrors.InvalidArg("strike must be a positive finite number")
	}
	if math.IsNaN(p.UnderlyingPrice) || math.IsInf(p.UnderlyingPrice, 0) || p.UnderlyingPrice <= 0 {
		return xerrors.InvalidArg("underlying price must be a positive finite number")
	}
	return nil
}
