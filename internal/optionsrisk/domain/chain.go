package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/wyfcoding/pkg/xerrors"
)

// OptionContract 单侧期权合约行情。Bid/Ask/Last/Volume/OpenInterest/ImpliedVolatility
// 为可缺失的市场数据，用指针区分"缺失"与"为零"。
type OptionContract struct {
	Strike            float64  `json:"strike"`
	Bid               *float64 `json:"bid,omitempty"`
	Ask               *float64 `json:"ask,omitempty"`
	Last              *float64 `json:"last,omitempty"`
	Volume            *int64   `json:"volume,omitempty"`
	OpenInterest      *int64   `json:"openInterest,omitempty"`
	ImpliedVolatility *float64 `json:"impliedVolatility,omitempty"`
	TheoreticalPrice  float64  `json:"theoreticalPrice"`
	Greeks            Greeks   `json:"greeks"`
	Confidence        float64  `json:"confidence"`
}

// OptionsChainEntry 同一行权价上的期权链条目，call/put 至少一侧存在。
type OptionsChainEntry struct {
	Strike float64         `json:"strike"`
	Call   *OptionContract `json:"call,omitempty"`
	Put    *OptionContract `json:"put,omitempty"`
}

// SortField 期权链排序字段。
type SortField string

const (
	SortByStrike     SortField = "strike"
	SortByCallVolume SortField = "callVolume"
	SortByPutVolume  SortField = "putVolume"
	SortByCallIV     SortField = "callIV"
	SortByPutIV      SortField = "putIV"
	SortByCallDelta  SortField = "callDelta"
	SortByPutDelta   SortField = "putDelta"
)

// SortDirection 排序方向。
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// DefaultNearMoneyThreshold 近价判定的缺省阈值（标的价的 5%）。
const DefaultNearMoneyThreshold = 0.05

// SortChain 按指定字段稳定排序期权链，返回新切片，不改动输入。
// 缺失的一侧或缺失的 Volume/IV 按 0 参与排序（展示层约定，非数据缺陷）。
// 相等键保持原相对顺序，保证界面排序可预期。
func SortChain(entries []OptionsChainEntry, field SortField, direction SortDirection) ([]OptionsChainEntry, error) {
	key, err := chainSortKey(field)
	if err != nil {
		return nil, err
	}
	if direction != SortAscending && direction != SortDescending {
		return nil, xerrors.InvalidArg(fmt.Sprintf("unknown sort direction: %s", direction))
	}

	sorted := make([]OptionsChainEntry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := key(&sorted[i]), key(&sorted[j])
		if direction == SortDescending {
			return a > b
		}
		return a < b
	})
	return sorted, nil
}

// chainSortKey 返回字段对应的取键函数。
func chainSortKey(field SortField) (func(*OptionsChainEntry) float64, error) {
	switch field {
	case SortByStrike:
		return func(e *OptionsChainEntry) float64 { return e.Strike }, nil
	case SortByCallVolume:
		return func(e *OptionsChainEntry) float64 { return contractVolume(e.Call) }, nil
	case SortByPutVolume:
		return func(e *OptionsChainEntry) float64 { return contractVolume(e.Put) }, nil
	case SortByCallIV:
		return func(e *OptionsChainEntry) float64 { return contractIV(e.Call) }, nil
	case SortByPutIV:
		return func(e *OptionsChainEntry) float64 { return contractIV(e.Put) }, nil
	case SortByCallDelta:
		return func(e *OptionsChainEntry) float64 { return contractDelta(e.Call) }, nil
	case SortByPutDelta:
		return func(e *OptionsChainEntry) float64 { return contractDelta(e.Put) }, nil
	}
	return nil, xerrors.InvalidArg(fmt.Sprintf("unknown sort field: %s", field))
}

func contractVolume(c *OptionContract) float64 {
	if c == nil || c.Volume == nil {
		return 0
	}
	return float64(*c.Volume)
}

func contractIV(c *OptionContract) float64 {
	if c == nil || c.ImpliedVolatility == nil {
		return 0
	}
	return *c.ImpliedVolatility
}

func contractDelta(c *OptionContract) float64 {
	if c == nil {
		return 0
	}
	return c.Greeks.Delta
}

// IsNearTheMoney 行权价是否落在标的价的阈值带内。thresholdPct <= 0 时取缺省 5%。
func IsNearTheMoney(strike, underlyingPrice, thresholdPct float64) bool {
	if thresholdPct <= 0 {
		thresholdPct = DefaultNearMoneyThreshold
	}
	return math.Abs(strike-underlyingPrice)/underlyingPrice <= thresholdPct
}

// IsInTheMoney 实值判定：call 在 strike < 标的价时实值，put 在 strike > 标的价时实值。
// 行权价恰好等于标的价时两侧都不算实值。
func IsInTheMoney(strike, underlyingPrice float64, side OptionSide) (bool, error) {
	switch side {
	case SideCall:
		return strike < underlyingPrice, nil
	case SidePut:
		return strike > underlyingPrice, nil
	}
	return false, xerrors.ErrInvalidOptionType
}
