package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wyfcoding/pkg/xerrors"
)

// IVSurfacePoint 隐含波动率曲面上的一个采样点。
type IVSurfacePoint struct {
	Strike            float64    `json:"strike"`
	Expiry            time.Time  `json:"expiry"`
	TimeToExpiry      float64    `json:"timeToExpiry"` // 年化剩余期限，>0
	Moneyness         float64    `json:"moneyness"`    // strike/underlying，>0
	ImpliedVolatility float64    `json:"impliedVolatility"`
	Side              OptionSide `json:"optionType"`
}

// Validate 校验采样点数值合法。
func (p IVSurfacePoint) Validate() error {
	if !p.Side.Valid() {
		return xerrors.ErrInvalidOptionType
	}
	for _, v := range []float64{p.TimeToExpiry, p.Moneyness, p.ImpliedVolatility} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return xerrors.InvalidArg("surface point fields must be positive finite numbers")
		}
	}
	return nil
}

// TenorIV 期限结构中单一期限桶的平均隐含波动率。
type TenorIV struct {
	Tenor string  `json:"tenor"` // 人读期限标签，如 "30d"
	Days  int     `json:"days"`
	AvgIV float64 `json:"avgIV"`
}

// IVSurfaceSummary 曲面汇总统计。点集变化时整体重算。
type IVSurfaceSummary struct {
	AvgIV         float64   `json:"avgIV"`
	IVSkew        float64   `json:"ivSkew"`
	TermStructure []TenorIV `json:"termStructure"` // 按期限升序
}

// SummarizeSurface 计算曲面汇总：平均 IV、偏斜与期限结构。
//
// 偏斜口径：moneyness < 1（下行翼）的平均 IV 减去 moneyness > 1（上行翼）的
// 平均 IV，moneyness 恰为 1 的点不计入任何一翼；任一翼为空则偏斜记 0。
// 同一口径同样适用于每个期限桶内部。
//
// 空点集是调用方必须先行拦截的非法输入。
func SummarizeSurface(points []IVSurfacePoint) (IVSurfaceSummary, error) {
	if len(points) == 0 {
		return IVSurfaceSummary{}, xerrors.ErrEmptyPoints
	}

	var ivSum float64
	for i := range points {
		if err := points[i].Validate(); err != nil {
			return IVSurfaceSummary{}, err
		}
		ivSum += points[i].ImpliedVolatility
	}

	return IVSurfaceSummary{
		AvgIV:         ivSum / float64(len(points)),
		IVSkew:        surfaceSkew(points),
		TermStructure: termStructure(points),
	}, nil
}

// surfaceSkew 下行翼与上行翼的平均 IV 之差。
func surfaceSkew(points []IVSurfacePoint) float64 {
	var downSum, upSum float64
	var downN, upN int
	for i := range points {
		switch {
		case points[i].Moneyness < 1:
			downSum += points[i].ImpliedVolatility
			downN++
		case points[i].Moneyness > 1:
			upSum += points[i].ImpliedVolatility
			upN++
		}
	}
	if downN == 0 || upN == 0 {
		return 0
	}
	return downSum/float64(downN) - upSum/float64(upN)
}

// termStructure 按日历日（年化期限四舍五入到天）分桶，桶内取平均 IV，按期限升序输出。
func termStructure(points []IVSurfacePoint) []TenorIV {
	type bucket struct {
		sum float64
		n   int
	}
	buckets := make(map[int]*bucket)
	for i := range points {
		days := int(math.Round(points[i].TimeToExpiry * 365))
		if days < 1 {
			days = 1
		}
		b, ok := buckets[days]
		if !ok {
			b = &bucket{}
			buckets[days] = b
		}
		b.sum += points[i].ImpliedVolatility
		b.n++
	}

	tenors := make([]int, 0, len(buckets))
	for days := range buckets {
		tenors = append(tenors, days)
	}
	sort.Ints(tenors)

	out := make([]TenorIV, 0, len(tenors))
	for _, days := range tenors {
		b := buckets[days]
		out = append(out, TenorIV{
			Tenor: fmt.Sprintf("%dd", days),
			Days:  days,
			AvgIV: b.sum / float64(b.n),
		})
	}
	return out
}
