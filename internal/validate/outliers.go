package validate

import (
	"math"
	"sort"

	"github.com/petroflow/petroflow/internal/domain"
)

// OutlierMethod names a detection method.
type OutlierMethod string

const (
	MethodZScore OutlierMethod = "zscore"
	MethodIQR    OutlierMethod = "iqr"
)

// OutlierFlags annotates one record with per-method outcomes. Any is the
// logical OR of the enabled methods.
type OutlierFlags struct {
	ZScore bool `json:"zscore"`
	IQR    bool `json:"iqr"`
	Any    bool `json:"any"`
}

// OutlierResult carries the annotated copy of the batch. The input batch is
// never mutated.
type OutlierResult struct {
	Records []domain.PriceRecord `json:"-"`
	Flags   []OutlierFlags       `json:"flags"`
	Count   int                  `json:"count"`
	Score   float64              `json:"score"` // 100 * (1 - outlier rate)
}

// DetectOutliers flags price outliers with the requested methods. Z-score
// uses a rolling left-inclusive window; IQR uses global quartiles with
// linear interpolation.
func (v *Validator) DetectOutliers(batch []domain.PriceRecord, methods ...OutlierMethod) OutlierResult {
	if len(methods) == 0 {
		methods = []OutlierMethod{MethodZScore, MethodIQR}
	}

	result := OutlierResult{
		Records: append([]domain.PriceRecord(nil), batch...),
		Flags:   make([]OutlierFlags, len(batch)),
	}
	if len(batch) == 0 {
		result.Score = 100
		return result
	}

	prices := make([]float64, len(batch))
	for i, rec := range batch {
		prices[i] = rec.Price
	}

	for _, method := range methods {
		switch method {
		case MethodZScore:
			flagRollingZScore(prices, v.cfg.Outliers.RollingWindowDays, v.cfg.Outliers.ZScoreThreshold, result.Flags)
		case MethodIQR:
			flagIQR(prices, v.cfg.Outliers.IQRMultiplier, result.Flags)
		}
	}

	for i := range result.Flags {
		result.Flags[i].Any = result.Flags[i].ZScore || result.Flags[i].IQR
		if result.Flags[i].Any {
			result.Count++
		}
	}
	result.Score = 100 * (1 - float64(result.Count)/float64(len(batch)))
	return result
}

// flagRollingZScore flags |x - mean| / std > threshold over a left-inclusive
// rolling window ending at each point.
func flagRollingZScore(prices []float64, window int, threshold float64, flags []OutlierFlags) {
	if window <= 1 {
		window = 30
	}
	if threshold <= 0 {
		threshold = 3.0
	}
	for i := range prices {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		mean, std := meanStd(prices[lo : i+1])
		if std == 0 {
			continue
		}
		if math.Abs(prices[i]-mean)/std > threshold {
			flags[i].ZScore = true
		}
	}
}

// flagIQR flags values outside [Q1 - k*IQR, Q3 + k*IQR] with global
// quartiles.
func flagIQR(prices []float64, multiplier float64, flags []OutlierFlags) {
	if multiplier <= 0 {
		multiplier = 1.5
	}
	if len(prices) < 4 {
		return
	}
	q1 := quantile(prices, 0.25)
	q3 := quantile(prices, 0.75)
	iqr := q3 - q1
	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr

	for i, p := range prices {
		if p < lower || p > upper {
			flags[i].IQR = true
		}
	}
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / n)
}

// quantile computes the q-quantile with linear interpolation between ranks.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
