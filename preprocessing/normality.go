package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// minNormalTestSamples はD'Agostino-Pearson検定が要求する最小サンプル数
// 尖度側の近似がn >= 8を前提とするため、それ未満は検定不能として扱う。
const minNormalTestSamples = 8

// NormalTestPValue はD'Agostino-PearsonのK²検定による正規性検定を行い、
// 検定統計量とp値を返す。帰無仮説は「標本が正規分布に従う」。
// p値が有意水準を下回る列は歪みが強く、Box-Cox変換の候補となる。
func NormalTestPValue(x []float64) (statistic, pValue float64, err error) {
	n := len(x)
	if n < minNormalTestSamples {
		return 0, 0, errors.NewValueError("NormalTestPValue",
			"at least 8 samples are required for the kurtosis approximation")
	}

	mean := stat.Mean(x, nil)
	var m2, m3, m4 float64
	for _, v := range x {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	nf := float64(n)
	m2 /= nf
	m3 /= nf
	m4 /= nf

	if m2 == 0 {
		return 0, 0, errors.NewValueError("NormalTestPValue", "zero variance sample")
	}

	b1 := m3 / math.Pow(m2, 1.5) // 標本歪度
	b2 := m4 / (m2 * m2)         // 標本尖度

	z1 := skewnessZ(b1, nf)
	z2 := kurtosisZ(b2, nf)

	k2 := z1*z1 + z2*z2
	chi2 := distuv.ChiSquared{K: 2}
	return k2, chi2.Survival(k2), nil
}

// skewnessZ は歪度のz変換（D'Agostino, 1970）
func skewnessZ(b1, n float64) float64 {
	y := b1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) /
		((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))

	if y == 0 {
		return 0
	}
	t := y / alpha
	return delta * math.Log(t+math.Sqrt(t*t+1))
}

// kurtosisZ は尖度のz変換（Anscombe & Glynn, 1983）
func kurtosisZ(b2, n float64) float64 {
	e := 3 * (n - 1) / (n + 1)
	variance := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	x := (b2 - e) / math.Sqrt(variance)

	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) *
		math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))

	term1 := 1 - 2/(9*a)
	denom := 1 + x*math.Sqrt(2/(a-4))
	term2 := math.Copysign(math.Cbrt((1-2/a)/math.Abs(denom)), denom)

	return (term1 - term2) / math.Sqrt(2/(9*a))
}

// countDistinct は値の種類数を数える（定数列や二値列の検出に使う）
func countDistinct(x []float64) int {
	seen := make(map[float64]struct{}, len(x))
	for _, v := range x {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// hasNaN は欠損値（NaN）を含むかどうかを返す
func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
