package preprocessing

import (
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

// normalGrid は標準正規分布の分位点から決定的な「完全に正規な」標本を作る
func normalGrid(n int) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = dist.Quantile((float64(i) + 0.5) / float64(n))
	}
	return out
}

// exponentialGrid は指数分布の分位点から決定的な歪んだ標本を作る
func exponentialGrid(n int) []float64 {
	dist := distuv.Exponential{Rate: 1}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = dist.Quantile((float64(i) + 0.5) / float64(n))
	}
	return out
}

func TestNormalTestPValueNormalSample(t *testing.T) {
	stat, p, err := NormalTestPValue(normalGrid(500))
	if err != nil {
		t.Fatalf("NormalTestPValue() error = %v", err)
	}
	if stat < 0 {
		t.Errorf("statistic = %v, want >= 0", stat)
	}
	// 正規な標本では帰無仮説は棄却されない
	if p < 0.05 {
		t.Errorf("p = %v for normal sample, want >= 0.05", p)
	}
}

func TestNormalTestPValueSkewedSample(t *testing.T) {
	_, p, err := NormalTestPValue(exponentialGrid(500))
	if err != nil {
		t.Fatalf("NormalTestPValue() error = %v", err)
	}
	// 指数分布は強く歪んでいるので棄却される
	if p >= 0.001 {
		t.Errorf("p = %v for exponential sample, want < 0.001", p)
	}
}

func TestNormalTestPValueTooFewSamples(t *testing.T) {
	if _, _, err := NormalTestPValue([]float64{1, 2, 3, 4, 5, 6, 7}); err == nil {
		t.Error("NormalTestPValue() with n < 8 should fail")
	}
}

func TestNormalTestPValueZeroVariance(t *testing.T) {
	x := make([]float64, 20)
	for i := range x {
		x[i] = 3.5
	}
	if _, _, err := NormalTestPValue(x); err == nil {
		t.Error("NormalTestPValue() with zero variance should fail")
	}
}

func TestCountDistinct(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		want int
	}{
		{"constant", []float64{1, 1, 1}, 1},
		{"binary", []float64{0, 1, 0, 1}, 2},
		{"all distinct", []float64{1, 2, 3}, 3},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countDistinct(tt.x); got != tt.want {
				t.Errorf("countDistinct() = %d, want %d", got, tt.want)
			}
		})
	}
}
