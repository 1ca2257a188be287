package preprocessing

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// BoxCoxTransformer は列ごとのBox-Coxべき変換
// 訓練テーブルの標本から正規性検定により変換対象列を選び、列ごとに
// 変換後の正規性を最大化するパラメータλを推定する。推定したλは
// 任意のテーブルへの適用時に再推定されることはない。
//
// Box-Coxは厳密に正の入力を要求するため、変換前に全値へシフト量εを
// 加える。ε加算後も非正の値が残る場合はUndefinedTransformErrorとなる。
type BoxCoxTransformer struct {
	model.BaseEstimator

	// Lambda は列名 → 推定されたλのマッピング
	Lambda map[string]float64

	// columns は学習時の列順
	columns []string

	alpha       float64 // 正規性検定の有意水準
	epsilon     float64 // 正値を保証するシフト量
	sampleSize  int     // λ推定に使うサブサンプル数（0で全データ）
	randomState int64   // サブサンプリングの乱数シード
	forced      []string
}

// BoxCoxOption はBoxCoxTransformerの設定オプション
type BoxCoxOption func(*BoxCoxTransformer)

// WithBoxCoxAlpha は正規性検定の有意水準を設定（デフォルト: 0.05）
func WithBoxCoxAlpha(alpha float64) BoxCoxOption {
	return func(b *BoxCoxTransformer) {
		b.alpha = alpha
	}
}

// WithBoxCoxEpsilon は正値を保証するシフト量εを設定（デフォルト: 1e-6）
func WithBoxCoxEpsilon(eps float64) BoxCoxOption {
	return func(b *BoxCoxTransformer) {
		b.epsilon = eps
	}
}

// WithBoxCoxSampleSize はλ推定に使うサブサンプル数を設定
// 0を指定すると常に列全体で推定する（デフォルト: 0）。
func WithBoxCoxSampleSize(n int) BoxCoxOption {
	return func(b *BoxCoxTransformer) {
		b.sampleSize = n
	}
}

// WithBoxCoxRandomState はサブサンプリングの乱数シードを設定
// シードを固定することでFitの結果が再現可能になる。
func WithBoxCoxRandomState(seed int64) BoxCoxOption {
	return func(b *BoxCoxTransformer) {
		b.randomState = seed
	}
}

// WithBoxCoxColumns は正規性検定を使わず変換対象列を明示的に指定する
// SelectColumnsはこのリストをそのまま返すようになる。
func WithBoxCoxColumns(columns []string) BoxCoxOption {
	return func(b *BoxCoxTransformer) {
		b.forced = append([]string(nil), columns...)
	}
}

// NewBoxCoxTransformer は新しいBoxCoxTransformerを作成する
func NewBoxCoxTransformer(options ...BoxCoxOption) *BoxCoxTransformer {
	b := &BoxCoxTransformer{
		alpha:       0.05,
		epsilon:     1e-6,
		sampleSize:  0,
		randomState: 42,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// NewFittedBoxCox は学習済みのλマッピングから直接変換器を再構成する
// パイプラインが保存済みのFittedStateから変換を再生する際に使う。
// 列の反復順は名前のソート順で固定される。
func NewFittedBoxCox(lambda map[string]float64, epsilon float64) *BoxCoxTransformer {
	b := &BoxCoxTransformer{
		Lambda:  lambda,
		columns: sortedKeys(lambda),
		epsilon: epsilon,
	}
	b.SetFitted()
	return b
}

// SelectColumns は候補列から変換が必要な列を選ぶ
//
// 各候補列に対してD'Agostino-Pearsonの正規性検定を行い、p値が有意水準を
// 下回る（正規分布から有意に逸脱している）列を選択する。値の種類が2未満の
// 列と欠損値を含む列は検定対象から除外され、選択されることはない。
// WithBoxCoxColumnsで明示指定された場合は検定せずその列を返す。
func (b *BoxCoxTransformer) SelectColumns(tbl *dataset.Table, candidates []string) ([]string, error) {
	if b.forced != nil {
		return append([]string(nil), b.forced...), nil
	}

	var selected []string
	for _, name := range candidates {
		values, err := tbl.Floats(name)
		if err != nil {
			return nil, err
		}
		if hasNaN(values) || countDistinct(values) < 2 {
			continue
		}
		if len(values) < minNormalTestSamples {
			continue
		}

		_, p, err := NormalTestPValue(values)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		if p < b.alpha {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

// Fit は選択された各列についてλを推定する
//
// λは変換後分布の正規性（プロファイル対数尤度）を最大化する値として
// 黄金分割探索で求める。sampleSizeが設定されている場合は、シード付き
// 乱数で抽出したサブサンプル上で推定する。
func (b *BoxCoxTransformer) Fit(tbl *dataset.Table, columns []string) error {
	if tbl.NumRows() == 0 {
		return errors.NewModelError("BoxCoxTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	rng := rand.New(rand.NewSource(b.randomState))
	lambdas := make(map[string]float64, len(columns))

	for _, name := range columns {
		values, err := tbl.Floats(name)
		if err != nil {
			return err
		}

		sample := values
		if b.sampleSize > 0 && len(values) > b.sampleSize {
			sample = subsample(values, b.sampleSize, rng)
		}

		shifted := make([]float64, len(sample))
		for i, v := range sample {
			shifted[i] = v + b.epsilon
			if shifted[i] <= 0 {
				return errors.NewUndefinedTransformError("BoxCoxTransformer.Fit", name, v)
			}
		}

		lambdas[name] = estimateLambda(shifted)
	}

	b.Lambda = lambdas
	b.columns = append([]string(nil), columns...)
	b.SetFitted()
	return nil
}

// Transform は保存されたλで各列にBox-Cox変換を適用した新しいテーブルを返す
//
// λを持たない列は変更されずに通過する。λを持つ列がテーブルに存在しない
// 場合はColumnMissingError、ε加算後も非正の値が残る場合は
// UndefinedTransformErrorとなる。部分的な出力は返さない。
func (b *BoxCoxTransformer) Transform(tbl *dataset.Table) (*dataset.Table, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("BoxCoxTransformer", "Transform")
	}

	out := tbl.Clone()
	for _, name := range b.columns {
		lambda := b.Lambda[name]
		col, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnMissingError("BoxCoxTransformer.Transform", name)
		}
		if col.Type != dataset.Numeric {
			return nil, errors.NewValueError("BoxCoxTransformer.Transform", fmt.Sprintf("column %q is not numeric", name))
		}

		// 変換は行ごとに独立。定義域違反だけ先に逐次検査する。
		for _, v := range col.Floats {
			if v+b.epsilon <= 0 {
				return nil, errors.NewUndefinedTransformError("BoxCoxTransformer.Transform", name, v)
			}
		}

		transformed := make([]float64, len(col.Floats))
		parallel.ParallelizeWithThreshold(len(col.Floats), 10000, func(start, end int) {
			for i := start; i < end; i++ {
				transformed[i] = boxcox(col.Floats[i]+b.epsilon, lambda)
			}
		})
		if err := out.SetNumeric(name, transformed); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// InverseTransform はBox-Cox変換を逆適用して元のスケールに戻す
func (b *BoxCoxTransformer) InverseTransform(tbl *dataset.Table) (*dataset.Table, error) {
	if !b.IsFitted() {
		return nil, errors.NewNotFittedError("BoxCoxTransformer", "InverseTransform")
	}

	out := tbl.Clone()
	for _, name := range b.columns {
		lambda := b.Lambda[name]
		col, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnMissingError("BoxCoxTransformer.InverseTransform", name)
		}

		restored := make([]float64, len(col.Floats))
		for i, y := range col.Floats {
			restored[i] = boxcoxInverse(y, lambda) - b.epsilon
		}
		if err := out.SetNumeric(name, restored); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Columns は学習時に選択されていた列名を返す
func (b *BoxCoxTransformer) Columns() []string {
	return append([]string(nil), b.columns...)
}

// Epsilon は正値を保証するシフト量を返す
func (b *BoxCoxTransformer) Epsilon() float64 {
	return b.epsilon
}

// boxcox は正の入力xに ((x^λ - 1) / λ)（λ≠0）または log(x)（λ=0）を適用する
func boxcox(x, lambda float64) float64 {
	if lambda == 0 {
		return math.Log(x)
	}
	return (math.Pow(x, lambda) - 1) / lambda
}

// boxcoxInverse はboxcoxの逆変換 (y*λ + 1)^(1/λ)（λ≠0）または exp(y)（λ=0）
func boxcoxInverse(y, lambda float64) float64 {
	if lambda == 0 {
		return math.Exp(y)
	}
	return math.Pow(y*lambda+1, 1/lambda)
}

// estimateLambda はプロファイル対数尤度を最大化するλを黄金分割探索で求める
//
// llf(λ) = (λ-1)·Σlog(x) - n/2·log(var(y_λ))
// 探索区間は実用上十分な[-5, 5]。
func estimateLambda(x []float64) float64 {
	var sumLog float64
	for _, v := range x {
		sumLog += math.Log(v)
	}
	n := float64(len(x))

	llf := func(lambda float64) float64 {
		y := make([]float64, len(x))
		var mean float64
		for i, v := range x {
			y[i] = boxcox(v, lambda)
			mean += y[i]
		}
		mean /= n
		var variance float64
		for _, v := range y {
			d := v - mean
			variance += d * d
		}
		variance /= n
		return (lambda-1)*sumLog - n/2*errors.StabilizeLog(variance)
	}

	return goldenSectionMax(llf, -5, 5, 1e-8)
}

// goldenSectionMax は単峰と仮定した関数fの最大点を[lo, hi]から探索する
func goldenSectionMax(f func(float64) float64, lo, hi, tol float64) float64 {
	invPhi := (math.Sqrt(5) - 1) / 2

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)

	for b-a > tol {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}

// subsample は重複なしでn個を抽出する（シード付きrngで決定的）
func subsample(x []float64, n int, rng *rand.Rand) []float64 {
	idx := rng.Perm(len(x))[:n]
	out := make([]float64, n)
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}
