// Package linear はテーブル入力に対する線形回帰モデルを提供する。
// 前処理パイプラインが出力したテーブルをそのまま学習・予測に使える
// 統一インターフェース（Fit(table) / Predict(table)）を実装する。
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// Regression はテーブルを入力とする線形回帰モデル
type Regression struct {
	model.BaseEstimator
	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	features  []string      // 学習時の特徴量カラム（順序を保持）
	target    string
}

// NewRegression は target カラムを features カラムで回帰するモデルを作成する
func NewRegression(target string, features []string) *Regression {
	return &Regression{
		target:   target,
		features: append([]string(nil), features...),
	}
}

// Features は学習に使用する特徴量カラム名を返す
func (r *Regression) Features() []string {
	return append([]string(nil), r.features...)
}

// Fit はモデルを訓練テーブルで学習させる
// 正規方程式 w = (X^T * X)^(-1) * X^T * y を使用
func (r *Regression) Fit(tbl *dataset.Table) error {
	if tbl.NumRows() == 0 {
		return errors.NewModelError("Regression.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(r.features) == 0 {
		return errors.NewValueError("Regression.Fit", "no feature columns configured")
	}

	X, err := tbl.Matrix(r.features)
	if err != nil {
		return err
	}
	y, err := tbl.Vector(r.target)
	if err != nil {
		return err
	}

	n, c := X.Dims()

	// 切片項のために X に 1 の列を追加
	XWithIntercept := mat.NewDense(n, c+1, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			XWithIntercept.Set(i, 0, 1.0) // 切片項
			for j := 0; j < c; j++ {
				XWithIntercept.Set(i, j+1, X.At(i, j))
			}
		}
	})

	// 正規方程式を解く: (X^T * X)^(-1) * X^T * y
	var XT mat.Dense
	XT.CloneFrom(XWithIntercept.T())

	var XTX mat.Dense
	XTX.Mul(&XT, XWithIntercept)

	var XTXInv mat.Dense
	if err := XTXInv.Inverse(&XTX); err != nil {
		return errors.NewModelError("Regression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	var XTy mat.VecDense
	XTy.MulVec(&XT, y)

	weights := mat.NewVecDense(c+1, nil)
	weights.MulVec(&XTXInv, &XTy)

	// 切片と重みを分離
	r.Intercept = weights.AtVec(0)
	r.Weights = mat.NewVecDense(c, nil)
	for i := 0; i < c; i++ {
		r.Weights.SetVec(i, weights.AtVec(i+1))
	}

	r.SetFitted()
	return nil
}

// Predict は入力テーブルに対する予測値を返す
// 特徴量カラムは学習時と同じ名前で存在しなければならない
func (r *Regression) Predict(tbl *dataset.Table) ([]float64, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regression", "Predict")
	}

	X, err := tbl.Matrix(r.features)
	if err != nil {
		return nil, err
	}

	n, c := X.Dims()
	if c != r.Weights.Len() {
		return nil, errors.NewDimensionError("Regression.Predict", r.Weights.Len(), c, 1)
	}

	// 予測: y = X * w + intercept
	predictions := make([]float64, n)
	parallel.ParallelizeWithThreshold(n, 1000, func(start, end int) {
		for i := start; i < end; i++ {
			sum := r.Intercept
			for j := 0; j < c; j++ {
				sum += X.At(i, j) * r.Weights.AtVec(j)
			}
			predictions[i] = sum
		}
	})
	return predictions, nil
}
