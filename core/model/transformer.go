package model

import "github.com/YuminosukeSato/tabprep/dataset"

// TableTransformer はテーブル変換のインターフェース
// 実装はFitで訓練テーブルのみからパラメータを学習し、学習済みパラメータを
// 任意のテーブルに適用する。入力テーブルは変更しない。
type TableTransformer interface {
	// Transform は学習済みパラメータでテーブルを変換した新しいテーブルを返す
	Transform(tbl *dataset.Table) (*dataset.Table, error)

	// InverseTransform は変換を逆適用して元のスケールに戻す
	InverseTransform(tbl *dataset.Table) (*dataset.Table, error)
}

// Predictor は学習済みモデルによる予測のインターフェース
type Predictor interface {
	// Predict は入力テーブルの各行に対する予測値を返す
	Predict(tbl *dataset.Table) ([]float64, error)
}
