package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// DeriveConfig は派生特徴量の設定
// 指数変換・二乗項の対象列と、重要列同士の交互作用ペアを指定する。
type DeriveConfig struct {
	// ExpColumn は指数変換 exp(x) を追加する列（空なら追加しない）
	ExpColumn string

	// SquareColumn は二乗項 x² を追加する列（空なら追加しない）
	SquareColumn string

	// InteractionPairs は積を追加する列ペアのリスト
	InteractionPairs [][2]string
}

// ExpColumnName は指数変換列の出力名を返す
func ExpColumnName(col string) string { return "exp_" + col }

// SquareColumnName は二乗項列の出力名を返す
func SquareColumnName(col string) string { return col + "_sq" }

// InteractionColumnName は交互作用列の出力名を返す
func InteractionColumnName(a, b string) string { return a + "_x_" + b }

// DeriveFeatures は既存列の決定的な関数として派生列を追加した新しいテーブルを返す
//
// 学習パラメータは持たず、同じ入力に対して常に同じ出力を生成する。
// クラスタ割り当ての後を含め、訓練・検証・テスト・スコアリングの全テーブルに
// 同一の関数が適用される。参照する列が存在しない場合はColumnMissingError。
func DeriveFeatures(tbl *dataset.Table, cfg DeriveConfig) (*dataset.Table, error) {
	out := tbl.Clone()

	if cfg.ExpColumn != "" {
		values, err := numericValues(out, cfg.ExpColumn, "DeriveFeatures")
		if err != nil {
			return nil, err
		}
		derived := make([]float64, len(values))
		for i, v := range values {
			derived[i] = math.Exp(v)
		}
		if err := out.AddNumeric(ExpColumnName(cfg.ExpColumn), derived); err != nil {
			return nil, err
		}
	}

	if cfg.SquareColumn != "" {
		values, err := numericValues(out, cfg.SquareColumn, "DeriveFeatures")
		if err != nil {
			return nil, err
		}
		derived := make([]float64, len(values))
		for i, v := range values {
			derived[i] = v * v
		}
		if err := out.AddNumeric(SquareColumnName(cfg.SquareColumn), derived); err != nil {
			return nil, err
		}
	}

	for _, pair := range cfg.InteractionPairs {
		a, err := numericValues(out, pair[0], "DeriveFeatures")
		if err != nil {
			return nil, err
		}
		b, err := numericValues(out, pair[1], "DeriveFeatures")
		if err != nil {
			return nil, err
		}
		derived := make([]float64, len(a))
		for i := range a {
			derived[i] = a[i] * b[i]
		}
		if err := out.AddNumeric(InteractionColumnName(pair[0], pair[1]), derived); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func numericValues(tbl *dataset.Table, name, op string) ([]float64, error) {
	col, ok := tbl.Column(name)
	if !ok {
		return nil, errors.NewColumnMissingError(op, name)
	}
	if col.Type != dataset.Numeric {
		return nil, errors.NewValueError(op, "column "+name+" is not numeric")
	}
	return col.Floats, nil
}
