package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// ScaleStat は1列分の標準化パラメータ（平均と標本標準偏差）
type ScaleStat struct {
	Mean   float64
	StdDev float64
}

// StandardScaler は列名をキーとする標準化スケーラー
// 訓練テーブルから列ごとの平均・標準偏差を一度だけ学習し、
// 任意のテーブルに (x - mean) / stdDev を適用する。
// 学習対象に目的変数列を含めてはならない。
type StandardScaler struct {
	model.BaseEstimator

	// Stats は列名 → 標準化パラメータのマッピング
	Stats map[string]ScaleStat

	// columns は学習時の列順（決定的な反復のため保持）
	columns []string
}

// NewStandardScaler は新しいStandardScalerを作成する
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// NewFittedStandardScaler は学習済み統計から直接スケーラーを再構成する
// パイプラインが保存済みのFittedStateから変換を再生する際に使う。
// 列の反復順は名前のソート順で固定される。
func NewFittedStandardScaler(stats map[string]ScaleStat) *StandardScaler {
	s := &StandardScaler{
		Stats:   stats,
		columns: sortedKeys(stats),
	}
	s.SetFitted()
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fit は訓練テーブルから列ごとの統計情報（平均、標本標準偏差）を計算する
//
// 分散が0の定数列が含まれる場合はDegenerateScaleErrorで学習全体が失敗する。
// 黙ってゼロ除算したり0に置き換えたりはしない方針（呼び出し側が事前に
// 定数列を除外する）。欠損値（NaN）を含む列も学習エラーとなる。
func (s *StandardScaler) Fit(tbl *dataset.Table, columns []string) error {
	if tbl.NumRows() == 0 || len(columns) == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	stats := make(map[string]ScaleStat, len(columns))
	for _, name := range columns {
		values, err := tbl.Floats(name)
		if err != nil {
			return err
		}
		if err := errors.CheckNumericalStability("StandardScaler.Fit", values); err != nil {
			return errors.Wrapf(err, "column %q", name)
		}

		mean := stat.Mean(values, nil)
		std := stat.StdDev(values, nil)
		if std == 0 {
			return errors.NewDegenerateScaleError("StandardScaler.Fit", name)
		}
		stats[name] = ScaleStat{Mean: mean, StdDev: std}
	}

	s.Stats = stats
	s.columns = append([]string(nil), columns...)
	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってテーブルを標準化した新しいテーブルを返す
//
// Statsに含まれない列は変更されずに通過する。Statsに含まれる列が
// テーブルに存在しない場合はColumnMissingErrorとなる。
// 標準偏差0の統計が紛れ込んでいた場合はDegenerateScaleErrorを返し、
// 決してゼロ除算しない。
func (s *StandardScaler) Transform(tbl *dataset.Table) (*dataset.Table, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	out := tbl.Clone()
	for _, name := range s.columns {
		st := s.Stats[name]
		if st.StdDev == 0 {
			return nil, errors.NewDegenerateScaleError("StandardScaler.Transform", name)
		}

		col, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnMissingError("StandardScaler.Transform", name)
		}
		if col.Type != dataset.Numeric {
			return nil, errors.NewValueError("StandardScaler.Transform", fmt.Sprintf("column %q is not numeric", name))
		}

		// 行方向は独立なので並列化できる（列ごとの統計は学習済みで固定）
		scaled := make([]float64, len(col.Floats))
		parallel.ParallelizeWithThreshold(len(col.Floats), 10000, func(start, end int) {
			for i := start; i < end; i++ {
				scaled[i] = (col.Floats[i] - st.Mean) / st.StdDev
			}
		})
		if err := out.SetNumeric(name, scaled); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// FitTransform は訓練テーブルで学習し、同じテーブルを変換する
func (s *StandardScaler) FitTransform(tbl *dataset.Table, columns []string) (*dataset.Table, error) {
	if err := s.Fit(tbl, columns); err != nil {
		return nil, err
	}
	return s.Transform(tbl)
}

// InverseTransform は標準化されたテーブルを元のスケールに戻す
func (s *StandardScaler) InverseTransform(tbl *dataset.Table) (*dataset.Table, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	out := tbl.Clone()
	for _, name := range s.columns {
		st := s.Stats[name]
		col, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnMissingError("StandardScaler.InverseTransform", name)
		}

		restored := make([]float64, len(col.Floats))
		for i, v := range col.Floats {
			restored[i] = v*st.StdDev + st.Mean
		}
		if err := out.SetNumeric(name, restored); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Columns は学習時に指定された列名を返す
func (s *StandardScaler) Columns() []string {
	return append([]string(nil), s.columns...)
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return "StandardScaler(unfitted)"
	}
	return fmt.Sprintf("StandardScaler(n_columns=%d)", len(s.columns))
}
