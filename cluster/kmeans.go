// Package cluster は特徴量列上のk-means分割と最近傍重心の割り当てを提供する。
package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/core/model"
	"github.com/YuminosukeSato/tabprep/core/parallel"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// KMeans は全バッチ（Lloyd法）のk-meansクラスタリング
// 訓練テーブルの特徴量列（目的変数は除外済み）上で重心を学習し、
// 任意のテーブルの各行を最近傍の学習済み重心に割り当てる。
// 複数回のランダム初期化を行い、クラスタ内平方和が最小の分割を採用する。
type KMeans struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	nInit       int     // 異なる初期化での実行回数
	maxIter     int     // 最大イテレーション数
	tol         float64 // 収束判定（重心移動量）の許容誤差
	randomState int64   // 乱数シード

	// 学習パラメータ
	featureColumns []string    // 学習時に使用した特徴量列（この順で距離計算）
	centroids      [][]float64 // クラスタ重心（nClusters x nFeatures）
	labels         []int       // 訓練データ各行のクラスタラベル
	inertia        float64     // クラスタ内平方和誤差
	nIter          int         // 採用された実行のイテレーション数
}

// Option はKMeansの設定オプション
type Option func(*KMeans)

// WithNClusters はクラスタ数を設定（デフォルト: 8）
func WithNClusters(n int) Option {
	return func(km *KMeans) {
		km.nClusters = n
	}
}

// WithNInit はランダム初期化の回数を設定（デフォルト: 10）
func WithNInit(n int) Option {
	return func(km *KMeans) {
		km.nInit = n
	}
}

// WithMaxIter は最大イテレーション数を設定（デフォルト: 300）
func WithMaxIter(n int) Option {
	return func(km *KMeans) {
		km.maxIter = n
	}
}

// WithTol は収束判定の許容誤差を設定（デフォルト: 1e-4）
func WithTol(tol float64) Option {
	return func(km *KMeans) {
		km.tol = tol
	}
}

// WithRandomState は乱数シードを設定
// シードを固定することでFitの結果が再現可能になる。
func WithRandomState(seed int64) Option {
	return func(km *KMeans) {
		km.randomState = seed
	}
}

// NewKMeans は新しいKMeansを作成する
func NewKMeans(options ...Option) *KMeans {
	km := &KMeans{
		nClusters:   8,
		nInit:       10,
		maxIter:     300,
		tol:         1e-4,
		randomState: 42,
	}
	for _, opt := range options {
		opt(km)
	}
	return km
}

// Fit は訓練テーブルの行をfeatureColumns上でnClusters個に分割する
//
// featureColumnsに目的変数を含めてはならない。nInit回の実行のうち
// 慣性（クラスタ内平方和）が最小のものを採用する。収束しなかった実行は
// ConvergenceWarningとして報告される。
func (km *KMeans) Fit(tbl *dataset.Table, featureColumns []string) error {
	X, err := tbl.Matrix(featureColumns)
	if err != nil {
		return err
	}

	rows, _ := X.Dims()
	if rows < km.nClusters {
		return errors.Newf("kmeans: fewer samples than clusters: %d < %d", rows, km.nClusters)
	}

	rng := rand.New(rand.NewSource(km.randomState))

	bestInertia := math.Inf(1)
	var bestCentroids [][]float64
	var bestLabels []int
	var bestNIter int

	for run := 0; run < km.nInit; run++ {
		centroids, labels, inertia, nIter := km.lloydRun(X, rng)

		if inertia < bestInertia {
			bestInertia = inertia
			bestCentroids = centroids
			bestLabels = labels
			bestNIter = nIter
		}
	}

	km.featureColumns = append([]string(nil), featureColumns...)
	km.centroids = bestCentroids
	km.labels = bestLabels
	km.inertia = bestInertia
	km.nIter = bestNIter

	km.SetFitted()
	return nil
}

// lloydRun は単一の初期化からLloyd法の反復を収束まで実行する
func (km *KMeans) lloydRun(X *mat.Dense, rng *rand.Rand) ([][]float64, []int, float64, int) {
	rows, cols := X.Dims()

	centroids := km.initKMeansPlusPlus(X, rng)
	labels := make([]int, rows)
	var finalIter int

	for iter := 0; iter < km.maxIter; iter++ {
		finalIter = iter

		// 各行を最近傍の重心に割り当てる（行方向は独立）
		parallel.ParallelizeWithThreshold(rows, 10000, func(start, end int) {
			for i := start; i < end; i++ {
				labels[i] = NearestCentroid(X.RawRowView(i), centroids)
			}
		})

		// 重心をクラスタ平均に再配置
		next := make([][]float64, km.nClusters)
		counts := make([]int, km.nClusters)
		for c := range next {
			next[c] = make([]float64, cols)
		}
		for i := 0; i < rows; i++ {
			c := labels[i]
			counts[c]++
			row := X.RawRowView(i)
			for j, v := range row {
				next[c][j] += v
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// 空クラスタは最遠点で再初期化する
				next[c] = km.farthestPoint(X, centroids)
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}

		// 収束判定: 重心の最大移動量
		shift := 0.0
		for c := range centroids {
			d := squaredDistance(centroids[c], next[c])
			if d > shift {
				shift = d
			}
		}
		centroids = next

		if shift <= km.tol*km.tol {
			break
		}

		if iter == km.maxIter-1 {
			errors.Warn(errors.NewConvergenceWarning("KMeans", km.maxIter, ""))
		}
	}

	// 最終的なラベルと慣性を同じ重心で計算し直す
	inertia := 0.0
	for i := 0; i < rows; i++ {
		labels[i] = NearestCentroid(X.RawRowView(i), centroids)
		inertia += squaredDistance(X.RawRowView(i), centroids[labels[i]])
	}

	return centroids, labels, inertia, finalIter
}

// initKMeansPlusPlus はk-means++初期化を実行
func (km *KMeans) initKMeansPlusPlus(X *mat.Dense, rng *rand.Rand) [][]float64 {
	rows, cols := X.Dims()
	centroids := make([][]float64, km.nClusters)

	// 最初の重心をランダムに選択
	centroids[0] = make([]float64, cols)
	copy(centroids[0], X.RawRowView(rng.Intn(rows)))

	for c := 1; c < km.nClusters; c++ {
		distances := make([]float64, rows)
		total := 0.0

		// 各行から最近傍の既存重心までの距離の二乗を計算
		for i := 0; i < rows; i++ {
			minDist := math.Inf(1)
			for j := 0; j < c; j++ {
				d := squaredDistance(X.RawRowView(i), centroids[j])
				if d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist
			total += minDist
		}

		// 距離の二乗に比例した確率で次の重心を選択
		target := rng.Float64() * total
		cumSum := 0.0
		selected := 0
		for i := 0; i < rows; i++ {
			cumSum += distances[i]
			if cumSum >= target {
				selected = i
				break
			}
		}

		centroids[c] = make([]float64, cols)
		copy(centroids[c], X.RawRowView(selected))
	}

	return centroids
}

// farthestPoint は既存重心群から最も遠い行のコピーを返す
func (km *KMeans) farthestPoint(X *mat.Dense, centroids [][]float64) []float64 {
	rows, cols := X.Dims()
	best := 0
	bestDist := -1.0
	for i := 0; i < rows; i++ {
		minDist := math.Inf(1)
		for _, c := range centroids {
			d := squaredDistance(X.RawRowView(i), c)
			if d < minDist {
				minDist = d
			}
		}
		if minDist > bestDist {
			bestDist = minDist
			best = i
		}
	}
	out := make([]float64, cols)
	copy(out, X.RawRowView(best))
	return out
}

// Assign はテーブルの各行を学習済み重心に割り当て、クラスタ番号を返す
//
// 距離計算には学習時のfeatureColumnsのみを使用する。テーブルに目的変数や
// 追加の列が存在しても参照されないため、目的変数を持たない未知の行も
// 学習済みモデルと整合したクラスタに割り当てられる。必要な特徴量列が
// 存在しない場合はColumnMissingError。
func (km *KMeans) Assign(tbl *dataset.Table) ([]int, error) {
	if !km.IsFitted() {
		return nil, errors.NewNotFittedError("KMeans", "Assign")
	}
	return assignMatrix(tbl, km.centroids, km.featureColumns)
}

// AssignNearest は重心の列名マップ表現から直接割り当てを行う
// パイプラインが保存済みのFittedStateから割り当てを再生する際に使う。
func AssignNearest(tbl *dataset.Table, centroids []map[string]float64, featureColumns []string) ([]int, error) {
	if len(centroids) == 0 {
		return nil, errors.NewValueError("cluster.AssignNearest", "no centroids")
	}
	dense := make([][]float64, len(centroids))
	for c, centroid := range centroids {
		dense[c] = make([]float64, len(featureColumns))
		for j, name := range featureColumns {
			v, ok := centroid[name]
			if !ok {
				return nil, errors.NewColumnMissingError("cluster.AssignNearest", name)
			}
			dense[c][j] = v
		}
	}
	return assignMatrix(tbl, dense, featureColumns)
}

func assignMatrix(tbl *dataset.Table, centroids [][]float64, featureColumns []string) ([]int, error) {
	X, err := tbl.Matrix(featureColumns)
	if err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	assignments := make([]int, rows)
	parallel.ParallelizeWithThreshold(rows, 10000, func(start, end int) {
		for i := start; i < end; i++ {
			assignments[i] = NearestCentroid(X.RawRowView(i), centroids)
		}
	})
	return assignments, nil
}

// NearestCentroid は最近傍重心のインデックスを返す
// 距離が等しい場合はインデックスの小さい重心を返す（再現性のため）。
func NearestCentroid(sample []float64, centroids [][]float64) int {
	minDist := math.Inf(1)
	nearest := 0

	for c, centroid := range centroids {
		d := squaredDistance(sample, centroid)
		if d < minDist {
			minDist = d
			nearest = c
		}
	}

	return nearest
}

// squaredDistance はユークリッド距離の二乗を計算
func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// CentroidMaps は学習済み重心を列名をキーとするマップのリストとして返す
// 順序は最終イテレーションの重心順で固定される。
func (km *KMeans) CentroidMaps() []map[string]float64 {
	out := make([]map[string]float64, len(km.centroids))
	for c, centroid := range km.centroids {
		m := make(map[string]float64, len(km.featureColumns))
		for j, name := range km.featureColumns {
			m[name] = centroid[j]
		}
		out[c] = m
	}
	return out
}

// FeatureColumns は学習時に使用した特徴量列を返す
func (km *KMeans) FeatureColumns() []string {
	return append([]string(nil), km.featureColumns...)
}

// Labels は訓練データのクラスタラベルを返す
func (km *KMeans) Labels() []int {
	if km.labels == nil {
		return nil
	}
	labels := make([]int, len(km.labels))
	copy(labels, km.labels)
	return labels
}

// Inertia は慣性（クラスタ内平方和誤差）を返す
func (km *KMeans) Inertia() float64 {
	return km.inertia
}

// NIterations は採用された実行のイテレーション数を返す
func (km *KMeans) NIterations() int {
	return km.nIter
}
