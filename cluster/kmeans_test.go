package cluster

import (
	"math"
	"reflect"
	"testing"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// blobTable は4つの明確に分離した塊を持つテーブルを作る
func blobTable(t *testing.T, perBlob int) *dataset.Table {
	t.Helper()
	centers := [][2]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}}

	var xs, ys []float64
	for _, c := range centers {
		for i := 0; i < perBlob; i++ {
			// 小さな決定的オフセットで塊の周りに散らす
			dx := 0.1 * float64(i%5)
			dy := 0.1 * float64(i%7)
			xs = append(xs, c[0]+dx)
			ys = append(ys, c[1]+dy)
		}
	}

	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("x", xs); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("y", ys); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestKMeansFitSeparatedBlobs(t *testing.T) {
	tbl := blobTable(t, 25)
	km := NewKMeans(WithNClusters(4), WithRandomState(1))

	if err := km.Fit(tbl, []string{"x", "y"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	labels := km.Labels()
	if len(labels) != 100 {
		t.Fatalf("Labels() length = %d, want 100", len(labels))
	}

	// 各塊の25行は同じラベルを持ち、塊ごとに異なるラベルになる
	seen := make(map[int]bool)
	for blob := 0; blob < 4; blob++ {
		first := labels[blob*25]
		for i := 1; i < 25; i++ {
			if labels[blob*25+i] != first {
				t.Errorf("blob %d split across clusters", blob)
				break
			}
		}
		if seen[first] {
			t.Errorf("blob %d shares label %d with another blob", blob, first)
		}
		seen[first] = true
	}

	if km.Inertia() <= 0 {
		t.Errorf("Inertia() = %v, want > 0", km.Inertia())
	}
	if got := km.FeatureColumns(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("FeatureColumns() = %v", got)
	}
}

func TestKMeansFitIsReproducible(t *testing.T) {
	tbl := blobTable(t, 25)

	fit := func() [][]float64 {
		km := NewKMeans(WithNClusters(4), WithRandomState(9))
		if err := km.Fit(tbl, []string{"x", "y"}); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		return km.centroids
	}

	if a, b := fit(), fit(); !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different centroids")
	}
}

func TestKMeansAssignMatchesTrainingLabels(t *testing.T) {
	tbl := blobTable(t, 25)
	km := NewKMeans(WithNClusters(4), WithRandomState(1))
	if err := km.Fit(tbl, []string{"x", "y"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	got, err := km.Assign(tbl)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if !reflect.DeepEqual(got, km.Labels()) {
		t.Error("Assign() on the training table disagrees with training labels")
	}
}

func TestKMeansAssignIgnoresExtraColumns(t *testing.T) {
	tbl := blobTable(t, 25)
	km := NewKMeans(WithNClusters(4), WithRandomState(1))
	if err := km.Fit(tbl, []string{"x", "y"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// 目的変数や追加列があっても割り当ては変わらない
	extra := tbl.Clone()
	target := make([]float64, tbl.NumRows())
	if err := extra.AddNumeric("Calories", target); err != nil {
		t.Fatal(err)
	}

	a, err := km.Assign(tbl)
	if err != nil {
		t.Fatal(err)
	}
	b, err := km.Assign(extra)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("extra columns changed cluster assignment")
	}
}

func TestKMeansFewerSamplesThanClusters(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("x", []float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	km := NewKMeans(WithNClusters(3))
	if err := km.Fit(tbl, []string{"x"}); err == nil {
		t.Error("Fit() with fewer samples than clusters should fail")
	}
}

func TestKMeansAssignNotFitted(t *testing.T) {
	tbl := blobTable(t, 5)
	km := NewKMeans()
	_, err := km.Assign(tbl)
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Errorf("Assign() before Fit: error = %v, want NotFittedError", err)
	}
}

func TestNearestCentroidTieBreak(t *testing.T) {
	// 等距離の場合はインデックスの小さい重心が選ばれる
	centroids := [][]float64{{-1, 0}, {1, 0}}
	if got := NearestCentroid([]float64{0, 0}, centroids); got != 0 {
		t.Errorf("NearestCentroid() = %d, want 0 on tie", got)
	}

	// 逆順でも同じ規則
	centroids = [][]float64{{1, 0}, {-1, 0}}
	if got := NearestCentroid([]float64{0, 0}, centroids); got != 0 {
		t.Errorf("NearestCentroid() = %d, want 0 on tie", got)
	}
}

func TestNearestCentroid(t *testing.T) {
	centroids := [][]float64{{0, 0}, {5, 5}, {10, 10}}
	tests := []struct {
		name   string
		sample []float64
		want   int
	}{
		{"near first", []float64{0.5, -0.5}, 0},
		{"near middle", []float64{4, 6}, 1},
		{"near last", []float64{11, 9}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NearestCentroid(tt.sample, centroids); got != tt.want {
				t.Errorf("NearestCentroid() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAssignNearestFromCentroidMaps(t *testing.T) {
	tbl := blobTable(t, 25)
	km := NewKMeans(WithNClusters(4), WithRandomState(1))
	if err := km.Fit(tbl, []string{"x", "y"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	direct, err := km.Assign(tbl)
	if err != nil {
		t.Fatal(err)
	}
	replayed, err := AssignNearest(tbl, km.CentroidMaps(), km.FeatureColumns())
	if err != nil {
		t.Fatalf("AssignNearest() error = %v", err)
	}
	if !reflect.DeepEqual(direct, replayed) {
		t.Error("AssignNearest() disagrees with the fitted model")
	}
}

func TestAssignNearestMissingFeature(t *testing.T) {
	tbl := blobTable(t, 5)
	centroids := []map[string]float64{{"x": 0}}
	_, err := AssignNearest(tbl, centroids, []string{"x", "y"})
	var cme *errors.ColumnMissingError
	if !errors.As(err, &cme) {
		t.Errorf("AssignNearest() error = %v, want ColumnMissingError", err)
	}
}

func TestAssignNearestNoCentroids(t *testing.T) {
	tbl := blobTable(t, 5)
	if _, err := AssignNearest(tbl, nil, []string{"x", "y"}); err == nil {
		t.Error("AssignNearest() with no centroids should fail")
	}
}

func TestSquaredDistance(t *testing.T) {
	got := squaredDistance([]float64{0, 3}, []float64{4, 0})
	if math.Abs(got-25) > 1e-12 {
		t.Errorf("squaredDistance() = %v, want 25", got)
	}
}
