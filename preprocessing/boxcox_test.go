package preprocessing

import (
	"math"
	"reflect"
	"testing"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func TestBoxCoxRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
	}{
		{"log transform", 0},
		{"square root region", 0.5},
		{"identity region", 1},
		{"negative lambda", -0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, x := range []float64{0.1, 1, 2.5, 100} {
				y := boxcox(x, tt.lambda)
				back := boxcoxInverse(y, tt.lambda)
				if math.Abs(back-x) > 1e-9 {
					t.Errorf("boxcoxInverse(boxcox(%v, λ=%v)) = %v", x, tt.lambda, back)
				}
			}
		})
	}
}

func TestBoxCoxLambdaZeroIsLog(t *testing.T) {
	if got := boxcox(math.E, 0); math.Abs(got-1) > 1e-12 {
		t.Errorf("boxcox(e, 0) = %v, want 1", got)
	}
}

func TestEstimateLambdaLogNormal(t *testing.T) {
	// 対数正規データの最適λは0に近い
	base := normalGrid(400)
	x := make([]float64, len(base))
	for i, v := range base {
		x[i] = math.Exp(v)
	}

	lambda := estimateLambda(x)
	if math.Abs(lambda) > 0.15 {
		t.Errorf("estimateLambda() = %v for log-normal data, want ~0", lambda)
	}
}

func TestEstimateLambdaNormal(t *testing.T) {
	// すでに正規に近いデータの最適λは1に近い
	x := make([]float64, 400)
	for i, v := range normalGrid(400) {
		x[i] = v + 10 // 正の値にシフト
	}

	lambda := estimateLambda(x)
	if math.Abs(lambda-1) > 0.5 {
		t.Errorf("estimateLambda() = %v for normal data, want ~1", lambda)
	}
}

func TestBoxCoxSelectColumns(t *testing.T) {
	tbl := dataset.NewTable()
	skewed := exponentialGrid(200)
	normal := normalGrid(200)
	constant := make([]float64, 200)
	withNaN := make([]float64, 200)
	for i := range constant {
		constant[i] = 5
		withNaN[i] = float64(i)
	}
	withNaN[10] = math.NaN()

	if err := tbl.AddNumeric("skewed", skewed); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("normal", normal); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("constant", constant); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("missingvals", withNaN); err != nil {
		t.Fatal(err)
	}

	b := NewBoxCoxTransformer()
	selected, err := b.SelectColumns(tbl, []string{"skewed", "normal", "constant", "missingvals"})
	if err != nil {
		t.Fatalf("SelectColumns() error = %v", err)
	}

	// 歪んだ列だけが選ばれる。定数列とNaN列は検定対象外。
	if !reflect.DeepEqual(selected, []string{"skewed"}) {
		t.Errorf("SelectColumns() = %v, want [skewed]", selected)
	}
}

func TestBoxCoxSelectColumnsForced(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("a", normalGrid(100)); err != nil {
		t.Fatal(err)
	}

	b := NewBoxCoxTransformer(WithBoxCoxColumns([]string{"a"}))
	selected, err := b.SelectColumns(tbl, []string{"a"})
	if err != nil {
		t.Fatalf("SelectColumns() error = %v", err)
	}
	if !reflect.DeepEqual(selected, []string{"a"}) {
		t.Errorf("SelectColumns() = %v, want [a]", selected)
	}
}

func TestBoxCoxFitTransformRoundTrip(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("a", exponentialGrid(100)); err != nil {
		t.Fatal(err)
	}

	b := NewBoxCoxTransformer()
	if err := b.Fit(tbl, []string{"a"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	out, err := b.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	back, err := b.InverseTransform(out)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}

	orig, _ := tbl.Floats("a")
	got, _ := back.Floats("a")
	for i := range orig {
		if math.Abs(got[i]-orig[i]) > 1e-6 {
			t.Errorf("round trip[%d] = %v, want %v", i, got[i], orig[i])
		}
	}
}

func TestBoxCoxTransformDoesNotMutateInput(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("a", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}); err != nil {
		t.Fatal(err)
	}

	b := NewFittedBoxCox(map[string]float64{"a": 0.5}, 1e-6)
	if _, err := b.Transform(tbl); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	orig, _ := tbl.Floats("a")
	if orig[0] != 1 || orig[9] != 10 {
		t.Errorf("Transform() mutated its input: %v", orig)
	}
}

func TestBoxCoxDomainViolation(t *testing.T) {
	train := dataset.NewTable()
	if err := train.AddNumeric("a", []float64{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	b := NewBoxCoxTransformer()
	if err := b.Fit(train, []string{"a"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// 適用先に非正の値があると部分出力なしで失敗する
	bad := dataset.NewTable()
	if err := bad.AddNumeric("a", []float64{1, -3, 2}); err != nil {
		t.Fatal(err)
	}
	_, err := b.Transform(bad)
	var ute *errors.UndefinedTransformError
	if !errors.As(err, &ute) {
		t.Errorf("Transform() error = %v, want UndefinedTransformError", err)
	}
}

func TestBoxCoxFitDomainViolation(t *testing.T) {
	train := dataset.NewTable()
	if err := train.AddNumeric("a", []float64{-1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	b := NewBoxCoxTransformer()
	err := b.Fit(train, []string{"a"})
	var ute *errors.UndefinedTransformError
	if !errors.As(err, &ute) {
		t.Errorf("Fit() error = %v, want UndefinedTransformError", err)
	}
}

func TestBoxCoxMissingColumnAtTransform(t *testing.T) {
	b := NewFittedBoxCox(map[string]float64{"a": 0.5}, 1e-6)

	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("b", []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	_, err := b.Transform(tbl)
	var cme *errors.ColumnMissingError
	if !errors.As(err, &cme) {
		t.Errorf("Transform() error = %v, want ColumnMissingError", err)
	}
}

func TestBoxCoxNotFitted(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("a", []float64{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	b := NewBoxCoxTransformer()
	_, err := b.Transform(tbl)
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Errorf("Transform() before Fit: error = %v, want NotFittedError", err)
	}
}

func TestBoxCoxSubsamplingIsReproducible(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("a", exponentialGrid(1000)); err != nil {
		t.Fatal(err)
	}

	fit := func() float64 {
		b := NewBoxCoxTransformer(
			WithBoxCoxSampleSize(200),
			WithBoxCoxRandomState(7),
		)
		if err := b.Fit(tbl, []string{"a"}); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		return b.Lambda["a"]
	}

	if l1, l2 := fit(), fit(); l1 != l2 {
		t.Errorf("same seed produced different lambdas: %v vs %v", l1, l2)
	}
}

func TestNewFittedBoxCoxReplaysExactly(t *testing.T) {
	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("a", exponentialGrid(100)); err != nil {
		t.Fatal(err)
	}

	b := NewBoxCoxTransformer()
	if err := b.Fit(tbl, []string{"a"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	direct, err := b.Transform(tbl)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	replayed, err := NewFittedBoxCox(b.Lambda, b.Epsilon()).Transform(tbl)
	if err != nil {
		t.Fatalf("replay Transform() error = %v", err)
	}

	want, _ := direct.Floats("a")
	got, _ := replayed.Floats("a")
	if !reflect.DeepEqual(got, want) {
		t.Error("replayed transform differs from the fitted transformer")
	}
}
