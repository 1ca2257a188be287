package linear

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

func regressionTable(t *testing.T) *dataset.Table {
	t.Helper()
	// y = 2*x1 + 3*x2 + 5
	x1 := []float64{1, 2, 3, 4, 5, 6}
	x2 := []float64{2, 1, 4, 3, 6, 5}
	y := make([]float64, len(x1))
	for i := range y {
		y[i] = 2*x1[i] + 3*x2[i] + 5
	}

	tbl := dataset.NewTable()
	if err := tbl.AddNumeric("x1", x1); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("x2", x2); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddNumeric("y", y); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestRegressionFit(t *testing.T) {
	tbl := regressionTable(t)
	model := NewRegression("y", []string{"x1", "x2"})

	if err := model.Fit(tbl); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	tolerance := 1e-8
	if math.Abs(model.Weights.AtVec(0)-2) > tolerance {
		t.Errorf("weight[0] = %v, want 2", model.Weights.AtVec(0))
	}
	if math.Abs(model.Weights.AtVec(1)-3) > tolerance {
		t.Errorf("weight[1] = %v, want 3", model.Weights.AtVec(1))
	}
	if math.Abs(model.Intercept-5) > tolerance {
		t.Errorf("intercept = %v, want 5", model.Intercept)
	}
}

func TestRegressionPredict(t *testing.T) {
	tbl := regressionTable(t)
	model := NewRegression("y", []string{"x1", "x2"})
	if err := model.Fit(tbl); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	test := dataset.NewTable()
	if err := test.AddNumeric("x1", []float64{10, 0}); err != nil {
		t.Fatal(err)
	}
	if err := test.AddNumeric("x2", []float64{1, 0}); err != nil {
		t.Fatal(err)
	}

	preds, err := model.Predict(test)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	want := []float64{2*10 + 3*1 + 5, 5}
	for i := range want {
		if math.Abs(preds[i]-want[i]) > 1e-8 {
			t.Errorf("Predict()[%d] = %v, want %v", i, preds[i], want[i])
		}
	}
}

func TestRegressionPredictBeforeFit(t *testing.T) {
	tbl := regressionTable(t)
	model := NewRegression("y", []string{"x1", "x2"})
	_, err := model.Predict(tbl)
	var nfe *errors.NotFittedError
	if !errors.As(err, &nfe) {
		t.Errorf("Predict() before Fit: error = %v, want NotFittedError", err)
	}
}

func TestRegressionMissingFeature(t *testing.T) {
	tbl := regressionTable(t)
	model := NewRegression("y", []string{"x1", "nope"})
	if err := model.Fit(tbl); err == nil {
		t.Error("Fit() with missing feature column should fail")
	}
}

func TestRegressionEmptyTable(t *testing.T) {
	model := NewRegression("y", []string{"x1"})
	if err := model.Fit(dataset.NewTable()); err == nil {
		t.Error("Fit() on an empty table should fail")
	}
}
