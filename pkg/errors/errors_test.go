package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "tabprep: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Apply",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "tabprep: Apply: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			// ModelError型にキャスト可能か確認
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Transform", 10, 8, 0)

	want := "tabprep: Transform: dimension mismatch on axis 0 (rows). Expected 10, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Pipeline", "Apply")

	var nfe *NotFittedError
	if !As(err, &nfe) {
		t.Fatal("Error should be castable to *NotFittedError")
	}
	if nfe.ModelName != "Pipeline" || nfe.Method != "Apply" {
		t.Errorf("fields = (%s, %s)", nfe.ModelName, nfe.Method)
	}
	if !strings.Contains(err.Error(), "not fitted") {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestNewColumnMissingError(t *testing.T) {
	err := NewColumnMissingError("KMeans.Assign", "Heart_Rate")

	var cme *ColumnMissingError
	if !As(err, &cme) {
		t.Fatal("Error should be castable to *ColumnMissingError")
	}
	if cme.Column != "Heart_Rate" {
		t.Errorf("Column = %s", cme.Column)
	}
	if !strings.Contains(err.Error(), `"Heart_Rate"`) {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestNewUndefinedTransformError(t *testing.T) {
	err := NewUndefinedTransformError("BoxCoxTransformer.Transform", "Duration", -2.5)

	var ute *UndefinedTransformError
	if !As(err, &ute) {
		t.Fatal("Error should be castable to *UndefinedTransformError")
	}
	if ute.Value != -2.5 {
		t.Errorf("Value = %v", ute.Value)
	}
	if !strings.Contains(err.Error(), "non-positive") {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestNewDegenerateScaleError(t *testing.T) {
	err := NewDegenerateScaleError("StandardScaler.Fit", "constant_col")

	var dse *DegenerateScaleError
	if !As(err, &dse) {
		t.Fatal("Error should be castable to *DegenerateScaleError")
	}
	if !strings.Contains(err.Error(), "zero standard deviation") {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestWarnHandler(t *testing.T) {
	var captured error
	SetWarningHandler(func(w error) {
		captured = w
	})
	defer SetWarningHandler(nil)

	warning := NewConvergenceWarning("KMeans", 300, "")
	Warn(warning)

	var cw *ConvergenceWarning
	if !As(captured, &cw) {
		t.Fatalf("captured warning = %v, want ConvergenceWarning", captured)
	}
	if cw.Iterations != 300 {
		t.Errorf("Iterations = %d, want 300", cw.Iterations)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("test", []float64{1, 2, 3}); err != nil {
		t.Errorf("CheckNumericalStability() error = %v for finite values", err)
	}

	bad := []float64{1, 2, math.NaN()}
	if err := CheckNumericalStability("test", bad); err == nil {
		t.Error("CheckNumericalStability() should fail on NaN")
	}

	var nie *NumericalInstabilityError
	err := CheckNumericalStability("boxcox_transform", bad)
	if !As(err, &nie) {
		t.Error("Error should be castable to *NumericalInstabilityError")
	}
}
