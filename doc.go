// Package tabprep provides a leakage-safe preprocessing pipeline for
// tabular regression workloads in Go.
//
// Tabprep learns every data-dependent parameter (Box-Cox lambdas,
// standardization statistics, k-means centroids) from a training table
// exactly once, captures them in an immutable FittedState, and replays
// the identical transform chain on any other table. Validation and test
// splits therefore never influence the fitted parameters.
//
// # Installation
//
// Install tabprep using go get:
//
//	go get github.com/YuminosukeSato/tabprep
//
// # Quick Start
//
// Fit the pipeline on a training table and apply it to a scoring table:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/tabprep/dataset"
//	    "github.com/YuminosukeSato/tabprep/pipeline"
//	)
//
//	func main() {
//	    f, err := os.Open("train.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer f.Close()
//
//	    train, err := dataset.ReadCSV(f)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p := pipeline.New(pipeline.WithTarget("Calories"))
//	    if _, err := p.Fit(train); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    out, err := p.Apply(train)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("columns:", out.ColumnNames())
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - dataset: column-oriented in-memory tables and CSV I/O
//   - preprocessing: Box-Cox transform, standardization, derived features
//   - cluster: k-means fitting and nearest-centroid assignment
//   - pipeline: fit-once / apply-many orchestration and FittedState
//   - metrics: evaluation metrics (RMSLE, RMSE, MSE, MAE, R²)
//   - linear: a table-based linear regression baseline
//   - core/model: shared estimator base types and interfaces
//   - core/parallel: parallel processing utilities
//
// # Performance
//
// Transforms parallelize automatically for tables with more than 10,000
// rows, with CPU core detection and thread-safe application of a fitted
// pipeline from multiple goroutines.
//
// # License
//
// Tabprep is released under the MIT License.
package tabprep
