// Package log defines standard attribute keys for pipeline operations.
//
// Using these standard keys enables consistent log analysis and debugging of
// fit/apply workflows. The keys follow a hierarchical naming convention
// (e.g. "pipeline.step", "data.rows") for structured filtering.
package log

// Component and Operation Context
const (
	// ComponentKey identifies which component is performing the operation.
	// Examples: "Pipeline", "BoxCoxTransformer", "KMeans"
	ComponentKey = "component"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "apply", "transform", "assign", "select_columns"
	OperationKey = "ml.operation"

	// StepKey names the pipeline step currently executing.
	// Examples: "boxcox", "standardize", "derive", "cluster"
	StepKey = "pipeline.step"

	// ColumnKey names the table column being processed.
	ColumnKey = "data.column"
)

// Data Shape
const (
	// RowsKey indicates the number of rows in the table being processed.
	RowsKey = "data.rows"

	// ColumnsKey indicates the number of columns in the table being processed.
	ColumnsKey = "data.columns"

	// ClustersKey indicates the number of clusters (k) for the assigner.
	ClustersKey = "cluster.k"
)

// Performance and Fit Results
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// InertiaKey records the within-cluster sum of squares after fitting.
	InertiaKey = "cluster.inertia"

	// LambdaKey records a fitted Box-Cox lambda.
	LambdaKey = "boxcox.lambda"

	// PValueKey records a normality-test p-value.
	PValueKey = "boxcox.p_value"
)
