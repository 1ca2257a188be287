package pipeline

import (
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

// FittedState is the immutable aggregate of every parameter learned during
// Fit. It is produced exactly once per Pipeline instance, from the training
// table only, and is the sole carrier of information from training to the
// other splits: Apply reads it and nothing else. Because it is never mutated
// after Fit, it may be shared freely across concurrent Apply calls.
type FittedState struct {
	// BoxCoxLambda maps column name to the power parameter estimated at fit
	// time, one entry per column selected for transformation.
	BoxCoxLambda map[string]float64

	// BoxCoxEpsilon is the positivity shift the lambdas were estimated with.
	// Replaying the transform requires the same shift.
	BoxCoxEpsilon float64

	// ScaleStats maps column name to training mean and standard deviation,
	// covering every numeric predictor column.
	ScaleStats map[string]preprocessing.ScaleStat

	// ClusterCentroids is the ordered centroid sequence from the final
	// k-means iteration, each keyed by feature column name.
	ClusterCentroids []map[string]float64

	// FeatureColumns is the ordered set of feature columns the centroids
	// were fitted on. The target column is never among them.
	FeatureColumns []string
}

// clone returns a deep copy so callers can hold a snapshot without being
// able to reach the pipeline's own state.
func (s *FittedState) clone() *FittedState {
	out := &FittedState{
		BoxCoxLambda:   make(map[string]float64, len(s.BoxCoxLambda)),
		BoxCoxEpsilon:  s.BoxCoxEpsilon,
		ScaleStats:     make(map[string]preprocessing.ScaleStat, len(s.ScaleStats)),
		FeatureColumns: append([]string(nil), s.FeatureColumns...),
	}
	for k, v := range s.BoxCoxLambda {
		out.BoxCoxLambda[k] = v
	}
	for k, v := range s.ScaleStats {
		out.ScaleStats[k] = v
	}
	out.ClusterCentroids = make([]map[string]float64, len(s.ClusterCentroids))
	for i, centroid := range s.ClusterCentroids {
		m := make(map[string]float64, len(centroid))
		for k, v := range centroid {
			m[k] = v
		}
		out.ClusterCentroids[i] = m
	}
	return out
}
