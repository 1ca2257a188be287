// Package pipeline orchestrates the preprocessing transforms in a fixed
// order: Box-Cox power transforms, standardization, deterministic feature
// derivation, and nearest-centroid cluster assignment. Parameters are
// learned once from the training table (Fit) and replayed unchanged on any
// table (Apply), so every split sees features on identical scales.
package pipeline

import (
	"sync"
	"time"

	"github.com/YuminosukeSato/tabprep/cluster"
	"github.com/YuminosukeSato/tabprep/dataset"
	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
)

// DefaultTargetColumn is the target used when none is configured.
const DefaultTargetColumn = "Calories"

// DefaultClusterColumn is the name of the appended cluster-index column.
const DefaultClusterColumn = "cluster"

var (
	globalProvider     log.LoggerProvider
	globalProviderOnce sync.Once
)

// Pipeline learns a FittedState from a training table and applies the
// identical transform chain to any table. A Pipeline instance fits exactly
// once; Apply never refits and never mutates its input.
type Pipeline struct {
	target        string
	clusterColumn string
	exclude       map[string]bool

	boxcox *preprocessing.BoxCoxTransformer
	kmeans *cluster.KMeans
	derive preprocessing.DeriveConfig

	state  *FittedState
	logger log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTarget sets the target column name (default "Calories"). The target
// is excluded from every fitted transform and from clustering.
func WithTarget(name string) Option {
	return func(p *Pipeline) {
		p.target = name
	}
}

// WithClusterColumn sets the name of the appended cluster column.
func WithClusterColumn(name string) Option {
	return func(p *Pipeline) {
		p.clusterColumn = name
	}
}

// WithExcludeColumns marks columns (row identifiers, bookkeeping) that the
// pipeline must leave untouched and never fit on.
func WithExcludeColumns(names ...string) Option {
	return func(p *Pipeline) {
		for _, n := range names {
			p.exclude[n] = true
		}
	}
}

// WithBoxCoxOptions forwards options to the Box-Cox transformer.
func WithBoxCoxOptions(options ...preprocessing.BoxCoxOption) Option {
	return func(p *Pipeline) {
		p.boxcox = preprocessing.NewBoxCoxTransformer(options...)
	}
}

// WithKMeansOptions forwards options to the cluster assigner.
func WithKMeansOptions(options ...cluster.Option) Option {
	return func(p *Pipeline) {
		p.kmeans = cluster.NewKMeans(options...)
	}
}

// WithDeriveConfig sets the derived-feature configuration.
func WithDeriveConfig(cfg preprocessing.DeriveConfig) Option {
	return func(p *Pipeline) {
		p.derive = cfg
	}
}

// WithLoggerProvider overrides the logging backend, mainly for tests.
func WithLoggerProvider(provider log.LoggerProvider) Option {
	return func(p *Pipeline) {
		p.logger = provider.GetLoggerWithName("Pipeline")
	}
}

// New creates a Pipeline with the given options.
func New(options ...Option) *Pipeline {
	p := &Pipeline{
		target:        DefaultTargetColumn,
		clusterColumn: DefaultClusterColumn,
		exclude:       make(map[string]bool),
		boxcox:        preprocessing.NewBoxCoxTransformer(),
		kmeans:        cluster.NewKMeans(),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		globalProviderOnce.Do(func() {
			globalProvider = log.NewZerologProvider(log.LevelInfo)
		})
		p.logger = globalProvider.GetLoggerWithName("Pipeline")
	}
	return p
}

// predictorColumns returns the numeric columns eligible for fitting: every
// numeric column except the target and the configured exclusions.
func (p *Pipeline) predictorColumns(tbl *dataset.Table) []string {
	var out []string
	for _, name := range tbl.NumericColumnNames() {
		if name == p.target || p.exclude[name] {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Fit learns every transform parameter from the training table, in order:
// Box-Cox column selection and lambda estimation on raw values,
// standardization statistics on Box-Cox-transformed values, and k-means
// centroids on standardized values. The order matters because Euclidean
// distance is scale-sensitive. Fit reads no table other than the one passed
// to it, and a Pipeline instance fits at most once.
func (p *Pipeline) Fit(train *dataset.Table) (*FittedState, error) {
	if p.state != nil {
		return nil, errors.NewValueError("Pipeline.Fit", "pipeline is already fitted; create a new instance to refit")
	}
	if train.NumRows() == 0 {
		return nil, errors.NewModelError("Pipeline.Fit", "empty training table", errors.ErrEmptyData)
	}
	if err := p.validateDeriveConfig(); err != nil {
		return nil, err
	}

	started := time.Now()
	predictors := p.predictorColumns(train)
	if len(predictors) == 0 {
		return nil, errors.NewValueError("Pipeline.Fit", "training table has no numeric predictor columns")
	}
	p.logger.Info("fit started",
		log.OperationKey, "fit",
		log.RowsKey, train.NumRows(),
		log.ColumnsKey, train.NumColumns(),
	)

	selected, err := p.boxcox.SelectColumns(train, predictors)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select Box-Cox columns")
	}
	// An explicitly configured column list must stay within the predictors.
	for _, name := range selected {
		if name == p.target || p.exclude[name] {
			return nil, errors.NewValidationError("boxcox", "transform columns must be predictor columns", name)
		}
	}
	if err := p.boxcox.Fit(train, selected); err != nil {
		return nil, errors.Wrap(err, "failed to fit Box-Cox transformer")
	}
	p.logger.Debug("box-cox fitted", log.StepKey, "boxcox", log.ColumnsKey, len(selected))

	transformed, err := p.boxcox.Transform(train)
	if err != nil {
		return nil, errors.Wrap(err, "failed to transform training table at step 'boxcox'")
	}

	scaler := preprocessing.NewStandardScaler()
	if err := scaler.Fit(transformed, predictors); err != nil {
		return nil, errors.Wrap(err, "failed to fit standardizer")
	}
	standardized, err := scaler.Transform(transformed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to transform training table at step 'standardize'")
	}
	p.logger.Debug("standardizer fitted", log.StepKey, "standardize", log.ColumnsKey, len(predictors))

	if err := p.kmeans.Fit(standardized, predictors); err != nil {
		return nil, errors.Wrap(err, "failed to fit cluster assigner")
	}
	p.logger.Info("fit finished",
		log.OperationKey, "fit",
		log.InertiaKey, p.kmeans.Inertia(),
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)

	p.state = &FittedState{
		BoxCoxLambda:     p.boxcox.Lambda,
		BoxCoxEpsilon:    p.boxcox.Epsilon(),
		ScaleStats:       scaler.Stats,
		ClusterCentroids: p.kmeans.CentroidMaps(),
		FeatureColumns:   p.kmeans.FeatureColumns(),
	}
	return p.state.clone(), nil
}

// Apply replays the fitted transform chain on any table: Box-Cox with the
// stored lambdas, standardization with the stored statistics, feature
// derivation, and nearest-centroid assignment appended as the cluster
// column. Only parameters from the FittedState are consulted; nothing is
// refitted. The input is never mutated, and the result is deterministic:
// applying twice to the same table yields identical output. The target
// column may be present or absent; it passes through untouched either way.
func (p *Pipeline) Apply(tbl *dataset.Table) (*dataset.Table, error) {
	if p.state == nil {
		return nil, errors.NewNotFittedError("Pipeline", "Apply")
	}
	return p.applyState(tbl, p.state)
}

func (p *Pipeline) applyState(tbl *dataset.Table, state *FittedState) (*dataset.Table, error) {
	started := time.Now()

	boxcox := preprocessing.NewFittedBoxCox(state.BoxCoxLambda, state.BoxCoxEpsilon)
	out, err := boxcox.Transform(tbl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply step 'boxcox'")
	}

	scaler := preprocessing.NewFittedStandardScaler(state.ScaleStats)
	out, err = scaler.Transform(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply step 'standardize'")
	}

	out, err = preprocessing.DeriveFeatures(out, p.derive)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply step 'derive'")
	}

	assignments, err := cluster.AssignNearest(out, state.ClusterCentroids, state.FeatureColumns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply step 'cluster'")
	}
	clusterIdx := make([]float64, len(assignments))
	for i, c := range assignments {
		clusterIdx[i] = float64(c)
	}
	if err := out.AddNumeric(p.clusterColumn, clusterIdx); err != nil {
		return nil, errors.Wrap(err, "failed to append cluster column")
	}

	// Strict whole-table policy: never ship partial or NaN-bearing output.
	for _, name := range out.NumericColumnNames() {
		if name == p.target || p.exclude[name] {
			continue
		}
		col, _ := out.Column(name)
		if err := errors.CheckNumericalStability("Pipeline.Apply", col.Floats); err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
	}

	p.logger.Info("apply finished",
		log.OperationKey, "apply",
		log.RowsKey, out.NumRows(),
		log.ColumnsKey, out.NumColumns(),
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	return out, nil
}

// State returns a deep copy of the fitted state, or nil before Fit.
func (p *Pipeline) State() *FittedState {
	if p.state == nil {
		return nil
	}
	return p.state.clone()
}

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool {
	return p.state != nil
}

func (p *Pipeline) validateDeriveConfig() error {
	refs := []string{p.derive.ExpColumn, p.derive.SquareColumn}
	for _, pair := range p.derive.InteractionPairs {
		refs = append(refs, pair[0], pair[1])
	}
	for _, name := range refs {
		if name == p.target {
			return errors.NewValidationError("derive", "derived features must not reference the target column", name)
		}
	}
	return nil
}
