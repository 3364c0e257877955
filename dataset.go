package kmedoids

import "gonum.org/v1/gonum/mat"

// Dataset is the engine's internal (d, n) column-major view of the input
// matrix: d dimensions by n points, one column per point. The caller
// supplies data as an (n, d) matrix (one row per point, following gonum's
// usual convention); NewDataset transposes it once at fit entry, matching
// the reference implementation's "data = arma::trans(data)" step.
type Dataset struct {
	dense *mat.Dense
	n, d  int
}

// NewDataset transposes raw (shape n x d) into the engine's internal
// (d x n) layout. It returns an error if raw is empty in either dimension.
func NewDataset(raw *mat.Dense) (*Dataset, error) {
	n, d := raw.Dims()
	if n == 0 || d == 0 {
		return nil, &ErrDimensionMismatch{N: n, D: d, K: 0, Reason: "dataset is empty"}
	}
	t := mat.DenseCopyOf(raw.T())
	return &Dataset{dense: t, n: n, d: d}, nil
}

// N returns the number of points.
func (ds *Dataset) N() int { return ds.n }

// D returns the number of dimensions per point.
func (ds *Dataset) D() int { return ds.d }

// Column returns a fresh copy of point idx's coordinate vector, length D().
// It implements internal/cache.ColumnSource and is the unit of work handed
// to a metric.Metric.
func (ds *Dataset) Column(idx int) []float64 {
	col := make([]float64, ds.d)
	mat.Col(col, idx, ds.dense)
	return col
}
