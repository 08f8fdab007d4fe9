package vector

import "fmt"

// Metric selects which kernel invocation pattern the engine uses and
// whether a normalisation pre-pass runs before construction starts.
type Metric int

const (
	// SquaredEuclidean measures squared Euclidean distance. Smaller is closer.
	SquaredEuclidean Metric = iota
	// Cosine measures 1 − cos(θ). Smaller is closer. Normalises by default.
	Cosine
	// Dot measures a monotonic transform of the raw dot product. Smaller is closer.
	Dot
	// Angular is a generic angular measure driven by the angular hyperplane
	// kernel's own normalisation. Normalises by default.
	Angular
)

// String implements fmt.Stringer for diagnostics and CLI flag echoing.
func (m Metric) String() string {
	switch m {
	case SquaredEuclidean:
		return "squared_euclidean"
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	case Angular:
		return "angular"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric maps a CLI/config string onto a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "squared_euclidean", "sqeuclidean", "l2":
		return SquaredEuclidean, nil
	case "cosine":
		return Cosine, nil
	case "dot":
		return Dot, nil
	case "angular":
		return Angular, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// NormalizesByDefault reports whether this metric implies an up-front
// normalisation pass over the dataset.
func (m Metric) NormalizesByDefault() bool {
	return m == Cosine || m == Angular
}

// Dataset is an ordered, read-only sequence of validated vectors, indexed by
// point-id p in [0, N). It is shared by reference among all worker threads
// during construction; nothing below the ingestion boundary mutates it
// (Normalize, when requested, rebuilds the vector slice once, up front).
type Dataset struct {
	dim     int
	vectors []Vector
}

// NewDataset validates and ingests a flat row-major buffer of length N*dim.
// Every row is validated through NewWithDim; any failure aborts ingestion
// entirely — ingestion failures are fatal, never partial.
func NewDataset(flat []float32, dim int) (*Dataset, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dataset: dim must be positive, got %d", dim)
	}
	if len(flat)%dim != 0 {
		return nil, fmt.Errorf("dataset: flat buffer length %d is not a multiple of dim %d", len(flat), dim)
	}
	n := len(flat) / dim
	vectors := make([]Vector, n)
	for i := 0; i < n; i++ {
		v, err := NewWithDim(flat[i*dim:(i+1)*dim], dim)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", i, err)
		}
		vectors[i] = v
	}
	return &Dataset{dim: dim, vectors: vectors}, nil
}

// FromVectors builds a Dataset from already-validated vectors, checking that
// every vector shares the same dimensionality.
func FromVectors(vectors []Vector) (*Dataset, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("dataset: empty vector set")
	}
	dim := vectors[0].Dim()
	for i, v := range vectors {
		if v.Dim() != dim {
			return nil, fmt.Errorf("dataset: row %d: %w", i, &ErrBadDimensions{Expected: dim, Got: v.Dim()})
		}
	}
	owned := make([]Vector, len(vectors))
	copy(owned, vectors)
	return &Dataset{dim: dim, vectors: owned}, nil
}

// Len returns N, the number of points in the dataset.
func (d *Dataset) Len() int { return len(d.vectors) }

// Dim returns D, the dataset's dimensionality.
func (d *Dataset) Dim() int { return d.dim }

// At returns the vector for point-id p.
func (d *Dataset) At(p int) Vector { return d.vectors[p] }

// NormalizeInPlace replaces every vector with its unit-length form in a
// single sequential pass. Normalisation is the one mutation the dataset
// allows; nndescent applies it once, up front, before forest construction,
// calling NormalizeRange on disjoint ranges from its worker goroutines.
func (d *Dataset) NormalizeInPlace() {
	d.NormalizeRange(0, len(d.vectors))
}

// NormalizeRange normalises vectors [start, end) in place. Disjoint ranges
// touch disjoint slice elements, so concurrent callers with non-overlapping
// ranges need no synchronisation.
func (d *Dataset) NormalizeRange(start, end int) {
	for i := start; i < end; i++ {
		d.vectors[i] = d.vectors[i].Normalize()
	}
}
