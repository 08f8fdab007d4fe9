package vector

import (
	"errors"
	"math"
	"testing"
)

func TestNewRejectsNonFinite(t *testing.T) {
	_, err := New([]float32{1, 2, float32(math.NaN()), 4})
	var nf *ErrNonFinite
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if nf.Index != 2 {
		t.Errorf("expected index 2, got %d", nf.Index)
	}

	_, err = New([]float32{1, float32(math.Inf(1))})
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNonFinite for +Inf, got %v", err)
	}
}

func TestNewWithDimRejectsBadLength(t *testing.T) {
	_, err := NewWithDim([]float32{1, 2, 3}, 4)
	var bd *ErrBadDimensions
	if !errors.As(err, &bd) {
		t.Fatalf("expected ErrBadDimensions, got %v", err)
	}
	if bd.Expected != 4 || bd.Got != 3 {
		t.Errorf("unexpected fields: %+v", bd)
	}
}

func TestNewCopiesBackingStorage(t *testing.T) {
	src := []float32{1, 2, 3}
	v, err := New(src)
	if err != nil {
		t.Fatal(err)
	}
	src[0] = 999
	if v.Data()[0] == 999 {
		t.Error("vector shares backing storage with caller-owned slice")
	}
}

func TestNormalizeUnitLength(t *testing.T) {
	v, _ := New([]float32{3, 4})
	n := v.Normalize()

	var sumSq float64
	for _, x := range n.Data() {
		sumSq += float64(x) * float64(x)
	}
	if math.Abs(sumSq-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got squared norm %v", sumSq)
	}
	// Receiver must be untouched.
	if v.Data()[0] != 3 || v.Data()[1] != 4 {
		t.Error("Normalize mutated the receiver")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v, _ := New([]float32{0, 0, 0})
	n := v.Normalize()
	for _, x := range n.Data() {
		if x != 0 {
			t.Errorf("expected zero vector to normalize to itself, got %v", n.Data())
		}
	}
}

func TestDatasetIngestionRowMajor(t *testing.T) {
	flat := []float32{
		0, 0,
		1, 0,
		0, 1,
	}
	ds, err := NewDataset(flat, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", ds.Len())
	}
	if got := ds.At(1).Data(); got[0] != 1 || got[1] != 0 {
		t.Errorf("row 1 mismatch: %v", got)
	}
}

func TestDatasetRejectsMisalignedBuffer(t *testing.T) {
	_, err := NewDataset([]float32{1, 2, 3}, 2)
	if err == nil {
		t.Fatal("expected error for buffer length not a multiple of dim")
	}
}

func TestDatasetRejectsNonFiniteRow(t *testing.T) {
	flat := []float32{0, 0, 1, float32(math.NaN())}
	_, err := NewDataset(flat, 2)
	if err == nil {
		t.Fatal("expected ingestion failure for non-finite row")
	}
}

func TestMetricNormalizesByDefault(t *testing.T) {
	cases := map[Metric]bool{
		SquaredEuclidean: false,
		Dot:               false,
		Cosine:            true,
		Angular:           true,
	}
	for m, want := range cases {
		if got := m.NormalizesByDefault(); got != want {
			t.Errorf("%v.NormalizesByDefault() = %v, want %v", m, got, want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	if _, err := ParseMetric("bogus"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
	m, err := ParseMetric("cosine")
	if err != nil || m != Cosine {
		t.Fatalf("ParseMetric(cosine) = %v, %v", m, err)
	}
}
