// Package scalar implements the kernel.Kernel interface with portable,
// allocation-light scalar loops — a Go transliteration of the "fallback"
// (non-SIMD) math in eonn-accel/src/danger/*.rs, the routines the original
// Rust compiles in whenever no specialised CPU feature is available. SIMD
// specialisation is out of scope here; this is the one concrete backend
// the index ships.
package scalar

import "math"

// Kernel is the zero-value-usable scalar distance kernel.
type Kernel struct{}

// New returns a scalar Kernel. There is no state to configure.
func New() Kernel { return Kernel{} }

// Dot returns the dot product of x and y.
func (Kernel) Dot(x, y []float32) float32 {
	var sum float32
	for i := range x {
		sum += x[i] * y[i]
	}
	return sum
}

// SquaredNorm returns the squared L2 norm of x.
func (k Kernel) SquaredNorm(x []float32) float32 {
	return k.Dot(x, x)
}

// SquaredEuclidean returns the squared Euclidean distance between x and y,
// mirroring eonn-accel/src/danger/fallback_euclidean.rs.
func (Kernel) SquaredEuclidean(x, y []float32) float32 {
	var sum float32
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}
	return sum
}

// Cosine returns 1 − cosine-similarity(x, y), mirroring
// eonn-accel/src/danger/fallback_cosine.rs's cosine() combinator: 0 when
// both norms are zero, 1 when exactly one is, otherwise 1 − dot/‖x‖‖y‖.
func (k Kernel) Cosine(x, y []float32) float32 {
	normX := k.Dot(x, x)
	normY := k.Dot(y, y)
	dot := k.Dot(x, y)
	return cosineFromParts(dot, normX, normY)
}

func cosineFromParts(dot, normX, normY float32) float32 {
	zeroX := normX == 0
	zeroY := normY == 0
	switch {
	case zeroX && zeroY:
		return 0
	case zeroX != zeroY:
		return 1
	default:
		denom := float32(math.Sqrt(float64(normX) * float64(normY)))
		return 1 - dot/denom
	}
}

// AngularHyperplane returns x/‖x‖ − y/‖y‖ renormalised to unit length,
// mirroring eonn-accel/src/danger/fallback_angular_hyperplane.rs. A norm
// below a small epsilon is treated as 1 (matching the Rust fallback's
// `if norm.abs() < f32::EPSILON { norm = 1.0 }` guard) so that zero vectors
// don't produce a division by zero; the resulting hyperplane is the zero
// vector iff x/‖x‖ == y/‖y‖.
func (k Kernel) AngularHyperplane(x, y []float32) []float32 {
	normX := safeNorm(float32(math.Sqrt(float64(k.Dot(x, x)))))
	normY := safeNorm(float32(math.Sqrt(float64(k.Dot(y, y)))))

	h := make([]float32, len(x))
	for i := range x {
		h[i] = x[i]/normX - y[i]/normY
	}

	normH := safeNorm(float32(math.Sqrt(float64(k.Dot(h, h)))))
	for i := range h {
		h[i] /= normH
	}
	return h
}

func safeNorm(n float32) float32 {
	if n < 1.1920929e-07 { // f32::EPSILON
		return 1
	}
	return n
}

// EuclideanHyperplane returns H = x − y and off = −Σ Hᵢ·(xᵢ+yᵢ)/2, mirroring
// eonn-accel/src/danger/f32_fallback_euclidean_hyperplane.rs.
func (Kernel) EuclideanHyperplane(x, y []float32) ([]float32, float32) {
	h := make([]float32, len(x))
	var offsetAcc float32
	for i := range x {
		diff := x[i] - y[i]
		mean := (x[i] + y[i]) * 0.5
		h[i] = diff
		offsetAcc += diff * mean
	}
	return h, -offsetAcc
}
