package spatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix holds symmetric pairwise great-circle distances in kilometers.
// The zero-point matrix is valid and has Len 0.
type DistanceMatrix struct {
	n   int
	sym *mat.SymDense
}

// PairwiseMatrix computes the NxN distance matrix for the given coordinates using
// the spherical law of cosines. The inverse-cosine argument is clamped to [-1,1],
// so float drift on near-identical or near-antipodal points never yields NaN.
func PairwiseMatrix(lats, lons []float64) (*DistanceMatrix, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("coordinate length mismatch: %d lats, %d lons", len(lats), len(lons))
	}

	n := len(lats)
	if n == 0 {
		return &DistanceMatrix{}, nil
	}

	latRad := make([]float64, n)
	lonRad := make([]float64, n)
	cosLat := make([]float64, n)
	for i := range lats {
		latRad[i] = lats[i] * math.Pi / 180
		lonRad[i] = lons[i] * math.Pi / 180
		cosLat[i] = math.Cos(latRad[i])
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			arg := math.Cos(latRad[i]-latRad[j]) - cosLat[i]*cosLat[j]*(1-math.Cos(lonRad[i]-lonRad[j]))
			sym.SetSym(i, j, EarthRadiusKm*math.Acos(clampUnit(arg)))
		}
	}

	return &DistanceMatrix{n: n, sym: sym}, nil
}

// Len returns the number of points
func (m *DistanceMatrix) Len() int {
	return m.n
}

// At returns the distance between point i and point j
func (m *DistanceMatrix) At(i, j int) float64 {
	return m.sym.At(i, j)
}

// Row returns a copy of the distances from point i to every point
func (m *DistanceMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.sym)
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
