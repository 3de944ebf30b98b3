package opt

import "math"

// DistanceMatrix stores pairwise Euclidean distances in a flat row-major buffer.
type DistanceMatrix struct {
	n int
	d []float64
}

// NewDistanceMatrix computes all pairwise distances once. Entries are mirrored
// so At(i, j) == At(j, i) holds bit for bit.
func NewDistanceMatrix(customers []Customer) *DistanceMatrix {
	n := len(customers)
	m := &DistanceMatrix{n: n, d: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := customers[i].X - customers[j].X
			dy := customers[i].Y - customers[j].Y
			v := math.Sqrt(dx*dx + dy*dy)
			m.d[i*n+j] = v
			m.d[j*n+i] = v
		}
	}
	return m
}

// At returns the distance between nodes i and j.
func (m *DistanceMatrix) At(i, j int) float64 { return m.d[i*m.n+j] }

// Len returns the number of nodes, depot included.
func (m *DistanceMatrix) Len() int { return m.n }
