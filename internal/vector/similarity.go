package vector

import "sort"

// SquaredL2 returns the squared Euclidean distance between a and b.
// Vectors of different length are treated as infinitely far apart by callers;
// here the shorter length bounds the sum.
func SquaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// rankByDistance orders positions 0..n-1 by increasing distance. Equal
// distances keep insertion order.
func rankByDistance(distances []float64) []int {
	order := make([]int, len(distances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return distances[order[i]] < distances[order[j]] })
	return order
}
