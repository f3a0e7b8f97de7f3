package analysis

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// dbscanNoise labels rows belonging to no dense cluster.
const dbscanNoise = -1

// dbscanLabels runs density-based clustering over the rows of a
// standardized matrix with euclidean distance. Rows in dense regions get
// a cluster id >= 0; everything else is labeled noise. eps and minPts
// are explicit so callers (and tests) control the density definition.
func dbscanLabels(data *mat.Dense, eps float64, minPts int) []int {
	rows, _ := data.Dims()
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = dbscanNoise
	}
	visited := make([]bool, rows)

	cluster := 0
	for i := 0; i < rows; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(data, i, eps)
		if len(neighbors) < minPts {
			continue
		}

		labels[i] = cluster
		expandCluster(data, labels, visited, neighbors, cluster, eps, minPts)
		cluster++
	}

	return labels
}

func expandCluster(data *mat.Dense, labels []int, visited []bool, seeds []int, cluster int, eps float64, minPts int) {
	for idx := 0; idx < len(seeds); idx++ {
		point := seeds[idx]
		if !visited[point] {
			visited[point] = true
			neighbors := regionQuery(data, point, eps)
			if len(neighbors) >= minPts {
				seeds = append(seeds, neighbors...)
			}
		}
		if labels[point] == dbscanNoise {
			labels[point] = cluster
		}
	}
}

func regionQuery(data *mat.Dense, i int, eps float64) []int {
	rows, cols := data.Dims()
	neighbors := make([]int, 0)
	for j := 0; j < rows; j++ {
		var sum float64
		for k := 0; k < cols; k++ {
			d := data.At(i, k) - data.At(j, k)
			sum += d * d
		}
		if math.Sqrt(sum) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
